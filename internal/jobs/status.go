package jobs

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	db "github.com/JonMunkholm/menuimport/internal/database"
)

// ErrImportStatusNotFound is returned for unknown or malformed import ids.
var ErrImportStatusNotFound = errors.New("import status not found")

// StatusView is the JSON shape of an import status.
type StatusView struct {
	ID             string          `json:"id"`
	Status         string          `json:"status"`
	StartedAt      *time.Time      `json:"started_at"`
	FinishedAt     *time.Time      `json:"finished_at"`
	ErrorMessage   *string         `json:"error_message"`
	ErrorBacktrace *string         `json:"error_backtrace"`
	ResultData     json.RawMessage `json:"result_data"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func newStatusView(s db.ImportStatus) *StatusView {
	v := &StatusView{
		ID:             db.UUIDString(s.ID),
		Status:         s.Status,
		StartedAt:      timePtr(s.StartedAt),
		FinishedAt:     timePtr(s.FinishedAt),
		ErrorMessage:   textPtr(s.ErrorMessage),
		ErrorBacktrace: textPtr(s.ErrorBacktrace),
		ResultData:     json.RawMessage(s.ResultData),
		CreatedAt:      s.CreatedAt.Time,
		UpdatedAt:      s.UpdatedAt.Time,
	}
	if len(v.ResultData) == 0 {
		v.ResultData = json.RawMessage("{}")
	}
	return v
}

func timePtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}
