package database

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// Import status lifecycle values.
const (
	ImportStatusPending    = "pending"
	ImportStatusInProgress = "in_progress"
	ImportStatusCompleted  = "completed"
	ImportStatusFailed     = "failed"
)

type Restaurant struct {
	ID            int64              `json:"id"`
	Name          pgtype.Text        `json:"name"`
	CurrentMenuID pgtype.Int8        `json:"current_menu_id"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
	UpdatedAt     pgtype.Timestamptz `json:"updated_at"`
}

type Menu struct {
	ID           int64              `json:"id"`
	Name         pgtype.Text        `json:"name"`
	Description  pgtype.Text        `json:"description"`
	RestaurantID pgtype.Int8        `json:"restaurant_id"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
	UpdatedAt    pgtype.Timestamptz `json:"updated_at"`
}

type MenuItem struct {
	ID          int64              `json:"id"`
	Name        pgtype.Text        `json:"name"`
	Description pgtype.Text        `json:"description"`
	Price       pgtype.Float8      `json:"price"`
	PictureUrl  pgtype.Text        `json:"picture_url"`
	CreatedAt   pgtype.Timestamptz `json:"created_at"`
	UpdatedAt   pgtype.Timestamptz `json:"updated_at"`
}

type ImportStatus struct {
	ID             pgtype.UUID        `json:"id"`
	Status         string             `json:"status"`
	PayloadKey     string             `json:"payload_key"`
	StartedAt      pgtype.Timestamptz `json:"started_at"`
	FinishedAt     pgtype.Timestamptz `json:"finished_at"`
	ErrorMessage   pgtype.Text        `json:"error_message"`
	ErrorBacktrace pgtype.Text        `json:"error_backtrace"`
	ResultData     []byte             `json:"result_data"`
	CreatedAt      pgtype.Timestamptz `json:"created_at"`
	UpdatedAt      pgtype.Timestamptz `json:"updated_at"`
}
