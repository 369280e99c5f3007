package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const importStatusColumns = `id, status, payload_key, started_at, finished_at, error_message, error_backtrace, result_data, created_at, updated_at`

func scanImportStatus(row interface{ Scan(...any) error }) (ImportStatus, error) {
	var i ImportStatus
	err := row.Scan(
		&i.ID,
		&i.Status,
		&i.PayloadKey,
		&i.StartedAt,
		&i.FinishedAt,
		&i.ErrorMessage,
		&i.ErrorBacktrace,
		&i.ResultData,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createImportStatus = `-- name: CreateImportStatus :one
INSERT INTO import_statuses (id, status, payload_key)
VALUES ($1, 'pending', $2)
RETURNING ` + importStatusColumns

type CreateImportStatusParams struct {
	ID         pgtype.UUID `json:"id"`
	PayloadKey string      `json:"payload_key"`
}

func (q *Queries) CreateImportStatus(ctx context.Context, arg CreateImportStatusParams) (ImportStatus, error) {
	return scanImportStatus(q.db.QueryRow(ctx, createImportStatus, arg.ID, arg.PayloadKey))
}

const getImportStatus = `-- name: GetImportStatus :one
SELECT ` + importStatusColumns + `
FROM import_statuses
WHERE id = $1
`

func (q *Queries) GetImportStatus(ctx context.Context, id pgtype.UUID) (ImportStatus, error) {
	return scanImportStatus(q.db.QueryRow(ctx, getImportStatus, id))
}

const claimPendingImportStatus = `-- name: ClaimPendingImportStatus :one
UPDATE import_statuses
SET status = 'in_progress', started_at = now(), updated_at = now()
WHERE id = (
    SELECT id FROM import_statuses
    WHERE status = 'pending'
    ORDER BY created_at
    LIMIT 1
    FOR UPDATE SKIP LOCKED
)
RETURNING ` + importStatusColumns

// ClaimPendingImportStatus moves the oldest pending import to in_progress
// and returns it. Concurrent workers never claim the same row. Returns
// pgx.ErrNoRows when nothing is pending.
func (q *Queries) ClaimPendingImportStatus(ctx context.Context) (ImportStatus, error) {
	return scanImportStatus(q.db.QueryRow(ctx, claimPendingImportStatus))
}

const finishImportStatus = `-- name: FinishImportStatus :exec
UPDATE import_statuses
SET status = $2,
    result_data = COALESCE($3, result_data),
    error_message = $4,
    error_backtrace = $5,
    finished_at = now(),
    updated_at = now()
WHERE id = $1
`

type FinishImportStatusParams struct {
	ID             pgtype.UUID `json:"id"`
	Status         string      `json:"status"`
	ResultData     []byte      `json:"result_data"`
	ErrorMessage   pgtype.Text `json:"error_message"`
	ErrorBacktrace pgtype.Text `json:"error_backtrace"`
}

// FinishImportStatus records the outcome of an import. A nil ResultData
// keeps the stored value.
func (q *Queries) FinishImportStatus(ctx context.Context, arg FinishImportStatusParams) error {
	_, err := q.db.Exec(ctx, finishImportStatus,
		arg.ID,
		arg.Status,
		arg.ResultData,
		arg.ErrorMessage,
		arg.ErrorBacktrace,
	)
	return err
}

const requeueStaleImportStatuses = `-- name: RequeueStaleImportStatuses :execrows
UPDATE import_statuses
SET status = 'pending', started_at = NULL, updated_at = now()
WHERE status = 'in_progress' AND started_at < $1
`

// RequeueStaleImportStatuses puts imports claimed before olderThan back in
// the queue, for workers that died mid-import.
func (q *Queries) RequeueStaleImportStatuses(ctx context.Context, olderThan pgtype.Timestamptz) (int64, error) {
	result, err := q.db.Exec(ctx, requeueStaleImportStatuses, olderThan)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const requeueImportStatus = `-- name: RequeueImportStatus :exec
UPDATE import_statuses
SET status = 'pending', started_at = NULL, updated_at = now()
WHERE id = $1 AND status = 'in_progress'
`

// RequeueImportStatus puts one claimed import back in the queue without
// recording an outcome.
func (q *Queries) RequeueImportStatus(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, requeueImportStatus, id)
	return err
}
