package database

import (
	"context"
)

const resetMenuTables = `-- name: ResetMenuTables :exec
TRUNCATE menu_menu_items, menu_items, menus, restaurants RESTART IDENTITY CASCADE
`

func (q *Queries) ResetMenuTables(ctx context.Context) error {
	_, err := q.db.Exec(ctx, resetMenuTables)
	return err
}

const resetImportStatuses = `-- name: ResetImportStatuses :exec
DELETE FROM import_statuses
`

func (q *Queries) ResetImportStatuses(ctx context.Context) error {
	_, err := q.db.Exec(ctx, resetImportStatuses)
	return err
}
