// Package admin provides administrative operations for database management.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ResetTimeout is the maximum duration for database reset operations.
const ResetTimeout = 30 * time.Second

// Resetter is the reset surface of database.Queries.
type Resetter interface {
	ResetMenuTables(ctx context.Context) error
	ResetImportStatuses(ctx context.Context) error
}

type resetFn struct {
	name string
	fn   func(ctx context.Context) error
}

// ResetAll empties the restaurant and menu tables and, when withStatuses is
// set, the import status history. This is a destructive operation.
func ResetAll(ctx context.Context, db Resetter, withStatuses bool) error {
	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	resets := []resetFn{{"menu tables", db.ResetMenuTables}}
	if withStatuses {
		resets = append(resets, resetFn{"import statuses", db.ResetImportStatuses})
	}
	return runResets(ctx, resets)
}

func runResets(ctx context.Context, resets []resetFn) error {
	for _, reset := range resets {
		if err := reset.fn(ctx); err != nil {
			return fmt.Errorf("reset %s: %w", reset.name, err)
		}
		slog.Info("reset complete", "target", reset.name)
	}
	return nil
}
