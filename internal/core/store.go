package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store opens the transaction an import runs in.
type Store interface {
	Begin(ctx context.Context) (ImportTx, error)
}

// ImportTx is the write surface the import stages need.
// Upsert returns one record per written row holding the model's key fields
// and the row id.
type ImportTx interface {
	Upsert(ctx context.Context, cfg ModelConfig, rows []Record) ([]Record, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DefaultBatchSize is the number of rows per INSERT statement.
const DefaultBatchSize = 1000

// maxBindParams is the PostgreSQL limit on parameters in one statement.
const maxBindParams = 65535

// sqlStateNotNull is the SQLSTATE for not_null_violation.
const sqlStateNotNull = "23502"

// PgStore runs imports against PostgreSQL.
type PgStore struct {
	pool      *pgxpool.Pool
	batchSize int
}

// NewPgStore creates a PgStore. A non-positive batchSize uses DefaultBatchSize.
func NewPgStore(pool *pgxpool.Pool, batchSize int) *PgStore {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &PgStore{pool: pool, batchSize: batchSize}
}

// Begin starts a transaction.
func (s *PgStore) Begin(ctx context.Context) (ImportTx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &pgImportTx{tx: tx, batchSize: s.batchSize}, nil
}

type pgImportTx struct {
	tx        pgx.Tx
	batchSize int
}

func (t *pgImportTx) Upsert(ctx context.Context, cfg ModelConfig, rows []Record) ([]Record, error) {
	return upsertRows(ctx, t.tx, cfg, rows, t.batchSize)
}

func (t *pgImportTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgImportTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

// upsertRows writes rows with INSERT ... ON CONFLICT DO UPDATE, batching to
// stay under the bind parameter limit. Rows must already be deduplicated on
// cfg.UniqueBy or PostgreSQL rejects the statement.
func upsertRows(ctx context.Context, db DBTX, cfg ModelConfig, rows []Record, batchSize int) ([]Record, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	if limit := maxBindParams / len(cfg.UpdateFields); batchSize <= 0 || batchSize > limit {
		batchSize = limit
	}

	out := make([]Record, 0, len(rows))
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))

		query, args := buildUpsertSQL(cfg, rows[start:end])
		pgRows, err := db.Query(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("upsert %s: %w", cfg.Table, err)
		}
		returned, err := pgx.CollectRows(pgRows, pgx.RowToMap)
		if err != nil {
			return nil, fmt.Errorf("upsert %s: %w", cfg.Table, err)
		}
		for _, m := range returned {
			out = append(out, Record(m))
		}
	}
	return out, nil
}

// buildUpsertSQL renders the upsert statement for rows and returns it with
// its positional arguments. Timestamps are set by the database.
func buildUpsertSQL(cfg ModelConfig, rows []Record) (string, []any) {
	var b strings.Builder
	args := make([]any, 0, len(rows)*len(cfg.UpdateFields))

	b.WriteString("INSERT INTO ")
	b.WriteString(quoteIdentifier(cfg.Table))
	b.WriteString(" (")
	for _, f := range cfg.UpdateFields {
		b.WriteString(quoteIdentifier(f))
		b.WriteString(", ")
	}
	b.WriteString(`"created_at", "updated_at") VALUES `)

	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for _, f := range cfg.UpdateFields {
			args = append(args, row[f])
			b.WriteString("$")
			b.WriteString(strconv.Itoa(len(args)))
			b.WriteString(", ")
		}
		b.WriteString("now(), now())")
	}

	b.WriteString(" ON CONFLICT (")
	b.WriteString(joinIdentifiers(cfg.UniqueBy))
	b.WriteString(") DO UPDATE SET ")
	for _, f := range cfg.UpdateFields {
		q := quoteIdentifier(f)
		b.WriteString(q)
		b.WriteString(" = EXCLUDED.")
		b.WriteString(q)
		b.WriteString(", ")
	}
	b.WriteString(`"updated_at" = EXCLUDED."updated_at"`)

	b.WriteString(" RETURNING ")
	b.WriteString(joinIdentifiers(append(append([]string{}, cfg.UniqueBy...), "id")))

	return b.String(), args
}

func joinIdentifiers(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdentifier(n)
	}
	return strings.Join(quoted, ", ")
}

// quoteIdentifier quotes a SQL identifier to prevent injection.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// notNullColumn reports whether err is a not-null violation and, if so,
// which column the store named.
func notNullColumn(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == sqlStateNotNull {
		return pgErr.ColumnName, true
	}
	return "", false
}
