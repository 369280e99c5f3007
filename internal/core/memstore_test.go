package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
)

// memStore is an in-memory Store with PostgreSQL upsert semantics: unique
// keys where NULL never matches, surrogate ids, not-null columns and
// transactional rollback.
type memStore struct {
	mu     sync.Mutex
	tables map[string][]Record
	nextID int64

	// notNull lists columns per table that reject nil.
	notNull map[string][]string
	// dropRows makes Upsert return that many fewer rows for a model.
	dropRows map[ModelName]int
	// failWith makes Upsert fail with the error for a model.
	failWith map[ModelName]error

	commits   int
	rollbacks int
}

func newMemStore() *memStore {
	return &memStore{
		tables: make(map[string][]Record),
		notNull: map[string][]string{
			"restaurants":     {"name"},
			"menus":           {"name"},
			"menu_items":      {"name"},
			"menu_menu_items": {"menu_id", "menu_item_id"},
		},
		dropRows: make(map[ModelName]int),
		failWith: make(map[ModelName]error),
	}
}

func (s *memStore) Begin(ctx context.Context) (ImportTx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := make(map[string][]Record, len(s.tables))
	for table, rows := range s.tables {
		work[table] = cloneRows(rows)
	}
	return &memTx{store: s, tables: work, nextID: s.nextID}, nil
}

// count returns the committed row count of a table.
func (s *memStore) count(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tables[table])
}

// rows returns a copy of the committed rows of a table.
func (s *memStore) rows(table string) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRows(s.tables[table])
}

// find returns the first committed row whose field equals value.
func (s *memStore) find(table, field string, value any) (Record, bool) {
	for _, row := range s.rows(table) {
		if encodeKeyValue(row[field]) == encodeKeyValue(value) {
			return row, true
		}
	}
	return nil, false
}

func (s *memStore) totalRows() int {
	return s.count("restaurants") + s.count("menus") + s.count("menu_items") + s.count("menu_menu_items")
}

type memTx struct {
	store  *memStore
	tables map[string][]Record
	nextID int64
	closed bool
}

func (t *memTx) Upsert(ctx context.Context, cfg ModelConfig, rows []Record) ([]Record, error) {
	if t.closed {
		return nil, errors.New("tx is closed")
	}
	if err := t.store.failWith[cfg.Name]; err != nil {
		return nil, err
	}

	for _, row := range rows {
		for _, col := range t.store.notNull[cfg.Table] {
			if row[col] == nil {
				return nil, &pgconn.PgError{
					Code:       sqlStateNotNull,
					Message:    fmt.Sprintf("null value in column %q of relation %q violates not-null constraint", col, cfg.Table),
					TableName:  cfg.Table,
					ColumnName: col,
				}
			}
		}
	}

	table := t.tables[cfg.Table]
	returned := make([]Record, 0, len(rows))
	for _, row := range rows {
		idx := matchRow(table, row, cfg.UniqueBy)
		if idx < 0 {
			t.nextID++
			stored := Record{"id": t.nextID}
			for _, f := range cfg.UpdateFields {
				stored[f] = row[f]
			}
			table = append(table, stored)
			idx = len(table) - 1
		} else {
			for _, f := range cfg.UpdateFields {
				table[idx][f] = row[f]
			}
		}

		ret := Record{"id": table[idx]["id"]}
		for _, f := range cfg.UniqueBy {
			ret[f] = table[idx][f]
		}
		returned = append(returned, ret)
	}
	t.tables[cfg.Table] = table

	if n := t.store.dropRows[cfg.Name]; n > 0 {
		if n > len(returned) {
			n = len(returned)
		}
		returned = returned[:len(returned)-n]
	}
	return returned, nil
}

// matchRow finds the stored row with the same unique key. A nil key part
// never matches, as with a PostgreSQL unique index.
func matchRow(table []Record, row Record, uniqueBy []string) int {
	for _, f := range uniqueBy {
		if row[f] == nil {
			return -1
		}
	}
	for i, stored := range table {
		match := true
		for _, f := range uniqueBy {
			if encodeKeyValue(stored[f]) != encodeKeyValue(row[f]) {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.closed {
		return errors.New("tx is closed")
	}
	t.closed = true

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.tables = t.tables
	t.store.nextID = t.nextID
	t.store.commits++
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.closed {
		return nil
	}
	t.closed = true

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.rollbacks++
	return nil
}

func cloneRows(rows []Record) []Record {
	out := make([]Record, len(rows))
	for i, row := range rows {
		c := make(Record, len(row))
		for k, v := range row {
			c[k] = v
		}
		out[i] = c
	}
	return out
}
