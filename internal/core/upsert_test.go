package core

import (
	"context"
	"reflect"
	"testing"
)

func TestNormalizeRecords(t *testing.T) {
	cfg := mustModel(ModelMenuItems)

	tests := []struct {
		name        string
		records     []Record
		wantNames   []any
		wantMissing []string
	}{
		{
			name: "projects to update fields",
			records: []Record{
				{"name": "Burger", "price": 9.0, "menu_id": int64(1), "calories": 800},
			},
			wantNames: []any{"Burger"},
		},
		{
			name: "keeps first of duplicate keys in input order",
			records: []Record{
				{"name": "Burger", "price": 9.0},
				{"name": "Fries", "price": 3.0},
				{"name": "Burger", "price": 11.0},
			},
			wantNames: []any{"Burger", "Fries"},
		},
		{
			name: "reports blank required fields once",
			records: []Record{
				{"name": "  "},
				{"price": 2.0},
				{"name": "Soup"},
			},
			wantNames:   []any{"  ", nil, "Soup"},
			wantMissing: []string{"name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalized, missing := normalizeRecords(cfg, tt.records)

			var names []any
			for _, row := range normalized {
				if len(row) != len(cfg.UpdateFields) {
					t.Errorf("row %v has %d fields, want %d", row, len(row), len(cfg.UpdateFields))
				}
				names = append(names, row["name"])
			}
			if !reflect.DeepEqual(names, tt.wantNames) {
				t.Errorf("names = %v, want %v", names, tt.wantNames)
			}
			if !reflect.DeepEqual(missing, tt.wantMissing) {
				t.Errorf("missing = %v, want %v", missing, tt.wantMissing)
			}
		})
	}
}

func TestNormalizeRecords_FirstPriceWins(t *testing.T) {
	normalized, _ := normalizeRecords(mustModel(ModelMenuMenuItems), []Record{
		{"menu_id": int64(1), "menu_item_id": int64(2), "price": 9.0},
		{"menu_id": int64(1), "menu_item_id": int64(2), "price": 12.0},
		{"menu_id": int64(1), "menu_item_id": int64(3), "price": 4.0},
	})

	if len(normalized) != 2 {
		t.Fatalf("len(normalized) = %d, want 2", len(normalized))
	}
	if normalized[0]["price"] != 9.0 {
		t.Errorf("price = %v, want 9", normalized[0]["price"])
	}
}

// keyedTx returns a fixed set of rows from Upsert.
type keyedTx struct {
	rows []Record
}

func (k *keyedTx) Upsert(ctx context.Context, cfg ModelConfig, rows []Record) ([]Record, error) {
	return k.rows, nil
}
func (k *keyedTx) Commit(ctx context.Context) error   { return nil }
func (k *keyedTx) Rollback(ctx context.Context) error { return nil }

func TestUpsertModel_ReportsUnmatchedRows(t *testing.T) {
	tx := &keyedTx{rows: []Record{
		{"name": "Burger", "id": int64(1)},
		{"name": "Unexpected", "id": int64(2)},
	}}
	report := NewReport()

	ids, abort, err := upsertModel(context.Background(), tx, mustModel(ModelMenuItems), []Record{
		{"name": "Burger"},
		{"name": "Fries"},
	}, report)

	if err != nil || abort != nil {
		t.Fatalf("upsertModel() abort = %v, err = %v", abort, err)
	}
	if id, ok := ids.Lookup("Burger"); !ok || id != 1 {
		t.Errorf("Lookup(Burger) = %d, %v, want 1, true", id, ok)
	}
	if len(report.MenuItems.Success) != 2 {
		t.Errorf("success = %d entries, want 2", len(report.MenuItems.Success))
	}
	want := []Record{{"name": "Fries", "description": MessageRecordFailed}}
	if !reflect.DeepEqual(report.MenuItems.Errors, want) {
		t.Errorf("errors = %v, want %v", report.MenuItems.Errors, want)
	}
	if len(report.General.Errors) != 0 {
		t.Errorf("general.errors = %v, want none", report.General.Errors)
	}
}

func TestUpsertModel_CustomFailureMessage(t *testing.T) {
	tx := &keyedTx{rows: []Record{
		{"menu_id": int64(1), "menu_item_id": int64(9), "id": int64(1)},
	}}
	report := NewReport()

	_, _, err := upsertModel(context.Background(), tx, mustModel(ModelMenuMenuItems), []Record{
		{"menu_id": int64(1), "menu_item_id": int64(2), "price": 3.0},
	}, report)
	if err != nil {
		t.Fatalf("upsertModel() error = %v", err)
	}

	if len(report.MenuMenuItems.Errors) != 1 {
		t.Fatalf("errors = %v, want one entry", report.MenuMenuItems.Errors)
	}
	entry := report.MenuMenuItems.Errors[0]
	if entry["description"] != MessageAssociateFailed {
		t.Errorf("description = %v, want %q", entry["description"], MessageAssociateFailed)
	}
	if entry["menu_id"] != int64(1) || entry["menu_item_id"] != int64(2) {
		t.Errorf("entry keys = %v, want menu_id 1 and menu_item_id 2", entry)
	}
}

func TestUpsertModel_NonIntegerID(t *testing.T) {
	tx := &keyedTx{rows: []Record{{"name": "A", "id": "abc"}}}

	_, _, err := upsertModel(context.Background(), tx, mustModel(ModelRestaurants), []Record{{"name": "A"}}, NewReport())
	if err == nil {
		t.Fatal("upsertModel() expected error for non-integer id")
	}
}

func TestUpsertModel_EmptyInputSkipsWrite(t *testing.T) {
	store := newMemStore()
	store.failWith[ModelMenus] = context.Canceled
	tx, _ := store.Begin(context.Background())

	ids, abort, err := upsertModel(context.Background(), tx, mustModel(ModelMenus), nil, NewReport())
	if err != nil || abort != nil {
		t.Fatalf("upsertModel() abort = %v, err = %v", abort, err)
	}
	if ids.Len() != 0 {
		t.Errorf("ids.Len() = %d, want 0", ids.Len())
	}
}
