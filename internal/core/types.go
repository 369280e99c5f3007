package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Record is one flat row of field name to scalar value.
type Record map[string]any

// ModelName identifies one of the four imported record types.
// The value doubles as the report key and the table name.
type ModelName string

const (
	ModelRestaurants   ModelName = "restaurants"
	ModelMenus         ModelName = "menus"
	ModelMenuItems     ModelName = "menu_items"
	ModelMenuMenuItems ModelName = "menu_menu_items"
)

// ModelConfig describes how one model is normalized, validated and upserted.
// UniqueBy must be a subset of UpdateFields.
type ModelConfig struct {
	Name           ModelName
	Table          string
	UniqueBy       []string
	UpdateFields   []string
	RequiredFields []string

	// FailureMessage replaces the default count-mismatch and per-record
	// failure descriptions when set.
	FailureMessage string
}

// StageAbort signals that a stage failed and the import must be rolled back.
// The failure details are already recorded on the report.
type StageAbort struct {
	Model  ModelName
	Reason string
}

func (a *StageAbort) String() string {
	return fmt.Sprintf("%s: %s", a.Model, a.Reason)
}

// Report messages.
const (
	MessageImportSucceeded = "Restaurants imported successfully"
	MessageImportFailed    = "Failed to import restaurants. All changes were rolled back."
	MessageRecordFailed    = "Failed to create or update record"
	MessageAssociateFailed = "Failed to associate menu items with menus"
)

// GeneralError is a stage-level failure entry in the report.
type GeneralError struct {
	ErrorRecord ModelName `json:"error_record"`
	Description string    `json:"description"`
}

// GeneralReport summarizes the whole import.
type GeneralReport struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Errors  []GeneralError `json:"errors"`
}

// ModelReport lists the rows written for one model and the failures.
// Success rows carry the key fields plus id; error rows carry either the key
// fields plus a description or only a description.
type ModelReport struct {
	Success []Record `json:"success"`
	Errors  []Record `json:"errors"`
}

// Report is the structured result of one import.
type Report struct {
	General       GeneralReport `json:"general"`
	Restaurants   ModelReport   `json:"restaurants"`
	Menus         ModelReport   `json:"menus"`
	MenuItems     ModelReport   `json:"menu_items"`
	MenuMenuItems ModelReport   `json:"menu_menu_items"`
}

// NewReport returns a report with every list initialized so it serializes
// as empty arrays rather than null.
func NewReport() *Report {
	r := &Report{
		General: GeneralReport{Errors: []GeneralError{}},
	}
	for _, m := range []*ModelReport{&r.Restaurants, &r.Menus, &r.MenuItems, &r.MenuMenuItems} {
		m.Success = []Record{}
		m.Errors = []Record{}
	}
	return r
}

// Model returns the per-model section for name, or nil for an unknown model.
func (r *Report) Model(name ModelName) *ModelReport {
	switch name {
	case ModelRestaurants:
		return &r.Restaurants
	case ModelMenus:
		return &r.Menus
	case ModelMenuItems:
		return &r.MenuItems
	case ModelMenuMenuItems:
		return &r.MenuMenuItems
	}
	return nil
}

// addGeneralError records a stage failure.
func (r *Report) addGeneralError(model ModelName, description string) {
	r.General.Errors = append(r.General.Errors, GeneralError{
		ErrorRecord: model,
		Description: description,
	})
}

// finalize fills in the overall outcome from the collected general errors.
func (r *Report) finalize() {
	if len(r.General.Errors) == 0 {
		r.General.Success = true
		r.General.Message = MessageImportSucceeded
		return
	}
	r.General.Success = false
	r.General.Message = MessageImportFailed
}
