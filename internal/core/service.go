package core

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JonMunkholm/menuimport/internal/config"
	"github.com/JonMunkholm/menuimport/internal/logging"
)

var tracer = otel.Tracer("github.com/JonMunkholm/menuimport/internal/core")

// Import outcomes used as metric labels.
const (
	resultSuccess    = "success"
	resultRolledBack = "rolled_back"
	resultError      = "error"
)

// Service runs restaurant imports.
type Service struct {
	store   Store
	limiter *ImportLimiter
}

// NewService creates a Service over store. A nil cfg uses the defaults.
func NewService(store Store, cfg *config.Config) *Service {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Service{
		store:   store,
		limiter: NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime),
	}
}

// ImportRestaurants upserts the payload's restaurants, menus, menu items and
// menu/item links in one transaction and reports what happened.
//
// When a stage aborts, everything is rolled back and the returned report has
// general.success false; the error is nil. A non-nil error means a storage
// fault (or no free import slot) and the transaction was rolled back.
func (s *Service) ImportRestaurants(ctx context.Context, payload Payload) (*Report, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, span := tracer.Start(ctx, "core.ImportRestaurants",
		trace.WithAttributes(attribute.Int("import.restaurants", len(payload.Restaurants))),
	)
	defer span.End()

	start := time.Now()
	report, err := s.runImport(ctx, payload)
	elapsed := time.Since(start)

	result := resultSuccess
	switch {
	case err != nil:
		result = resultError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case !report.General.Success:
		result = resultRolledBack
		span.SetStatus(codes.Error, report.General.Message)
	}
	getMetrics().importsTotal.WithLabelValues(result).Inc()
	getMetrics().importDuration.WithLabelValues(result).Observe(elapsed.Seconds())

	logging.FromContext(ctx).Info("import finished",
		"result", result,
		"restaurants", len(payload.Restaurants),
		"duration_ms", elapsed.Milliseconds(),
	)

	return report, err
}

func (s *Service) runImport(ctx context.Context, payload Payload) (*Report, error) {
	report := NewReport()

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	// Covers panics and fault returns; a no-op after Commit or Rollback.
	defer tx.Rollback(ctx)

	abort, err := s.runStages(ctx, tx, payload, report)
	if err != nil {
		return nil, err
	}

	if abort != nil {
		if err := tx.Rollback(ctx); err != nil {
			return nil, fmt.Errorf("rollback after %s: %w", abort, err)
		}
		report.finalize()
		return report, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	report.finalize()
	return report, nil
}

// runStages threads each stage's ids into the next and stops at the first
// abort or fault.
func (s *Service) runStages(ctx context.Context, tx ImportTx, payload Payload, report *Report) (*StageAbort, error) {
	restaurants := payload.Restaurants
	restaurantIDs, abort, err := s.runStage(ctx, tx, ModelRestaurants, restaurants, report)
	if err != nil || abort != nil {
		return abort, err
	}

	menus := menuRecords(restaurants, restaurantIDs)
	menuIDs, abort, err := s.runStage(ctx, tx, ModelMenus, menus, report)
	if err != nil || abort != nil {
		return abort, err
	}

	items := menuItemRecords(menus, menuIDs)
	itemIDs, abort, err := s.runStage(ctx, tx, ModelMenuItems, items, report)
	if err != nil || abort != nil {
		return abort, err
	}

	links := associationRecords(items, itemIDs)
	_, abort, err = s.runStage(ctx, tx, ModelMenuMenuItems, links, report)
	return abort, err
}

func (s *Service) runStage(ctx context.Context, tx ImportTx, model ModelName, records []Record, report *Report) (IDMap, *StageAbort, error) {
	ctx, span := tracer.Start(ctx, "core.stage."+string(model),
		trace.WithAttributes(
			attribute.String("import.model", string(model)),
			attribute.Int("import.input_rows", len(records)),
		),
	)
	defer span.End()

	start := time.Now()
	ids, abort, err := upsertModel(ctx, tx, mustModel(model), records, report)
	elapsed := time.Since(start)

	m := getMetrics()
	m.stageDuration.WithLabelValues(string(model)).Observe(elapsed.Seconds())
	logger := logging.WithFields(ctx, "model", model)

	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("import stage failed", "error", err)
		return ids, nil, fmt.Errorf("%s stage: %w", model, err)
	case abort != nil:
		span.SetStatus(codes.Error, abort.Reason)
		m.stageAborts.WithLabelValues(string(model)).Inc()
		logger.Warn("import stage aborted", "reason", abort.Reason)
	default:
		m.stageRows.WithLabelValues(string(model)).Add(float64(ids.Len()))
		logger.Info("import stage completed",
			"rows", ids.Len(),
			"duration_ms", elapsed.Milliseconds(),
		)
	}
	return ids, abort, nil
}

// LimiterStatus returns the import limiter state.
func (s *Service) LimiterStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until running imports finish or ctx is done.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
