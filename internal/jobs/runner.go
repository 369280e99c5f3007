// Package jobs runs queued imports in the background.
//
// An import is queued by storing its document as a blob and inserting a
// pending import_statuses row. Workers claim pending rows one at a time
// (FOR UPDATE SKIP LOCKED, so several processes can poll the same table),
// run the import, and record the outcome on the row:
//
//	pending -> in_progress -> completed | failed
//
// A failed report is recorded as "Import failed with errors" with the
// report as result data. A storage fault or panic is recorded as
// "Import failed with unknown error" with a backtrace.
package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/menuimport/internal/blob"
	"github.com/JonMunkholm/menuimport/internal/config"
	"github.com/JonMunkholm/menuimport/internal/core"
	db "github.com/JonMunkholm/menuimport/internal/database"
)

// Status messages recorded on failed imports.
const (
	MessageFailedWithErrors = "Import failed with errors"
	MessageFailedUnknown    = "Import failed with unknown error"
)

// finishTimeout bounds the status write after an import, which runs on a
// fresh context so shutdown does not leave rows in_progress.
const finishTimeout = 10 * time.Second

// Queue is the import_statuses surface of database.Queries.
type Queue interface {
	CreateImportStatus(ctx context.Context, arg db.CreateImportStatusParams) (db.ImportStatus, error)
	GetImportStatus(ctx context.Context, id pgtype.UUID) (db.ImportStatus, error)
	ClaimPendingImportStatus(ctx context.Context) (db.ImportStatus, error)
	FinishImportStatus(ctx context.Context, arg db.FinishImportStatusParams) error
	RequeueImportStatus(ctx context.Context, id pgtype.UUID) error
	RequeueStaleImportStatuses(ctx context.Context, olderThan pgtype.Timestamptz) (int64, error)
}

// Importer runs one import. *core.Service satisfies it.
type Importer interface {
	ImportRestaurants(ctx context.Context, payload core.Payload) (*core.Report, error)
}

// Runner queues imports and works them off.
type Runner struct {
	queue    Queue
	importer Importer
	blobs    blob.Store

	workers      int
	pollInterval time.Duration
	staleAfter   time.Duration
	timeout      time.Duration

	wake chan struct{}
}

// NewRunner creates a Runner. A nil cfg uses the defaults.
func NewRunner(queue Queue, importer Importer, blobs blob.Store, cfg *config.Config) *Runner {
	if cfg == nil {
		cfg = config.Default()
	}
	workers := cfg.Jobs.Workers
	if workers <= 0 {
		workers = 1
	}
	poll := cfg.Jobs.PollInterval
	if poll <= 0 {
		poll = 2 * time.Second
	}
	return &Runner{
		queue:        queue,
		importer:     importer,
		blobs:        blobs,
		workers:      workers,
		pollInterval: poll,
		staleAfter:   cfg.Jobs.StaleAfter,
		timeout:      cfg.Import.Timeout,
		wake:         make(chan struct{}, 1),
	}
}

// Enqueue stores payload and queues it as a pending import.
func (r *Runner) Enqueue(ctx context.Context, payload core.Payload) (*StatusView, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	id := uuid.New()
	key := payloadKey(id)
	if err := r.blobs.Put(ctx, key, data, "application/json"); err != nil {
		return nil, fmt.Errorf("store payload: %w", err)
	}

	status, err := r.queue.CreateImportStatus(ctx, db.CreateImportStatusParams{
		ID:         pgtype.UUID{Bytes: id, Valid: true},
		PayloadKey: key,
	})
	if err != nil {
		if delErr := r.blobs.Delete(ctx, key); delErr != nil {
			slog.Warn("failed to remove orphaned payload", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("create import status: %w", err)
	}

	getMetrics().enqueued.Inc()
	slog.Info("import queued", "import_id", id.String(), "restaurants", len(payload.Restaurants))

	select {
	case r.wake <- struct{}{}:
	default:
	}

	return newStatusView(status), nil
}

// Status returns the import status with the given id.
func (r *Runner) Status(ctx context.Context, id string) (*StatusView, error) {
	pgID := db.ToPgUUID(id)
	if !pgID.Valid {
		return nil, fmt.Errorf("%w: %q", ErrImportStatusNotFound, id)
	}

	status, err := r.queue.GetImportStatus(ctx, pgID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrImportStatusNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get import status %s: %w", id, err)
	}
	return newStatusView(status), nil
}

// Run starts the workers and blocks until ctx is cancelled and every
// running import has been recorded.
func (r *Runner) Run(ctx context.Context) {
	slog.Info("import worker started",
		"workers", r.workers,
		"poll_interval", r.pollInterval.String(),
	)

	if r.staleAfter > 0 {
		cutoff := pgtype.Timestamptz{Time: time.Now().Add(-r.staleAfter), Valid: true}
		n, err := r.queue.RequeueStaleImportStatuses(ctx, cutoff)
		if err != nil {
			slog.Error("failed to requeue stale imports", "error", err)
		} else if n > 0 {
			slog.Warn("requeued stale imports", "count", n)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r.work(ctx, worker)
		}(i)
	}
	wg.Wait()

	slog.Info("import worker stopped")
}

func (r *Runner) work(ctx context.Context, worker int) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		// Drain the queue before sleeping again.
		for {
			processed, err := r.RunOnce(ctx)
			if err != nil {
				if ctx.Err() == nil {
					slog.Error("failed to claim import", "worker", worker, "error", err)
				}
				break
			}
			if !processed || ctx.Err() != nil {
				break
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-r.wake:
		}
	}
}

// RunOnce claims and processes one pending import. It reports false when
// nothing was pending, or when the claimed import went back to pending
// because every import slot was busy.
func (r *Runner) RunOnce(ctx context.Context) (bool, error) {
	status, err := r.queue.ClaimPendingImportStatus(ctx)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	requeued := r.process(ctx, status)
	return !requeued, nil
}

// process runs one claimed import and records its outcome. It never
// returns an error: every failure ends up on the status row. An import
// that found no free slot is put back in the queue instead, and process
// reports true.
func (r *Runner) process(ctx context.Context, status db.ImportStatus) bool {
	id := db.UUIDString(status.ID)
	logger := slog.With("import_id", id)
	start := time.Now()

	var (
		params db.FinishImportStatusParams
		busy   bool
	)
	func() {
		defer func() {
			if p := recover(); p != nil {
				logger.Error("import panicked", "panic", p)
				params = unknownFailure(status.ID, fmt.Sprintf("panic: %v\n\n%s", p, debug.Stack()))
			}
		}()
		params, busy = r.execute(ctx, status)
	}()

	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()

	if busy {
		if err := r.queue.RequeueImportStatus(finishCtx, status.ID); err != nil {
			logger.Error("failed to requeue import", "error", err)
			return false
		}
		getMetrics().processed.WithLabelValues(db.ImportStatusPending).Inc()
		logger.Warn("import slots busy, import requeued")
		return true
	}

	if err := r.queue.FinishImportStatus(finishCtx, params); err != nil {
		logger.Error("failed to record import result", "status", params.Status, "error", err)
		return false
	}

	getMetrics().processed.WithLabelValues(params.Status).Inc()
	logger.Info("import job finished",
		"status", params.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return false
}

// execute loads and runs one import. busy is true when the importer had no
// free slot; params is then unset.
func (r *Runner) execute(ctx context.Context, status db.ImportStatus) (params db.FinishImportStatusParams, busy bool) {
	data, err := r.blobs.Get(ctx, status.PayloadKey)
	if err != nil {
		return unknownFailure(status.ID, errorTrace(err)), false
	}

	payload, err := core.DecodePayload(bytes.NewReader(data), core.FormatJSON)
	if err != nil {
		return unknownFailure(status.ID, errorTrace(err)), false
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	report, err := r.importer.ImportRestaurants(ctx, payload)
	if errors.Is(err, core.ErrTooManyImports) {
		return db.FinishImportStatusParams{}, true
	}
	if err != nil {
		return unknownFailure(status.ID, errorTrace(err)), false
	}

	resultData, err := json.Marshal(report)
	if err != nil {
		return unknownFailure(status.ID, errorTrace(err)), false
	}

	if report.General.Success {
		return db.FinishImportStatusParams{
			ID:         status.ID,
			Status:     db.ImportStatusCompleted,
			ResultData: resultData,
		}, false
	}
	return db.FinishImportStatusParams{
		ID:           status.ID,
		Status:       db.ImportStatusFailed,
		ResultData:   resultData,
		ErrorMessage: db.ToPgText(MessageFailedWithErrors),
	}, false
}

func unknownFailure(id pgtype.UUID, backtrace string) db.FinishImportStatusParams {
	return db.FinishImportStatusParams{
		ID:             id,
		Status:         db.ImportStatusFailed,
		ErrorMessage:   db.ToPgText(MessageFailedUnknown),
		ErrorBacktrace: db.ToPgText(backtrace),
	}
}

// errorTrace renders the error chain, outermost first, one "type: message"
// per line.
func errorTrace(err error) string {
	var b strings.Builder
	for e := err; e != nil; e = errors.Unwrap(e) {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%T: %v", e, e)
	}
	return b.String()
}

func payloadKey(id uuid.UUID) string {
	return "imports/" + id.String() + ".json"
}
