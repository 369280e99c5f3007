// Package app wires configuration, the database pool and the import
// components together for the binaries under cmd/.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/menuimport/internal/blob"
	"github.com/JonMunkholm/menuimport/internal/config"
	"github.com/JonMunkholm/menuimport/internal/core"
	db "github.com/JonMunkholm/menuimport/internal/database"
	"github.com/JonMunkholm/menuimport/internal/jobs"
	"github.com/JonMunkholm/menuimport/internal/web"
	mw "github.com/JonMunkholm/menuimport/internal/web/middleware"
)

const tracingFlushTimeout = 5 * time.Second

// App holds the long-lived components shared by every command.
type App struct {
	Cfg     *config.Config
	Pool    *pgxpool.Pool
	Queries *db.Queries
	Service *core.Service
	Catalog *core.Catalog

	stopTracing func(context.Context) error
}

// Open starts tracing when OTEL_ENABLED is set, connects to the database,
// runs migrations when DB_AUTO_MIGRATE is set, and builds the import service.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	stopTracing, err := SetupTracing(ctx, cfg.Tracing)
	if err != nil {
		return nil, err
	}

	pool, err := OpenPool(ctx, cfg.Database)
	if err != nil {
		_ = stopTracing(ctx)
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			_ = stopTracing(ctx)
			return nil, err
		}
	}

	queries := db.New(pool)
	return &App{
		Cfg:         cfg,
		Pool:        pool,
		Queries:     queries,
		Service:     core.NewService(core.NewPgStore(pool, cfg.Import.BatchSize), cfg),
		Catalog:     core.NewCatalog(queries),
		stopTracing: stopTracing,
	}, nil
}

// OpenPool parses the database URL, applies the pool settings and pings.
func OpenPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}

// Close releases the pool and flushes pending spans.
func (a *App) Close() {
	a.Pool.Close()
	if a.stopTracing == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), tracingFlushTimeout)
	defer cancel()
	if err := a.stopTracing(ctx); err != nil {
		slog.Warn("trace flush failed", "error", err)
	}
}

// Runner builds the async import runner over the configured blob store.
func (a *App) Runner(ctx context.Context) (*jobs.Runner, error) {
	blobs, err := blob.New(ctx, a.Cfg.Blob)
	if err != nil {
		return nil, err
	}
	return jobs.NewRunner(a.Queries, a.Service, blobs, a.Cfg), nil
}

// Serve runs the HTTP API, plus the import workers when JOBS_ENABLED is
// set, until ctx is cancelled. Shutdown waits for running imports up to
// SERVER_SHUTDOWN_TIMEOUT.
func (a *App) Serve(ctx context.Context) error {
	runner, err := a.Runner(ctx)
	if err != nil {
		return err
	}

	server := web.NewServer(web.Deps{
		Importer:  a.Service,
		Catalog:   a.Catalog,
		Queue:     runner,
		DB:        a.Pool,
		RateStore: mw.NewRateStore(ctx, a.Cfg.Rate),
	}, a.Cfg)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	var workers sync.WaitGroup
	if a.Cfg.Jobs.Enabled {
		workers.Add(1)
		go func() {
			defer workers.Done()
			runner.Run(jobCtx)
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start()
	}()

	select {
	case err := <-serveErr:
		cancelJobs()
		workers.Wait()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down...")
	cancelJobs()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Cfg.Server.ShutdownTimeout)
	defer cancel()

	if status := a.Service.LimiterStatus(); status.Active > 0 {
		slog.Info("waiting for imports to complete", "active", status.Active)
		if err := a.Service.WaitForImports(shutdownCtx); err != nil {
			slog.Warn("imports did not complete in time", "error", err)
		} else {
			slog.Info("all imports completed")
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	workers.Wait()
	return nil
}

// Work runs only the import workers until ctx is cancelled.
func (a *App) Work(ctx context.Context) error {
	runner, err := a.Runner(ctx)
	if err != nil {
		return err
	}
	runner.Run(ctx)
	return nil
}
