// Package web provides the HTTP API for restaurant imports.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"

	"github.com/JonMunkholm/menuimport/internal/config"
	"github.com/JonMunkholm/menuimport/internal/core"
	db "github.com/JonMunkholm/menuimport/internal/database"
	"github.com/JonMunkholm/menuimport/internal/jobs"
	"github.com/JonMunkholm/menuimport/internal/logging"
	mw "github.com/JonMunkholm/menuimport/internal/web/middleware"
)

// Importer runs synchronous imports. *core.Service satisfies it.
type Importer interface {
	ImportRestaurants(ctx context.Context, payload core.Payload) (*core.Report, error)
	LimiterStatus() core.ImportLimiterStatus
}

// Catalog serves the read endpoints. *core.Catalog satisfies it.
type Catalog interface {
	ListRestaurants(ctx context.Context) ([]db.Restaurant, error)
	GetRestaurant(ctx context.Context, id int64) (*core.RestaurantDetail, error)
	ListMenus(ctx context.Context) ([]db.Menu, error)
	GetMenu(ctx context.Context, id int64) (*core.MenuDetail, error)
}

// Queue queues async imports and reports their status. *jobs.Runner
// satisfies it.
type Queue interface {
	Enqueue(ctx context.Context, payload core.Payload) (*jobs.StatusView, error)
	Status(ctx context.Context, id string) (*jobs.StatusView, error)
}

// Pinger checks the database for /up. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the handlers call.
type Deps struct {
	Importer Importer
	Catalog  Catalog
	Queue    Queue
	DB       Pinger

	// RateStore backs the rate limiter. Nil uses an in-memory store.
	RateStore limiter.Store
}

// Server is the HTTP server for the import API.
type Server struct {
	deps   Deps
	cfg    *config.Config
	router *chi.Mux
	server *http.Server
}

// NewServer creates a Server. A nil cfg uses the defaults.
func NewServer(deps Deps, cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if deps.RateStore == nil && cfg.Rate.Enabled {
		deps.RateStore = mw.NewRateStore(context.Background(), config.RateLimitConfig{Storage: "memory"})
	}

	s := &Server{
		deps:   deps,
		cfg:    cfg,
		router: chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(s.recoverer)
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		s.router.Use(mw.RateLimit(s.deps.RateStore, "global", s.cfg.Rate.RequestsPerMinute))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/up", s.handleHealth)
	if s.cfg.Metrics.Enabled {
		s.router.Handle(s.cfg.Metrics.Path, promhttp.Handler())
	}

	s.router.Route("/restaurants", func(r chi.Router) {
		r.Get("/", s.handleListRestaurants)
		r.Get("/{id}", s.handleGetRestaurant)

		r.Group(func(r chi.Router) {
			if s.cfg.Rate.Enabled {
				r.Use(mw.RateLimit(s.deps.RateStore, "import", s.cfg.Rate.ImportLimit))
			}
			r.Use(mw.APIKeyAuth(s.cfg.Security))

			r.Post("/import", s.handleImport)
			r.Post("/import_async", s.handleImportAsync)
		})
	})

	s.router.Route("/menus", func(r chi.Router) {
		r.Get("/", s.handleListMenus)
		r.Get("/{id}", s.handleGetMenu)
	})

	s.router.Get("/import_statuses/{id}", s.handleImportStatus)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
	})
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("http server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// recoverer turns a handler panic into the JSON 500 response.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			if p == http.ErrAbortHandler {
				panic(p)
			}
			logging.FromContext(r.Context()).Error("handler panicked",
				"panic", p,
				"stack", string(debug.Stack()),
			)
			s.respondError(w, r, fmt.Errorf("panic: %v", p), http.StatusInternalServerError)
		}()
		next.ServeHTTP(w, r)
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v with the given status.
// Encoding errors are only logged since the header is already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
