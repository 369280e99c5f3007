package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/menuimport/internal/core"
	"github.com/JonMunkholm/menuimport/internal/jobs"
	"github.com/JonMunkholm/menuimport/internal/logging"
)

const healthTimeout = 2 * time.Second

// handleImport runs the import inside the request and answers with the
// report: 200 when it succeeded, 422 when it was rolled back.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	payload, status, err := s.readPayload(w, r)
	if err != nil {
		s.respondError(w, r, err, status)
		return
	}

	report, err := s.deps.Importer.ImportRestaurants(r.Context(), payload)
	if err != nil {
		s.respondImportFault(w, r, err)
		return
	}

	status = http.StatusOK
	if !report.General.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, report)
}

// handleImportAsync stores the document and queues it; the client polls
// the returned status.
func (s *Server) handleImportAsync(w http.ResponseWriter, r *http.Request) {
	payload, status, err := s.readPayload(w, r)
	if err != nil {
		s.respondError(w, r, err, status)
		return
	}

	view, err := s.deps.Queue.Enqueue(r.Context(), payload)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Location", "/import_statuses/"+view.ID)
	writeJSON(w, http.StatusAccepted, view)
}

func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.Queue.Status(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, jobs.ErrImportStatusNotFound) {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// readPayload decodes the body (JSON, or YAML by Content-Type) and keeps
// only the documented keys. The returned status goes with a non-nil error.
func (s *Server) readPayload(w http.ResponseWriter, r *http.Request) (core.Payload, int, error) {
	body := http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxPayloadSize)
	defer body.Close()

	payload, err := core.DecodePayload(body, core.FormatFromContentType(r.Header.Get("Content-Type")))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return core.Payload{}, http.StatusRequestEntityTooLarge, err
		}
		return core.Payload{}, http.StatusBadRequest, err
	}
	return core.PermitPayload(payload), http.StatusOK, nil
}

func (s *Server) respondImportFault(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrTooManyImports):
		w.Header().Set("Retry-After", "5")
		s.respondError(w, r, err, http.StatusServiceUnavailable)
	case errors.Is(err, context.DeadlineExceeded):
		s.respondError(w, r, err, http.StatusGatewayTimeout)
	default:
		s.respondError(w, r, err, http.StatusInternalServerError)
	}
}

func (s *Server) handleListRestaurants(w http.ResponseWriter, r *http.Request) {
	restaurants, err := s.deps.Catalog.ListRestaurants(r.Context())
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, restaurants)
}

func (s *Server) handleGetRestaurant(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	restaurant, err := s.deps.Catalog.GetRestaurant(r.Context(), id)
	if err != nil {
		s.respondLookupError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, restaurant)
}

func (s *Server) handleListMenus(w http.ResponseWriter, r *http.Request) {
	menus, err := s.deps.Catalog.ListMenus(r.Context())
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, menus)
}

func (s *Server) handleGetMenu(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	menu, err := s.deps.Catalog.GetMenu(r.Context(), id)
	if err != nil {
		s.respondLookupError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, menu)
}

// pathID parses {id}. A non-numeric id is answered as not found.
func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.respondError(w, r, core.ErrNotFound, http.StatusNotFound)
		return 0, false
	}
	return id, true
}

func (s *Server) respondLookupError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, core.ErrNotFound) {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}
	s.respondError(w, r, err, http.StatusInternalServerError)
}

// HealthResponse is the body of GET /up.
type HealthResponse struct {
	Status  string                   `json:"status"`
	Imports core.ImportLimiterStatus `json:"imports"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if s.deps.Importer != nil {
		resp.Imports = s.deps.Importer.LimiterStatus()
	}

	if s.deps.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := s.deps.DB.Ping(ctx); err != nil {
			logging.FromContext(r.Context()).Error("health check failed", "error", err)
			resp.Status = "unavailable"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
