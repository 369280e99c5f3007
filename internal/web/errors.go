package web

// errors.go keeps error responses uniform across handlers.
//
// The technical error is logged with the request ID; the client gets the
// mapped user message from core.MapError. Server faults always answer
// {"error":"Internal server error"} so storage details never leak.

import (
	"net/http"

	"github.com/JonMunkholm/menuimport/internal/core"
	"github.com/JonMunkholm/menuimport/internal/logging"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code,omitempty"`
}

const internalServerError = "Internal server error"

// respondError logs err and writes the mapped message with statusCode.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if statusCode >= http.StatusInternalServerError {
		logger.Error("request error", args...)
	} else {
		logger.Warn("request error", args...)
	}

	resp := ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}
	if statusCode >= http.StatusInternalServerError && statusCode != http.StatusServiceUnavailable {
		resp = ErrorResponse{Error: internalServerError, Code: userMsg.Code}
	}
	writeJSON(w, statusCode, resp)
}
