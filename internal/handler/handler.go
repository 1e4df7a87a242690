// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/campusjobs/jobboard/internal/apperror"
	"github.com/campusjobs/jobboard/internal/handler/dto"
)

// NotFound handles 404 responses for unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "ROUTE_NOT_FOUND", "resource not found")
}

// MethodNotAllowed handles 405 responses.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// writeServiceError maps a service error to its HTTP response.
// Classified errors carry their reason; anything else is logged and hidden.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	kind := apperror.KindOf(err)
	if kind == "" {
		logger.Error("internal_error",
			slog.String("error", err.Error()),
			slog.String("path", r.URL.Path),
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred")
		return
	}

	status := apperror.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
			slog.String("path", r.URL.Path),
		)
	}
	writeError(w, status, string(kind), apperror.ReasonOf(err))
}

// idParam parses an integer path parameter.
func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func writeInvalidID(w http.ResponseWriter, what string) {
	writeError(w, http.StatusBadRequest, string(apperror.KindInvalidInput), what+" must be an integer")
}
