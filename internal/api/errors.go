package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"cortex-grants/internal/domain"
	"cortex-grants/internal/middleware"
)

// errorResponse is the JSON body for all error replies.
type errorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// httpStatusFromError maps domain errors onto HTTP status codes. Anything
// unrecognized is a 500.
func httpStatusFromError(err error) int {
	var (
		notFound    *domain.NotFoundError
		validation  *domain.ValidationError
		unavailable *domain.UnavailableError
		noTools     *domain.ToolsNotFoundError
		badStage    *domain.MalformedStagePathError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation), errors.As(err, &badStage):
		return http.StatusBadRequest
	case errors.As(err, &noTools):
		return http.StatusUnprocessableEntity
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := httpStatusFromError(err)
	if status >= 500 {
		logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:      status,
		Message:   err.Error(),
		RequestID: middleware.RequestIDFromContext(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
