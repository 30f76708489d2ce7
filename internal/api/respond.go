package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/minerva/internal/prompt"
	"github.com/p-n-ai/minerva/internal/tutor"
)

const internalErrorMessage = "Internal server error"

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

// statusFor maps an error to its HTTP status and user-facing message.
func statusFor(err error) (int, string) {
	var verr *prompt.ValidationError
	var gerr *tutor.GenerationError
	switch {
	case errors.Is(err, errInvalidJSON):
		return http.StatusBadRequest, errInvalidJSON.Error()
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, tutor.ErrBudgetExhausted):
		return http.StatusTooManyRequests, err.Error()
	case errors.As(err, &gerr):
		return http.StatusInternalServerError, gerr.Error()
	default:
		return http.StatusInternalServerError, internalErrorMessage
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError && msg == internalErrorMessage {
		slog.Error("request failed",
			"request_id", tutor.RequestID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}
