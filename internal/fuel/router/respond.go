package router

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/developerakkoo/Porttivo-API/internal/domain"
)

// envelope is the JSON response shape shared by every endpoint.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: true, Data: data}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps domain errors onto HTTP statuses. Anything unrecognized is
// a 500 with a generic message so internals never leak.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	var (
		validationErr *domain.ValidationError
		accessErr     *domain.AccessError
		notFoundErr   *domain.NotFoundError
		conflictErr   *domain.ConflictError
		balanceErr    *domain.InsufficientBalanceError
		expiredErr    *domain.ExpiredError
	)
	switch {
	case errors.As(err, &validationErr):
		status, message = http.StatusBadRequest, validationErr.Error()
	case errors.As(err, &accessErr):
		status, message = http.StatusForbidden, accessErr.Error()
	case errors.As(err, &notFoundErr):
		status, message = http.StatusNotFound, notFoundErr.Error()
	case errors.As(err, &conflictErr):
		status, message = http.StatusConflict, conflictErr.Error()
	case errors.As(err, &balanceErr):
		status, message = http.StatusPaymentRequired, balanceErr.Error()
	case errors.As(err, &expiredErr):
		status, message = http.StatusGone, expiredErr.Error()
	default:
		slog.Error("request failed", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(envelope{Success: false, Message: message}); encErr != nil {
		slog.Error("failed to encode error response", "error", encErr)
	}
}
