package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MrJamesThe3rd/haulbook/internal/backend"
	"github.com/MrJamesThe3rd/haulbook/internal/payroll"
	"github.com/MrJamesThe3rd/haulbook/internal/session"
)

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Error writes err with the status it maps to.
func Error(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "status", status, "error", err)
	}

	http.Error(w, err.Error(), status)
}

// StatusFor maps domain and backend errors to HTTP statuses. Backend client
// errors keep their status; anything else from the backend is a bad gateway.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNoSession),
		errors.Is(err, session.ErrExpired),
		errors.Is(err, session.ErrUnauthorized),
		errors.Is(err, session.ErrEmptyToken):
		return http.StatusUnauthorized
	case errors.Is(err, payroll.ErrActionNotAllowed),
		errors.Is(err, payroll.ErrActionInFlight),
		errors.Is(err, payroll.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, payroll.ErrTripNotFound):
		return http.StatusNotFound
	case errors.Is(err, payroll.ErrInvalidAmount),
		errors.Is(err, payroll.ErrMissingProof),
		errors.Is(err, payroll.ErrMissingField),
		errors.Is(err, payroll.ErrInvalidPeriod),
		errors.Is(err, payroll.ErrInvalidWeight),
		errors.Is(err, payroll.ErrNotGenerated):
		return http.StatusBadRequest
	}

	if status := backend.StatusOf(err); status >= 400 && status < 500 {
		return status
	}

	if backend.StatusOf(err) != 0 {
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}
