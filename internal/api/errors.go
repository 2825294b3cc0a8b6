package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/izposoja/internal/lending"
)

type errorMapping struct {
	err     error
	status  int
	code    string
	message string
}

var lendingErrors = []errorMapping{
	{lending.ErrNoCopyAvailable, http.StatusConflict, "no_copy_available", "no copy available"},
	{lending.ErrRenewalLimitExceeded, http.StatusConflict, "renewal_limit_exceeded", "renewal limit exceeded"},
	{lending.ErrNoActiveLoan, http.StatusNotFound, "no_active_loan", "no active loan"},
	{lending.ErrBookNotFound, http.StatusNotFound, "book_not_found", "book not found"},
	{lending.ErrAlreadyReserved, http.StatusConflict, "already_reserved", "book already reserved"},
	{lending.ErrNoActiveReservation, http.StatusNotFound, "no_active_reservation", "no active reservation"},
	{lending.ErrNoBorrower, http.StatusUnauthorized, "no_borrower", "not authenticated"},
	{lending.ErrDataIntegrity, http.StatusInternalServerError, "data_integrity", "data integrity violation"},
	{lending.ErrUnavailable, http.StatusServiceUnavailable, "unavailable", "service temporarily unavailable"},
}

// lendingError writes the response for an error returned by the lending
// engine.
func lendingError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range lendingErrors {
		if errors.Is(err, m.err) {
			if m.status >= http.StatusInternalServerError {
				slog.Error("lending request failed", "method", r.Method, "path", r.URL.Path, "error", err)
			}
			jsonErrorCode(w, m.status, m.code, m.message)
			return
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		slog.Warn("lending request canceled", "method", r.Method, "path", r.URL.Path, "error", err)
		jsonErrorCode(w, http.StatusServiceUnavailable, "unavailable", "request canceled")
		return
	}

	slog.Error("lending request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	jsonErrorCode(w, http.StatusInternalServerError, "internal", "internal error")
}
