package api

import (
	"net/http"

	"github.com/erazemk/izposoja/internal/lending"
	"github.com/erazemk/izposoja/internal/model"
)

// ReservationsHandler handles reservation endpoints.
type ReservationsHandler struct {
	Lending *lending.Service
}

// List handles GET /api/reservations.
func (h *ReservationsHandler) List(w http.ResponseWriter, r *http.Request) {
	rs, err := h.Lending.ListReservations(r.Context(), borrower(r))
	if err != nil {
		lendingError(w, r, err)
		return
	}
	if rs == nil {
		rs = []model.Reservation{}
	}
	jsonResponse(w, http.StatusOK, rs)
}

// Cancel handles DELETE /api/reservations/{id}.
func (h *ReservationsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid reservation id")
		return
	}

	if err := h.Lending.CancelReservation(r.Context(), borrower(r), id); err != nil {
		lendingError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Fulfill handles POST /api/reservations/{id}/fulfill (librarian+).
func (h *ReservationsHandler) Fulfill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid reservation id")
		return
	}

	if err := h.Lending.FulfillReservation(r.Context(), id); err != nil {
		lendingError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
