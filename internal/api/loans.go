package api

import (
	"net/http"

	"github.com/erazemk/izposoja/internal/lending"
	"github.com/erazemk/izposoja/internal/model"
)

// LoansHandler handles the borrower's loans, copies and reminders.
type LoansHandler struct {
	Lending *lending.Service
}

// List handles GET /api/loans.
func (h *LoansHandler) List(w http.ResponseWriter, r *http.Request) {
	loans, err := h.Lending.ListActiveLoans(r.Context(), borrower(r))
	if err != nil {
		lendingError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, loans)
}

// History handles GET /api/loans/history.
func (h *LoansHandler) History(w http.ResponseWriter, r *http.Request) {
	loans, err := h.Lending.LoanHistory(r.Context(), borrower(r))
	if err != nil {
		lendingError(w, r, err)
		return
	}
	if loans == nil {
		loans = []model.Loan{}
	}
	jsonResponse(w, http.StatusOK, loans)
}

// RenewCopy handles POST /api/copies/{id}/renew.
func (h *LoansHandler) RenewCopy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid copy id")
		return
	}

	res, err := h.Lending.Renew(r.Context(), borrower(r), id)
	if err != nil {
		lendingError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

// ReturnCopy handles POST /api/copies/{id}/return.
func (h *LoansHandler) ReturnCopy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid copy id")
		return
	}

	if _, err := h.Lending.Return(r.Context(), borrower(r), id); err != nil {
		lendingError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Notifications handles GET /api/notifications.
func (h *LoansHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	notices, err := h.Lending.ListNotifications(r.Context(), borrower(r))
	if err != nil {
		lendingError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, notices)
}
