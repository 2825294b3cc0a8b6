package api

import (
	"net/http"

	"github.com/erazemk/izposoja/internal/lending"
)

// BooksHandler handles the per-book lending endpoints.
type BooksHandler struct {
	Lending *lending.Service
}

// Get handles GET /api/books/{id}.
func (h *BooksHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	book, err := h.Lending.Book(r.Context(), id)
	if err != nil {
		lendingError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, book)
}

// Borrow handles POST /api/books/{id}/borrow.
func (h *BooksHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	res, err := h.Lending.Borrow(r.Context(), borrower(r), id)
	if err != nil {
		lendingError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, res)
}

// Renew handles POST /api/books/{id}/renew.
func (h *BooksHandler) Renew(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	res, err := h.Lending.RenewBook(r.Context(), borrower(r), id)
	if err != nil {
		lendingError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

// Return handles POST /api/books/{id}/return.
func (h *BooksHandler) Return(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	if _, err := h.Lending.ReturnBook(r.Context(), borrower(r), id); err != nil {
		lendingError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reserve handles POST /api/books/{id}/reserve.
func (h *BooksHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	res, err := h.Lending.Reserve(r.Context(), borrower(r), id)
	if err != nil {
		lendingError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, res)
}

// borrower returns the authenticated borrower id, or "" if there is none.
func borrower(r *http.Request) string {
	claims := GetClaims(r.Context())
	if claims == nil {
		return ""
	}
	return claims.Borrower()
}
