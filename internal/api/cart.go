package api

import (
	"net/http"

	"github.com/erazemk/izposoja/internal/lending"
)

// CartHandler handles the borrower's cart.
type CartHandler struct {
	Lending *lending.Service
}

type addToCartRequest struct {
	BookID int64 `json:"book_id"`
}

// List handles GET /api/cart.
func (h *CartHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Lending.Cart(r.Context(), borrower(r))
	if err != nil {
		lendingError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

// Add handles POST /api/cart.
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BookID <= 0 {
		jsonError(w, http.StatusBadRequest, "book_id required")
		return
	}

	if err := h.Lending.AddToCart(r.Context(), borrower(r), req.BookID); err != nil {
		lendingError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Remove handles DELETE /api/cart/{bookID}.
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "bookID")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	if err := h.Lending.RemoveFromCart(r.Context(), borrower(r), id); err != nil {
		lendingError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
