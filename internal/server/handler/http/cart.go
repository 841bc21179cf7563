package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/atinyakov/GophMart/internal/middleware"
	"github.com/atinyakov/GophMart/internal/models"
	"github.com/go-chi/chi/v5"
)

// CartService defines the cart store operations required by the CartHandler.
type CartService interface {
	GetCart(ctx context.Context, userID string) ([]models.CartLine, error)
	SaveCart(ctx context.Context, userID string, entries []models.CartEntry) error
}

// CartHandler handles HTTP requests for per-user carts.
type CartHandler struct {
	CartService CartService
}

// owner returns the cart owner from the URL, or writes 403 when it differs
// from the caller's identity.
func owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := chi.URLParam(r, "userID")
	if userID != middleware.GetUserIDFromContext(r.Context()) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return "", false
	}
	return userID, true
}

// GetCart handles GET /api/cart/{userID}. Responds 404 when the user has
// never saved a cart.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := owner(w, r)
	if !ok {
		return
	}
	lines, err := h.CartService.GetCart(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

// SaveCart handles POST /api/cart/{userID}. The body is the full cart as a
// JSON array of {item_id, quantity}; it replaces whatever was stored.
func (h *CartHandler) SaveCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := owner(w, r)
	if !ok {
		return
	}
	var entries []models.CartEntry
	if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := h.CartService.SaveCart(r.Context(), userID, entries); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "cart saved"})
}
