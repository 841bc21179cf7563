// Package http provides HTTP handlers for the catalog and the cart store.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/GophMart/internal/middleware"
	"github.com/atinyakov/GophMart/internal/models"
	"github.com/atinyakov/GophMart/internal/repository"
	"github.com/atinyakov/GophMart/internal/service"
	"github.com/go-chi/chi/v5"
)

// CatalogService defines the catalog operations required by the CatalogHandler.
type CatalogService interface {
	CreateItem(ctx context.Context, it *models.Item) error
	ListItems(ctx context.Context, query, categoryID string) ([]models.Item, error)
	GetItem(ctx context.Context, id string) (*models.Item, error)
	DeleteItem(ctx context.Context, id string) error
	RateItem(ctx context.Context, id string, rating int) (*models.Item, error)
	CreateCategory(ctx context.Context, c *models.Category) error
	ListCategories(ctx context.Context) ([]models.Category, error)
	ItemsByCategory(ctx context.Context, categoryID string) ([]models.Item, error)
}

// CatalogHandler handles HTTP requests for items and categories.
type CatalogHandler struct {
	CatalogService CatalogService
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service and repository errors onto status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, repository.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, repository.ErrInvalidReference),
		errors.Is(err, service.ErrInvalidItem),
		errors.Is(err, service.ErrInvalidCategory),
		errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrInvalidQuantity):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// CreateItem handles POST /api/items. The seller is taken from the caller's
// identity when present.
func (h *CatalogHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var it models.Item
	if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if user := middleware.GetUserIDFromContext(r.Context()); user != "" {
		it.UserID = user
	}
	it.ID = ""

	if err := h.CatalogService.CreateItem(r.Context(), &it); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

// ListItems handles GET /api/items?q=&category=.
func (h *CatalogHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.CatalogService.ListItems(r.Context(), q.Get("q"), q.Get("category"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// GetItem handles GET /api/items/{id}.
func (h *CatalogHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	it, err := h.CatalogService.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// DeleteItem handles DELETE /api/items/{id}.
func (h *CatalogHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.CatalogService.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// RateRequest is the JSON payload of POST /api/items/{id}/rate.
type RateRequest struct {
	Rating int `json:"rating"`
}

// RateItem handles POST /api/items/{id}/rate.
func (h *CatalogHandler) RateItem(w http.ResponseWriter, r *http.Request) {
	var req RateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid rating value", http.StatusBadRequest)
		return
	}
	it, err := h.CatalogService.RateItem(r.Context(), chi.URLParam(r, "id"), req.Rating)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// CreateCategory handles POST /api/categories.
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var c models.Category
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	c.ID = ""
	if err := h.CatalogService.CreateCategory(r.Context(), &c); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// ListCategories handles GET /api/categories.
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.CatalogService.ListCategories(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// ItemsByCategory handles GET /api/categories/{id}/items.
func (h *CatalogHandler) ItemsByCategory(w http.ResponseWriter, r *http.Request) {
	items, err := h.CatalogService.ItemsByCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
