package http

import (
	"net/http"

	"github.com/atinyakov/GophMart/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves the
// marketplace API.
//
// Routes:
//
//	POST   /api/items                  → catalogHandler.CreateItem
//	GET    /api/items                  → catalogHandler.ListItems
//	GET    /api/items/{id}             → catalogHandler.GetItem
//	DELETE /api/items/{id}             → catalogHandler.DeleteItem
//	POST   /api/items/{id}/rate        → catalogHandler.RateItem
//	POST   /api/categories             → catalogHandler.CreateCategory
//	GET    /api/categories             → catalogHandler.ListCategories
//	GET    /api/categories/{id}/items  → catalogHandler.ItemsByCategory
//	GET    /api/cart/{userID}          → cartHandler.GetCart  (identity required)
//	POST   /api/cart/{userID}          → cartHandler.SaveCart (identity required)
//
// Middleware chain (applied in order):
//  1. AllowContentType("application/json"): rejects non-JSON bodies
//  2. WithRequestLogging(logger): logs every request
//  3. Identity: picks up the caller's user ID
func NewRouter(
	catalogHandler *CatalogHandler,
	cartHandler *CartHandler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(middleware.Identity)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("API is running..."))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/items", func(r chi.Router) {
			r.Post("/", catalogHandler.CreateItem)
			r.Get("/", catalogHandler.ListItems)
			r.Get("/{id}", catalogHandler.GetItem)
			r.Delete("/{id}", catalogHandler.DeleteItem)
			r.Post("/{id}/rate", catalogHandler.RateItem)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Post("/", catalogHandler.CreateCategory)
			r.Get("/", catalogHandler.ListCategories)
			r.Get("/{id}/items", catalogHandler.ItemsByCategory)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser)
			r.Get("/cart/{userID}", cartHandler.GetCart)
			r.Post("/cart/{userID}", cartHandler.SaveCart)
		})
	})

	return r
}
