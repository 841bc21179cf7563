// Package models defines the core data structures for catalog items,
// categories and server-side cart entries.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a catalog listing offered by a seller.
type Item struct {
	// ID is the unique identifier for the item.
	ID string `json:"id"`
	// Title is the display name of the item. Required.
	Title string `json:"title"`
	// Description is an optional free-form text.
	Description string `json:"description"`
	// ImageURL points at an image served by the static file server.
	ImageURL string `json:"image_url"`
	// Price is the unit price. Required, never negative.
	Price decimal.Decimal `json:"price"`
	// Keywords are matched by the naive search together with the title.
	Keywords []string `json:"keywords"`
	// UserID is the identity provider ID of the seller.
	UserID string `json:"user_id"`
	// Rating is the running average of all ratings received.
	Rating float64 `json:"rating"`
	// RatedBy is the number of ratings folded into Rating.
	RatedBy int64 `json:"rated_by"`
	// CategoryID references a Category, empty when uncategorized.
	CategoryID string `json:"category_id,omitempty"`
	// CreatedAt is set by the store on insert.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is refreshed by the store on every update.
	UpdatedAt time.Time `json:"updated_at"`
}

// ApplyRating folds a single rating into the item's running average.
//
//	rating = (rating*ratedBy + r) / (ratedBy + 1)
func (it *Item) ApplyRating(r int) {
	it.Rating = (it.Rating*float64(it.RatedBy) + float64(r)) / float64(it.RatedBy+1)
	it.RatedBy++
}

// Category groups items.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CartEntry is a persisted cart row: which item a user holds and how many.
type CartEntry struct {
	// ItemID references a catalog Item.
	ItemID string `json:"item_id"`
	// Quantity is always >= 1 once stored.
	Quantity int `json:"quantity"`
}

// CartLine is a cart row hydrated with the item's current catalog fields,
// as returned to clients.
type CartLine struct {
	ItemID   string          `json:"item_id"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"image_url"`
	Quantity int             `json:"quantity"`
}
