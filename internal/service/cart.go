package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/atinyakov/GophMart/internal/models"
)

// MaxQuantity is the largest quantity a single cart entry may hold; the
// cart_items column is a 32-bit INTEGER.
const MaxQuantity = math.MaxInt32

// ErrInvalidQuantity is returned when a saved entry exceeds MaxQuantity.
var ErrInvalidQuantity = errors.New("invalid quantity")

// CartRepository defines the persistence operations needed by the CartService.
type CartRepository interface {
	// GetCart returns the saved entries or repository.ErrNotFound.
	GetCart(ctx context.Context, userID string) ([]models.CartEntry, error)
	// SaveCart replaces the saved entries.
	SaveCart(ctx context.Context, userID string, entries []models.CartEntry) error
}

// ItemLookup resolves catalog items for cart hydration.
type ItemLookup interface {
	GetItemsByIDs(ctx context.Context, ids []string) (map[string]models.Item, error)
}

// CartService implements the server-side cart store.
type CartService struct {
	repo  CartRepository
	items ItemLookup
}

// NewCartService constructs a CartService.
func NewCartService(repo CartRepository, items ItemLookup) *CartService {
	return &CartService{repo: repo, items: items}
}

// GetCart returns the user's cart hydrated with current catalog fields.
// Entries whose item has since been deleted are left out.
func (s *CartService) GetCart(ctx context.Context, userID string) ([]models.CartLine, error) {
	entries, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ItemID)
	}
	items, err := s.items.GetItemsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate cart: %w", err)
	}

	lines := make([]models.CartLine, 0, len(entries))
	for _, e := range entries {
		it, ok := items[e.ItemID]
		if !ok {
			continue
		}
		lines = append(lines, models.CartLine{
			ItemID:   e.ItemID,
			Title:    it.Title,
			Price:    it.Price,
			ImageURL: it.ImageURL,
			Quantity: e.Quantity,
		})
	}
	return lines, nil
}

// SaveCart replaces the user's cart. Entries with a non-positive quantity
// are dropped and repeated item IDs are folded into one entry by summing
// their quantities. Entries for items that are deleted or were never in
// the catalog are dropped too, so a stale cart still saves its live lines.
func (s *CartService) SaveCart(ctx context.Context, userID string, entries []models.CartEntry) error {
	for _, e := range entries {
		if e.Quantity > MaxQuantity {
			return fmt.Errorf("%w: %s has %d, limit is %d", ErrInvalidQuantity, e.ItemID, e.Quantity, MaxQuantity)
		}
	}
	normalized := NormalizeEntries(entries)

	ids := make([]string, 0, len(normalized))
	for _, e := range normalized {
		if e.Quantity > MaxQuantity {
			return fmt.Errorf("%w: %s has %d, limit is %d", ErrInvalidQuantity, e.ItemID, e.Quantity, MaxQuantity)
		}
		ids = append(ids, e.ItemID)
	}
	items, err := s.items.GetItemsByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("check items: %w", err)
	}

	live := normalized[:0]
	for _, e := range normalized {
		if _, ok := items[e.ItemID]; ok {
			live = append(live, e)
		}
	}
	return s.repo.SaveCart(ctx, userID, live)
}

// NormalizeEntries drops non-positive quantities and empty IDs and folds
// duplicates, keeping first-seen order.
func NormalizeEntries(entries []models.CartEntry) []models.CartEntry {
	out := make([]models.CartEntry, 0, len(entries))
	index := make(map[string]int, len(entries))
	for _, e := range entries {
		if e.ItemID == "" || e.Quantity <= 0 {
			continue
		}
		if i, ok := index[e.ItemID]; ok {
			out[i].Quantity += e.Quantity
			continue
		}
		index[e.ItemID] = len(out)
		out = append(out, e)
	}
	return out
}
