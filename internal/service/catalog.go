// Package service provides catalog and cart business logic, delegating
// persistence to repository interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atinyakov/GophMart/internal/models"
	"github.com/atinyakov/GophMart/internal/repository"
)

var (
	// ErrInvalidItem is returned when an item fails validation.
	ErrInvalidItem = errors.New("invalid item")
	// ErrInvalidCategory is returned when a category fails validation.
	ErrInvalidCategory = errors.New("invalid category")
	// ErrInvalidRating is returned for ratings outside 1..5.
	ErrInvalidRating = errors.New("invalid rating value")
)

// CatalogRepository defines the persistence operations needed by the CatalogService.
type CatalogRepository interface {
	CreateItem(ctx context.Context, it *models.Item) error
	ListItems(ctx context.Context, filter repository.ItemFilter) ([]models.Item, error)
	GetItem(ctx context.Context, id string) (*models.Item, error)
	DeleteItem(ctx context.Context, id string) error
	RateItem(ctx context.Context, id string, rating int) (*models.Item, error)
	CreateCategory(ctx context.Context, c *models.Category) error
	ListCategories(ctx context.Context) ([]models.Category, error)
}

// CatalogService implements item and category operations.
type CatalogService struct {
	repo CatalogRepository
}

// NewCatalogService constructs a CatalogService with the provided repository.
func NewCatalogService(repo CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

// CreateItem validates and stores a new listing. Title is required and
// price must not be negative.
func (s *CatalogService) CreateItem(ctx context.Context, it *models.Item) error {
	it.Title = strings.TrimSpace(it.Title)
	if it.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidItem)
	}
	if it.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidItem)
	}
	keywords := make([]string, 0, len(it.Keywords))
	for _, k := range it.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	it.Keywords = keywords
	it.Rating, it.RatedBy = 0, 0
	return s.repo.CreateItem(ctx, it)
}

// ListItems returns live items, optionally narrowed by a search query and
// a category.
func (s *CatalogService) ListItems(ctx context.Context, query, categoryID string) ([]models.Item, error) {
	return s.repo.ListItems(ctx, repository.ItemFilter{
		Query:      strings.TrimSpace(query),
		CategoryID: categoryID,
	})
}

// GetItem returns a single live item.
func (s *CatalogService) GetItem(ctx context.Context, id string) (*models.Item, error) {
	return s.repo.GetItem(ctx, id)
}

// DeleteItem removes an item from the catalog.
func (s *CatalogService) DeleteItem(ctx context.Context, id string) error {
	return s.repo.DeleteItem(ctx, id)
}

// RateItem records a 1..5 rating and returns the item with its new average.
func (s *CatalogService) RateItem(ctx context.Context, id string, rating int) (*models.Item, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	return s.repo.RateItem(ctx, id, rating)
}

// CreateCategory validates and stores a new category.
func (s *CatalogService) CreateCategory(ctx context.Context, c *models.Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCategory)
	}
	return s.repo.CreateCategory(ctx, c)
}

// ListCategories returns all categories.
func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.repo.ListCategories(ctx)
}

// ItemsByCategory returns the live items of one category.
func (s *CatalogService) ItemsByCategory(ctx context.Context, categoryID string) ([]models.Item, error) {
	return s.repo.ListItems(ctx, repository.ItemFilter{CategoryID: categoryID})
}
