// Package repository provides PostgreSQL and Redis persistence for the
// catalog and the per-user carts.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/GophMart/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when the requested row does not exist
	// (or was soft-deleted).
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned on unique constraint violations.
	ErrConflict = errors.New("already exists")
	// ErrInvalidReference is returned on foreign key violations.
	ErrInvalidReference = errors.New("invalid reference")
)

const itemColumns = `id, title, description, image_url, price, keywords, user_id, rating, rated_by, category_id, created_at, updated_at`

// ItemFilter narrows ListItems. Empty fields match everything.
type ItemFilter struct {
	// Query is matched case-insensitively as a substring of the title or
	// of any keyword.
	Query string
	// CategoryID restricts results to one category.
	CategoryID string
}

// PostgresCatalogRepository implements item and category storage against a PostgreSQL database.
type PostgresCatalogRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewPostgresCatalogRepository creates a new PostgresCatalogRepository using the provided *sql.DB.
func NewPostgresCatalogRepository(db *sql.DB) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (models.Item, error) {
	var (
		it       models.Item
		category sql.NullString
	)
	err := row.Scan(&it.ID, &it.Title, &it.Description, &it.ImageURL, &it.Price,
		pq.Array(&it.Keywords), &it.UserID, &it.Rating, &it.RatedBy, &category,
		&it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return models.Item{}, err
	}
	it.CategoryID = category.String
	return it, nil
}

// mapPQError translates constraint violations into package errors.
func mapPQError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrConflict, pqErr.Constraint)
		case "23503":
			return fmt.Errorf("%w: %s", ErrInvalidReference, pqErr.Constraint)
		}
	}
	return err
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// CreateItem inserts it, assigning a new ID when it.ID is empty. Store
// managed fields (rating, timestamps) are filled in on return.
func (r *PostgresCatalogRepository) CreateItem(ctx context.Context, it *models.Item) error {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if it.Keywords == nil {
		it.Keywords = []string{}
	}
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO items (id, title, description, image_url, price, keywords, user_id, category_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING rating, rated_by, created_at, updated_at
	`, it.ID, it.Title, it.Description, it.ImageURL, it.Price, pq.Array(it.Keywords), it.UserID, nullable(it.CategoryID)).
		Scan(&it.Rating, &it.RatedBy, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return fmt.Errorf("CreateItem: %w", mapPQError(err))
	}
	return nil
}

// ListItems returns live items matching filter, newest first.
func (r *PostgresCatalogRepository) ListItems(ctx context.Context, filter ItemFilter) ([]models.Item, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+itemColumns+` FROM items
		WHERE deleted = false
		  AND ($1 = '' OR category_id = $1)
		  AND ($2 = '' OR title ILIKE '%' || $2 || '%'
		       OR EXISTS (SELECT 1 FROM unnest(keywords) k WHERE k ILIKE '%' || $2 || '%'))
		ORDER BY created_at DESC
	`, filter.CategoryID, filter.Query)
	if err != nil {
		return nil, fmt.Errorf("ListItems: %w", err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListItems: %w", err)
	}
	return items, nil
}

// GetItem fetches a live item by ID.
func (r *PostgresCatalogRepository) GetItem(ctx context.Context, id string) (*models.Item, error) {
	it, err := scanItem(r.DB.QueryRowContext(ctx, `
		SELECT `+itemColumns+` FROM items WHERE id = $1 AND deleted = false
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetItem: %w", err)
	}
	return &it, nil
}

// GetItemsByIDs returns the live items among ids keyed by ID. Missing or
// deleted IDs are simply absent from the result.
func (r *PostgresCatalogRepository) GetItemsByIDs(ctx context.Context, ids []string) (map[string]models.Item, error) {
	out := make(map[string]models.Item, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+itemColumns+` FROM items WHERE id = ANY($1) AND deleted = false
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("GetItemsByIDs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out[it.ID] = it
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetItemsByIDs: %w", err)
	}
	return out, nil
}

// DeleteItem soft-deletes a live item. The row is purged later by the
// cleaner.
func (r *PostgresCatalogRepository) DeleteItem(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE items SET deleted = true, updated_at = now() WHERE id = $1 AND deleted = false
	`, id)
	if err != nil {
		return fmt.Errorf("DeleteItem: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteItem: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RateItem folds rating into the item's running average inside a
// transaction holding the row lock, and returns the updated item.
func (r *PostgresCatalogRepository) RateItem(ctx context.Context, id string, rating int) (*models.Item, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	it, err := scanItem(tx.QueryRowContext(ctx, `
		SELECT `+itemColumns+` FROM items WHERE id = $1 AND deleted = false FOR UPDATE
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load item: %w", err)
	}

	it.ApplyRating(rating)

	err = tx.QueryRowContext(ctx, `
		UPDATE items SET rating = $2, rated_by = $3, updated_at = now() WHERE id = $1
		RETURNING updated_at
	`, it.ID, it.Rating, it.RatedBy).Scan(&it.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update rating: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &it, nil
}

// CreateCategory inserts c, assigning a new ID when c.ID is empty.
func (r *PostgresCatalogRepository) CreateCategory(ctx context.Context, c *models.Category) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.DB.ExecContext(ctx, `INSERT INTO categories (id, name) VALUES ($1, $2)`, c.ID, c.Name)
	if err != nil {
		return fmt.Errorf("CreateCategory: %w", mapPQError(err))
	}
	return nil
}

// ListCategories returns all categories ordered by name.
func (r *PostgresCatalogRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListCategories: %w", err)
	}
	return categories, nil
}
