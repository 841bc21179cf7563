package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atinyakov/GophMart/internal/models"
)

// PostgresCartRepository implements per-user cart storage against a PostgreSQL database.
type PostgresCartRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewPostgresCartRepository creates a new PostgresCartRepository using the provided *sql.DB.
func NewPostgresCartRepository(db *sql.DB) *PostgresCartRepository {
	return &PostgresCartRepository{DB: db}
}

// GetCart returns the saved entries of userID in the order they were
// saved. ErrNotFound means the user never saved a cart; a saved empty cart
// yields an empty slice.
func (r *PostgresCartRepository) GetCart(ctx context.Context, userID string) ([]models.CartEntry, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM carts WHERE user_id = $1)
	`, userID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("GetCart: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT item_id, quantity FROM cart_items WHERE user_id = $1 ORDER BY position
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("GetCart: %w", err)
	}
	defer rows.Close()

	entries := []models.CartEntry{}
	for rows.Next() {
		var e models.CartEntry
		if err := rows.Scan(&e.ItemID, &e.Quantity); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetCart: %w", err)
	}
	return entries, nil
}

// SaveCart replaces the whole cart of userID with entries in one
// transaction.
func (r *PostgresCartRepository) SaveCart(ctx context.Context, userID string, entries []models.CartEntry) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO carts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
	`, userID); err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	for i, e := range entries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cart_items (user_id, item_id, quantity, position) VALUES ($1, $2, $3, $4)
		`, userID, e.ItemID, e.Quantity, i)
		if err != nil {
			return fmt.Errorf("insert cart item: %w", mapPQError(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
