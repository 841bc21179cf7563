package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/GophMart/internal/models"
	"github.com/redis/go-redis/v9"
)

const cartField = "cart"

// RedisCartRepository keeps each user's cart as a JSON document in a
// Redis hash under "cart:<userID>".
type RedisCartRepository struct {
	client *redis.Client
}

// NewRedisCartRepository wraps an existing client.
func NewRedisCartRepository(client *redis.Client) *RedisCartRepository {
	return &RedisCartRepository{client: client}
}

// NewRedisClient builds a client from a redis:// URL or a plain host:port.
func NewRedisClient(addr string) *redis.Client {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{
			Addr:         addr,
			MinIdleConns: 1,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
		}
	}
	return redis.NewClient(opts)
}

func cartKey(userID string) string {
	return "cart:" + userID
}

// GetCart returns the saved entries of userID. ErrNotFound means the user
// never saved a cart.
func (r *RedisCartRepository) GetCart(ctx context.Context, userID string) ([]models.CartEntry, error) {
	val, err := r.client.HGet(ctx, cartKey(userID), cartField).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis HGet: %w", err)
	}

	entries := []models.CartEntry{}
	if err := json.Unmarshal(val, &entries); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return entries, nil
}

// SaveCart replaces the cart of userID.
func (r *RedisCartRepository) SaveCart(ctx context.Context, userID string, entries []models.CartEntry) error {
	if entries == nil {
		entries = []models.CartEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	err = r.client.HSet(ctx, cartKey(userID),
		cartField, data,
		"updated_at", time.Now().UTC().Format(time.RFC3339),
	).Err()
	if err != nil {
		return fmt.Errorf("redis HSet: %w", err)
	}
	return nil
}

// Ping reports whether Redis answers within ctx.
func (r *RedisCartRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
