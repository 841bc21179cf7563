package repository

import (
	"context"
	"testing"
	"time"

	"github.com/atinyakov/GophMart/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachableRedis(t *testing.T) *RedisCartRepository {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCartRepository(client)
}

func TestCartKey(t *testing.T) {
	assert.Equal(t, "cart:user_42", cartKey("user_42"))
}

func TestNewRedisClient(t *testing.T) {
	c := NewRedisClient("redis://:secret@cache:6380/2")
	defer c.Close()
	assert.Equal(t, "cache:6380", c.Options().Addr)
	assert.Equal(t, 2, c.Options().DB)

	plain := NewRedisClient("localhost:6379")
	defer plain.Close()
	assert.Equal(t, "localhost:6379", plain.Options().Addr)
}

func TestRedisCartRepository_Unreachable(t *testing.T) {
	repo := unreachableRedis(t)
	ctx := context.Background()

	_, err := repo.GetCart(ctx, "u1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound, "transport errors must not read as an absent cart")

	err = repo.SaveCart(ctx, "u1", []models.CartEntry{{ItemID: "A", Quantity: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis HSet")

	assert.Error(t, repo.Ping(ctx))
}
