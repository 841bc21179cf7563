package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/atinyakov/GophMart/internal/client/cart"
	"github.com/atinyakov/GophMart/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(fn roundTripperFunc) *http.Client {
	return &http.Client{Transport: fn, Timeout: time.Second}
}

func TestCartStore_ReadCart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/cart/u1", r.URL.Path)
		assert.Equal(t, "u1", r.Header.Get(UserHeader))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"item_id":"A","title":"Widget","price":"12","image_url":"/a.png","quantity":1},
			{"item_id":"B","title":"Gadget","price":"5","image_url":"","quantity":1}
		]`))
	}))
	defer srv.Close()

	store := NewCartStore(srv.Client(), srv.URL+"/")
	c, err := store.ReadCart(context.Background(), "u1")
	require.NoError(t, err)

	require.Equal(t, 2, c.Len())
	a, _ := c.Line("A")
	assert.Equal(t, "Widget", a.Title)
	assert.True(t, decimal.NewFromInt(12).Equal(a.Price))
}

func TestCartStore_ReadCartNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewCartStore(srv.Client(), srv.URL).ReadCart(context.Background(), "u1")
	assert.ErrorIs(t, err, cart.ErrCartNotFound)
}

func TestCartStore_ReadCartErrors(t *testing.T) {
	tests := []struct {
		name    string
		rt      roundTripperFunc
		wantErr string
	}{
		{
			name: "network",
			rt: func(req *http.Request) (*http.Response, error) {
				return nil, errors.New("network down")
			},
			wantErr: "read cart failed",
		},
		{
			name: "server error",
			rt: func(req *http.Request) (*http.Response, error) {
				return &http.Response{
					StatusCode: http.StatusInternalServerError,
					Body:       io.NopCloser(strings.NewReader("internal error\n")),
				}, nil
			},
			wantErr: "server error: internal error",
		},
		{
			name: "invalid json",
			rt: func(req *http.Request) (*http.Response, error) {
				return &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(strings.NewReader("not-json")),
				}, nil
			},
			wantErr: "failed to decode cart",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewCartStore(newTestClient(tt.rt), "http://example.com")
			_, err := store.ReadCart(context.Background(), "u1")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.False(t, errors.Is(err, cart.ErrCartNotFound))
		})
	}
}

func TestCartStore_WriteCart(t *testing.T) {
	var got []models.CartEntry
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/cart/u%201", r.URL.EscapedPath())
		assert.Equal(t, "u 1", r.Header.Get(UserHeader))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message":"cart saved"}`))
	}))
	defer srv.Close()

	var c cart.Cart
	c.Add(cart.Item{ID: "A", Title: "Widget"}, 3)
	c.Add(cart.Item{ID: "B"}, 1)

	require.NoError(t, NewCartStore(srv.Client(), srv.URL).WriteCart(context.Background(), "u 1", c))
	assert.Equal(t, []models.CartEntry{{ItemID: "A", Quantity: 3}, {ItemID: "B", Quantity: 1}}, got)
}

func TestCartStore_WriteEmptyCart(t *testing.T) {
	var body string
	store := NewCartStore(newTestClient(func(req *http.Request) (*http.Response, error) {
		b, _ := io.ReadAll(req.Body)
		body = string(b)
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("{}"))}, nil
	}), "http://example.com")

	require.NoError(t, store.WriteCart(context.Background(), "u1", cart.Cart{}))
	assert.Equal(t, "[]", body)
}

func TestCartStore_WriteCartRejected(t *testing.T) {
	store := NewCartStore(newTestClient(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusBadRequest,
			Body:       io.NopCloser(strings.NewReader("invalid quantity: X\n")),
		}, nil
	}), "http://example.com")

	err := store.WriteCart(context.Background(), "u1", cart.Cart{})
	require.Error(t, err)
	assert.Equal(t, "server error: invalid quantity: X", err.Error())
}

func TestNewHTTPClient(t *testing.T) {
	c, err := NewHTTPClient("", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, c.Timeout)

	_, err = NewHTTPClient(filepath.Join(t.TempDir(), "missing.crt"), time.Second)
	assert.ErrorContains(t, err, "failed to read CA cert")

	bad := filepath.Join(t.TempDir(), "bad.crt")
	require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0o600))
	_, err = NewHTTPClient(bad, time.Second)
	assert.ErrorContains(t, err, "failed to parse CA cert")
}
