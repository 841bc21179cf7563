package storage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atinyakov/GophMart/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogClient_ListItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/items", r.URL.Path)
		assert.Equal(t, "red mug", r.URL.Query().Get("q"))
		assert.Equal(t, "c1", r.URL.Query().Get("category"))
		_ = json.NewEncoder(w).Encode([]models.Item{{ID: "A", Title: "Red mug", Price: decimal.NewFromInt(4)}})
	}))
	defer srv.Close()

	items, err := NewCatalogClient(srv.Client(), srv.URL).ListItems(context.Background(), "red mug", "c1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Red mug", items[0].Title)
}

func TestCatalogClient_ListItemsNoFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	items, err := NewCatalogClient(srv.Client(), srv.URL).ListItems(context.Background(), "", "")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCatalogClient_GetItemNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewCatalogClient(srv.Client(), srv.URL).GetItem(context.Background(), "missing")
	assert.EqualError(t, err, "server error: not found")
}

func TestCatalogClient_ListCategories(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/categories", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":"c1","name":"Kitchen"}]`))
	}))
	defer srv.Close()

	categories, err := NewCatalogClient(srv.Client(), srv.URL).ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Category{{ID: "c1", Name: "Kitchen"}}, categories)
}

func TestCatalogClient_RateItem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/items/A/rate", r.URL.Path)
		assert.Empty(t, r.Header.Get(UserHeader))
		var body map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 4, body["rating"])
		_ = json.NewEncoder(w).Encode(models.Item{ID: "A", Rating: 4, RatedBy: 1})
	}))
	defer srv.Close()

	it, err := NewCatalogClient(srv.Client(), srv.URL).RateItem(context.Background(), "A", 4)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, it.Rating, 1e-9)
	assert.EqualValues(t, 1, it.RatedBy)
}

func TestCatalogClient_ItemsByCategory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/categories/c 1/items", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]models.Item{{ID: "A", CategoryID: "c 1"}})
	}))
	defer srv.Close()

	items, err := NewCatalogClient(srv.Client(), srv.URL).ItemsByCategory(context.Background(), "c 1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0].ID)
}

func TestCatalogClient_CreateItem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/items", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "alice", r.Header.Get(UserHeader))

		var it models.Item
		require.NoError(t, json.NewDecoder(r.Body).Decode(&it))
		assert.Equal(t, "Lamp", it.Title)
		assert.Equal(t, "c1", it.CategoryID)
		assert.True(t, decimal.RequireFromString("19.99").Equal(it.Price))

		it.ID = "new"
		it.UserID = r.Header.Get(UserHeader)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(it)
	}))
	defer srv.Close()

	created, err := NewCatalogClient(srv.Client(), srv.URL).CreateItem(context.Background(), "alice",
		models.Item{Title: "Lamp", Price: decimal.RequireFromString("19.99"), CategoryID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "new", created.ID)
	assert.Equal(t, "alice", created.UserID)
}

func TestCatalogClient_CreateItemRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid item: title is required", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewCatalogClient(srv.Client(), srv.URL).CreateItem(context.Background(), "alice", models.Item{})
	assert.EqualError(t, err, "server error: invalid item: title is required")
}

func TestCartItem(t *testing.T) {
	it := models.Item{ID: "A", Title: "Widget", Price: decimal.NewFromInt(3), ImageURL: "/a.png", Rating: 5}
	ci := CartItem(it)
	assert.Equal(t, "A", ci.ID)
	assert.Equal(t, "Widget", ci.Title)
	assert.Equal(t, "/a.png", ci.ImageURL)
	assert.True(t, decimal.NewFromInt(3).Equal(ci.Price))
}
