package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/atinyakov/GophMart/internal/client/cart"
	"github.com/atinyakov/GophMart/internal/models"
)

// CatalogClient reads the server's item and category listings.
type CatalogClient struct {
	client  *http.Client
	baseURL string
}

// NewCatalogClient returns a client for the server at baseURL.
func NewCatalogClient(client *http.Client, baseURL string) *CatalogClient {
	return &CatalogClient{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// CartItem converts a catalog item into the snapshot a cart line copies.
func CartItem(it models.Item) cart.Item {
	return cart.Item{ID: it.ID, Title: it.Title, Price: it.Price, ImageURL: it.ImageURL}
}

// ListItems returns live items whose title or keywords contain query,
// optionally restricted to one category.
func (c *CatalogClient) ListItems(ctx context.Context, query, categoryID string) ([]models.Item, error) {
	q := url.Values{}
	if query != "" {
		q.Set("q", query)
	}
	if categoryID != "" {
		q.Set("category", categoryID)
	}
	path := "/api/items"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var items []models.Item
	if err := c.get(ctx, path, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetItem fetches one item.
func (c *CatalogClient) GetItem(ctx context.Context, id string) (*models.Item, error) {
	var it models.Item
	if err := c.get(ctx, "/api/items/"+url.PathEscape(id), &it); err != nil {
		return nil, err
	}
	return &it, nil
}

// ListCategories returns all categories.
func (c *CatalogClient) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := c.get(ctx, "/api/categories", &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// ItemsByCategory returns the live items of one category.
func (c *CatalogClient) ItemsByCategory(ctx context.Context, categoryID string) ([]models.Item, error) {
	var items []models.Item
	if err := c.get(ctx, "/api/categories/"+url.PathEscape(categoryID)+"/items", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateItem lists a new item for sale with sellerID as its seller and
// returns it as stored.
func (c *CatalogClient) CreateItem(ctx context.Context, sellerID string, it models.Item) (*models.Item, error) {
	var created models.Item
	if err := c.post(ctx, "/api/items", sellerID, it, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// RateItem submits a 1..5 rating and returns the item with its new average.
func (c *CatalogClient) RateItem(ctx context.Context, id string, rating int) (*models.Item, error) {
	var it models.Item
	if err := c.post(ctx, "/api/items/"+url.PathEscape(id)+"/rate", "", map[string]int{"rating": rating}, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

func (c *CatalogClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// post sends body as JSON; userID is sent in UserHeader when set.
func (c *CatalogClient) post(ctx context.Context, path, userID string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(UserHeader, userID)
	}
	return c.do(req, out)
}

func (c *CatalogClient) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
