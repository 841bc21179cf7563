package storage

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/atinyakov/GophMart/internal/client/cart"
	"github.com/atinyakov/GophMart/internal/models"
)

// UserHeader carries the signed-in user to the server.
const UserHeader = "X-User-ID"

// DefaultTimeout bounds every API request.
const DefaultTimeout = 10 * time.Second

// NewHTTPClient returns an API client. When caFile is set the server
// certificate must chain to it.
func NewHTTPClient(caFile string, timeout time.Duration) (*http.Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if caFile == "" {
		return &http.Client{Timeout: timeout}, nil
	}

	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA cert: %w", err)
	}
	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse CA cert")
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			RootCAs:    caPool,
			MinVersion: tls.VersionTLS12,
		},
	}
	return &http.Client{Transport: transport, Timeout: timeout}, nil
}

// CartStore is the server cart API as seen by the client.
type CartStore struct {
	client  *http.Client
	baseURL string
}

// NewCartStore returns a store talking to the server at baseURL.
func NewCartStore(client *http.Client, baseURL string) *CartStore {
	return &CartStore{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *CartStore) cartURL(userID string) string {
	return s.baseURL + "/api/cart/" + url.PathEscape(userID)
}

// ReadCart fetches the user's cart. A user without a saved cart yields
// cart.ErrCartNotFound.
func (s *CartStore) ReadCart(ctx context.Context, userID string) (cart.Cart, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cartURL(userID), nil)
	if err != nil {
		return cart.Cart{}, err
	}
	req.Header.Set(UserHeader, userID)

	resp, err := s.client.Do(req)
	if err != nil {
		return cart.Cart{}, fmt.Errorf("read cart failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return cart.Cart{}, cart.ErrCartNotFound
	}
	if err := checkStatus(resp); err != nil {
		return cart.Cart{}, err
	}

	var c cart.Cart
	if err := json.NewDecoder(resp.Body).Decode(&c); err != nil {
		return cart.Cart{}, fmt.Errorf("failed to decode cart: %w", err)
	}
	return c, nil
}

// WriteCart replaces the user's cart on the server.
func (s *CartStore) WriteCart(ctx context.Context, userID string, c cart.Cart) error {
	entries := make([]models.CartEntry, 0, c.Len())
	for _, l := range c.Lines() {
		entries = append(entries, models.CartEntry{ItemID: l.ItemID, Quantity: l.Quantity})
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cartURL(userID), bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(UserHeader, userID)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("write cart failed: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("server error: %s", strings.TrimSpace(string(data)))
}
