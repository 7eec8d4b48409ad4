// Package cartclient talks to the storefront's cart sync endpoint.
package cartclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
)

const syncPath = "/api/cart/sync"

type Client struct {
	baseURL    string
	userHeader string
	http       *http.Client
}

func New(baseURL, userHeader string, timeout time.Duration) *Client {
	if userHeader == "" {
		userHeader = "X-User-ID"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userHeader: userHeader,
		http:       &http.Client{Timeout: timeout},
	}
}

type syncResponse struct {
	Items   []domain.CartItem `json:"items"`
	Success *bool             `json:"success,omitempty"`
	Message string            `json:"message,omitempty"`
	Error   string            `json:"error,omitempty"`
	Code    string            `json:"code,omitempty"`
}

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Status int
	Code   string
	Msg    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("cart sync: status %d: %s (%s)", e.Status, e.Msg, e.Code)
}

func (c *Client) Pull(ctx context.Context, userID string) ([]domain.CartItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+syncPath, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.do(req, userID)
	if err != nil {
		return nil, err
	}
	if resp.Items == nil {
		return []domain.CartItem{}, nil
	}
	return resp.Items, nil
}

// Push replaces the remote snapshot. A server that has sync disabled
// answers with success=false, which is not an error.
func (c *Client) Push(ctx context.Context, userID string, items []domain.CartItem) error {
	if items == nil {
		items = []domain.CartItem{}
	}
	body, err := json.Marshal(map[string]any{"items": items})
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+syncPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	_, err = c.do(req, userID)
	return err
}

func (c *Client) do(req *http.Request, userID string) (*syncResponse, error) {
	if userID != "" {
		req.Header.Set(c.userHeader, userID)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cart sync request: %w", err)
	}
	defer resp.Body.Close()

	var out syncResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode cart sync response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Status: resp.StatusCode, Code: out.Code, Msg: out.Error}
	}
	return &out, nil
}

// Product looks up one catalog entry, used to fill in line details when a
// product is added by id.
func (c *Client) Product(ctx context.Context, id string) (*domain.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/products/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("product request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e syncResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return nil, &StatusError{Status: resp.StatusCode, Code: e.Code, Msg: e.Error}
	}
	var p domain.Product
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode product: %w", err)
	}
	return &p, nil
}
