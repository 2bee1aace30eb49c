package shopapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/artpar/modstore/domain/shop"
	"github.com/artpar/modstore/ports"
)

// Client talks to a shop backend over HTTP.
//
//	GET  /products  -> []shop.Product
//	POST /checkout  <- []shop.CartItem
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
}

// ClientConfig configures the HTTP client.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	Headers map[string]string
}

// NewClient creates an HTTP shop client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		headers:    cfg.Headers,
	}
}

// GetProducts fetches the catalog.
func (c *Client) GetProducts(ctx context.Context) ([]shop.Product, error) {
	var products []shop.Product
	if err := c.request(ctx, http.MethodGet, "/products", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// BuyProducts posts the cart items for checkout.
func (c *Client) BuyProducts(ctx context.Context, items []shop.CartItem) error {
	return c.request(ctx, http.MethodPost, "/checkout", items, nil)
}

func (c *Client) request(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(resp.Body)
		return &RemoteError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(msg))}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// RemoteError is a non-2xx answer from the shop backend.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("shop backend error %d: %s", e.StatusCode, e.Message)
}

var _ ports.ShopAPI = (*Client)(nil)
