// Package client talks to the care plan order API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/ridgelee/AI-Agent---Care-Plan/internal/model"
)

// Client is an HTTP client for /api/orders. It sets no request timeout; a
// request lasts until the server answers or ctx is cancelled.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CreateOrder submits a new care plan order.
func (c *Client) CreateOrder(ctx context.Context, req model.CreateOrderRequest) (model.OrderRecord, error) {
	var out model.OrderRecord
	if err := c.doJSON(ctx, "create order", http.MethodPost, c.baseURL+"/api/orders/", req, &out); err != nil {
		return model.OrderRecord{}, err
	}
	return out, nil
}

// GetOrder fetches the current state of an order.
func (c *Client) GetOrder(ctx context.Context, orderID string) (model.OrderRecord, error) {
	if strings.TrimSpace(orderID) == "" {
		return model.OrderRecord{}, fmt.Errorf("order id is required")
	}
	endpoint := fmt.Sprintf("%s/api/orders/%s/", c.baseURL, url.PathEscape(orderID))
	var out model.OrderRecord
	if err := c.doJSON(ctx, "get order", http.MethodGet, endpoint, nil, &out); err != nil {
		return model.OrderRecord{}, err
	}
	return out, nil
}

// SearchOrders runs a free text search over prior orders.
func (c *Client) SearchOrders(ctx context.Context, query string) (model.SearchResults, error) {
	var out model.SearchResults
	body := model.SearchRequest{Query: query}
	if err := c.doJSON(ctx, "search orders", http.MethodPost, c.baseURL+"/api/orders/search/", body, &out); err != nil {
		return model.SearchResults{}, err
	}
	return out, nil
}

// DownloadURL is the artifact location for an order. It is derived from the
// order id alone.
func (c *Client) DownloadURL(orderID string) string {
	return fmt.Sprintf("%s/api/orders/%s/download", c.baseURL, url.PathEscape(orderID))
}

// Artifact is a downloaded care plan. Callers must close Body.
type Artifact struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

// Download follows a download reference produced by DownloadURL.
func (c *Client) Download(ctx context.Context, ref string) (*Artifact, error) {
	const op = "download"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, decodeAPIError(op, resp)
	}
	return &Artifact{
		Filename:    attachmentName(resp.Header.Get("Content-Disposition")),
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
		Body:        resp.Body,
	}, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, endpoint string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(data)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(op, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func attachmentName(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}
