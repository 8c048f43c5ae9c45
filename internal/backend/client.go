// Package backend is a typed client for the document/notes REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIPrefix is prepended to every resource path.
const APIPrefix = "/api/v1"

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 32 << 20

// Client communicates with the backend HTTP API. Calls are not retried.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	stats      *Stats
}

// NewClient creates a client. A zero timeout defaults to 30s; an empty
// apiKey sends no Authorization header.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		stats: NewStats(time.Hour),
	}
}

// Stats returns latency aggregates for recent calls.
func (c *Client) Stats() StatsSnapshot {
	return c.stats.Snapshot()
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// do sends a JSON request and returns the raw response body. A nil body
// sends no payload; 204 responses return nil.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body any) ([]byte, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", op, err)
		}
		rdr = bytes.NewReader(b)
	}

	u := c.baseURL + APIPrefix + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(op, req)
}

func (c *Client) send(op string, req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.stats.Record(op, time.Since(start), true)
		return nil, &APIError{Op: op, Message: "network error: " + err.Error(), Err: err}
	}
	defer resp.Body.Close()
	c.stats.Record(op, time.Since(start), resp.StatusCode >= 400)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &APIError{Op: op, Status: resp.StatusCode, Message: "read body: " + err.Error(), Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(op, resp, data)
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	return data, nil
}

// validator is implemented by response records with required fields.
type validator interface {
	validate() error
}

// decodeOne unmarshals a single record. Empty bodies yield the zero value.
func decodeOne[T any](op string, data []byte) (T, error) {
	var v T
	if len(bytes.TrimSpace(data)) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, &DecodeError{Op: op, Err: err}
	}
	if val, ok := any(&v).(validator); ok {
		if err := val.validate(); err != nil {
			return v, &DecodeError{Op: op, Err: err}
		}
	}
	return v, nil
}

// decodeList unmarshals an array of records, validating each.
func decodeList[T any](op string, data []byte) ([]T, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, &DecodeError{Op: op, Err: err}
	}
	for i := range items {
		if val, ok := any(&items[i]).(validator); ok {
			if err := val.validate(); err != nil {
				return nil, &DecodeError{Op: op, Err: fmt.Errorf("item %d: %w", i, err)}
			}
		}
	}
	return items, nil
}

func getOne[T any](ctx context.Context, c *Client, op, path string, query url.Values) (*T, error) {
	data, err := c.do(ctx, op, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	v, err := decodeOne[T](op, data)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func getList[T any](ctx context.Context, c *Client, op, path string, query url.Values) ([]T, error) {
	data, err := c.do(ctx, op, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[T](op, data)
}

func sendOne[T any](ctx context.Context, c *Client, op, method, path string, body any) (*T, error) {
	data, err := c.do(ctx, op, method, path, nil, body)
	if err != nil {
		return nil, err
	}
	v, err := decodeOne[T](op, data)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) delete(ctx context.Context, op, path string) error {
	_, err := c.do(ctx, op, http.MethodDelete, path, nil, nil)
	return err
}

// escape path-escapes an id segment.
func escape(id string) string {
	return url.PathEscape(id)
}
