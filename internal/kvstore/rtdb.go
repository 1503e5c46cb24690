package kvstore

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

const requestTimeout = 5 * time.Second

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RTDB implements Store over the Realtime Database REST API.
type RTDB struct {
	client  HTTPClient
	baseURL string
	apiKey  string
}

// NewRTDB creates a client for the database at baseURL.
func NewRTDB(client HTTPClient, baseURL, apiKey string) *RTDB {
	return &RTDB{client: client, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

// Set implements Store.
func (r *RTDB) Set(ctx context.Context, path string, value any) error {
	if _, err := r.do(ctx, http.MethodPut, path, value); err != nil {
		return fmt.Errorf("kv set %s: %w", path, err)
	}
	return nil
}

// Update implements Store.
func (r *RTDB) Update(ctx context.Context, path string, partial map[string]any) error {
	if _, err := r.do(ctx, http.MethodPatch, path, partial); err != nil {
		return fmt.Errorf("kv update %s: %w", path, err)
	}
	return nil
}

// Push implements Store.
func (r *RTDB) Push(ctx context.Context, path string, value any) (string, error) {
	body, err := r.do(ctx, http.MethodPost, path, value)
	if err != nil {
		return "", fmt.Errorf("kv push %s: %w", path, err)
	}
	var resp struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("kv push %s: decode response: %w", path, err)
	}
	return resp.Name, nil
}

// Get implements Store.
func (r *RTDB) Get(ctx context.Context, path string) (any, error) {
	body, err := r.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("kv get %s: %w", path, err)
	}
	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return nil, fmt.Errorf("kv get %s: decode response: %w", path, err)
	}
	return value, nil
}

func (r *RTDB) endpoint(path string) string {
	u := r.baseURL + "/" + strings.Join(splitPath(path), "/") + ".json"
	if r.apiKey != "" {
		u += "?" + url.Values{"key": {r.apiKey}}.Encode()
	}
	return u
}

func (r *RTDB) do(ctx context.Context, method, path string, value any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var reader io.Reader
	if method != http.MethodGet {
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.endpoint(path), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http %s: %w", strings.ToLower(method), err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return body, nil
}
