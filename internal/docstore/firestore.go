package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	requestTimeout = 10 * time.Second
	listTimeout    = 15 * time.Second
	maxBodyBytes   = 10 * 1024 * 1024
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// FirestoreURL returns the documents root for a project's default database.
func FirestoreURL(projectID string) string {
	return "https://firestore.googleapis.com/v1/projects/" + url.PathEscape(projectID) + "/databases/(default)/documents"
}

// Firestore implements Store over the Firestore REST API.
type Firestore struct {
	client   HTTPClient
	baseURL  string
	apiKey   string
	pageSize int
}

// NewFirestore creates a client for the documents root at baseURL.
func NewFirestore(client HTTPClient, baseURL, apiKey string) *Firestore {
	return &Firestore{
		client:   client,
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		pageSize: DefaultPageSize,
	}
}

// Backend implements Store.
func (f *Firestore) Backend() string { return "firestore" }

// Close implements Store.
func (f *Firestore) Close() error { return nil }

// Set creates or replaces the document at collection/id.
func (f *Firestore) Set(ctx context.Context, collection, id string, rec Record) error {
	body := map[string]any{"fields": encodeFields(rec)}
	if _, err := f.do(ctx, requestTimeout, http.MethodPatch, f.docURL(collection, id, nil), body); err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}

// Get returns the document at collection/id.
func (f *Firestore) Get(ctx context.Context, collection, id string) (Record, error) {
	resp, err := f.do(ctx, requestTimeout, http.MethodGet, f.docURL(collection, id, nil), nil)
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	var doc wireDocument
	if err := json.Unmarshal(resp, &doc); err != nil {
		return nil, fmt.Errorf("get %s/%s: decode document: %w", collection, id, err)
	}
	return decodeDocument(doc), nil
}

// Add stores rec under a server-generated id.
func (f *Firestore) Add(ctx context.Context, collection string, rec Record) (string, error) {
	body := map[string]any{"fields": encodeFields(rec)}
	resp, err := f.do(ctx, requestTimeout, http.MethodPost, f.collectionURL(collection, nil), body)
	if err != nil {
		return "", fmt.Errorf("add %s: %w", collection, err)
	}
	var doc wireDocument
	if err := json.Unmarshal(resp, &doc); err != nil {
		return "", fmt.Errorf("add %s: decode document: %w", collection, err)
	}
	return lastSegment(doc.Name), nil
}

// Delete removes the document at collection/id.
func (f *Firestore) Delete(ctx context.Context, collection, id string) error {
	if _, err := f.do(ctx, requestTimeout, http.MethodDelete, f.docURL(collection, id, nil), nil); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// List returns the first page of documents in collection.
func (f *Firestore) List(ctx context.Context, collection string) ([]Record, error) {
	q := url.Values{"pageSize": {strconv.Itoa(f.pageSize)}}
	resp, err := f.do(ctx, listTimeout, http.MethodGet, f.collectionURL(collection, q), nil)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	var page struct {
		Documents []wireDocument `json:"documents"`
	}
	if err := json.Unmarshal(resp, &page); err != nil {
		return nil, fmt.Errorf("list %s: decode page: %w", collection, err)
	}
	out := make([]Record, 0, len(page.Documents))
	for _, doc := range page.Documents {
		out = append(out, decodeDocument(doc))
	}
	return out, nil
}

func (f *Firestore) collectionURL(collection string, q url.Values) string {
	return f.withKey(f.baseURL+"/"+url.PathEscape(collection), q)
}

func (f *Firestore) docURL(collection, id string, q url.Values) string {
	return f.withKey(f.baseURL+"/"+url.PathEscape(collection)+"/"+url.PathEscape(id), q)
}

func (f *Firestore) withKey(u string, q url.Values) string {
	if q == nil {
		q = url.Values{}
	}
	if f.apiKey != "" {
		q.Set("key", f.apiKey)
	}
	if len(q) == 0 {
		return u
	}
	return u + "?" + q.Encode()
}

func (f *Firestore) do(ctx context.Context, timeout time.Duration, method, target string, body any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http %s: %w", strings.ToLower(method), err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return data, nil
}
