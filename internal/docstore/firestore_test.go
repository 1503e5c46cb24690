package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// fakeFirestore is a tiny in-memory imitation of the documents REST API.
type fakeFirestore struct {
	mu      sync.Mutex
	docs    map[string]map[string]json.RawMessage
	failAll bool
	seq     int
	methods []string
}

func newFakeFirestore(t *testing.T) (*fakeFirestore, *httptest.Server) {
	t.Helper()
	f := &fakeFirestore{docs: map[string]map[string]json.RawMessage{}}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeFirestore) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.methods = append(f.methods, r.Method+" "+r.URL.Path+"?"+r.URL.RawQuery)

	if f.failAll {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	if r.URL.Query().Get("key") != "test-key" {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/docs/"), "/")
	switch {
	case len(parts) == 2 && r.Method == http.MethodPatch:
		var body struct {
			Fields map[string]json.RawMessage `json:"fields"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		name := parts[0] + "/" + parts[1]
		f.docs[name] = body.Fields
		writeDoc(w, name, body.Fields)
	case len(parts) == 2 && r.Method == http.MethodGet:
		name := parts[0] + "/" + parts[1]
		fields, ok := f.docs[name]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeDoc(w, name, fields)
	case len(parts) == 2 && r.Method == http.MethodDelete:
		delete(f.docs, parts[0]+"/"+parts[1])
		_, _ = io.WriteString(w, "{}")
	case len(parts) == 1 && r.Method == http.MethodPost:
		var body struct {
			Fields map[string]json.RawMessage `json:"fields"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.seq++
		name := parts[0] + "/gen" + string(rune('0'+f.seq))
		f.docs[name] = body.Fields
		writeDoc(w, name, body.Fields)
	case len(parts) == 1 && r.Method == http.MethodGet:
		var docs []map[string]any
		for name, fields := range f.docs {
			if strings.HasPrefix(name, parts[0]+"/") {
				docs = append(docs, map[string]any{"name": "projects/p/databases/(default)/documents/" + name, "fields": fields})
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"documents": docs})
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func writeDoc(w http.ResponseWriter, name string, fields map[string]json.RawMessage) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"name":   "projects/p/databases/(default)/documents/" + name,
		"fields": fields,
	})
}

func TestFirestoreCRUD(t *testing.T) {
	ctx := context.Background()
	fake, srv := newFakeFirestore(t)
	store := NewFirestore(srv.Client(), srv.URL+"/docs", "test-key")

	rec := Record{"title": "hello", "replies": int64(5), "deleted": false, "commission": 0.5, "note": nil}
	if err := store.Set(ctx, "threads", "forum-1", rec); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := store.Get(ctx, "threads", "forum-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := Record{"id": "forum-1", "title": "hello", "replies": int64(5), "deleted": false, "commission": 0.5, "note": nil}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Get mismatch (-want +got):\n%s", diff)
	}

	id, err := store.Add(ctx, "threads", Record{"title": "second"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id != "gen1" {
		t.Errorf("expected generated id gen1, got %q", id)
	}

	all, err := store.List(ctx, "threads")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 documents, got %d", len(all))
	}

	if err := store.Delete(ctx, "threads", "forum-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "threads", "forum-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	if !strings.Contains(fake.methods[len(fake.methods)-3], "pageSize=200") {
		t.Errorf("list request should ask for pageSize=200, got %q", fake.methods[len(fake.methods)-3])
	}
}

func TestFirestoreFailures(t *testing.T) {
	ctx := context.Background()
	fake, srv := newFakeFirestore(t)
	fake.failAll = true
	store := NewFirestore(srv.Client(), srv.URL+"/docs", "test-key")

	if err := store.Set(ctx, "campaigns", "c1", Record{"status": "draft"}); err == nil {
		t.Error("expected set to fail on 503")
	}
	if _, err := store.Get(ctx, "campaigns", "c1"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected a non-NotFound error on 503, got %v", err)
	}
	if id, err := store.Add(ctx, "campaigns", Record{}); err == nil || id != "" {
		t.Errorf("expected add to fail with empty id, got %q, %v", id, err)
	}

	// A failed List is reported as an error, unlike an empty collection.
	recs, err := store.List(ctx, "campaigns")
	if err == nil {
		t.Error("expected list to fail on 503")
	}
	if len(recs) != 0 {
		t.Errorf("expected no records on failure, got %d", len(recs))
	}

	fake.failAll = false
	recs, err = store.List(ctx, "campaigns")
	if err != nil {
		t.Fatalf("list empty collection: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("expected empty collection, got %d", len(recs))
	}
}

func TestFirestoreRejectsWrongKey(t *testing.T) {
	_, srv := newFakeFirestore(t)
	store := NewFirestore(srv.Client(), srv.URL+"/docs", "wrong")
	if err := store.Set(context.Background(), "threads", "a", Record{}); err == nil {
		t.Error("expected 403 to surface as an error")
	}
}
