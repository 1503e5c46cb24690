// Package kvstore is a small client for a path-addressed hierarchical store.
//
// Values are JSON-shaped: nested map[string]any, []any, float64, string,
// bool and nil. Writing nil to a path removes it. The remote backend is the
// Firebase Realtime Database REST API; Memory and SQLite keep the same tree
// semantics locally.
package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Store is the interface shared by every key-value backend.
type Store interface {
	// Set overwrites the value at path.
	Set(ctx context.Context, path string, value any) error
	// Update merges the keys of partial into the node at path.
	Update(ctx context.Context, path string, partial map[string]any) error
	// Push appends value under a generated, chronologically ordered key.
	Push(ctx context.Context, path string, value any) (string, error)
	// Get returns the value at path, or nil when nothing is stored there.
	Get(ctx context.Context, path string) (any, error)
}

var pushSeq atomic.Uint32

// newPushKey returns a key that sorts after every key generated before it.
func newPushKey() string {
	return fmt.Sprintf("-%016x%04x", time.Now().UnixNano(), pushSeq.Add(1)&0xffff)
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// normalize converts value to its JSON-decoded shape.
func normalize(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return out, nil
}

// tree applies path operations to an in-memory JSON tree.
type tree struct {
	root map[string]any
}

func (t *tree) get(path string) any {
	var node any = t.root
	for _, key := range splitPath(path) {
		m, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node, ok = m[key]
		if !ok {
			return nil
		}
	}
	if m, ok := node.(map[string]any); ok && len(m) == 0 {
		return nil
	}
	return node
}

func (t *tree) set(path string, value any) {
	parts := splitPath(path)
	if len(parts) == 0 {
		if m, ok := value.(map[string]any); ok {
			t.root = m
		} else {
			t.root = map[string]any{}
		}
		return
	}
	if t.root == nil {
		t.root = map[string]any{}
	}
	parent := t.root
	for _, key := range parts[:len(parts)-1] {
		child, ok := parent[key].(map[string]any)
		if !ok {
			if value == nil {
				return
			}
			child = map[string]any{}
			parent[key] = child
		}
		parent = child
	}
	last := parts[len(parts)-1]
	if value == nil {
		delete(parent, last)
		return
	}
	parent[last] = value
}

func (t *tree) update(path string, partial map[string]any) {
	prefix := strings.Join(splitPath(path), "/")
	for key, value := range partial {
		child := key
		if prefix != "" {
			child = prefix + "/" + key
		}
		t.set(child, value)
	}
}
