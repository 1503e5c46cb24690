package kvstore

import (
	"context"
	"sync"
)

// Memory is a process-local Store.
type Memory struct {
	mu   sync.Mutex
	tree tree
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{tree: tree{root: map[string]any{}}}
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, path string, value any) error {
	v, err := normalize(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tree.set(path, v)
	return nil
}

// Update implements Store.
func (m *Memory) Update(_ context.Context, path string, partial map[string]any) error {
	v, err := normalize(partial)
	if err != nil {
		return err
	}
	fields, _ := v.(map[string]any)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tree.update(path, fields)
	return nil
}

// Push implements Store.
func (m *Memory) Push(_ context.Context, path string, value any) (string, error) {
	v, err := normalize(value)
	if err != nil {
		return "", err
	}
	key := newPushKey()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tree.set(path+"/"+key, v)
	return key, nil
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, path string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Copy so callers cannot mutate the tree.
	return normalize(m.tree.get(path))
}
