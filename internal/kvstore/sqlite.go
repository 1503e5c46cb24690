package kvstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"affiliate_shoppe/internal/db"
)

// SQLite keeps the whole tree as one JSON row of the kv_tree table.
type SQLite struct {
	db *sql.DB
}

// NewSQLite wraps an already migrated database handle.
func NewSQLite(conn *sql.DB) *SQLite {
	return &SQLite{db: conn}
}

// Set implements Store.
func (s *SQLite) Set(ctx context.Context, path string, value any) error {
	v, err := normalize(value)
	if err != nil {
		return err
	}
	return s.mutate(ctx, func(t *tree) { t.set(path, v) })
}

// Update implements Store.
func (s *SQLite) Update(ctx context.Context, path string, partial map[string]any) error {
	v, err := normalize(partial)
	if err != nil {
		return err
	}
	fields, _ := v.(map[string]any)
	return s.mutate(ctx, func(t *tree) { t.update(path, fields) })
}

// Push implements Store.
func (s *SQLite) Push(ctx context.Context, path string, value any) (string, error) {
	v, err := normalize(value)
	if err != nil {
		return "", err
	}
	key := newPushKey()
	if err := s.mutate(ctx, func(t *tree) { t.set(path+"/"+key, v) }); err != nil {
		return "", err
	}
	return key, nil
}

// Get implements Store.
func (s *SQLite) Get(ctx context.Context, path string) (any, error) {
	t, err := loadTree(ctx, s.db)
	if err != nil {
		return nil, err
	}
	return t.get(path), nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func loadTree(ctx context.Context, q querier) (*tree, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT value FROM kv_tree WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return &tree{root: map[string]any{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load kv tree: %w", err)
	}
	t := &tree{}
	if err := json.Unmarshal([]byte(raw), &t.root); err != nil {
		return nil, fmt.Errorf("decode kv tree: %w", err)
	}
	if t.root == nil {
		t.root = map[string]any{}
	}
	return t, nil
}

func (s *SQLite) mutate(ctx context.Context, apply func(*tree)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	t, err := loadTree(ctx, tx)
	if err != nil {
		return err
	}
	apply(t)

	raw, err := json.Marshal(t.root)
	if err != nil {
		return fmt.Errorf("encode kv tree: %w", err)
	}
	now := time.Now().UTC().Format(db.TimeLayout)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO kv_tree (id, value, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		string(raw), now,
	); err != nil {
		return fmt.Errorf("save kv tree: %w", err)
	}
	return tx.Commit()
}
