package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"affiliate_shoppe/internal/db"
)

// SQLite implements Store backed by the local documents table. Fields are
// kept in the same typed envelopes the remote store uses.
type SQLite struct {
	db       *sql.DB
	owned    bool
	pageSize int
}

// NewSQLite wraps an already migrated database handle.
func NewSQLite(conn *sql.DB) *SQLite {
	return &SQLite{db: conn, pageSize: DefaultPageSize}
}

// OpenSQLite opens dsn, runs migrations and owns the connection.
func OpenSQLite(dsn string) (*SQLite, error) {
	conn, err := db.Open(dsn)
	if err != nil {
		return nil, err
	}
	s := NewSQLite(conn)
	s.owned = true
	return s, nil
}

// Backend implements Store.
func (s *SQLite) Backend() string { return "sqlite" }

// Close closes the database if this store opened it.
func (s *SQLite) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// Set creates or replaces the document at collection/id.
func (s *SQLite) Set(ctx context.Context, collection, id string, rec Record) error {
	fields, err := json.Marshal(encodeFields(rec))
	if err != nil {
		return fmt.Errorf("set %s/%s: encode fields: %w", collection, id, err)
	}
	now := time.Now().UTC().Format(db.TimeLayout)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, fields, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (collection, id) DO UPDATE SET fields = excluded.fields, updated_at = excluded.updated_at`,
		collection, id, string(fields), now, now,
	)
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}

// Get returns the document at collection/id.
func (s *SQLite) Get(ctx context.Context, collection, id string) (Record, error) {
	var fields string
	err := s.db.QueryRowContext(ctx,
		`SELECT fields FROM documents WHERE collection = ? AND id = ?`, collection, id,
	).Scan(&fields)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return scanDocument(id, fields)
}

// Add stores rec under a generated id.
func (s *SQLite) Add(ctx context.Context, collection string, rec Record) (string, error) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
	if err := s.Set(ctx, collection, id, rec); err != nil {
		return "", err
	}
	return id, nil
}

// Delete removes the document at collection/id.
func (s *SQLite) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// List returns up to one page of documents in insertion order.
func (s *SQLite) List(ctx context.Context, collection string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, fields FROM documents WHERE collection = ? ORDER BY created_at, id LIMIT ?`,
		collection, s.pageSize,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		var id, fields string
		if err := rows.Scan(&id, &fields); err != nil {
			return nil, fmt.Errorf("list %s: scan: %w", collection, err)
		}
		rec, err := scanDocument(id, fields)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanDocument(id, fields string) (Record, error) {
	var wire map[string]map[string]json.RawMessage
	if err := json.Unmarshal([]byte(fields), &wire); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	rec := decodeFields(wire)
	rec[IDField] = id
	return rec, nil
}
