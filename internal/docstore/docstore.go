// Package docstore maps flat records to and from a schema-less document store.
//
// Records are flat maps of field name to scalar (nil, bool, int64, float64,
// string). Two backends share the same wire encoding: the Firestore REST API
// and a local SQLite table. Neither supports server-side queries; callers
// filter after List.
package docstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the document does not exist.
var ErrNotFound = errors.New("document not found")

// DefaultPageSize is the number of documents List requests at once.
const DefaultPageSize = 200

// IDField is the reserved field Get injects from the document name.
const IDField = "id"

// Record is a flat document body.
type Record map[string]any

// String returns the string value of field or "".
func (r Record) String(field string) string {
	if v, ok := r[field].(string); ok {
		return v
	}
	return ""
}

// Int returns the integer value of field, accepting float64 as well.
func (r Record) Int(field string) int64 {
	switch v := r[field].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

// Float returns the float value of field, accepting int64 as well.
func (r Record) Float(field string) float64 {
	switch v := r[field].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

// Bool returns the boolean value of field or false.
func (r Record) Bool(field string) bool {
	v, _ := r[field].(bool)
	return v
}

// Store is the interface shared by every document backend.
type Store interface {
	// Set creates or replaces the full document at collection/id.
	Set(ctx context.Context, collection, id string, rec Record) error
	// Get returns the document with its id injected, or ErrNotFound.
	Get(ctx context.Context, collection, id string) (Record, error)
	// Add stores rec under a generated id and returns that id.
	Add(ctx context.Context, collection string, rec Record) (string, error)
	// Delete removes the document at collection/id.
	Delete(ctx context.Context, collection, id string) error
	// List returns up to one page of documents in the collection.
	List(ctx context.Context, collection string) ([]Record, error)
	// Backend names the implementation for status reporting.
	Backend() string
	Close() error
}
