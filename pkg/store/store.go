// Package store keeps JSON documents addressed by collection and id.
//
// Three backends are available: an in-process map, Postgres (jsonb, through
// a pgx pool) and MySQL (JSON column, through database/sql). Merge follows
// JSON merge patch semantics (RFC 7396) on every backend: objects are merged
// recursively and null members are removed.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Document is a decoded JSON object.
type Document = map[string]any

// ErrNotFound is returned by Get when no document exists.
var ErrNotFound = errors.New("document not found")

// Store is implemented by every backend.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	// Set replaces the document.
	Set(ctx context.Context, collection, id string, doc Document) error
	// Merge patches the document, creating it when missing.
	Merge(ctx context.Context, collection, id string, patch Document) error
	// Delete removes the document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	Close() error
}

// DefaultTable is the table used by the SQL backends.
const DefaultTable = "baski_documents"

// Open creates the backend named by driver: "memory", "postgres" (or
// "pgx") and "mysql". SQL backends create their table when missing.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch strings.ToLower(driver) {
	case "", "memory":
		return NewMemory(), nil
	case "postgres", "postgresql", "pgx":
		return OpenPostgres(ctx, dsn, DefaultTable)
	case "mysql":
		return OpenMySQL(ctx, dsn, DefaultTable)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

// MergePatch applies patch to target as described in RFC 7396 and returns
// the result. target is not modified.
func MergePatch(target, patch Document) Document {
	out := make(Document, len(target)+len(patch))
	for k, v := range target {
		out[k] = v
	}
	for k, v := range patch {
		if v == nil {
			delete(out, k)
			continue
		}
		if sub, ok := v.(map[string]any); ok {
			existing, _ := out[k].(map[string]any)
			out[k] = MergePatch(existing, sub)
			continue
		}
		out[k] = v
	}
	return out
}

func encode(doc Document) ([]byte, error) {
	if doc == nil {
		doc = Document{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	return data, nil
}

func decode(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

func validTable(name string) error {
	if name == "" {
		return errors.New("table name is empty")
	}
	for _, r := range name {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return fmt.Errorf("invalid table name %q", name)
		}
	}
	return nil
}
