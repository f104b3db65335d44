package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Filter restricts a query to documents whose field equals the given value.
// Field may be a dotted path into nested objects (e.g. "changedBy.email").
type Filter struct {
	Field string
	Value any
}

// QueryOptions describes a collection query. StartAfter is a cursor: the
// OrderBy value of the last document already seen; results continue strictly
// past it in the sort direction.
type QueryOptions struct {
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
	StartAfter any
}

// Document is a stored record together with its collection-unique id.
type Document struct {
	ID   string
	Data map[string]any
}

// DocumentStore is the key/value document collection abstraction the audit
// engine is built on. Implementations provide per-document atomicity but no
// cross-document transactions.
type DocumentStore interface {
	// Get returns the document body, or ErrNotFound.
	Get(ctx context.Context, collection, id string) (map[string]any, error)
	// Put writes the full document, creating or replacing it.
	Put(ctx context.Context, collection, id string, doc map[string]any) error
	// Update merges the partial document into an existing one; ErrNotFound
	// if the document does not exist.
	Update(ctx context.Context, collection, id string, partial map[string]any) error
	// Delete removes the document. Deleting an absent document is not an error.
	Delete(ctx context.Context, collection, id string) error
	// Append writes a document under a generated id and returns that id.
	Append(ctx context.Context, collection string, doc map[string]any) (string, error)
	// Query returns documents matching the options.
	Query(ctx context.Context, collection string, opts QueryOptions) ([]Document, error)
	// Count returns the number of documents in the collection.
	Count(ctx context.Context, collection string) (int64, error)
}
