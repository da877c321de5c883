package document

import (
	"context"

	"github.com/goliatone/go-docforms/pkg/schema"
	"github.com/goliatone/go-docforms/pkg/storage"
)

// Store persists document instances. Implementations are blocking and carry
// no retry or pooling logic of their own; those concerns belong to the
// underlying driver.
type Store interface {
	// Save inserts a new instance or replaces an existing one, assigning an
	// identifier when missing. Uniqueness violations return an error
	// satisfying errors.Is(err, ErrDuplicateKey).
	Save(ctx context.Context, inst *Instance) error

	// Delete removes the instance from its collection.
	Delete(ctx context.Context, inst *Instance) error

	// Find returns instances of doc matching the filter. The key "pk" is an
	// alias for the schema's identifier field.
	Find(ctx context.Context, doc *schema.Document, filter map[string]any) ([]*Instance, error)

	// Files exposes the file backend document file fields commit into.
	Files() storage.Backend
}

// QuerySet is a reusable, cloneable query against one document type. Shared
// defaults are never mutated: refining operations clone first.
type QuerySet struct {
	store  Store
	doc    *schema.Document
	filter map[string]any
}

// NewQuerySet builds a query set over every instance of doc in the store.
func NewQuerySet(store Store, doc *schema.Document) *QuerySet {
	return &QuerySet{store: store, doc: doc}
}

// Clone returns an independent copy of the query set.
func (q *QuerySet) Clone() *QuerySet {
	out := &QuerySet{store: q.store, doc: q.doc}
	if len(q.filter) > 0 {
		out.filter = make(map[string]any, len(q.filter))
		for k, v := range q.filter {
			out.filter[k] = v
		}
	}
	return out
}

// Filter returns a clone narrowed by an equality condition. The name "pk"
// targets the identifier field.
func (q *QuerySet) Filter(name string, value any) *QuerySet {
	out := q.Clone()
	if out.filter == nil {
		out.filter = make(map[string]any, 1)
	}
	out.filter[name] = value
	return out
}

// Document returns the query set's document schema.
func (q *QuerySet) Document() *schema.Document { return q.doc }

// Store returns the underlying store.
func (q *QuerySet) Store() Store { return q.store }

// All executes the query and returns every match.
func (q *QuerySet) All(ctx context.Context) ([]*Instance, error) {
	return q.store.Find(ctx, q.doc, q.filter)
}

// Get executes the query expecting a single match. No match returns
// ErrNotFound.
func (q *QuerySet) Get(ctx context.Context) (*Instance, error) {
	matches, err := q.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	return matches[0], nil
}

// Count returns the number of matches.
func (q *QuerySet) Count(ctx context.Context) (int, error) {
	matches, err := q.All(ctx)
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}
