// Package document provides the runtime side of a document schema: typed
// instances, document-level validation, query sets and the stores that
// persist instances to MongoDB (or memory, for tests).
package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-docforms/pkg/schema"
	"github.com/goliatone/go-docforms/pkg/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound is returned when a query matches no document.
var ErrNotFound = errors.New("document: not found")

// ErrDuplicateKey is returned when a write violates a uniqueness constraint.
var ErrDuplicateKey = errors.New("document: duplicate key")

// ErrNotSavable is returned when saving an instance of an embedded-only
// schema directly.
var ErrNotSavable = errors.New("document: schema has no collection")

// PendingFile is a deferred file-field payload staged during form
// construction and committed after a successful write.
type PendingFile struct {
	Field string
	Value any
}

// Instance is a single document value: a schema plus named field values. A
// fresh instance is marked adding until its first save.
type Instance struct {
	doc    *schema.Document
	values map[string]any
	adding bool

	// parent links an embedded instance to its owner. It carries no
	// ownership semantics; it only locates where a validated embedded value
	// attaches and how a nested edit reaches a savable root.
	parent      *Instance
	parentField string

	pending []PendingFile
}

// NewInstance creates a fresh instance with schema defaults applied, marked
// as adding.
func NewInstance(doc *schema.Document) *Instance {
	inst := &Instance{
		doc:    doc,
		values: make(map[string]any, len(doc.Fields)),
		adding: true,
	}
	for _, f := range doc.Fields {
		if f.Default != nil {
			inst.values[f.Name] = f.Default
		}
	}
	return inst
}

// Hydrate builds an instance from persisted values, marked as not adding.
func Hydrate(doc *schema.Document, values map[string]any) *Instance {
	inst := &Instance{
		doc:    doc,
		values: make(map[string]any, len(values)),
	}
	for k, v := range values {
		inst.values[k] = v
	}
	return inst
}

// Schema returns the instance's document schema.
func (in *Instance) Schema() *schema.Document { return in.doc }

// Adding reports whether the instance has never been saved.
func (in *Instance) Adding() bool { return in.adding }

// MarkSaved clears the adding flag. Stores call this after a successful
// write.
func (in *Instance) MarkSaved() { in.adding = false }

// Get returns the named field value, or nil when unset.
func (in *Instance) Get(name string) any {
	return in.values[name]
}

// Set assigns a field value. Unknown names are rejected so typos surface
// instead of silently writing stray keys.
func (in *Instance) Set(name string, value any) error {
	if !in.doc.Has(name) && name != in.doc.IDField {
		return fmt.Errorf("document: %s has no field %q", in.doc.Name, name)
	}
	in.values[name] = value
	if child, ok := value.(*Instance); ok {
		child.SetParent(in, name)
	}
	return nil
}

// Values returns a copy of the current field values.
func (in *Instance) Values() map[string]any {
	out := make(map[string]any, len(in.values))
	for k, v := range in.values {
		out[k] = v
	}
	return out
}

// ID returns the identifier value, or nil when unset.
func (in *Instance) ID() any {
	if in.doc.IDField == "" {
		return nil
	}
	return in.values[in.doc.IDField]
}

// SetID assigns the identifier value.
func (in *Instance) SetID(id any) {
	if in.doc.IDField != "" {
		in.values[in.doc.IDField] = id
	}
}

// EnsureID assigns a fresh ObjectID when no identifier is set, returning the
// effective id.
func (in *Instance) EnsureID() any {
	if in.doc.IDField == "" {
		return nil
	}
	if id, ok := in.values[in.doc.IDField]; ok && id != nil {
		return id
	}
	id := primitive.NewObjectID()
	in.values[in.doc.IDField] = id
	return id
}

// SetParent links this instance to the owning document's field. Passing a
// nil owner detaches the link.
func (in *Instance) SetParent(owner *Instance, field string) {
	in.parent = owner
	in.parentField = field
}

// Parent returns the owning instance and field name, if linked.
func (in *Instance) Parent() (*Instance, string) {
	return in.parent, in.parentField
}

// Root walks parent links upward until it reaches an instance whose schema
// can be saved directly, or the topmost ancestor when none can.
func (in *Instance) Root() *Instance {
	node := in
	for !node.doc.Savable() && node.parent != nil {
		node = node.parent
	}
	return node
}

// StageFile defers a cleaned file-field payload until CommitFiles runs,
// ahead of the next save.
func (in *Instance) StageFile(field string, value any) {
	for i := range in.pending {
		if in.pending[i].Field == field {
			in.pending[i].Value = value
			return
		}
	}
	in.pending = append(in.pending, PendingFile{Field: field, Value: value})
}

// PendingFiles returns the staged file payloads.
func (in *Instance) PendingFiles() []PendingFile {
	return in.pending
}

// CommitFiles applies staged file payloads against the given backend, for
// this instance and for any embedded instances carrying their own staged
// payloads. Staged entries are dropped once committed.
func (in *Instance) CommitFiles(ctx context.Context, backend storage.Backend) error {
	for _, p := range in.pending {
		ref, _ := in.values[p.Field].(*storage.FileRef)
		if ref == nil {
			ref = &storage.FileRef{Backend: backend}
			in.values[p.Field] = ref
		}
		if ref.Backend == nil {
			ref.Backend = backend
		}
		if err := storage.Commit(ctx, ref, p.Value); err != nil {
			return fmt.Errorf("document: commit file field %q: %w", p.Field, err)
		}
	}
	in.pending = nil

	for _, f := range in.doc.Fields {
		switch f.Kind {
		case schema.KindEmbedded:
			if child, ok := in.values[f.Name].(*Instance); ok && child != nil {
				if err := child.CommitFiles(ctx, backend); err != nil {
					return err
				}
			}
		case schema.KindList:
			if f.Elem == nil || f.Elem.Kind != schema.KindEmbedded {
				continue
			}
			items, ok := in.values[f.Name].([]*Instance)
			if !ok {
				continue
			}
			for _, child := range items {
				if err := child.CommitFiles(ctx, backend); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// RunClean invokes the document's cross-field clean hook, if declared.
func (in *Instance) RunClean() error {
	if in.doc.Clean == nil {
		return nil
	}
	return in.doc.Clean(in.values)
}
