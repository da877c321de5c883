package forms

import (
	"context"

	"github.com/goliatone/go-docforms/pkg/document"
	"github.com/goliatone/go-docforms/pkg/schema"
)

// EmbeddedType is a form type for a schema that lives inside a parent
// document rather than in its own collection. Saving one of its forms
// attaches the embedded instance to the parent and writes the parent's
// savable root.
type EmbeddedType struct {
	*Type
}

// NewEmbeddedType builds an embedded form type. Config.EmbeddedField names
// the parent field the form saves into and is required.
func NewEmbeddedType(doc *schema.Document, cfg Config) (*EmbeddedType, error) {
	if cfg.EmbeddedField == "" {
		return nil, configErrorf("embedded form type for %s needs an embedded field name", docName(doc))
	}
	t, err := NewType(doc, cfg)
	if err != nil {
		return nil, err
	}
	return &EmbeddedType{Type: t}, nil
}

// MustEmbeddedType is NewEmbeddedType panicking on error.
func MustEmbeddedType(doc *schema.Document, cfg Config) *EmbeddedType {
	t, err := NewEmbeddedType(doc, cfg)
	if err != nil {
		panic(err)
	}
	return t
}

func docName(doc *schema.Document) string {
	if doc == nil {
		return "<nil>"
	}
	return doc.Name
}

// EmbeddedForm binds submitted data against an embedded instance and
// remembers the parent document it attaches to on save.
type EmbeddedForm struct {
	*Form
	parent *document.Instance
	field  schema.Field
}

// New creates an embedded form bound to a parent instance. The parent must
// declare the configured embedded field, and that field's element schema
// must match the form's schema; mismatches are configuration errors, not
// validation errors.
func (t *EmbeddedType) New(parent *document.Instance, options ...FormOption) (*EmbeddedForm, error) {
	if parent == nil {
		return nil, configErrorf("embedded form for %s needs a parent document", t.doc.Name)
	}
	name := t.cfg.EmbeddedField
	parentField, ok := parent.Schema().Field(name)
	if !ok {
		return nil, configErrorf("parent document %s has no field %q", parent.Schema().Name, name)
	}

	var elem *schema.Document
	switch parentField.Kind {
	case schema.KindEmbedded:
		elem = parentField.Embedded
	case schema.KindList:
		if parentField.Elem != nil && parentField.Elem.Kind == schema.KindEmbedded {
			elem = parentField.Elem.Embedded
		}
	}
	if elem == nil {
		return nil, configErrorf("field %q on %s does not hold embedded documents", name, parent.Schema().Name)
	}
	if elem.Name != t.doc.Name {
		return nil, configErrorf("field %q on %s holds %s documents, not %s",
			name, parent.Schema().Name, elem.Name, t.doc.Name)
	}

	f := t.Type.New(options...)
	f.instance.SetParent(parent, name)
	return &EmbeddedForm{Form: f, parent: parent, field: parentField}, nil
}

// Parent returns the parent instance the embedded form attaches to.
func (f *EmbeddedForm) Parent() *document.Instance { return f.parent }

// Save validates, attaches the embedded instance to the parent field
// (replacing a single value, appending to a list), commits any staged file
// payloads and writes the parent's savable root.
func (f *EmbeddedForm) Save(ctx context.Context) (*document.Instance, error) {
	return f.SaveCommit(ctx, true)
}

// SaveCommit is Save with an explicit commit flag. With commit false the
// embedded instance is attached to the parent but no storage write happens.
func (f *EmbeddedForm) SaveCommit(ctx context.Context, commit bool) (*document.Instance, error) {
	if !f.validated {
		f.Validate(ctx)
	}
	if f.errs.Has() {
		return nil, ErrInvalid
	}

	f.attach()

	if !commit {
		return f.instance, nil
	}

	store := f.typ.cfg.Store
	if store == nil {
		return nil, configErrorf("embedded form for %s has no store configured", f.typ.doc.Name)
	}
	root := f.parent.Root()
	if err := root.CommitFiles(ctx, store.Files()); err != nil {
		return nil, err
	}
	if err := store.Save(ctx, root); err != nil {
		return nil, err
	}
	return f.instance, nil
}

// attach writes the embedded instance into the parent field: a single
// embedded field is replaced, a list field appends unless the instance is
// already present (a re-saved edit).
func (f *EmbeddedForm) attach() {
	name := f.typ.cfg.EmbeddedField
	if f.field.Kind == schema.KindEmbedded {
		// Setting a declared parent field cannot fail.
		_ = f.parent.Set(name, f.instance)
		return
	}

	items, _ := f.parent.Get(name).([]*document.Instance)
	for _, existing := range items {
		if existing == f.instance {
			return
		}
	}
	items = append(items, f.instance)
	_ = f.parent.Set(name, items)
	f.instance.SetParent(f.parent, name)
}
