// Package forms binds document schemas to web forms: a one-time type
// builder computes each form's effective field set from the schema, and
// per-request form instances bind submitted data, run the three validation
// phases and write the result back into a document.
package forms

import (
	"errors"
	"strings"

	"github.com/goliatone/go-docforms/pkg/document"
	"github.com/goliatone/go-docforms/pkg/fields"
	"github.com/goliatone/go-docforms/pkg/generator"
	"github.com/goliatone/go-docforms/pkg/schema"
)

// DeclaredField is an author-declared form field that overrides or extends
// the schema-derived set.
type DeclaredField struct {
	Name  string
	Field fields.Field
}

// Config mirrors the options a form author declares alongside a document:
// include/exclude lists, widget overrides, a custom generator, explicit
// field declarations and, for embedded forms, the parent field name.
type Config struct {
	// Store persists saved instances and resolves reference fields. Optional
	// for embedded-only forms whose parent form supplies the store.
	Store document.Store

	// Fields restricts and orders the schema-derived field set.
	Fields []string

	// Exclude removes schema fields from the form.
	Exclude []string

	// Widgets overrides the widget per field name.
	Widgets map[string]string

	// Generator overrides the default field generator registry.
	Generator *generator.Registry

	// Declared overlays author-declared fields onto the schema-derived set.
	Declared []DeclaredField

	// EmbeddedField names the parent document field an embedded form saves
	// into. Only meaningful for NewEmbeddedType.
	EmbeddedField string
}

// Type is the built form type: an immutable, ordered effective field set
// computed once from a document schema. Build one per form at program
// initialisation and share it across requests.
type Type struct {
	doc    *schema.Document
	cfg    Config
	order  []string
	fields map[string]fields.Field
}

// NewType builds a form type for a document schema. Schema fields the
// generator cannot produce and that no author declaration overrides fail
// with a configuration error naming the unresolved fields.
func NewType(doc *schema.Document, cfg Config) (*Type, error) {
	if doc == nil {
		return nil, configErrorf("form type has no document schema")
	}

	gen := cfg.Generator
	if gen == nil {
		gen = generator.New(generator.WithStore(cfg.Store))
	}

	declared := make(map[string]fields.Field, len(cfg.Declared))
	for _, d := range cfg.Declared {
		if d.Name == "" || d.Field == nil {
			return nil, configErrorf("declared field for %s needs a name and a field", doc.Name)
		}
		declared[d.Name] = d.Field
	}

	include := toSet(cfg.Fields)
	exclude := toSet(cfg.Exclude)
	// The identifier field never becomes a form input unless listed
	// explicitly.
	if doc.IDField != "" {
		if _, listed := include[doc.IDField]; !listed {
			exclude[doc.IDField] = struct{}{}
		}
	}

	t := &Type{
		doc:    doc,
		cfg:    cfg,
		fields: make(map[string]fields.Field),
	}

	var unresolved []string
	for _, f := range doc.Fields {
		if len(include) > 0 {
			if _, ok := include[f.Name]; !ok {
				continue
			}
		}
		if _, ok := exclude[f.Name]; ok {
			continue
		}
		if override, ok := declared[f.Name]; ok {
			t.fields[f.Name] = override
			t.order = append(t.order, f.Name)
			continue
		}
		field, err := gen.Generate(f, generator.Options{Widget: cfg.Widgets[f.Name]})
		if err != nil {
			if errors.Is(err, generator.ErrNoGenerator) {
				unresolved = append(unresolved, f.Name)
				continue
			}
			return nil, err
		}
		t.fields[f.Name] = field
		t.order = append(t.order, f.Name)
	}
	if len(unresolved) > 0 {
		return nil, configErrorf("unknown field(s) (%s) specified for %s",
			strings.Join(unresolved, ", "), doc.Name)
	}

	// Declared fields not backed by a schema field are appended in
	// declaration order.
	for _, d := range cfg.Declared {
		if _, exists := t.fields[d.Name]; exists {
			continue
		}
		t.fields[d.Name] = d.Field
		t.order = append(t.order, d.Name)
	}

	// An include list fixes the final order.
	if len(cfg.Fields) > 0 {
		reordered := make([]string, 0, len(cfg.Fields))
		for _, name := range cfg.Fields {
			if _, ok := t.fields[name]; ok {
				reordered = append(reordered, name)
			}
		}
		for _, name := range t.order {
			if _, listed := include[name]; !listed {
				reordered = append(reordered, name)
			}
		}
		t.order = reordered
	}

	return t, nil
}

// MustType is NewType panicking on error, for package-level form
// declarations.
func MustType(doc *schema.Document, cfg Config) *Type {
	t, err := NewType(doc, cfg)
	if err != nil {
		panic(err)
	}
	return t
}

// Document returns the schema the type was built from.
func (t *Type) Document() *schema.Document { return t.doc }

// FieldNames returns the effective field set's names in order.
func (t *Type) FieldNames() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Field returns the form field for a name.
func (t *Type) Field(name string) (fields.Field, bool) {
	f, ok := t.fields[name]
	return f, ok
}

// Store returns the configured store.
func (t *Type) Store() document.Store { return t.cfg.Store }

// includes reports whether a document field participates in instance
// construction and document validation, honoring include/exclude lists.
func (t *Type) includes(name string) bool {
	if len(t.cfg.Fields) > 0 {
		found := false
		for _, f := range t.cfg.Fields {
			if f == name {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, f := range t.cfg.Exclude {
		if f == name {
			return false
		}
	}
	return true
}

func toSet(names []string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, name := range names {
		out[name] = struct{}{}
	}
	return out
}
