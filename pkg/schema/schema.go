package schema

import (
	"fmt"
	"strings"
)

// Kind identifies a document field declaration type. Kinds form a closed set;
// generator dispatch and validation switch on these tags rather than walking
// a type hierarchy.
type Kind string

const (
	KindString    Kind = "string"
	KindEmail     Kind = "email"
	KindURL       Kind = "url"
	KindInt       Kind = "int"
	KindSequence  Kind = "sequence"
	KindFloat     Kind = "float"
	KindDecimal   Kind = "decimal"
	KindBool      Kind = "bool"
	KindDateTime  Kind = "datetime"
	KindObjectID  Kind = "objectid"
	KindReference Kind = "reference"
	KindEmbedded  Kind = "embedded"
	KindList      Kind = "list"
	KindFile      Kind = "file"
	KindImage     Kind = "image"
)

// Choice pairs a stored value with its display label. The value keeps the
// field's native type so typed-choice coercion can round-trip submissions.
type Choice struct {
	Value any
	Label string
}

// Validator runs a domain-level check against a cleaned, typed value.
// Validators receive non-empty values only; required-ness is enforced
// separately.
type Validator func(value any) error

// Field declares a single named, typed attribute on a document.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	Unique   bool

	// Default seeds new instances and form initial data.
	Default any

	// Label is the human-readable name. When empty, a capitalised version of
	// Name is used.
	Label    string
	HelpText string

	Choices []Choice

	// String constraints.
	MinLength *int
	MaxLength *int
	Pattern   string

	// Numeric constraints.
	Min *float64
	Max *float64

	// Elem declares the element type for KindList fields.
	Elem *Field

	// Ref names the referenced document type for KindReference fields.
	Ref *Document

	// Embedded names the nested schema for KindEmbedded fields.
	Embedded *Document

	// Validators run during document-level validation after the value has
	// been cleaned.
	Validators []Validator
}

// DisplayLabel returns the field label, deriving one from the name when no
// explicit label was declared.
func (f Field) DisplayLabel() string {
	if f.Label != "" {
		return capfirst(f.Label)
	}
	return capfirst(strings.ReplaceAll(f.Name, "_", " "))
}

// HasChoices reports whether the field declares a choice set.
func (f Field) HasChoices() bool {
	return len(f.Choices) > 0
}

// Validate runs the field's declared validators against a value.
func (f Field) Validate(value any) error {
	for _, v := range f.Validators {
		if v == nil {
			continue
		}
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

// CleanFunc is the optional cross-field hook a document may declare. It runs
// after per-field validation; its failure surfaces as a non-field error.
type CleanFunc func(values map[string]any) error

// Document describes a record type: an ordered set of named, typed field
// declarations plus collection metadata. Documents with an empty Collection
// are embedded-only and cannot be saved directly.
type Document struct {
	Name       string
	Collection string

	// IDField names the identifier field. Defaults to "_id" for documents
	// that have a collection.
	IDField string

	// Fields holds declarations in declaration order.
	Fields []Field

	// Clean is the optional document-level cross-field hook.
	Clean CleanFunc

	index map[string]int
}

// New constructs a Document, validating field declarations and building the
// name index. Duplicate field names are a declaration error.
func New(name, collection string, fields ...Field) (*Document, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("schema: document name is required")
	}
	doc := &Document{
		Name:       name,
		Collection: collection,
		Fields:     fields,
		index:      make(map[string]int, len(fields)),
	}
	if collection != "" {
		doc.IDField = "_id"
	}
	for i, f := range fields {
		if strings.TrimSpace(f.Name) == "" {
			return nil, fmt.Errorf("schema: document %s: field %d has no name", name, i)
		}
		if f.Kind == "" {
			return nil, fmt.Errorf("schema: document %s: field %s has no kind", name, f.Name)
		}
		if _, exists := doc.index[f.Name]; exists {
			return nil, fmt.Errorf("schema: document %s: duplicate field %q", name, f.Name)
		}
		doc.index[f.Name] = i
	}
	return doc, nil
}

// MustNew is New panicking on error. Useful for package-level declarations.
func MustNew(name, collection string, fields ...Field) *Document {
	doc, err := New(name, collection, fields...)
	if err != nil {
		panic(err)
	}
	return doc
}

// Embedded constructs a Document with no collection, usable only as the
// schema of an embedded field.
func Embedded(name string, fields ...Field) (*Document, error) {
	return New(name, "", fields...)
}

// MustEmbedded is Embedded panicking on error.
func MustEmbedded(name string, fields ...Field) *Document {
	doc, err := Embedded(name, fields...)
	if err != nil {
		panic(err)
	}
	return doc
}

// Field looks up a declaration by name.
func (d *Document) Field(name string) (Field, bool) {
	if d == nil {
		return Field{}, false
	}
	i, ok := d.index[name]
	if !ok {
		return Field{}, false
	}
	return d.Fields[i], true
}

// Has reports whether the document declares the named field.
func (d *Document) Has(name string) bool {
	_, ok := d.Field(name)
	return ok
}

// FieldNames returns the declared names in declaration order.
func (d *Document) FieldNames() []string {
	names := make([]string, 0, len(d.Fields))
	for _, f := range d.Fields {
		names = append(names, f.Name)
	}
	return names
}

// Savable reports whether instances of this document can be written to a
// collection directly. Embedded-only schemas return false.
func (d *Document) Savable() bool {
	return d != nil && d.Collection != ""
}

func capfirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
