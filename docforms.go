// Package docforms generates web forms from document schemas: a field
// generator maps schema field kinds onto form fields, a form layer binds and
// validates submitted data against document instances, and view handlers
// wire the whole cycle onto an HTTP router. The root package re-exports the
// entry points most callers need.
package docforms

import (
	"io/fs"

	"github.com/goliatone/go-docforms/pkg/document"
	"github.com/goliatone/go-docforms/pkg/forms"
	"github.com/goliatone/go-docforms/pkg/render"
	"github.com/goliatone/go-docforms/pkg/schema"
	"github.com/goliatone/go-docforms/pkg/uiconfig"
)

// Config mirrors the form declaration options: include/exclude lists, widget
// overrides, declared fields, store and (embedded forms) the parent field.
type Config = forms.Config

// DeclaredField overlays an author-declared form field onto the
// schema-derived set.
type DeclaredField = forms.DeclaredField

// Type is a built form type, shared across requests.
type Type = forms.Type

// EmbeddedType is a form type for schemas nested inside a parent document.
type EmbeddedType = forms.EmbeddedType

// Form is one request's data binding.
type Form = forms.Form

// Instance is a single document value.
type Instance = document.Instance

// NewForm builds a form type for a document schema. It is the factory entry
// point: declare the schema once, call NewForm at program initialisation,
// and create per-request forms from the returned type.
func NewForm(doc *schema.Document, cfg Config) (*Type, error) {
	return forms.NewType(doc, cfg)
}

// MustForm is NewForm panicking on error, for package-level declarations.
func MustForm(doc *schema.Document, cfg Config) *Type {
	return forms.MustType(doc, cfg)
}

// NewEmbeddedForm builds a form type for an embedded schema saving into the
// parent field named by cfg.EmbeddedField.
func NewEmbeddedForm(doc *schema.Document, cfg Config) (*EmbeddedType, error) {
	return forms.NewEmbeddedType(doc, cfg)
}

// MustEmbeddedForm is NewEmbeddedForm panicking on error.
func MustEmbeddedForm(doc *schema.Document, cfg Config) *EmbeddedType {
	return forms.MustEmbeddedType(doc, cfg)
}

// NewFormWithOverlay applies a uiconfig overlay before building the form
// type: the overlay's labels and help text decorate the schema, its field
// selection and widget overrides merge into the configuration.
func NewFormWithOverlay(doc *schema.Document, cfg Config, overlay uiconfig.DocumentConfig) (*Type, error) {
	decorated, err := overlay.Decorate(doc)
	if err != nil {
		return nil, err
	}
	return forms.NewType(decorated, overlay.ApplyTo(cfg))
}

// EmbeddedTemplates exposes the built-in form templates so callers can reuse
// or extend them without importing the render package directly.
func EmbeddedTemplates() fs.FS {
	return render.TemplatesFS()
}
