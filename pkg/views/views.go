// Package views provides schema-driven CRUD handlers: detail, list, create,
// update and delete views over a document query set, rendered through the
// render package and wired as net/http handlers on a chi router.
package views

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/goliatone/go-docforms/pkg/document"
	"github.com/goliatone/go-docforms/pkg/forms"
	"github.com/goliatone/go-docforms/pkg/render"
	"github.com/goliatone/go-docforms/pkg/schema"
	"github.com/goliatone/go-docforms/pkg/storage"
)

// ConfigError is a developer-facing view configuration fault, surfaced as an
// internal server error rather than recovered.
type ConfigError struct {
	msg string
}

// Error implements the error interface.
func (e *ConfigError) Error() string { return "views: " + e.msg }

func configErrorf(format string, args ...any) error {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

// IsConfigError reports whether err is a view configuration fault.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// maxUploadMemory bounds the in-memory portion of multipart parsing.
const maxUploadMemory = 32 << 20

// Config carries everything a view needs. Individual view constructors
// validate the subset they require.
type Config struct {
	// Document identifies the record type. Required unless QuerySet is set.
	Document *schema.Document

	// QuerySet is the query source for object resolution and listing. Views
	// clone it before refining, so a shared default is never mutated.
	QuerySet *document.QuerySet

	// Store persists writes. Defaults to the query set's store.
	Store document.Store

	// Form is the form type create and update views bind.
	Form *forms.Type

	// Engine renders page templates. Required for every view.
	Engine *render.Engine

	// FormRenderer renders the form element inside create/update templates.
	// Defaults to the embedded bundle.
	FormRenderer *render.FormRenderer

	// TemplateName overrides the derived "<document>/<suffix>" template.
	TemplateName string

	// SuccessURL is the redirect target after a successful write. Segments
	// like {id} or {slug} expand from the saved instance's field values.
	SuccessURL string

	// ContextObjectName is the template variable holding the object.
	// Defaults to the lowercased document name.
	ContextObjectName string

	// SlugField is the document field slug URL parameters match against.
	// Defaults to "slug".
	SlugField string

	// PKParam and SlugParam name the chi URL parameters. Default "pk" and
	// "slug".
	PKParam   string
	SlugParam string
}

// base holds the resolved configuration shared by every view kind.
type base struct {
	cfg Config
}

func newBase(cfg Config) (base, error) {
	if cfg.QuerySet == nil {
		if cfg.Document == nil {
			return base{}, configErrorf("view needs a document or a query set")
		}
		if cfg.Store == nil {
			return base{}, configErrorf("view for %s needs a store when no query set is given", cfg.Document.Name)
		}
		cfg.QuerySet = document.NewQuerySet(cfg.Store, cfg.Document)
	}
	if cfg.Document == nil {
		cfg.Document = cfg.QuerySet.Document()
	}
	if cfg.Store == nil {
		cfg.Store = cfg.QuerySet.Store()
	}
	if cfg.Engine == nil {
		return base{}, configErrorf("view for %s needs a template engine", cfg.Document.Name)
	}
	if cfg.PKParam == "" {
		cfg.PKParam = "pk"
	}
	if cfg.SlugParam == "" {
		cfg.SlugParam = "slug"
	}
	if cfg.SlugField == "" {
		cfg.SlugField = "slug"
	}
	if cfg.ContextObjectName == "" {
		cfg.ContextObjectName = strings.ToLower(cfg.Document.Name)
	}
	return base{cfg: cfg}, nil
}

// queryset returns a clone of the configured query source.
func (b *base) queryset() *document.QuerySet {
	return b.cfg.QuerySet.Clone()
}

// object resolves the single object a request addresses, by primary key or
// by slug. Neither parameter present is a configuration fault; no match is
// document.ErrNotFound.
func (b *base) object(r *http.Request) (*document.Instance, error) {
	qs := b.queryset()
	if pk := chi.URLParam(r, b.cfg.PKParam); pk != "" {
		qs = qs.Filter("pk", pk)
	} else if slug := chi.URLParam(r, b.cfg.SlugParam); slug != "" {
		qs = qs.Filter(b.cfg.SlugField, slug)
	} else {
		return nil, configErrorf("detail view for %s needs a %q or %q URL parameter",
			b.cfg.Document.Name, b.cfg.PKParam, b.cfg.SlugParam)
	}
	inst, err := qs.Get(r.Context())
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			return nil, fmt.Errorf("views: no %s matching the query: %w", b.cfg.Document.Name, err)
		}
		return nil, err
	}
	return inst, nil
}

// templateName derives the page template: the explicit override, or
// "<document>/<suffix>".
func (b *base) templateName(suffix string) string {
	if b.cfg.TemplateName != "" {
		return b.cfg.TemplateName
	}
	return strings.ToLower(b.cfg.Document.Name) + "/" + suffix
}

// objectContext builds the template context for a single object.
func (b *base) objectContext(inst *document.Instance) map[string]any {
	ctx := map[string]any{"object": nil}
	if inst != nil {
		values := templateValues(inst)
		ctx["object"] = values
		ctx[b.cfg.ContextObjectName] = values
	}
	return ctx
}

// templateValues renders an instance as plain maps the template engine can
// walk: embedded instances become their value maps, references and file
// refs their display strings, lists recurse.
func templateValues(inst *document.Instance) map[string]any {
	values := inst.Values()
	for name, value := range values {
		values[name] = templateValue(value)
	}
	values["id"] = document.IDString(inst.ID())
	return values
}

func templateValue(value any) any {
	switch v := value.(type) {
	case *document.Instance:
		return templateValues(v)
	case []*document.Instance:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			out = append(out, templateValues(item))
		}
		return out
	case *storage.FileRef:
		return v.Filename
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, templateValue(item))
		}
		return out
	default:
		return value
	}
}

// render writes a page template, mapping template failures to 500s.
func (b *base) render(w http.ResponseWriter, name string, data map[string]any) {
	body, err := b.cfg.Engine.RenderTemplate(name, data)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

// writeError maps error kinds onto HTTP statuses: not-found signals become
// 404s, everything else (configuration faults included) a 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, document.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// formData extracts submitted values and uploads from a request, parsing
// multipart bodies when present.
func formData(r *http.Request) (map[string][]string, map[string]*storage.Upload, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			return nil, nil, fmt.Errorf("views: parse multipart form: %w", err)
		}
		uploads := make(map[string]*storage.Upload)
		for name, headers := range r.MultipartForm.File {
			if len(headers) == 0 {
				continue
			}
			header := headers[0]
			file, err := header.Open()
			if err != nil {
				return nil, nil, fmt.Errorf("views: open upload %q: %w", name, err)
			}
			uploads[name] = &storage.Upload{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Size:        header.Size,
				Content:     file,
			}
		}
		return r.MultipartForm.Value, uploads, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, nil, fmt.Errorf("views: parse form: %w", err)
	}
	return r.PostForm, nil, nil
}

// successURL expands the configured redirect target from the saved
// instance's field values: {name} segments become the field's string form.
func (b *base) successURL(inst *document.Instance) (string, error) {
	raw := b.cfg.SuccessURL
	if raw == "" {
		return "", configErrorf("view for %s has no redirect target, set SuccessURL", b.cfg.Document.Name)
	}
	if inst == nil || !strings.Contains(raw, "{") {
		return raw, nil
	}
	expanded := raw
	replace := func(name string, value any) {
		expanded = strings.ReplaceAll(expanded, "{"+name+"}", document.IDString(value))
	}
	replace("id", inst.ID())
	for name, value := range inst.Values() {
		replace(name, value)
	}
	return expanded, nil
}
