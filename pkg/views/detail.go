package views

import (
	"net/http"
)

// Detail renders a single object resolved by primary key or slug.
type Detail struct {
	base
}

// NewDetail builds a detail view.
func NewDetail(cfg Config) (*Detail, error) {
	b, err := newBase(cfg)
	if err != nil {
		return nil, err
	}
	return &Detail{base: b}, nil
}

// MustDetail is NewDetail panicking on error, for route tables.
func MustDetail(cfg Config) *Detail {
	v, err := NewDetail(cfg)
	if err != nil {
		panic(err)
	}
	return v
}

// ServeHTTP implements http.Handler.
func (v *Detail) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	inst, err := v.object(r)
	if err != nil {
		writeError(w, err)
		return
	}
	v.render(w, v.templateName("detail"), v.objectContext(inst))
}

// List renders every object the configured query source yields.
type List struct {
	base

	// contextListName is the template variable holding the object list.
	contextListName string
}

// NewList builds a list view. The object list is exposed to the template as
// "object_list" and as "<context object name>_list".
func NewList(cfg Config) (*List, error) {
	b, err := newBase(cfg)
	if err != nil {
		return nil, err
	}
	return &List{base: b, contextListName: b.cfg.ContextObjectName + "_list"}, nil
}

// MustList is NewList panicking on error.
func MustList(cfg Config) *List {
	v, err := NewList(cfg)
	if err != nil {
		panic(err)
	}
	return v
}

// ServeHTTP implements http.Handler.
func (v *List) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	matches, err := v.queryset().All(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(matches))
	for _, inst := range matches {
		items = append(items, templateValues(inst))
	}

	v.render(w, v.templateName("list"), map[string]any{
		"object_list":     items,
		v.contextListName: items,
	})
}
