package views

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/goliatone/go-docforms/pkg/document"
	"github.com/goliatone/go-docforms/pkg/forms"
	"github.com/goliatone/go-docforms/pkg/render"
)

// formView holds what create and update share: a form type, a renderer for
// the form element, and the bind/save/redisplay cycle.
type formView struct {
	base
	renderer *render.FormRenderer
}

func newFormView(cfg Config) (formView, error) {
	b, err := newBase(cfg)
	if err != nil {
		return formView{}, err
	}
	if cfg.Form == nil {
		return formView{}, configErrorf("form view for %s needs a form type", b.cfg.Document.Name)
	}
	renderer := cfg.FormRenderer
	if renderer == nil {
		renderer, err = render.New()
		if err != nil {
			return formView{}, err
		}
	}
	return formView{base: b, renderer: renderer}, nil
}

// renderForm writes the page template with the rendered form element and,
// for updates, the bound object in context.
func (v *formView) renderForm(w http.ResponseWriter, r *http.Request, form *forms.Form, obj *document.Instance) {
	markup, err := v.renderer.RenderForm(r.Context(), form, render.Options{
		Method: http.MethodPost,
		Action: r.URL.Path,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	data := v.objectContext(obj)
	data["form"] = string(markup)
	v.render(w, v.templateName("form"), data)
}

// processForm binds submitted data and attempts the save. A validation
// failure, including a save-time uniqueness conflict, redisplays the form
// with errors; success redirects to the expanded success URL.
func (v *formView) processForm(w http.ResponseWriter, r *http.Request, obj *document.Instance) {
	values, uploads, err := formData(r)
	if err != nil {
		writeError(w, err)
		return
	}

	options := []forms.FormOption{forms.WithData(url.Values(values))}
	if obj != nil {
		options = append(options, forms.WithInstance(obj))
	}
	if len(uploads) > 0 {
		options = append(options, forms.WithFiles(uploads))
	}
	form := v.cfg.Form.New(options...)

	saved, err := form.Save(r.Context())
	if err != nil {
		if errors.Is(err, forms.ErrInvalid) {
			v.renderForm(w, r, form, obj)
			return
		}
		writeError(w, err)
		return
	}
	if saved == nil {
		// Save-time document check failed; the form carries the detail.
		v.renderForm(w, r, form, obj)
		return
	}

	target, err := v.successURL(saved)
	if err != nil {
		writeError(w, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// Create renders an unbound form on GET and saves a new object on POST.
type Create struct {
	formView
}

// NewCreate builds a create view.
func NewCreate(cfg Config) (*Create, error) {
	fv, err := newFormView(cfg)
	if err != nil {
		return nil, err
	}
	return &Create{formView: fv}, nil
}

// MustCreate is NewCreate panicking on error.
func MustCreate(cfg Config) *Create {
	v, err := NewCreate(cfg)
	if err != nil {
		panic(err)
	}
	return v
}

// ServeHTTP implements http.Handler.
func (v *Create) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		v.renderForm(w, r, v.cfg.Form.New(), nil)
	case http.MethodPost:
		v.processForm(w, r, nil)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

// Update resolves an existing object and edits it through the form.
type Update struct {
	formView
}

// NewUpdate builds an update view.
func NewUpdate(cfg Config) (*Update, error) {
	fv, err := newFormView(cfg)
	if err != nil {
		return nil, err
	}
	return &Update{formView: fv}, nil
}

// MustUpdate is NewUpdate panicking on error.
func MustUpdate(cfg Config) *Update {
	v, err := NewUpdate(cfg)
	if err != nil {
		panic(err)
	}
	return v
}

// ServeHTTP implements http.Handler.
func (v *Update) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	obj, err := v.object(r)
	if err != nil {
		writeError(w, err)
		return
	}
	switch r.Method {
	case http.MethodGet:
		v.renderForm(w, r, v.cfg.Form.New(forms.WithInstance(obj)), obj)
	case http.MethodPost:
		v.processForm(w, r, obj)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

// Delete renders a confirmation page on GET and removes the object on POST
// or DELETE.
type Delete struct {
	base
}

// NewDelete builds a delete view.
func NewDelete(cfg Config) (*Delete, error) {
	b, err := newBase(cfg)
	if err != nil {
		return nil, err
	}
	return &Delete{base: b}, nil
}

// MustDelete is NewDelete panicking on error.
func MustDelete(cfg Config) *Delete {
	v, err := NewDelete(cfg)
	if err != nil {
		panic(err)
	}
	return v
}

// ServeHTTP implements http.Handler.
func (v *Delete) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	obj, err := v.object(r)
	if err != nil {
		writeError(w, err)
		return
	}
	switch r.Method {
	case http.MethodGet:
		v.render(w, v.templateName("confirm_delete"), v.objectContext(obj))
	case http.MethodPost, http.MethodDelete:
		if err := v.cfg.Store.Delete(r.Context(), obj); err != nil {
			writeError(w, err)
			return
		}
		target, err := v.successURL(obj)
		if err != nil {
			writeError(w, err)
			return
		}
		http.Redirect(w, r, target, http.StatusFound)
	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}
