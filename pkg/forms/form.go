package forms

import (
	"context"
	"errors"
	"net/url"

	"github.com/goliatone/go-docforms/pkg/document"
	"github.com/goliatone/go-docforms/pkg/fields"
	"github.com/goliatone/go-docforms/pkg/schema"
	"github.com/goliatone/go-docforms/pkg/storage"
)

// ClearSuffix is appended to a file field's name to form its clear-checkbox
// input name.
const ClearSuffix = "-clear"

// Form is one request's binding of submitted data against a document
// instance. Create it through Type.New, mutate it through Validate/Save,
// and discard it once the response is produced.
type Form struct {
	typ      *Type
	instance *document.Instance
	data     url.Values
	files    map[string]*storage.Upload
	initial  map[string]any
	bound    bool

	cleaned   map[string]any
	errs      *Errors
	validated bool
}

// FormOption configures a new form instance.
type FormOption func(*Form)

// WithInstance binds the form to an existing document instance. The
// instance's current values become the form's initial data.
func WithInstance(inst *document.Instance) FormOption {
	return func(f *Form) { f.instance = inst }
}

// WithInitial overrides initial values after instance data is applied.
func WithInitial(initial map[string]any) FormOption {
	return func(f *Form) {
		if f.initial == nil {
			f.initial = make(map[string]any, len(initial))
		}
		for k, v := range initial {
			f.initial[k] = v
		}
	}
}

// WithData binds submitted form values.
func WithData(data url.Values) FormOption {
	return func(f *Form) {
		f.data = data
		f.bound = true
	}
}

// WithFiles binds uploaded file payloads keyed by field name.
func WithFiles(files map[string]*storage.Upload) FormOption {
	return func(f *Form) {
		f.files = files
		f.bound = true
	}
}

// New creates a form instance. Without WithInstance a fresh document is
// created and marked adding; with one, the existing instance's values seed
// the initial data, overridable by WithInitial.
func (t *Type) New(options ...FormOption) *Form {
	f := &Form{
		typ:  t,
		errs: NewErrors(),
	}

	for _, opt := range options {
		if opt != nil {
			opt(f)
		}
	}
	// Explicit initial values win over instance data, so replay them on top.
	explicit := f.initial

	if f.instance == nil {
		f.instance = document.NewInstance(t.doc)
	}
	initial := make(map[string]any)
	if !f.instance.Adding() {
		for k, v := range t.instanceData(f.instance) {
			initial[k] = v
		}
	}
	for k, v := range explicit {
		initial[k] = v
	}
	f.initial = initial
	return f
}

// instanceData extracts initial form data from an instance, honoring the
// include/exclude lists and flattening references to their id string.
func (t *Type) instanceData(inst *document.Instance) map[string]any {
	out := make(map[string]any)
	for _, f := range t.doc.Fields {
		if !t.includes(f.Name) {
			continue
		}
		value := inst.Get(f.Name)
		if value == nil {
			continue
		}
		if f.Kind == schema.KindReference {
			if ref, ok := value.(*document.Instance); ok {
				out[f.Name] = document.IDString(ref.ID())
				continue
			}
			out[f.Name] = document.IDString(value)
			continue
		}
		out[f.Name] = value
	}
	return out
}

// Instance returns the document instance the form wraps.
func (f *Form) Instance() *document.Instance { return f.instance }

// Type returns the form's type.
func (f *Form) Type() *Type { return f.typ }

// Bound reports whether submitted data was attached.
func (f *Form) Bound() bool { return f.bound }

// Initial returns the initial value for a field.
func (f *Form) Initial(name string) any { return f.initial[name] }

// CleanedData returns the validated, typed values. Empty until Validate
// runs.
func (f *Form) CleanedData() map[string]any { return f.cleaned }

// Errors returns the form's error mapping.
func (f *Form) Errors() *Errors { return f.errs }

// Value returns what a widget should render for a field: the submitted raw
// value when bound, the initial value otherwise.
func (f *Form) Value(name string) any {
	if f.bound && f.data != nil {
		if vals, ok := f.data[name]; ok && len(vals) > 0 {
			if len(vals) > 1 {
				return vals
			}
			return vals[0]
		}
	}
	return f.initial[name]
}

// Validate runs the three validation phases: per-field cleaning, document
// construction from cleaned data, then document-level validation plus the
// cross-field clean hook. It is idempotent per form instance.
func (f *Form) Validate(ctx context.Context) bool {
	if f.validated {
		return !f.errs.Has()
	}
	f.validated = true
	f.cleaned = make(map[string]any)

	if !f.bound {
		f.errs.AddNonField("no data submitted")
		return false
	}

	f.cleanFields(ctx)
	f.constructInstance()
	f.validateDocument()

	return !f.errs.Has()
}

// cleanFields is phase one: each form field cleans its raw submitted value
// independently of document semantics.
func (f *Form) cleanFields(ctx context.Context) {
	for _, name := range f.typ.order {
		field := f.typ.fields[name]
		raw := f.rawValue(name, field)

		var cleaned any
		var err error
		if aware, ok := field.(fields.InitialAware); ok {
			cleaned, err = aware.CleanWithInitial(ctx, raw, f.instance.Get(name))
		} else {
			cleaned, err = field.Clean(ctx, raw)
		}
		if err != nil {
			f.errs.Add(name, err.Error())
			continue
		}
		f.cleaned[name] = cleaned
	}
}

// rawValue extracts the submitted value for a field: uploads and the clear
// sentinel for file widgets, value slices for multi-selects, single strings
// otherwise. A missing key yields nil so fields can distinguish "absent"
// from "blank".
func (f *Form) rawValue(name string, field fields.Field) any {
	if _, ok := field.(fields.InitialAware); ok {
		if up, exists := f.files[name]; exists && up != nil {
			return up
		}
		if f.data != nil && f.data.Get(name+ClearSuffix) != "" {
			return storage.Clear
		}
		return nil
	}

	if f.data == nil {
		return nil
	}
	vals, ok := f.data[name]
	if !ok {
		return nil
	}
	switch field.Widget() {
	case fields.WidgetSelectMulti, fields.WidgetCheckboxMulti:
		return vals
	}
	if len(vals) == 0 {
		return nil
	}
	if len(vals) > 1 {
		return []string(vals)
	}
	return vals[0]
}

// constructInstance is phase two: cleaned values are copied into the
// document instance for every effective field present in cleaned data. File
// fields are staged for the post-save commit instead of copied.
func (f *Form) constructInstance() {
	for _, name := range f.typ.order {
		if !f.typ.includes(name) {
			continue
		}
		value, ok := f.cleaned[name]
		if !ok {
			continue
		}
		schemaField, isSchemaField := f.typ.doc.Field(name)
		if !isSchemaField {
			// Author-declared extra field with no schema backing; nothing to
			// copy onto the document.
			continue
		}
		if schemaField.Kind == schema.KindFile || schemaField.Kind == schema.KindImage {
			if value != nil {
				f.instance.StageFile(name, value)
			}
			continue
		}
		// Setting a name the schema declares cannot fail.
		_ = f.instance.Set(name, value)
	}
}

// validateDocument is phase three: the instance's own validator runs,
// excluding fields that are off the form, already failed, or legitimately
// empty and optional; failures map back onto field error lists. The
// document's cross-field clean hook runs last as a non-field check.
func (f *Form) validateDocument() {
	exclude := f.validationExclusions()

	if err := f.instance.Validate(exclude...); err != nil {
		var verr *document.ValidationError
		if errors.As(err, &verr) {
			for field, msg := range verr.Fields {
				f.errs.Add(field, msg)
				delete(f.cleaned, field)
			}
			if verr.Message != "" {
				f.errs.AddNonField(verr.Message)
			}
		} else {
			f.errs.AddNonField(err.Error())
		}
	}

	if err := f.instance.RunClean(); err != nil {
		f.errs.AddNonField(err.Error())
	}
}

// validationExclusions lists document fields that phase three must skip:
// fields not on the form (the caller may set them after validation), fields
// excluded by configuration, fields that already failed form cleaning, and
// empty optional fields whose document declaration is stricter than the
// form's.
func (f *Form) validationExclusions() []string {
	var exclude []string
	for _, docField := range f.typ.doc.Fields {
		name := docField.Name
		formField, onForm := f.typ.fields[name]
		switch {
		case !onForm:
			exclude = append(exclude, name)
		case !f.typ.includes(name):
			exclude = append(exclude, name)
		case f.errs.HasField(name):
			exclude = append(exclude, name)
		default:
			value, ok := f.cleaned[name]
			if !formField.Required() && (!ok || document.IsEmpty(value)) {
				exclude = append(exclude, name)
			}
		}
	}
	return exclude
}

// Save validates if needed, commits staged file fields and writes the
// instance to the store. Files commit first so the persisted record carries
// their refs. A uniqueness violation is recovered into the non-field error
// bucket and Save returns a nil instance with a nil error; callers treat a
// nil instance as validation failure.
func (f *Form) Save(ctx context.Context) (*document.Instance, error) {
	return f.SaveCommit(ctx, true)
}

// SaveCommit is Save with an explicit commit flag. With commit false the
// constructed instance is returned without any storage write; its staged
// file payloads remain pending until CommitFiles (or a later Save) runs.
func (f *Form) SaveCommit(ctx context.Context, commit bool) (*document.Instance, error) {
	if !f.validated {
		f.Validate(ctx)
	}
	if f.errs.Has() {
		return nil, ErrInvalid
	}
	if !commit {
		return f.instance, nil
	}

	store := f.typ.cfg.Store
	if store == nil {
		return nil, configErrorf("form type for %s has no store configured", f.typ.doc.Name)
	}
	if err := f.instance.CommitFiles(ctx, store.Files()); err != nil {
		return nil, err
	}
	if err := store.Save(ctx, f.instance); err != nil {
		if errors.Is(err, document.ErrDuplicateKey) {
			f.errs.AddNonField(err.Error())
			return nil, nil
		}
		return nil, err
	}
	return f.instance, nil
}

// CommitFiles commits staged file payloads for a form saved with commit
// false. Call it before the deferred store write so the persisted record
// carries the committed refs.
func (f *Form) CommitFiles(ctx context.Context) error {
	store := f.typ.cfg.Store
	if store == nil {
		return configErrorf("form type for %s has no store configured", f.typ.doc.Name)
	}
	return f.instance.CommitFiles(ctx, store.Files())
}
