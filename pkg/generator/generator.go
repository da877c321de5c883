// Package generator maps document schema fields to form fields. Dispatch is
// an explicit registry keyed by field kind with an ordered fallback chain
// per kind, so unknown kinds fail loudly instead of walking a type
// hierarchy at runtime.
package generator

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/goliatone/go-docforms/pkg/document"
	"github.com/goliatone/go-docforms/pkg/fields"
	"github.com/goliatone/go-docforms/pkg/schema"
)

// ErrNoGenerator is returned when no generator (direct or via fallback) is
// registered for a field kind.
var ErrNoGenerator = errors.New("generator: no generator registered")

// BlankChoice is the leading empty choice prepended to optional selects.
var BlankChoice = schema.Choice{Value: "", Label: "---------"}

// Options carries per-field generation overrides.
type Options struct {
	// Widget overrides the generated field's widget.
	Widget string
}

// Func produces a form field from a schema field declaration.
type Func func(reg *Registry, f schema.Field, opts Options) (fields.Field, error)

// Registry holds generators by kind plus the fallback chains consulted when
// no exact match exists.
type Registry struct {
	mu         sync.RWMutex
	generators map[schema.Kind]Func
	fallbacks  map[schema.Kind][]schema.Kind
	store      document.Store
}

// Option configures a Registry.
type Option func(*Registry)

// WithStore binds the store reference fields query against. Registries
// without a store cannot generate reference fields.
func WithStore(store document.Store) Option {
	return func(r *Registry) { r.store = store }
}

// New constructs a registry with the built-in generators and fallback
// chains registered.
func New(options ...Option) *Registry {
	r := &Registry{
		generators: make(map[schema.Kind]Func),
		fallbacks:  make(map[schema.Kind][]schema.Kind),
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	r.registerBuiltins()
	return r
}

// Register adds or replaces the generator for a kind.
func (r *Registry) Register(kind schema.Kind, fn Func) error {
	if kind == "" {
		return fmt.Errorf("generator: kind is required")
	}
	if fn == nil {
		return fmt.Errorf("generator: func is required for kind %q", kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators[kind] = fn
	return nil
}

// RegisterFallback declares the ordered chain of kinds consulted when no
// generator is registered for kind directly.
func (r *Registry) RegisterFallback(kind schema.Kind, chain ...schema.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks[kind] = chain
}

// Kinds returns the kinds with a directly registered generator, sorted.
func (r *Registry) Kinds() []schema.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]schema.Kind, 0, len(r.generators))
	for kind := range r.generators {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Store returns the bound document store, if any.
func (r *Registry) Store() document.Store { return r.store }

// Generate produces a form field for the schema field, dispatching on its
// kind and falling back along the kind's declared chain. A kind with no
// generator anywhere in the chain returns ErrNoGenerator.
func (r *Registry) Generate(f schema.Field, opts Options) (fields.Field, error) {
	fn := r.resolve(f.Kind)
	if fn == nil {
		return nil, fmt.Errorf("%w for field kind %q", ErrNoGenerator, f.Kind)
	}
	field, err := fn(r, f, opts)
	if err != nil {
		return nil, fmt.Errorf("generator: field %q: %w", f.Name, err)
	}
	return field, nil
}

func (r *Registry) resolve(kind schema.Kind) Func {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if fn, ok := r.generators[kind]; ok {
		return fn
	}
	for _, fallback := range r.fallbacks[kind] {
		if fn, ok := r.generators[fallback]; ok {
			return fn
		}
	}
	return nil
}

// baseOptions assembles the attribute carry-over every generator applies:
// required-ness, label, help text, default and declared validators.
func baseOptions(f schema.Field, opts Options) []fields.Option {
	out := []fields.Option{
		fields.Required(f.Required),
		fields.WithLabel(f.DisplayLabel()),
		fields.WithHelpText(f.HelpText),
	}
	if f.Default != nil {
		out = append(out, fields.WithInitial(f.Default))
	}
	if len(f.Validators) > 0 {
		validators := make([]fields.Validator, 0, len(f.Validators))
		for _, v := range f.Validators {
			validators = append(validators, fields.Validator(v))
		}
		out = append(out, fields.WithValidators(validators...))
	}
	if opts.Widget != "" {
		out = append(out, fields.WithWidget(opts.Widget))
	}
	return out
}

// choicesFor returns the field's choice list, prepending the blank choice
// when requested.
func choicesFor(f schema.Field, includeBlank bool) []schema.Choice {
	if !includeBlank {
		return f.Choices
	}
	out := make([]schema.Choice, 0, len(f.Choices)+1)
	out = append(out, BlankChoice)
	out = append(out, f.Choices...)
	return out
}

func (r *Registry) registerBuiltins() {
	r.generators[schema.KindString] = generateString
	r.generators[schema.KindEmail] = generateEmail
	r.generators[schema.KindURL] = generateURL
	r.generators[schema.KindInt] = generateInt
	r.generators[schema.KindFloat] = generateFloat
	r.generators[schema.KindBool] = generateBool
	r.generators[schema.KindDateTime] = generateDateTime
	r.generators[schema.KindReference] = generateReference
	r.generators[schema.KindList] = generateList
	r.generators[schema.KindFile] = generateFile
	r.generators[schema.KindImage] = generateImage

	r.fallbacks[schema.KindEmail] = []schema.Kind{schema.KindString}
	r.fallbacks[schema.KindURL] = []schema.Kind{schema.KindString}
	r.fallbacks[schema.KindSequence] = []schema.Kind{schema.KindInt}
	r.fallbacks[schema.KindDecimal] = []schema.Kind{schema.KindFloat}
	r.fallbacks[schema.KindImage] = []schema.Kind{schema.KindFile}
}

func generateString(_ *Registry, f schema.Field, opts Options) (fields.Field, error) {
	if f.HasChoices() {
		base := baseOptions(f, opts)
		return fields.NewChoice(choicesFor(f, !f.Required), fields.StringCoercer, base), nil
	}
	base := baseOptions(f, opts)
	var extra []fields.TextOption
	if f.MinLength != nil {
		extra = append(extra, fields.WithMinLength(*f.MinLength))
	}
	if f.MaxLength != nil {
		extra = append(extra, fields.WithMaxLength(*f.MaxLength))
	}
	if f.Pattern != "" {
		re, err := regexp.Compile(f.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", f.Pattern, err)
		}
		extra = append(extra, fields.WithPattern(re))
	}
	return fields.NewText(base, extra...), nil
}

func generateEmail(_ *Registry, f schema.Field, opts Options) (fields.Field, error) {
	base := baseOptions(f, opts)
	var extra []fields.TextOption
	if f.MinLength != nil {
		extra = append(extra, fields.WithMinLength(*f.MinLength))
	}
	if f.MaxLength != nil {
		extra = append(extra, fields.WithMaxLength(*f.MaxLength))
	}
	return fields.NewEmail(base, extra...), nil
}

func generateURL(_ *Registry, f schema.Field, opts Options) (fields.Field, error) {
	base := baseOptions(f, opts)
	var extra []fields.TextOption
	if f.MinLength != nil {
		extra = append(extra, fields.WithMinLength(*f.MinLength))
	}
	if f.MaxLength != nil {
		extra = append(extra, fields.WithMaxLength(*f.MaxLength))
	}
	return fields.NewURL(base, extra...), nil
}

func generateInt(_ *Registry, f schema.Field, opts Options) (fields.Field, error) {
	if f.HasChoices() {
		base := baseOptions(f, opts)
		return fields.NewChoice(choicesFor(f, true), fields.IntCoercer, base), nil
	}
	return fields.NewInteger(baseOptions(f, opts), f.Min, f.Max), nil
}

func generateFloat(_ *Registry, f schema.Field, opts Options) (fields.Field, error) {
	if f.HasChoices() {
		base := baseOptions(f, opts)
		return fields.NewChoice(choicesFor(f, true), fields.FloatCoercer, base), nil
	}
	return fields.NewFloat(baseOptions(f, opts), f.Min, f.Max), nil
}

func generateBool(_ *Registry, f schema.Field, opts Options) (fields.Field, error) {
	if f.HasChoices() {
		base := baseOptions(f, opts)
		return fields.NewChoice(choicesFor(f, true), fields.BoolCoercer, base), nil
	}
	return fields.NewBoolean(baseOptions(f, opts)), nil
}

func generateDateTime(_ *Registry, f schema.Field, opts Options) (fields.Field, error) {
	return fields.NewDateTime(baseOptions(f, opts)), nil
}

func generateReference(r *Registry, f schema.Field, opts Options) (fields.Field, error) {
	if f.Ref == nil {
		return nil, fmt.Errorf("reference field missing target document")
	}
	if r.store == nil {
		return nil, fmt.Errorf("reference field requires a registry store")
	}
	qs := document.NewQuerySet(r.store, f.Ref)
	return fields.NewReference(qs, idCoercerFor(f.Ref), baseOptions(f, opts)), nil
}

func generateList(r *Registry, f schema.Field, opts Options) (fields.Field, error) {
	if f.Elem == nil {
		return nil, fmt.Errorf("list field missing element declaration")
	}
	elem := *f.Elem
	if elem.HasChoices() {
		base := baseOptions(f, opts)
		return fields.NewMultiChoice(elem.Choices, coercerForKind(elem.Kind), base), nil
	}
	if elem.Kind == schema.KindReference {
		if elem.Ref == nil {
			return nil, fmt.Errorf("list reference element missing target document")
		}
		if r.store == nil {
			return nil, fmt.Errorf("reference field requires a registry store")
		}
		qs := document.NewQuerySet(r.store, elem.Ref)
		return fields.NewMultiReference(qs, idCoercerFor(elem.Ref), baseOptions(f, opts)), nil
	}
	return nil, fmt.Errorf("%w for list of %q", ErrNoGenerator, elem.Kind)
}

func generateFile(_ *Registry, f schema.Field, opts Options) (fields.Field, error) {
	return fields.NewFile(baseOptions(f, opts)), nil
}

func generateImage(_ *Registry, f schema.Field, opts Options) (fields.Field, error) {
	return fields.NewImage(baseOptions(f, opts)), nil
}

// idCoercerFor picks the identifier coercer matching the referenced
// document's declared id field kind. Integer-like id declarations coerce to
// ints; everything else uses ObjectIDs.
func idCoercerFor(doc *schema.Document) fields.IDCoercer {
	if idField, ok := doc.Field(doc.IDField); ok {
		switch idField.Kind {
		case schema.KindInt, schema.KindSequence:
			return fields.IntIDCoercer
		}
	}
	return fields.ObjectIDCoercer
}

func coercerForKind(kind schema.Kind) fields.Coercer {
	switch kind {
	case schema.KindInt, schema.KindSequence:
		return fields.IntCoercer
	case schema.KindFloat, schema.KindDecimal:
		return fields.FloatCoercer
	case schema.KindBool:
		return fields.BoolCoercer
	default:
		return fields.StringCoercer
	}
}
