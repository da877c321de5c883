// Package fields implements the form-field side of the adapter: each field
// converts one raw submitted value into a typed value through a two-step
// pipeline (syntactic clean, then domain validators) and carries the
// presentation attributes widgets render from.
package fields

import (
	"context"
	"errors"

	"github.com/goliatone/go-docforms/pkg/schema"
)

// ErrRequired is the validation failure for an empty value on a required
// field.
var ErrRequired = errors.New("this field is required")

// Widget identifiers understood by the render package.
const (
	WidgetText          = "text"
	WidgetTextarea      = "textarea"
	WidgetNumber        = "number"
	WidgetCheckbox      = "checkbox"
	WidgetDateTime      = "datetime"
	WidgetSelect        = "select"
	WidgetSelectMulti   = "select-multiple"
	WidgetCheckboxMulti = "checkbox-multiple"
	WidgetClearableFile = "clearable-file"
	WidgetEmail         = "email"
	WidgetURL           = "url"
)

// Validator is a domain-level check run after the syntactic clean step.
// Validators never see empty values.
type Validator func(value any) error

// Field is a single form input: it cleans one raw submitted value and
// exposes the attributes renderers need.
type Field interface {
	// Clean converts the raw submitted value into a typed value. Empty
	// values fail with ErrRequired on required fields and clean to nil
	// otherwise.
	Clean(ctx context.Context, value any) (any, error)

	Required() bool
	Label() string
	HelpText() string
	Widget() string
	Initial() any
}

// ChoiceField is implemented by fields carrying a choice set, so widgets can
// render options.
type ChoiceField interface {
	Field
	ChoiceList() []schema.Choice
}

// InitialAware is implemented by fields whose clean step needs the bound
// instance's current value (file fields keep stored content when nothing new
// was submitted).
type InitialAware interface {
	CleanWithInitial(ctx context.Context, value, initial any) (any, error)
}

// Base carries the attributes shared by every field implementation.
type Base struct {
	required   bool
	label      string
	helpText   string
	widget     string
	initial    any
	validators []Validator
}

// Option mutates the shared base configuration.
type Option func(*Base)

// Required marks the field as required.
func Required(required bool) Option {
	return func(b *Base) { b.required = required }
}

// WithLabel sets the display label.
func WithLabel(label string) Option {
	return func(b *Base) { b.label = label }
}

// WithHelpText sets the help text shown next to the input.
func WithHelpText(text string) Option {
	return func(b *Base) { b.helpText = text }
}

// WithWidget overrides the default widget.
func WithWidget(widget string) Option {
	return func(b *Base) {
		if widget != "" {
			b.widget = widget
		}
	}
}

// WithInitial sets the default value rendered for unbound forms.
func WithInitial(initial any) Option {
	return func(b *Base) { b.initial = initial }
}

// WithValidators appends domain validators to the clean pipeline.
func WithValidators(validators ...Validator) Option {
	return func(b *Base) { b.validators = append(b.validators, validators...) }
}

func newBase(widget string, options []Option) Base {
	b := Base{widget: widget}
	for _, opt := range options {
		if opt != nil {
			opt(&b)
		}
	}
	return b
}

// Required implements Field.
func (b *Base) Required() bool { return b.required }

// Label implements Field.
func (b *Base) Label() string { return b.label }

// HelpText implements Field.
func (b *Base) HelpText() string { return b.helpText }

// Widget implements Field.
func (b *Base) Widget() string { return b.widget }

// Initial implements Field.
func (b *Base) Initial() any { return b.initial }

// checkEmpty applies the shared empty-value handling: empty plus required is
// an error, empty plus optional short-circuits the pipeline to nil.
func (b *Base) checkEmpty(value any) (done bool, err error) {
	if !IsEmpty(value) {
		return false, nil
	}
	if b.required {
		return true, ErrRequired
	}
	return true, nil
}

// runValidators is the second pipeline step: domain validators over the
// already-typed value.
func (b *Base) runValidators(value any) error {
	if IsEmpty(value) {
		return nil
	}
	for _, v := range b.validators {
		if v == nil {
			continue
		}
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

// IsEmpty reports whether a raw or cleaned value counts as empty: nil, blank
// string, or an empty slice.
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	default:
		return false
	}
}
