package fields

import (
	"context"
	"fmt"

	"github.com/goliatone/go-docforms/pkg/schema"
)

// Coercer converts the posted string form of a choice back into the typed
// value declared by the schema.
type Coercer func(raw string) (any, error)

// StringCoercer keeps the posted value as-is.
func StringCoercer(raw string) (any, error) { return raw, nil }

// IntCoercer parses the posted value as an integer.
func IntCoercer(raw string) (any, error) { return coerceInt(raw) }

// FloatCoercer parses the posted value as a float.
func FloatCoercer(raw string) (any, error) { return coerceFloat(raw) }

// BoolCoercer parses the posted value as a boolean.
func BoolCoercer(raw string) (any, error) { return coerceBool(raw) }

// Choice is a select field over a fixed choice set. A Coercer restores the
// typed value for numeric and boolean choice sets.
type Choice struct {
	Base
	choices []schema.Choice
	coerce  Coercer
}

// NewChoice constructs a choice field. A nil coercer keeps string values.
func NewChoice(choices []schema.Choice, coerce Coercer, options []Option) *Choice {
	c := &Choice{
		Base:    newBase(WidgetSelect, options),
		choices: choices,
		coerce:  coerce,
	}
	if c.coerce == nil {
		c.coerce = StringCoercer
	}
	return c
}

// ChoiceList implements ChoiceField.
func (c *Choice) ChoiceList() []schema.Choice { return c.choices }

// Clean implements Field.
func (c *Choice) Clean(_ context.Context, value any) (any, error) {
	if done, err := c.checkEmpty(value); done {
		return nil, err
	}
	raw, ok := value.(string)
	if !ok {
		raw = fmt.Sprint(value)
	}
	typed, err := c.coerce(raw)
	if err != nil {
		return nil, err
	}
	if !c.allowed(typed) {
		return nil, fmt.Errorf("select a valid choice; %v is not one of the available choices", typed)
	}
	if err := c.runValidators(typed); err != nil {
		return nil, err
	}
	return typed, nil
}

func (c *Choice) allowed(value any) bool {
	for _, choice := range c.choices {
		if choice.Value == value {
			return true
		}
		if fmt.Sprint(choice.Value) == fmt.Sprint(value) {
			return true
		}
	}
	return false
}

// MultiChoice is a multi-select over a fixed choice set, cleaning to a slice
// of typed values.
type MultiChoice struct {
	Base
	choices []schema.Choice
	coerce  Coercer
}

// NewMultiChoice constructs a multi-select choice field.
func NewMultiChoice(choices []schema.Choice, coerce Coercer, options []Option) *MultiChoice {
	m := &MultiChoice{
		Base:    newBase(WidgetCheckboxMulti, options),
		choices: choices,
		coerce:  coerce,
	}
	if m.coerce == nil {
		m.coerce = StringCoercer
	}
	return m
}

// ChoiceList implements ChoiceField.
func (m *MultiChoice) ChoiceList() []schema.Choice { return m.choices }

// Clean implements Field.
func (m *MultiChoice) Clean(_ context.Context, value any) (any, error) {
	if done, err := m.checkEmpty(value); done {
		if err != nil {
			return nil, err
		}
		return []any{}, nil
	}
	raws, err := asStringSlice(value)
	if err != nil {
		return nil, err
	}
	single := Choice{Base: m.Base, choices: m.choices, coerce: m.coerce}
	out := make([]any, 0, len(raws))
	for _, raw := range raws {
		typed, err := single.coerce(raw)
		if err != nil {
			return nil, err
		}
		if !single.allowed(typed) {
			return nil, fmt.Errorf("select a valid choice; %v is not one of the available choices", typed)
		}
		out = append(out, typed)
	}
	if err := m.runValidators(out); err != nil {
		return nil, err
	}
	return out, nil
}

func asStringSlice(value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case string:
		return []string{v}, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("enter a list of values")
	}
}
