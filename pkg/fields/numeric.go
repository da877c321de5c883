package fields

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Integer cleans whole-number input.
type Integer struct {
	Base
	min *float64
	max *float64
}

// NewInteger constructs an integer field with optional inclusive bounds.
func NewInteger(options []Option, min, max *float64) *Integer {
	return &Integer{Base: newBase(WidgetNumber, options), min: min, max: max}
}

// Clean implements Field.
func (i *Integer) Clean(_ context.Context, value any) (any, error) {
	if done, err := i.checkEmpty(value); done {
		return nil, err
	}
	n, err := coerceInt(value)
	if err != nil {
		return nil, err
	}
	if i.min != nil && float64(n) < *i.min {
		return nil, fmt.Errorf("ensure this value is greater than or equal to %v", *i.min)
	}
	if i.max != nil && float64(n) > *i.max {
		return nil, fmt.Errorf("ensure this value is less than or equal to %v", *i.max)
	}
	if err := i.runValidators(n); err != nil {
		return nil, err
	}
	return n, nil
}

// Float cleans floating-point input.
type Float struct {
	Base
	min *float64
	max *float64
}

// NewFloat constructs a float field with optional inclusive bounds.
func NewFloat(options []Option, min, max *float64) *Float {
	return &Float{Base: newBase(WidgetNumber, options), min: min, max: max}
}

// Clean implements Field.
func (f *Float) Clean(_ context.Context, value any) (any, error) {
	if done, err := f.checkEmpty(value); done {
		return nil, err
	}
	n, err := coerceFloat(value)
	if err != nil {
		return nil, err
	}
	if f.min != nil && n < *f.min {
		return nil, fmt.Errorf("ensure this value is greater than or equal to %v", *f.min)
	}
	if f.max != nil && n > *f.max {
		return nil, fmt.Errorf("ensure this value is less than or equal to %v", *f.max)
	}
	if err := f.runValidators(n); err != nil {
		return nil, err
	}
	return n, nil
}

// Boolean cleans checkbox input. Unchecked boxes submit nothing, so an empty
// optional value cleans to false rather than nil.
type Boolean struct {
	Base
}

// NewBoolean constructs a boolean field.
func NewBoolean(options []Option) *Boolean {
	return &Boolean{Base: newBase(WidgetCheckbox, options)}
}

// Clean implements Field.
func (b *Boolean) Clean(_ context.Context, value any) (any, error) {
	if IsEmpty(value) {
		if b.required {
			return nil, ErrRequired
		}
		return false, nil
	}
	v, err := coerceBool(value)
	if err != nil {
		return nil, err
	}
	if b.required && !v {
		return nil, ErrRequired
	}
	if err := b.runValidators(v); err != nil {
		return nil, err
	}
	return v, nil
}

// DateTime cleans timestamp input against a list of accepted layouts.
type DateTime struct {
	Base
	layouts []string
}

var defaultDateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// NewDateTime constructs a datetime field. Passing no layouts uses the
// defaults (RFC 3339, datetime-local, date-only).
func NewDateTime(options []Option, layouts ...string) *DateTime {
	dt := &DateTime{Base: newBase(WidgetDateTime, options), layouts: layouts}
	if len(dt.layouts) == 0 {
		dt.layouts = defaultDateTimeLayouts
	}
	return dt
}

// Clean implements Field.
func (d *DateTime) Clean(_ context.Context, value any) (any, error) {
	if done, err := d.checkEmpty(value); done {
		return nil, err
	}
	if t, ok := value.(time.Time); ok {
		if err := d.runValidators(t); err != nil {
			return nil, err
		}
		return t, nil
	}
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("expected datetime, got %T", value)
	}
	for _, layout := range d.layouts {
		if t, err := time.Parse(layout, s); err == nil {
			if err := d.runValidators(t); err != nil {
				return nil, err
			}
			return t, nil
		}
	}
	return nil, fmt.Errorf("enter a valid date/time")
}

func coerceInt(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("enter a whole number")
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", value)
	}
}

func coerceFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("enter a number")
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected number, got %T", value)
	}
}

func coerceBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "on", "1", "yes":
			return true, nil
		case "false", "off", "0", "no", "":
			return false, nil
		}
		return false, fmt.Errorf("enter a valid boolean value")
	default:
		return false, fmt.Errorf("expected boolean, got %T", value)
	}
}
