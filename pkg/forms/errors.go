package forms

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalid is returned by Save when the bound data did not validate.
// Validation detail stays in the form's error mapping; this error only
// signals that no write happened.
var ErrInvalid = errors.New("forms: the document could not be saved because the data didn't validate")

// ConfigError is a developer-facing configuration fault: a missing document,
// an unresolved schema field, an unsupported parent-field kind. It is never
// recovered into the form error mapping.
type ConfigError struct {
	msg string
}

// Error implements the error interface.
func (e *ConfigError) Error() string { return "forms: " + e.msg }

func configErrorf(format string, args ...any) error {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

// IsConfigError reports whether err is a configuration fault.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// Errors collects validation failures keyed by field name, plus a non-field
// bucket for failures with no associated field.
type Errors struct {
	fields   map[string][]string
	nonField []string
}

// NewErrors constructs an empty error mapping.
func NewErrors() *Errors {
	return &Errors{fields: make(map[string][]string)}
}

// Add appends a message to the named field's error list.
func (e *Errors) Add(field, message string) {
	if message == "" {
		return
	}
	e.fields[field] = append(e.fields[field], message)
}

// AddNonField appends a message to the non-field bucket.
func (e *Errors) AddNonField(message string) {
	if message == "" {
		return
	}
	e.nonField = append(e.nonField, message)
}

// Field returns the error messages recorded for a field.
func (e *Errors) Field(name string) []string {
	if e == nil {
		return nil
	}
	return e.fields[name]
}

// NonField returns the non-field error messages.
func (e *Errors) NonField() []string {
	if e == nil {
		return nil
	}
	return e.nonField
}

// Has reports whether any error was recorded.
func (e *Errors) Has() bool {
	return e != nil && (len(e.fields) > 0 || len(e.nonField) > 0)
}

// HasField reports whether the named field has errors.
func (e *Errors) HasField(name string) bool {
	return e != nil && len(e.fields[name]) > 0
}

// FieldNames returns the names with recorded errors, sorted.
func (e *Errors) FieldNames() []string {
	if e == nil {
		return nil
	}
	names := make([]string, 0, len(e.fields))
	for name := range e.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
