package document

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-docforms/pkg/schema"
	"github.com/goliatone/go-docforms/pkg/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ValidationError aggregates document-level validation failures. Field keys
// map to a message; Message carries a failure not tied to any field.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	parts := make([]string, 0, len(e.Fields)+1)
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	if len(parts) == 0 {
		return "document: validation failed"
	}
	return "document: validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

func (e *ValidationError) empty() bool {
	return e.Message == "" && len(e.Fields) == 0
}

// Validate checks the instance's values against its schema: required-ness,
// choice membership, string and numeric constraints, embedded documents and
// declared validators. Fields listed in exclude are skipped entirely. The
// document's Clean hook is not run here; callers sequence it separately.
func (in *Instance) Validate(exclude ...string) error {
	skip := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		skip[name] = struct{}{}
	}

	verr := &ValidationError{}
	for _, f := range in.doc.Fields {
		if _, excluded := skip[f.Name]; excluded {
			continue
		}
		value := in.values[f.Name]
		if IsEmpty(value) {
			if f.Required {
				verr.add(f.Name, "field is required")
			}
			continue
		}
		if msg := validateValue(f, value); msg != "" {
			verr.add(f.Name, msg)
			continue
		}
		if err := f.Validate(value); err != nil {
			verr.add(f.Name, err.Error())
		}
	}

	if verr.empty() {
		return nil
	}
	return verr
}

func validateValue(f schema.Field, value any) string {
	if f.HasChoices() {
		if !choiceAllowed(f.Choices, value) {
			return fmt.Sprintf("value %v is not a valid choice", value)
		}
	}

	switch f.Kind {
	case schema.KindString, schema.KindEmail, schema.KindURL:
		s, ok := value.(string)
		if !ok {
			return fmt.Sprintf("expected string, got %T", value)
		}
		if f.MinLength != nil && len(s) < *f.MinLength {
			return fmt.Sprintf("value is shorter than %d characters", *f.MinLength)
		}
		if f.MaxLength != nil && len(s) > *f.MaxLength {
			return fmt.Sprintf("value is longer than %d characters", *f.MaxLength)
		}
		if f.Pattern != "" {
			re, err := regexp.Compile(f.Pattern)
			if err != nil {
				return fmt.Sprintf("invalid pattern %q", f.Pattern)
			}
			if !re.MatchString(s) {
				return fmt.Sprintf("value does not match pattern %s", f.Pattern)
			}
		}
	case schema.KindInt, schema.KindSequence:
		n, ok := asInt64(value)
		if !ok {
			return fmt.Sprintf("expected integer, got %T", value)
		}
		if f.Min != nil && float64(n) < *f.Min {
			return fmt.Sprintf("value is less than %v", *f.Min)
		}
		if f.Max != nil && float64(n) > *f.Max {
			return fmt.Sprintf("value is greater than %v", *f.Max)
		}
	case schema.KindFloat, schema.KindDecimal:
		n, ok := asFloat64(value)
		if !ok {
			return fmt.Sprintf("expected number, got %T", value)
		}
		if f.Min != nil && n < *f.Min {
			return fmt.Sprintf("value is less than %v", *f.Min)
		}
		if f.Max != nil && n > *f.Max {
			return fmt.Sprintf("value is greater than %v", *f.Max)
		}
	case schema.KindBool:
		if _, ok := value.(bool); !ok {
			return fmt.Sprintf("expected boolean, got %T", value)
		}
	case schema.KindDateTime:
		if _, ok := value.(time.Time); !ok {
			return fmt.Sprintf("expected datetime, got %T", value)
		}
	case schema.KindReference:
		switch value.(type) {
		case *Instance, primitive.ObjectID, string, int, int64:
		default:
			return fmt.Sprintf("expected document reference, got %T", value)
		}
	case schema.KindEmbedded:
		child, ok := value.(*Instance)
		if !ok {
			return fmt.Sprintf("expected embedded document, got %T", value)
		}
		if err := child.Validate(); err != nil {
			return err.Error()
		}
	case schema.KindList:
		return validateList(f, value)
	case schema.KindFile, schema.KindImage:
		switch value.(type) {
		case *storage.FileRef, *storage.Upload, storage.ClearSentinel:
		default:
			return fmt.Sprintf("expected file value, got %T", value)
		}
	}
	return ""
}

func validateList(f schema.Field, value any) string {
	if f.Elem == nil {
		return ""
	}
	switch items := value.(type) {
	case []*Instance:
		if f.Elem.Kind != schema.KindEmbedded {
			return fmt.Sprintf("unexpected embedded list for %s element", f.Elem.Kind)
		}
		for _, item := range items {
			if err := item.Validate(); err != nil {
				return err.Error()
			}
		}
	case []any:
		for _, item := range items {
			if msg := validateValue(*f.Elem, item); msg != "" {
				return msg
			}
		}
	}
	return ""
}

func choiceAllowed(choices []schema.Choice, value any) bool {
	// List values are checked per element.
	if items, ok := value.([]any); ok {
		for _, item := range items {
			if !choiceAllowed(choices, item) {
				return false
			}
		}
		return true
	}
	for _, c := range choices {
		if c.Value == value {
			return true
		}
		if fmt.Sprint(c.Value) == fmt.Sprint(value) {
			return true
		}
	}
	return false
}

// IsEmpty reports whether a value counts as empty for required-ness and
// optional-field exclusion: nil, empty string, empty slice or empty map.
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case []*Instance:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	case *storage.FileRef:
		return v == nil || !v.IsStored()
	default:
		return false
	}
}

func asInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}

func asFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
