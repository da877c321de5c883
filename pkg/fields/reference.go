package fields

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-docforms/pkg/document"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IDCoercer converts a posted identifier string into the referenced
// document's identifier type.
type IDCoercer func(raw string) (any, error)

// ObjectIDCoercer parses hex ObjectIDs, the default identifier space.
func ObjectIDCoercer(raw string) (any, error) {
	oid, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, fmt.Errorf("%q is not a valid document id", raw)
	}
	return oid, nil
}

// IntIDCoercer parses integer identifiers (sequence fields).
func IntIDCoercer(raw string) (any, error) {
	n, err := coerceInt(raw)
	if err != nil {
		return nil, fmt.Errorf("%q is not a valid document id", raw)
	}
	return n, nil
}

// Reference resolves a posted identifier to an existing document instance.
// The clean step queries a clone of the configured query set, so a missing
// referenced document is a validation failure, not a panic at save time.
type Reference struct {
	Base
	queryset *document.QuerySet
	coerce   IDCoercer
}

// NewReference constructs a reference field over a query set. A nil coercer
// defaults to ObjectID identifiers.
func NewReference(qs *document.QuerySet, coerce IDCoercer, options []Option) *Reference {
	r := &Reference{
		Base:     newBase(WidgetSelect, options),
		queryset: qs,
		coerce:   coerce,
	}
	if r.coerce == nil {
		r.coerce = ObjectIDCoercer
	}
	return r
}

// QuerySet returns the configured query set, cloned so callers cannot mutate
// the shared default.
func (r *Reference) QuerySet() *document.QuerySet {
	if r.queryset == nil {
		return nil
	}
	return r.queryset.Clone()
}

// Clean implements Field.
func (r *Reference) Clean(ctx context.Context, value any) (any, error) {
	if done, err := r.checkEmpty(value); done {
		return nil, err
	}
	if inst, ok := value.(*document.Instance); ok {
		return inst, nil
	}
	raw, ok := value.(string)
	if !ok {
		raw = fmt.Sprint(value)
	}
	id, err := r.coerce(raw)
	if err != nil {
		return nil, err
	}
	if r.queryset == nil {
		return nil, fmt.Errorf("reference field has no query set configured")
	}
	inst, err := r.queryset.Clone().Filter("pk", id).Get(ctx)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			return nil, fmt.Errorf("select a valid choice; %v is not one of the available choices", raw)
		}
		return nil, err
	}
	if err := r.runValidators(inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// MultiReference resolves a list of posted identifiers to document
// instances, failing when any identifier has no match.
type MultiReference struct {
	Base
	queryset *document.QuerySet
	coerce   IDCoercer
}

// NewMultiReference constructs a multi-select reference field.
func NewMultiReference(qs *document.QuerySet, coerce IDCoercer, options []Option) *MultiReference {
	m := &MultiReference{
		Base:     newBase(WidgetSelectMulti, options),
		queryset: qs,
		coerce:   coerce,
	}
	if m.coerce == nil {
		m.coerce = ObjectIDCoercer
	}
	return m
}

// QuerySet returns a clone of the configured query set.
func (m *MultiReference) QuerySet() *document.QuerySet {
	if m.queryset == nil {
		return nil
	}
	return m.queryset.Clone()
}

// Clean implements Field.
func (m *MultiReference) Clean(ctx context.Context, value any) (any, error) {
	if IsEmpty(value) {
		if m.required {
			return nil, ErrRequired
		}
		return []*document.Instance{}, nil
	}
	raws, err := asStringSlice(value)
	if err != nil {
		return nil, err
	}
	if m.queryset == nil {
		return nil, fmt.Errorf("reference field has no query set configured")
	}
	out := make([]*document.Instance, 0, len(raws))
	for _, raw := range raws {
		id, err := m.coerce(raw)
		if err != nil {
			return nil, err
		}
		inst, err := m.queryset.Clone().Filter("pk", id).Get(ctx)
		if err != nil {
			if errors.Is(err, document.ErrNotFound) {
				return nil, fmt.Errorf("select a valid choice; %v is not one of the available choices", raw)
			}
			return nil, err
		}
		out = append(out, inst)
	}
	if err := m.runValidators(out); err != nil {
		return nil, err
	}
	return out, nil
}
