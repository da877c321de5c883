package openapi

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-docforms/pkg/schema"
)

// Import loads an OpenAPI payload and converts its component schemas into
// document declarations. Object schemas become collection-backed documents
// named after the component; declarations the conversion cannot express are
// reported, not skipped silently.
func Import(ctx context.Context, raw []byte) ([]*schema.Document, error) {
	if len(raw) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}

	loader := &openapi3.Loader{Context: ctx}
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if spec.Components == nil || len(spec.Components.Schemas) == 0 {
		return nil, errors.New("openapi: document declares no component schemas")
	}

	docs := make([]*schema.Document, 0, len(spec.Components.Schemas))
	for name, ref := range spec.Components.Schemas {
		if ref == nil || ref.Value == nil || !ref.Value.Type.Is("object") {
			continue
		}
		doc, err := importDocument(name, ref.Value)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return nil, errors.New("openapi: no object component schemas found")
	}
	return docs, nil
}

func importDocument(name string, value *openapi3.Schema) (*schema.Document, error) {
	required := make(map[string]struct{}, len(value.Required))
	for _, field := range value.Required {
		required[field] = struct{}{}
	}

	fields := make([]schema.Field, 0, len(value.Properties))
	for propName, prop := range value.Properties {
		field, err := importField(propName, prop)
		if err != nil {
			return nil, fmt.Errorf("openapi: component %s property %s: %w", name, propName, err)
		}
		_, field.Required = required[propName]
		fields = append(fields, field)
	}

	return schema.New(name, strings.ToLower(name), fields...)
}

func importField(name string, ref *openapi3.SchemaRef) (schema.Field, error) {
	if ref == nil || ref.Value == nil {
		return schema.Field{}, errors.New("property has no schema")
	}
	value := ref.Value

	field := schema.Field{
		Name:     name,
		HelpText: value.Description,
		Default:  value.Default,
	}
	if value.Pattern != "" {
		field.Pattern = value.Pattern
	}

	switch {
	case value.Type.Is("string"):
		switch value.Format {
		case "email":
			field.Kind = schema.KindEmail
		case "uri":
			field.Kind = schema.KindURL
		case "date-time", "date":
			field.Kind = schema.KindDateTime
		case "binary":
			field.Kind = schema.KindFile
		default:
			field.Kind = schema.KindString
			if value.MinLength > 0 {
				minLen := int(value.MinLength)
				field.MinLength = &minLen
			}
			if value.MaxLength != nil {
				maxLen := int(*value.MaxLength)
				field.MaxLength = &maxLen
			}
		}
	case value.Type.Is("integer"):
		field.Kind = schema.KindInt
		field.Min = value.Min
		field.Max = value.Max
	case value.Type.Is("number"):
		field.Kind = schema.KindFloat
		field.Min = value.Min
		field.Max = value.Max
	case value.Type.Is("boolean"):
		field.Kind = schema.KindBool
	case value.Type.Is("array"):
		elem, err := importField(name, value.Items)
		if err != nil {
			return schema.Field{}, err
		}
		field.Kind = schema.KindList
		field.Elem = &elem
	default:
		return schema.Field{}, fmt.Errorf("unsupported property type %v", value.Type)
	}

	for _, enum := range value.Enum {
		field.Choices = append(field.Choices, schema.Choice{
			Value: enum,
			Label: fmt.Sprint(enum),
		})
	}
	return field, nil
}
