// Package openapi maps document schemas to and from OpenAPI 3 documents, so
// a form-backed document type can publish its shape to API tooling and be
// declared from an existing specification.
package openapi

import (
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-docforms/pkg/schema"
)

// Export builds an OpenAPI document describing the given document types: one
// component schema per document plus CRUD paths for every document with a
// collection.
func Export(title, version string, docs ...*schema.Document) (*openapi3.T, error) {
	spec := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   title,
			Version: version,
		},
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{},
		},
		Paths: openapi3.NewPaths(),
	}

	for _, doc := range docs {
		if doc == nil {
			continue
		}
		component, err := documentSchema(doc)
		if err != nil {
			return nil, err
		}
		spec.Components.Schemas[doc.Name] = openapi3.NewSchemaRef("", component)
		if doc.Savable() {
			addCRUDPaths(spec, doc)
		}
	}
	return spec, nil
}

// documentSchema converts one document declaration into an object schema.
func documentSchema(doc *schema.Document) (*openapi3.Schema, error) {
	out := openapi3.NewObjectSchema()
	out.Properties = openapi3.Schemas{}

	var required []string
	for _, f := range doc.Fields {
		prop, err := fieldSchema(&f)
		if err != nil {
			return nil, fmt.Errorf("openapi: document %s field %s: %w", doc.Name, f.Name, err)
		}
		out.Properties[f.Name] = prop
		if f.Required {
			required = append(required, f.Name)
		}
	}
	out.Required = required
	return out, nil
}

// fieldSchema maps a field declaration onto an OpenAPI property. Embedded
// documents become referenced component schemas; everything else maps to a
// primitive with validation attributes carried over.
func fieldSchema(f *schema.Field) (*openapi3.SchemaRef, error) {
	var prop *openapi3.Schema

	switch f.Kind {
	case schema.KindString:
		prop = openapi3.NewStringSchema()
		if f.Pattern != "" {
			prop.Pattern = f.Pattern
		}
		if f.MinLength != nil {
			prop.MinLength = uint64(*f.MinLength)
		}
		if f.MaxLength != nil {
			maxLen := uint64(*f.MaxLength)
			prop.MaxLength = &maxLen
		}
	case schema.KindEmail:
		prop = openapi3.NewStringSchema().WithFormat("email")
	case schema.KindURL:
		prop = openapi3.NewStringSchema().WithFormat("uri")
	case schema.KindInt, schema.KindSequence:
		prop = openapi3.NewInt64Schema()
		applyBounds(prop, f)
	case schema.KindFloat, schema.KindDecimal:
		prop = openapi3.NewFloat64Schema()
		applyBounds(prop, f)
	case schema.KindBool:
		prop = openapi3.NewBoolSchema()
	case schema.KindDateTime:
		prop = openapi3.NewDateTimeSchema()
	case schema.KindObjectID:
		prop = objectIDSchema()
	case schema.KindReference:
		prop = objectIDSchema()
		if f.Ref != nil {
			prop.Description = "identifier of a " + f.Ref.Name
		}
	case schema.KindEmbedded:
		if f.Embedded == nil {
			return nil, fmt.Errorf("embedded field has no schema")
		}
		return openapi3.NewSchemaRef("#/components/schemas/"+f.Embedded.Name, nil), nil
	case schema.KindList:
		if f.Elem == nil {
			return nil, fmt.Errorf("list field has no element declaration")
		}
		elem, err := fieldSchema(f.Elem)
		if err != nil {
			return nil, err
		}
		prop = openapi3.NewArraySchema()
		prop.Items = elem
	case schema.KindFile, schema.KindImage:
		prop = openapi3.NewStringSchema().WithFormat("binary")
	default:
		return nil, fmt.Errorf("unsupported field kind %q", f.Kind)
	}

	if f.HelpText != "" && prop.Description == "" {
		prop.Description = f.HelpText
	}
	if f.Default != nil {
		prop.Default = f.Default
	}
	if f.HasChoices() {
		values := make([]any, 0, len(f.Choices))
		for _, choice := range f.Choices {
			values = append(values, choice.Value)
		}
		prop.Enum = values
	}
	return openapi3.NewSchemaRef("", prop), nil
}

func applyBounds(prop *openapi3.Schema, f *schema.Field) {
	if f.Min != nil {
		prop.Min = f.Min
	}
	if f.Max != nil {
		prop.Max = f.Max
	}
}

func objectIDSchema() *openapi3.Schema {
	prop := openapi3.NewStringSchema()
	prop.Pattern = "^[a-f\\d]{24}$"
	return prop
}

// addCRUDPaths declares list/create and fetch/update/delete operations for a
// collection-backed document.
func addCRUDPaths(spec *openapi3.T, doc *schema.Document) {
	name := strings.ToLower(doc.Name)
	ref := openapi3.NewSchemaRef("#/components/schemas/"+doc.Name, nil)

	okResponse := func(description string) *openapi3.Response {
		return openapi3.NewResponse().
			WithDescription(description).
			WithJSONSchemaRef(ref)
	}
	listResponse := openapi3.NewResponse().
		WithDescription("matching "+doc.Name+" documents").
		WithJSONSchemaRef(openapi3.NewSchemaRef("", &openapi3.Schema{
			Type:  &openapi3.Types{"array"},
			Items: ref,
		}))
	body := openapi3.NewRequestBody().WithJSONSchemaRef(ref)

	collection := &openapi3.PathItem{
		Get: &openapi3.Operation{
			OperationID: "list" + doc.Name,
			Responses:   responses("200", listResponse),
		},
		Post: &openapi3.Operation{
			OperationID: "create" + doc.Name,
			RequestBody: &openapi3.RequestBodyRef{Value: body},
			Responses:   responses("201", okResponse("created "+doc.Name)),
		},
	}

	idParam := &openapi3.ParameterRef{
		Value: openapi3.NewPathParameter("id").WithSchema(objectIDSchema()),
	}
	item := &openapi3.PathItem{
		Parameters: openapi3.Parameters{idParam},
		Get: &openapi3.Operation{
			OperationID: "get" + doc.Name,
			Responses:   responses("200", okResponse("the "+doc.Name)),
		},
		Put: &openapi3.Operation{
			OperationID: "update" + doc.Name,
			RequestBody: &openapi3.RequestBodyRef{Value: body},
			Responses:   responses("200", okResponse("updated "+doc.Name)),
		},
		Delete: &openapi3.Operation{
			OperationID: "delete" + doc.Name,
			Responses:   responses("204", openapi3.NewResponse().WithDescription("deleted")),
		},
	}

	spec.Paths.Set("/"+name, collection)
	spec.Paths.Set("/"+name+"/{id}", item)
}

func responses(status string, response *openapi3.Response) *openapi3.Responses {
	out := openapi3.NewResponses()
	out.Set(status, &openapi3.ResponseRef{Value: response})
	return out
}
