package document

import (
	"github.com/goliatone/go-docforms/pkg/schema"
	"github.com/goliatone/go-docforms/pkg/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// encodeValues flattens instance values into plain maps suitable for
// persistence: embedded instances become nested maps, references collapse to
// their identifier, file refs keep filename/content-type/id metadata.
func encodeValues(doc *schema.Document, values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for name, value := range values {
		f, ok := doc.Field(name)
		if !ok {
			if name == doc.IDField {
				out[name] = value
			}
			continue
		}
		out[name] = encodeValue(f, value)
	}
	return out
}

func encodeValue(f schema.Field, value any) any {
	if value == nil {
		return nil
	}
	switch f.Kind {
	case schema.KindEmbedded:
		if child, ok := value.(*Instance); ok {
			return encodeValues(child.doc, child.values)
		}
	case schema.KindReference:
		if ref, ok := value.(*Instance); ok {
			return ref.ID()
		}
	case schema.KindFile, schema.KindImage:
		if ref, ok := value.(*storage.FileRef); ok {
			return map[string]any{
				"filename":    ref.Filename,
				"contentType": ref.ContentType,
				"id":          ref.ID,
			}
		}
	case schema.KindList:
		if f.Elem == nil {
			return value
		}
		switch items := value.(type) {
		case []*Instance:
			encoded := make([]any, 0, len(items))
			for _, item := range items {
				encoded = append(encoded, encodeValue(*f.Elem, item))
			}
			return encoded
		case []any:
			encoded := make([]any, 0, len(items))
			for _, item := range items {
				encoded = append(encoded, encodeValue(*f.Elem, item))
			}
			return encoded
		}
	}
	return value
}

// decodeValues rebuilds instance values from persisted maps, reattaching
// schemas to embedded documents and file backends to stored file refs.
func decodeValues(doc *schema.Document, raw map[string]any, files storage.Backend) map[string]any {
	out := make(map[string]any, len(raw))
	for name, value := range raw {
		f, ok := doc.Field(name)
		if !ok {
			if name == doc.IDField {
				out[name] = value
			}
			continue
		}
		out[name] = decodeValue(f, value, files)
	}
	return out
}

func decodeValue(f schema.Field, value any, files storage.Backend) any {
	if value == nil {
		return nil
	}
	switch f.Kind {
	case schema.KindEmbedded:
		if f.Embedded == nil {
			return value
		}
		if raw, ok := asRawMap(value); ok {
			return Hydrate(f.Embedded, decodeValues(f.Embedded, raw, files))
		}
	case schema.KindFile, schema.KindImage:
		if raw, ok := asRawMap(value); ok {
			filename, _ := raw["filename"].(string)
			if filename == "" {
				return nil
			}
			contentType, _ := raw["contentType"].(string)
			return &storage.FileRef{
				Backend:     files,
				Filename:    filename,
				ContentType: contentType,
				ID:          raw["id"],
			}
		}
	case schema.KindList:
		if f.Elem == nil {
			return value
		}
		items, ok := asRawSlice(value)
		if !ok {
			return value
		}
		if f.Elem.Kind == schema.KindEmbedded {
			decoded := make([]*Instance, 0, len(items))
			for _, item := range items {
				if child, ok := decodeValue(*f.Elem, item, files).(*Instance); ok {
					decoded = append(decoded, child)
				}
			}
			return decoded
		}
		decoded := make([]any, 0, len(items))
		for _, item := range items {
			decoded = append(decoded, decodeValue(*f.Elem, item, files))
		}
		return decoded
	}
	return value
}

func asRawMap(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case primitive.M:
		return map[string]any(v), true
	case primitive.D:
		return v.Map(), true
	default:
		return nil, false
	}
}

func asRawSlice(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case primitive.A:
		return []any(v), true
	default:
		return nil, false
	}
}
