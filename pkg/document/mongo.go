package document

import (
	"context"
	"fmt"

	"github.com/goliatone/go-docforms/pkg/schema"
	"github.com/goliatone/go-docforms/pkg/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore persists documents to MongoDB collections, with file fields
// committed to a GridFS bucket on the same database.
type MongoStore struct {
	db    *mongo.Database
	files storage.Backend
}

// NewMongoStore wraps a database handle. File fields use a GridFS bucket
// with the driver's default name.
func NewMongoStore(db *mongo.Database) (*MongoStore, error) {
	if db == nil {
		return nil, fmt.Errorf("document: mongo database is required")
	}
	files, err := storage.NewGridFSBucket(db, "")
	if err != nil {
		return nil, err
	}
	return &MongoStore{db: db, files: files}, nil
}

// Files implements Store.
func (s *MongoStore) Files() storage.Backend { return s.files }

// Save implements Store. Duplicate key errors from unique indexes are
// wrapped so errors.Is(err, ErrDuplicateKey) holds.
func (s *MongoStore) Save(ctx context.Context, inst *Instance) error {
	doc := inst.Schema()
	if !doc.Savable() {
		return fmt.Errorf("document: save %s: %w", doc.Name, ErrNotSavable)
	}
	id := inst.EnsureID()
	payload := bson.M(encodeValues(doc, inst.values))

	coll := s.db.Collection(doc.Collection)
	_, err := coll.ReplaceOne(ctx, bson.M{doc.IDField: id}, payload, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("document: save %s: %v: %w", doc.Name, err, ErrDuplicateKey)
		}
		return fmt.Errorf("document: save %s: %w", doc.Name, err)
	}
	inst.MarkSaved()
	return nil
}

// Delete implements Store.
func (s *MongoStore) Delete(ctx context.Context, inst *Instance) error {
	doc := inst.Schema()
	if !doc.Savable() {
		return fmt.Errorf("document: delete %s: %w", doc.Name, ErrNotSavable)
	}
	id := inst.ID()
	if id == nil {
		return ErrNotFound
	}
	res, err := s.db.Collection(doc.Collection).DeleteOne(ctx, bson.M{doc.IDField: id})
	if err != nil {
		return fmt.Errorf("document: delete %s: %w", doc.Name, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Find implements Store.
func (s *MongoStore) Find(ctx context.Context, doc *schema.Document, filter map[string]any) ([]*Instance, error) {
	query := bson.M{}
	for name, value := range filter {
		if name == "pk" {
			name = doc.IDField
		}
		if name == doc.IDField {
			value = normalizeID(value)
		}
		query[name] = value
	}

	cursor, err := s.db.Collection(doc.Collection).Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("document: find %s: %w", doc.Name, err)
	}
	defer cursor.Close(ctx)

	var out []*Instance
	for cursor.Next(ctx) {
		raw := bson.M{}
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("document: decode %s: %w", doc.Name, err)
		}
		out = append(out, Hydrate(doc, decodeValues(doc, raw, s.files)))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("document: find %s: %w", doc.Name, err)
	}
	return out, nil
}

// normalizeID coerces hex strings into ObjectIDs so URL parameters can be
// matched against stored identifiers.
func normalizeID(value any) any {
	if s, ok := value.(string); ok {
		if oid, err := primitive.ObjectIDFromHex(s); err == nil {
			return oid
		}
	}
	return value
}

// IDString renders an identifier as the string form used in URLs and form
// values: ObjectIDs as their hex, everything else via fmt.
func IDString(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
