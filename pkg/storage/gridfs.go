package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GridFS adapts a GridFS bucket to the Backend interface. Content types are
// kept in the file document's metadata under "contentType".
type GridFS struct {
	bucket *gridfs.Bucket
}

// NewGridFS wraps an existing bucket.
func NewGridFS(bucket *gridfs.Bucket) *GridFS {
	return &GridFS{bucket: bucket}
}

// NewGridFSBucket creates a bucket on the database and wraps it. An empty
// name uses the driver default ("fs").
func NewGridFSBucket(db *mongo.Database, name string) (*GridFS, error) {
	opts := options.GridFSBucket()
	if name != "" {
		opts = opts.SetName(name)
	}
	bucket, err := gridfs.NewBucket(db, opts)
	if err != nil {
		return nil, fmt.Errorf("storage: create gridfs bucket: %w", err)
	}
	return &GridFS{bucket: bucket}, nil
}

func (g *GridFS) applyDeadline(ctx context.Context) {
	if deadline, ok := ctx.Deadline(); ok {
		g.bucket.SetReadDeadline(deadline)
		g.bucket.SetWriteDeadline(deadline)
	}
}

// Exists implements Backend.
func (g *GridFS) Exists(ctx context.Context, filename string) (bool, error) {
	g.applyDeadline(ctx)
	cursor, err := g.bucket.Find(bson.M{"filename": filename}, options.GridFSFind().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("storage: gridfs find: %w", err)
	}
	defer cursor.Close(ctx)
	return cursor.Next(ctx), nil
}

// Put implements Backend.
func (g *GridFS) Put(ctx context.Context, filename, contentType string, r io.Reader) (any, error) {
	g.applyDeadline(ctx)
	opts := options.GridFSUpload()
	if contentType != "" {
		opts = opts.SetMetadata(bson.M{"contentType": contentType})
	}
	id, err := g.bucket.UploadFromStream(filename, r, opts)
	if err != nil {
		return nil, fmt.Errorf("storage: gridfs upload: %w", err)
	}
	return id, nil
}

// Open implements Backend.
func (g *GridFS) Open(ctx context.Context, filename string) (io.ReadCloser, error) {
	g.applyDeadline(ctx)
	stream, err := g.bucket.OpenDownloadStreamByName(filename)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: gridfs open: %w", err)
	}
	return stream, nil
}

// Delete removes every revision stored under filename.
func (g *GridFS) Delete(ctx context.Context, filename string) error {
	g.applyDeadline(ctx)
	cursor, err := g.bucket.Find(bson.M{"filename": filename})
	if err != nil {
		return fmt.Errorf("storage: gridfs find: %w", err)
	}
	defer cursor.Close(ctx)

	deleted := false
	for cursor.Next(ctx) {
		var file struct {
			ID any `bson:"_id"`
		}
		if err := cursor.Decode(&file); err != nil {
			return fmt.Errorf("storage: gridfs decode: %w", err)
		}
		if err := g.bucket.Delete(file.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return fmt.Errorf("storage: gridfs delete: %w", err)
		}
		deleted = true
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("storage: gridfs cursor: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}
