// Package storage handles uploaded file payloads for document file fields:
// collision-free filenames, clearable uploads and the commit step that runs
// after a document write succeeds.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrNotFound is returned when a stored file does not exist.
var ErrNotFound = errors.New("storage: file not found")

// Clear is the sentinel submitted by a clearable file widget when the user
// ticks the clear checkbox. Committing a field holding Clear deletes the
// currently stored file.
type ClearSentinel struct{}

// Clear is the shared sentinel value.
var Clear = ClearSentinel{}

// Upload is an uploaded file payload captured from a multipart request.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64

	// Content must support seeking so commits can re-read from the start.
	Content io.ReadSeeker
}

// Backend abstracts the file store a document's file fields write to. GridFS
// satisfies this through GridFSBackend; tests use Memory.
type Backend interface {
	// Exists reports whether a file is stored under the given filename.
	Exists(ctx context.Context, filename string) (bool, error)

	// Put stores content under filename and returns the storage identifier.
	Put(ctx context.Context, filename, contentType string, r io.Reader) (any, error)

	// Open returns a reader over the named file's content.
	Open(ctx context.Context, filename string) (io.ReadCloser, error)

	// Delete removes the named file. Deleting a missing file returns
	// ErrNotFound.
	Delete(ctx context.Context, filename string) error
}

// FileRef is the stored-file proxy held in a document's file field. It
// records where the content lives so widgets can render existing metadata
// and commits can replace or delete it.
type FileRef struct {
	Backend     Backend
	Filename    string
	ContentType string
	ID          any
}

// IsStored reports whether the ref points at stored content.
func (r *FileRef) IsStored() bool {
	return r != nil && r.Filename != ""
}

// Get opens the stored content.
func (r *FileRef) Get(ctx context.Context) (io.ReadCloser, error) {
	if !r.IsStored() {
		return nil, ErrNotFound
	}
	return r.Backend.Open(ctx, r.Filename)
}

// Delete removes the stored content and clears the ref.
func (r *FileRef) Delete(ctx context.Context) error {
	if !r.IsStored() {
		return nil
	}
	if err := r.Backend.Delete(ctx, r.Filename); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	r.Filename = ""
	r.ContentType = ""
	r.ID = nil
	return nil
}

// Replace deletes any stored content and writes the upload under a
// collision-free name, re-reading the payload from the start and keeping its
// declared content type.
func (r *FileRef) Replace(ctx context.Context, up *Upload) error {
	if r == nil || r.Backend == nil {
		return errors.New("storage: file ref has no backend")
	}
	if up == nil || up.Content == nil {
		return errors.New("storage: upload payload is required")
	}
	if err := r.Delete(ctx); err != nil {
		return err
	}
	name, err := UniqueFilename(ctx, r.Backend, up.Filename)
	if err != nil {
		return err
	}
	if _, err := up.Content.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("storage: rewind upload: %w", err)
	}
	id, err := r.Backend.Put(ctx, name, up.ContentType, up.Content)
	if err != nil {
		return fmt.Errorf("storage: store %q: %w", name, err)
	}
	r.Filename = name
	r.ContentType = up.ContentType
	r.ID = id
	return nil
}

// UniqueFilename resolves filename collisions against live backend state:
// while the desired name is taken, an incrementing numeric suffix is inserted
// before the extension until a free name is found.
func UniqueFilename(ctx context.Context, backend Backend, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("storage: filename is required")
	}
	ext := path.Ext(name)
	root := strings.TrimSuffix(name, ext)
	candidate := name
	for count := 1; ; count++ {
		taken, err := backend.Exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("storage: check %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d%s", root, count, ext)
	}
}

// Commit applies a cleaned file-field value to the field's stored ref. The
// Clear sentinel deletes stored content; an Upload replaces it; nil is a
// no-op (no new payload submitted).
func Commit(ctx context.Context, ref *FileRef, value any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case ClearSentinel, *ClearSentinel:
		return ref.Delete(ctx)
	case *Upload:
		return ref.Replace(ctx, v)
	case Upload:
		return ref.Replace(ctx, &v)
	default:
		return fmt.Errorf("storage: unsupported file field value %T", value)
	}
}
