package storage

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"
)

func TestUniqueFilenameAppendsSuffixes(t *testing.T) {
	ctx := context.Background()
	backend := NewMemory()

	name, err := UniqueFilename(ctx, backend, "report.pdf")
	if err != nil {
		t.Fatalf("unique filename: %v", err)
	}
	if name != "report.pdf" {
		t.Fatalf("expected free name to pass through, got %q", name)
	}

	if _, err := backend.Put(ctx, "report.pdf", "application/pdf", strings.NewReader("one")); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	name, err = UniqueFilename(ctx, backend, "report.pdf")
	if err != nil {
		t.Fatalf("unique filename: %v", err)
	}
	if name != "report_1.pdf" {
		t.Fatalf("expected first suffix, got %q", name)
	}

	if _, err := backend.Put(ctx, "report_1.pdf", "application/pdf", strings.NewReader("two")); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	name, err = UniqueFilename(ctx, backend, "report.pdf")
	if err != nil {
		t.Fatalf("unique filename: %v", err)
	}
	if name != "report_2.pdf" {
		t.Fatalf("expected second suffix, got %q", name)
	}
}

func TestUniqueFilenameRequiresName(t *testing.T) {
	if _, err := UniqueFilename(context.Background(), NewMemory(), "  "); err == nil {
		t.Fatal("expected an error for a blank filename")
	}
}

func TestReplaceKeepsContentTypeAndRewinds(t *testing.T) {
	ctx := context.Background()
	backend := NewMemory()
	ref := &FileRef{Backend: backend}

	up := &Upload{
		Filename:    "avatar.png",
		ContentType: "image/png",
		Content:     strings.NewReader("pixels"),
	}
	// Simulate a prior partial read; Replace must rewind.
	if _, err := io.CopyN(io.Discard, up.Content, 3); err != nil {
		t.Fatalf("advance reader: %v", err)
	}

	if err := ref.Replace(ctx, up); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if ref.Filename != "avatar.png" || ref.ContentType != "image/png" {
		t.Fatalf("unexpected ref after replace: %+v", ref)
	}

	r, err := ref.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read stored content: %v", err)
	}
	if string(data) != "pixels" {
		t.Fatalf("expected full payload stored, got %q", data)
	}
}

func TestReplaceResolvesCollision(t *testing.T) {
	ctx := context.Background()
	backend := NewMemory()

	first := &FileRef{Backend: backend}
	if err := first.Replace(ctx, &Upload{Filename: "doc.txt", ContentType: "text/plain", Content: strings.NewReader("a")}); err != nil {
		t.Fatalf("first replace: %v", err)
	}

	second := &FileRef{Backend: backend}
	if err := second.Replace(ctx, &Upload{Filename: "doc.txt", ContentType: "text/plain", Content: strings.NewReader("b")}); err != nil {
		t.Fatalf("second replace: %v", err)
	}
	if second.Filename != "doc_1.txt" {
		t.Fatalf("expected suffixed name, got %q", second.Filename)
	}

	names := backend.Filenames()
	sort.Strings(names)
	if len(names) != 2 || names[0] != "doc.txt" || names[1] != "doc_1.txt" {
		t.Fatalf("unexpected stored names: %v", names)
	}
}

func TestCommitClearDeletesStoredFile(t *testing.T) {
	ctx := context.Background()
	backend := NewMemory()
	ref := &FileRef{Backend: backend}
	if err := ref.Replace(ctx, &Upload{Filename: "old.txt", ContentType: "text/plain", Content: strings.NewReader("x")}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := Commit(ctx, ref, Clear); err != nil {
		t.Fatalf("commit clear: %v", err)
	}
	if ref.IsStored() {
		t.Fatalf("expected cleared ref, got %+v", ref)
	}
	if exists, _ := backend.Exists(ctx, "old.txt"); exists {
		t.Fatal("expected stored file removed")
	}
}

func TestCommitNilIsNoop(t *testing.T) {
	ref := &FileRef{Backend: NewMemory(), Filename: "keep.txt"}
	if err := Commit(context.Background(), ref, nil); err != nil {
		t.Fatalf("commit nil: %v", err)
	}
	if ref.Filename != "keep.txt" {
		t.Fatalf("expected ref untouched, got %+v", ref)
	}
}

func TestCommitRejectsUnknownValue(t *testing.T) {
	err := Commit(context.Background(), &FileRef{Backend: NewMemory()}, 42)
	if err == nil {
		t.Fatal("expected an error for an unsupported value")
	}
}

func TestFileRefDeleteMissingBackendFile(t *testing.T) {
	// Deleting a ref whose backend entry is already gone clears the ref
	// without failing.
	backend := NewMemory()
	ref := &FileRef{Backend: backend, Filename: "ghost.txt"}
	if err := ref.Delete(context.Background()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ref.IsStored() {
		t.Fatal("expected ref cleared")
	}
}

func TestMemoryOpenMissing(t *testing.T) {
	_, err := NewMemory().Open(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
