package fields

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-docforms/pkg/storage"
)

// File accepts uploaded payloads through a clearable widget. The clean step
// only validates the submission; the actual storage write is deferred until
// after the owning document saves.
type File struct {
	Base
	imageOnly bool
}

// NewFile constructs a file field.
func NewFile(options []Option) *File {
	return &File{Base: newBase(WidgetClearableFile, options)}
}

// NewImage constructs a file field restricted to image content types.
func NewImage(options []Option) *File {
	f := NewFile(options)
	f.imageOnly = true
	return f
}

// Clean implements Field. Without a bound instance there is no stored file
// to fall back on, so a required field fails on an empty submission.
func (f *File) Clean(ctx context.Context, value any) (any, error) {
	return f.CleanWithInitial(ctx, value, nil)
}

// CleanWithInitial implements InitialAware. A nil value keeps the stored
// file (initial); the Clear sentinel deletes it, failing when the field is
// required; an upload replaces it.
func (f *File) CleanWithInitial(_ context.Context, value, initial any) (any, error) {
	switch v := value.(type) {
	case nil:
		stored, _ := initial.(*storage.FileRef)
		if f.required && !stored.IsStored() {
			return nil, ErrRequired
		}
		return nil, nil
	case storage.ClearSentinel, *storage.ClearSentinel:
		if f.required {
			return nil, ErrRequired
		}
		return storage.Clear, nil
	case *storage.Upload:
		if err := f.checkUpload(v); err != nil {
			return nil, err
		}
		if err := f.runValidators(v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("expected an uploaded file, got %T", value)
	}
}

func (f *File) checkUpload(up *storage.Upload) error {
	if up.Filename == "" {
		return fmt.Errorf("the submitted file has no name")
	}
	if up.Content == nil {
		return fmt.Errorf("the submitted file is empty")
	}
	if f.imageOnly && !strings.HasPrefix(up.ContentType, "image/") {
		return fmt.Errorf("upload a valid image; %q is not an image content type", up.ContentType)
	}
	return nil
}
