package fields

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-docforms/pkg/document"
	"github.com/goliatone/go-docforms/pkg/schema"
	"github.com/goliatone/go-docforms/pkg/storage"
)

func TestTextClean(t *testing.T) {
	ctx := context.Background()

	field := NewText([]Option{Required(true)}, WithMinLength(3), WithMaxLength(5))
	if _, err := field.Clean(ctx, ""); !errors.Is(err, ErrRequired) {
		t.Fatalf("expected ErrRequired for empty value, got %v", err)
	}
	if _, err := field.Clean(ctx, "ab"); err == nil {
		t.Fatal("expected min-length failure")
	}
	if _, err := field.Clean(ctx, "toolong"); err == nil {
		t.Fatal("expected max-length failure")
	}
	got, err := field.Clean(ctx, "okay")
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if got != "okay" {
		t.Fatalf("unexpected value %v", got)
	}

	optional := NewText(nil)
	got, err = optional.Clean(ctx, "")
	if err != nil || got != nil {
		t.Fatalf("expected optional empty to clean to nil, got %v, %v", got, err)
	}
}

func TestTextPattern(t *testing.T) {
	field := NewText(nil, WithPattern(regexp.MustCompile(`^[a-z]+$`)))
	if _, err := field.Clean(context.Background(), "NOPE"); err == nil {
		t.Fatal("expected pattern failure")
	}
	if _, err := field.Clean(context.Background(), "fine"); err != nil {
		t.Fatalf("clean: %v", err)
	}
}

func TestTextWidgetDefaults(t *testing.T) {
	if w := NewText(nil).Widget(); w != WidgetTextarea {
		t.Fatalf("expected unbounded text to default to a textarea, got %q", w)
	}
	if w := NewText(nil, WithMaxLength(80)).Widget(); w != WidgetText {
		t.Fatalf("expected bounded text to stay a text input, got %q", w)
	}
}

func TestEmailClean(t *testing.T) {
	field := NewEmail(nil)
	if _, err := field.Clean(context.Background(), "not-an-address"); err == nil {
		t.Fatal("expected invalid address failure")
	}
	got, err := field.Clean(context.Background(), "ada@example.com")
	if err != nil || got != "ada@example.com" {
		t.Fatalf("clean: got %v, %v", got, err)
	}
}

func TestURLClean(t *testing.T) {
	field := NewURL(nil)
	for _, bad := range []string{"not a url", "/relative/path", "example.com"} {
		if _, err := field.Clean(context.Background(), bad); err == nil {
			t.Fatalf("expected failure for %q", bad)
		}
	}
	got, err := field.Clean(context.Background(), "https://example.com/x")
	if err != nil || got != "https://example.com/x" {
		t.Fatalf("clean: got %v, %v", got, err)
	}
}

func TestIntegerClean(t *testing.T) {
	lo, hi := 1.0, 10.0
	field := NewInteger(nil, &lo, &hi)
	if _, err := field.Clean(context.Background(), "abc"); err == nil {
		t.Fatal("expected coercion failure")
	}
	if _, err := field.Clean(context.Background(), "0"); err == nil {
		t.Fatal("expected min failure")
	}
	got, err := field.Clean(context.Background(), "7")
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if got != int64(7) {
		t.Fatalf("expected int64 7, got %T %v", got, got)
	}
}

func TestFloatClean(t *testing.T) {
	field := NewFloat(nil, nil, nil)
	got, err := field.Clean(context.Background(), "3.25")
	if err != nil || got != 3.25 {
		t.Fatalf("clean: got %v, %v", got, err)
	}
}

func TestBooleanClean(t *testing.T) {
	ctx := context.Background()
	field := NewBoolean(nil)

	got, err := field.Clean(ctx, nil)
	if err != nil || got != false {
		t.Fatalf("expected unchecked box to clean to false, got %v, %v", got, err)
	}
	got, err = field.Clean(ctx, "on")
	if err != nil || got != true {
		t.Fatalf("expected on to clean to true, got %v, %v", got, err)
	}

	required := NewBoolean([]Option{Required(true)})
	if _, err := required.Clean(ctx, nil); !errors.Is(err, ErrRequired) {
		t.Fatalf("expected ErrRequired, got %v", err)
	}
	if _, err := required.Clean(ctx, "false"); !errors.Is(err, ErrRequired) {
		t.Fatalf("expected required checkbox to reject false, got %v", err)
	}
}

func TestDateTimeCleanLayouts(t *testing.T) {
	ctx := context.Background()
	field := NewDateTime(nil)

	cases := []string{
		"2024-06-01T10:30:00Z",
		"2024-06-01T10:30",
		"2024-06-01 10:30:00",
		"2024-06-01",
	}
	for _, raw := range cases {
		got, err := field.Clean(ctx, raw)
		if err != nil {
			t.Fatalf("clean %q: %v", raw, err)
		}
		if _, ok := got.(time.Time); !ok {
			t.Fatalf("expected time.Time, got %T", got)
		}
	}
	if _, err := field.Clean(ctx, "June 1st"); err == nil {
		t.Fatal("expected unparseable input to fail")
	}
}

func TestChoiceClean(t *testing.T) {
	ctx := context.Background()
	choices := []schema.Choice{
		{Value: int64(1), Label: "One"},
		{Value: int64(2), Label: "Two"},
	}
	field := NewChoice(choices, IntCoercer, nil)

	got, err := field.Clean(ctx, "2")
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if got != int64(2) {
		t.Fatalf("expected coerced int64, got %T %v", got, got)
	}
	if _, err := field.Clean(ctx, "9"); err == nil {
		t.Fatal("expected out-of-set choice to fail")
	}
}

func TestMultiChoiceClean(t *testing.T) {
	choices := []schema.Choice{
		{Value: "red", Label: "Red"},
		{Value: "blue", Label: "Blue"},
	}
	field := NewMultiChoice(choices, nil, nil)

	got, err := field.Clean(context.Background(), []string{"red", "blue"})
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	values, ok := got.([]any)
	if !ok || len(values) != 2 {
		t.Fatalf("expected two cleaned values, got %v", got)
	}

	if _, err := field.Clean(context.Background(), []string{"green"}); err == nil {
		t.Fatal("expected unknown choice to fail")
	}

	empty, err := field.Clean(context.Background(), nil)
	if err != nil {
		t.Fatalf("clean empty: %v", err)
	}
	if values, ok := empty.([]any); !ok || len(values) != 0 {
		t.Fatalf("expected empty slice, got %v", empty)
	}
}

func TestReferenceClean(t *testing.T) {
	ctx := context.Background()
	store := document.NewMemoryStore()
	author := schema.MustNew("Author", "authors",
		schema.Field{Name: "name", Kind: schema.KindString},
	)

	target := document.NewInstance(author)
	_ = target.Set("name", "Ada")
	if err := store.Save(ctx, target); err != nil {
		t.Fatalf("seed author: %v", err)
	}

	field := NewReference(document.NewQuerySet(store, author), nil, nil)

	got, err := field.Clean(ctx, document.IDString(target.ID()))
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	inst, ok := got.(*document.Instance)
	if !ok || document.IDString(inst.ID()) != document.IDString(target.ID()) {
		t.Fatalf("expected resolved instance, got %v", got)
	}

	if _, err := field.Clean(ctx, "not-a-hex-id"); err == nil {
		t.Fatal("expected malformed id to fail")
	}
	if _, err := field.Clean(ctx, "ffffffffffffffffffffffff"); err == nil {
		t.Fatal("expected unknown id to fail")
	}
}

func TestMultiReferenceClean(t *testing.T) {
	ctx := context.Background()
	store := document.NewMemoryStore()
	tag := schema.MustNew("Tag", "tags",
		schema.Field{Name: "label", Kind: schema.KindString},
	)

	var ids []string
	for _, label := range []string{"go", "web"} {
		inst := document.NewInstance(tag)
		_ = inst.Set("label", label)
		if err := store.Save(ctx, inst); err != nil {
			t.Fatalf("seed tag: %v", err)
		}
		ids = append(ids, document.IDString(inst.ID()))
	}

	field := NewMultiReference(document.NewQuerySet(store, tag), nil, nil)
	got, err := field.Clean(ctx, ids)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	resolved, ok := got.([]*document.Instance)
	if !ok || len(resolved) != 2 {
		t.Fatalf("expected two resolved instances, got %v", got)
	}
}

func TestFileCleanWithInitial(t *testing.T) {
	ctx := context.Background()
	required := NewFile([]Option{Required(true)})

	// Nothing submitted and nothing stored fails on a required field.
	if _, err := required.CleanWithInitial(ctx, nil, nil); !errors.Is(err, ErrRequired) {
		t.Fatalf("expected ErrRequired, got %v", err)
	}
	// Nothing submitted but a stored file keeps it.
	stored := &storage.FileRef{Filename: "kept.txt"}
	got, err := required.CleanWithInitial(ctx, nil, stored)
	if err != nil || got != nil {
		t.Fatalf("expected stored fallback to clean to nil, got %v, %v", got, err)
	}

	// Clearing a required field fails; clearing an optional one yields the
	// sentinel.
	if _, err := required.CleanWithInitial(ctx, storage.Clear, stored); !errors.Is(err, ErrRequired) {
		t.Fatalf("expected ErrRequired on clear, got %v", err)
	}
	optional := NewFile(nil)
	got, err = optional.CleanWithInitial(ctx, storage.Clear, stored)
	if err != nil {
		t.Fatalf("clean clear: %v", err)
	}
	if _, ok := got.(storage.ClearSentinel); !ok {
		t.Fatalf("expected clear sentinel, got %T", got)
	}

	up := &storage.Upload{
		Filename:    "new.txt",
		ContentType: "text/plain",
		Content:     strings.NewReader("data"),
	}
	got, err = optional.CleanWithInitial(ctx, up, stored)
	if err != nil || got != up {
		t.Fatalf("expected upload passthrough, got %v, %v", got, err)
	}
}

func TestImageCleanRejectsNonImage(t *testing.T) {
	field := NewImage(nil)
	up := &storage.Upload{
		Filename:    "notes.txt",
		ContentType: "text/plain",
		Content:     strings.NewReader("data"),
	}
	if _, err := field.Clean(context.Background(), up); err == nil {
		t.Fatal("expected non-image content type to fail")
	}

	up.ContentType = "image/png"
	if _, err := field.Clean(context.Background(), up); err != nil {
		t.Fatalf("clean image: %v", err)
	}
}

func TestValidatorsRunAfterClean(t *testing.T) {
	field := NewText([]Option{WithValidators(func(value any) error {
		if strings.HasPrefix(value.(string), "x") {
			return errors.New("must not start with x")
		}
		return nil
	})})

	if _, err := field.Clean(context.Background(), "xenon"); err == nil {
		t.Fatal("expected validator failure")
	}
	if _, err := field.Clean(context.Background(), "neon"); err != nil {
		t.Fatalf("clean: %v", err)
	}
}
