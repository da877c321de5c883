package forms

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/goliatone/go-docforms/pkg/document"
	"github.com/goliatone/go-docforms/pkg/schema"
	"github.com/goliatone/go-docforms/pkg/storage"
)

func postType(t *testing.T, store document.Store) *Type {
	t.Helper()
	typ, err := NewType(postSchema(t), Config{Store: store})
	if err != nil {
		t.Fatalf("new type: %v", err)
	}
	return typ
}

func TestFormValidateAndSave(t *testing.T) {
	ctx := context.Background()
	store := document.NewMemoryStore()
	typ := postType(t, store)

	form := typ.New(WithData(url.Values{
		"title":  {"Hello"},
		"slug":   {"hello"},
		"body":   {"First post."},
		"rating": {"4.5"},
	}))
	saved, err := form.Save(ctx)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved == nil {
		t.Fatalf("expected saved instance, errors: %v", form.Errors().FieldNames())
	}
	if saved.Adding() {
		t.Fatal("expected saved instance to be marked persisted")
	}
	if got := saved.Get("rating"); got != 4.5 {
		t.Fatalf("expected typed rating, got %T %v", got, got)
	}
	if store.Count("posts") != 1 {
		t.Fatalf("expected one stored post, got %d", store.Count("posts"))
	}
}

func TestFormRequiredFieldError(t *testing.T) {
	ctx := context.Background()
	typ := postType(t, document.NewMemoryStore())

	form := typ.New(WithData(url.Values{"body": {"no title"}}))
	if form.Validate(ctx) {
		t.Fatal("expected validation failure")
	}
	if !form.Errors().HasField("title") {
		t.Fatalf("expected title error, got %v", form.Errors().FieldNames())
	}
	if _, err := form.Save(ctx); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestFormUnboundNeverValidates(t *testing.T) {
	typ := postType(t, document.NewMemoryStore())
	form := typ.New()
	if form.Bound() {
		t.Fatal("expected form without data to be unbound")
	}
	if form.Validate(context.Background()) {
		t.Fatal("expected unbound form to fail validation")
	}
}

func TestFormDuplicateKeyBecomesNonFieldError(t *testing.T) {
	ctx := context.Background()
	store := document.NewMemoryStore()
	typ := postType(t, store)

	first := typ.New(WithData(url.Values{"title": {"One"}, "slug": {"same"}}))
	if _, err := first.Save(ctx); err != nil {
		t.Fatalf("seed save: %v", err)
	}

	second := typ.New(WithData(url.Values{"title": {"Two"}, "slug": {"same"}}))
	saved, err := second.Save(ctx)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved != nil {
		t.Fatal("expected nil instance on duplicate key")
	}
	if len(second.Errors().NonField()) == 0 {
		t.Fatal("expected duplicate key recorded as non-field error")
	}
	if store.Count("posts") != 1 {
		t.Fatalf("expected single stored post, got %d", store.Count("posts"))
	}
}

func TestFormSaveWithoutCommit(t *testing.T) {
	ctx := context.Background()
	store := document.NewMemoryStore()
	typ := postType(t, store)

	form := typ.New(WithData(url.Values{"title": {"Draft"}}))
	inst, err := form.SaveCommit(ctx, false)
	if err != nil {
		t.Fatalf("save commit=false: %v", err)
	}
	if inst == nil {
		t.Fatal("expected constructed instance")
	}
	if store.Count("posts") != 0 {
		t.Fatal("expected no storage write")
	}
	if got := inst.Get("title"); got != "Draft" {
		t.Fatalf("expected cleaned value on instance, got %v", got)
	}

	// The caller finishes the deferred write itself, committing files
	// first so the stored record carries their refs.
	if err := form.CommitFiles(ctx); err != nil {
		t.Fatalf("commit files: %v", err)
	}
	if err := store.Save(ctx, inst); err != nil {
		t.Fatalf("deferred save: %v", err)
	}
}

func TestFormInitialFromInstance(t *testing.T) {
	ctx := context.Background()
	store := document.NewMemoryStore()
	typ := postType(t, store)

	seed := typ.New(WithData(url.Values{"title": {"Existing"}, "slug": {"existing"}}))
	inst, err := seed.Save(ctx)
	if err != nil || inst == nil {
		t.Fatalf("seed: %v", err)
	}

	form := typ.New(WithInstance(inst))
	if form.Initial("title") != "Existing" {
		t.Fatalf("expected instance value as initial, got %v", form.Initial("title"))
	}
	if form.Value("title") != "Existing" {
		t.Fatalf("expected unbound value from initial, got %v", form.Value("title"))
	}

	// Explicit initial wins over instance data.
	form = typ.New(WithInstance(inst), WithInitial(map[string]any{"title": "Renamed"}))
	if form.Initial("title") != "Renamed" {
		t.Fatalf("expected explicit initial, got %v", form.Initial("title"))
	}
}

func TestFormEditExistingInstance(t *testing.T) {
	ctx := context.Background()
	store := document.NewMemoryStore()
	typ := postType(t, store)

	seed := typ.New(WithData(url.Values{"title": {"Before"}, "slug": {"post"}}))
	inst, err := seed.Save(ctx)
	if err != nil || inst == nil {
		t.Fatalf("seed: %v", err)
	}

	edit := typ.New(WithInstance(inst), WithData(url.Values{
		"title": {"After"},
		"slug":  {"post"},
	}))
	saved, err := edit.Save(ctx)
	if err != nil {
		t.Fatalf("save edit: %v", err)
	}
	if saved == nil {
		t.Fatalf("edit did not validate: %v", edit.Errors().FieldNames())
	}
	if store.Count("posts") != 1 {
		t.Fatalf("expected edit to update in place, got %d records", store.Count("posts"))
	}

	got, err := document.NewQuerySet(store, typ.Document()).Filter("pk", inst.ID()).Get(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Get("title") != "After" {
		t.Fatalf("expected updated title, got %v", got.Get("title"))
	}
}

func TestFormDocumentCleanHookFailure(t *testing.T) {
	doc := schema.MustNew("Event", "events",
		schema.Field{Name: "start", Kind: schema.KindString},
		schema.Field{Name: "end", Kind: schema.KindString},
	)
	doc.Clean = func(values map[string]any) error {
		if values["start"] == values["end"] {
			return errors.New("start and end must differ")
		}
		return nil
	}

	typ, err := NewType(doc, Config{Store: document.NewMemoryStore()})
	if err != nil {
		t.Fatalf("new type: %v", err)
	}
	form := typ.New(WithData(url.Values{"start": {"x"}, "end": {"x"}}))
	if form.Validate(context.Background()) {
		t.Fatal("expected clean hook failure")
	}
	found := false
	for _, msg := range form.Errors().NonField() {
		if strings.Contains(msg, "must differ") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected hook message in non-field errors, got %v", form.Errors().NonField())
	}
}

func TestFormStagesFileFields(t *testing.T) {
	ctx := context.Background()
	store := document.NewMemoryStore()
	doc := schema.MustNew("Report", "reports",
		schema.Field{Name: "title", Kind: schema.KindString},
		schema.Field{Name: "attachment", Kind: schema.KindFile},
	)
	typ, err := NewType(doc, Config{Store: store})
	if err != nil {
		t.Fatalf("new type: %v", err)
	}

	form := typ.New(
		WithData(url.Values{"title": {"Q3"}}),
		WithFiles(map[string]*storage.Upload{
			"attachment": {
				Filename:    "q3.pdf",
				ContentType: "application/pdf",
				Content:     strings.NewReader("%PDF-"),
			},
		}),
	)
	saved, err := form.Save(ctx)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved == nil {
		t.Fatalf("expected save, errors: %v", form.Errors().FieldNames())
	}
	ref, ok := saved.Get("attachment").(*storage.FileRef)
	if !ok || !ref.IsStored() {
		t.Fatalf("expected committed file ref, got %v", saved.Get("attachment"))
	}
	if ref.Filename != "q3.pdf" {
		t.Fatalf("unexpected stored name %q", ref.Filename)
	}

	// The stored record carries the ref too, not only the in-memory
	// instance.
	got, err := document.NewQuerySet(store, typ.Document()).Filter("pk", saved.ID()).Get(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	stored, ok := got.Get("attachment").(*storage.FileRef)
	if !ok || !stored.IsStored() {
		t.Fatalf("expected persisted file ref, got %v", got.Get("attachment"))
	}
	if stored.Filename != "q3.pdf" {
		t.Fatalf("unexpected persisted name %q", stored.Filename)
	}
}

func TestFormClearsStoredFile(t *testing.T) {
	ctx := context.Background()
	store := document.NewMemoryStore()
	doc := schema.MustNew("Report", "reports",
		schema.Field{Name: "title", Kind: schema.KindString},
		schema.Field{Name: "attachment", Kind: schema.KindFile},
	)
	typ, err := NewType(doc, Config{Store: store})
	if err != nil {
		t.Fatalf("new type: %v", err)
	}

	seed := typ.New(
		WithData(url.Values{"title": {"Q3"}}),
		WithFiles(map[string]*storage.Upload{
			"attachment": {Filename: "q3.pdf", ContentType: "application/pdf", Content: strings.NewReader("x")},
		}),
	)
	inst, err := seed.Save(ctx)
	if err != nil || inst == nil {
		t.Fatalf("seed: %v", err)
	}

	edit := typ.New(WithInstance(inst), WithData(url.Values{
		"title":                     {"Q3"},
		"attachment" + ClearSuffix:  {"on"},
	}))
	saved, err := edit.Save(ctx)
	if err != nil {
		t.Fatalf("save clear: %v", err)
	}
	if saved == nil {
		t.Fatalf("clear did not validate: %v", edit.Errors().FieldNames())
	}
	if ref, _ := saved.Get("attachment").(*storage.FileRef); ref.IsStored() {
		t.Fatalf("expected attachment cleared, got %v", ref)
	}

	got, err := document.NewQuerySet(store, typ.Document()).Filter("pk", inst.ID()).Get(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if value := got.Get("attachment"); value != nil {
		t.Fatalf("expected cleared file dropped from stored record, got %v", value)
	}
}
