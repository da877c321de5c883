package document

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-docforms/pkg/schema"
)

func userSchema(t *testing.T) *schema.Document {
	t.Helper()
	doc, err := schema.New("User", "users",
		schema.Field{Name: "email", Kind: schema.KindEmail, Required: true, Unique: true},
		schema.Field{Name: "name", Kind: schema.KindString},
	)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	return doc
}

func TestMemoryStoreSaveAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	doc := userSchema(t)

	inst := NewInstance(doc)
	_ = inst.Set("email", "ada@example.com")
	_ = inst.Set("name", "Ada")
	if err := store.Save(ctx, inst); err != nil {
		t.Fatalf("save: %v", err)
	}
	if inst.Adding() {
		t.Fatal("expected saved instance to clear the adding flag")
	}
	if inst.ID() == nil {
		t.Fatal("expected an assigned id")
	}

	found, err := NewQuerySet(store, doc).Filter("pk", IDString(inst.ID())).Get(ctx)
	if err != nil {
		t.Fatalf("find by pk: %v", err)
	}
	if got := found.Get("name"); got != "Ada" {
		t.Fatalf("unexpected name %v", got)
	}

	byField, err := NewQuerySet(store, doc).Filter("email", "ada@example.com").Get(ctx)
	if err != nil {
		t.Fatalf("find by field: %v", err)
	}
	if IDString(byField.ID()) != IDString(inst.ID()) {
		t.Fatal("expected the same document back")
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	store := NewMemoryStore()
	doc := userSchema(t)
	_, err := NewQuerySet(store, doc).Filter("pk", "000000000000000000000000").Get(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreDuplicateKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	doc := userSchema(t)

	first := NewInstance(doc)
	_ = first.Set("email", "dup@example.com")
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("first save: %v", err)
	}

	second := NewInstance(doc)
	_ = second.Set("email", "dup@example.com")
	err := store.Save(ctx, second)
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	// Re-saving the same document keeps its own value without conflict.
	_ = first.Set("name", "still fine")
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("re-save: %v", err)
	}
}

func TestMemoryStoreSnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	doc := userSchema(t)

	inst := NewInstance(doc)
	_ = inst.Set("email", "iso@example.com")
	_ = inst.Set("name", "before")
	if err := store.Save(ctx, inst); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Mutating the live instance must not change what was persisted.
	_ = inst.Set("name", "after")

	found, err := NewQuerySet(store, doc).Filter("pk", inst.ID()).Get(ctx)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got := found.Get("name"); got != "before" {
		t.Fatalf("expected persisted snapshot, got %v", got)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	doc := userSchema(t)

	inst := NewInstance(doc)
	_ = inst.Set("email", "gone@example.com")
	if err := store.Save(ctx, inst); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete(ctx, inst); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if store.Count("users") != 0 {
		t.Fatalf("expected empty collection, got %d", store.Count("users"))
	}
	if err := store.Delete(ctx, inst); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestMemoryStoreRejectsEmbeddedSave(t *testing.T) {
	store := NewMemoryStore()
	embedded, err := schema.Embedded("Note", schema.Field{Name: "body", Kind: schema.KindString})
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	saveErr := store.Save(context.Background(), NewInstance(embedded))
	if !errors.Is(saveErr, ErrNotSavable) {
		t.Fatalf("expected ErrNotSavable, got %v", saveErr)
	}
}

func TestQuerySetFilterClones(t *testing.T) {
	store := NewMemoryStore()
	doc := userSchema(t)
	base := NewQuerySet(store, doc)

	refined := base.Filter("email", "a@example.com")
	if refined == base {
		t.Fatal("expected Filter to return a clone")
	}

	ctx := context.Background()
	inst := NewInstance(doc)
	_ = inst.Set("email", "b@example.com")
	if err := store.Save(ctx, inst); err != nil {
		t.Fatalf("save: %v", err)
	}

	// The shared default still matches everything.
	all, err := base.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected unfiltered base to match, got %d", len(all))
	}
	narrowed, err := refined.All(ctx)
	if err != nil {
		t.Fatalf("refined all: %v", err)
	}
	if len(narrowed) != 0 {
		t.Fatalf("expected refined query to exclude, got %d", len(narrowed))
	}
}

func TestMemoryStoreRoundTripsEmbedded(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	address := schema.MustEmbedded("Address",
		schema.Field{Name: "city", Kind: schema.KindString},
	)
	doc := schema.MustNew("Person", "people",
		schema.Field{Name: "name", Kind: schema.KindString},
		schema.Field{Name: "home", Kind: schema.KindEmbedded, Embedded: address},
	)

	home := NewInstance(address)
	_ = home.Set("city", "Lisbon")
	inst := NewInstance(doc)
	_ = inst.Set("name", "Rui")
	_ = inst.Set("home", home)

	if err := store.Save(ctx, inst); err != nil {
		t.Fatalf("save: %v", err)
	}

	found, err := NewQuerySet(store, doc).Filter("pk", inst.ID()).Get(ctx)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	child, ok := found.Get("home").(*Instance)
	if !ok {
		t.Fatalf("expected embedded instance, got %T", found.Get("home"))
	}
	if got := child.Get("city"); got != "Lisbon" {
		t.Fatalf("unexpected city %v", got)
	}
}
