package document

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/goliatone/go-docforms/pkg/schema"
	"github.com/goliatone/go-docforms/pkg/storage"
)

func articleSchema(t *testing.T) *schema.Document {
	t.Helper()
	doc, err := schema.New("Article", "articles",
		schema.Field{Name: "title", Kind: schema.KindString, Required: true},
		schema.Field{Name: "status", Kind: schema.KindString, Default: "draft"},
		schema.Field{Name: "attachment", Kind: schema.KindFile},
	)
	if err != nil {
		t.Fatalf("build schema: %v", err)
	}
	return doc
}

func TestNewInstanceAppliesDefaults(t *testing.T) {
	inst := NewInstance(articleSchema(t))
	if !inst.Adding() {
		t.Fatal("expected fresh instance to be adding")
	}
	if got := inst.Get("status"); got != "draft" {
		t.Fatalf("expected default status, got %v", got)
	}
	if got := inst.Get("title"); got != nil {
		t.Fatalf("expected unset title, got %v", got)
	}
}

func TestHydrateMarksNotAdding(t *testing.T) {
	inst := Hydrate(articleSchema(t), map[string]any{"title": "hello"})
	if inst.Adding() {
		t.Fatal("expected hydrated instance to not be adding")
	}
	if got := inst.Get("title"); got != "hello" {
		t.Fatalf("expected hydrated title, got %v", got)
	}
}

func TestSetRejectsUnknownField(t *testing.T) {
	inst := NewInstance(articleSchema(t))
	if err := inst.Set("nope", 1); err == nil {
		t.Fatal("expected an error for an unknown field name")
	}
	if err := inst.Set("title", "ok"); err != nil {
		t.Fatalf("set known field: %v", err)
	}
}

func TestEnsureIDAssignsOnce(t *testing.T) {
	inst := NewInstance(articleSchema(t))
	first := inst.EnsureID()
	if first == nil {
		t.Fatal("expected an assigned id")
	}
	if second := inst.EnsureID(); second != first {
		t.Fatalf("expected stable id, got %v then %v", first, second)
	}
}

func TestRootWalksToSavableAncestor(t *testing.T) {
	inner, err := schema.Embedded("Inner", schema.Field{Name: "note", Kind: schema.KindString})
	if err != nil {
		t.Fatalf("inner schema: %v", err)
	}
	outer, err := schema.Embedded("Outer",
		schema.Field{Name: "inner", Kind: schema.KindEmbedded, Embedded: inner})
	if err != nil {
		t.Fatalf("outer schema: %v", err)
	}
	top, err := schema.New("Top", "tops",
		schema.Field{Name: "outer", Kind: schema.KindEmbedded, Embedded: outer})
	if err != nil {
		t.Fatalf("top schema: %v", err)
	}

	topInst := NewInstance(top)
	outerInst := NewInstance(outer)
	innerInst := NewInstance(inner)
	if err := topInst.Set("outer", outerInst); err != nil {
		t.Fatalf("attach outer: %v", err)
	}
	if err := outerInst.Set("inner", innerInst); err != nil {
		t.Fatalf("attach inner: %v", err)
	}

	if got := innerInst.Root(); got != topInst {
		t.Fatalf("expected deep embedded root to be the savable top instance")
	}

	orphan := NewInstance(inner)
	if got := orphan.Root(); got != orphan {
		t.Fatal("expected detached embedded instance to be its own root")
	}
}

func TestCommitFilesStagesAndCommits(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	inst := NewInstance(articleSchema(t))

	up := &storage.Upload{
		Filename:    "notes.txt",
		ContentType: "text/plain",
		Content:     strings.NewReader("hi"),
	}
	inst.StageFile("attachment", up)
	if len(inst.PendingFiles()) != 1 {
		t.Fatalf("expected one staged file, got %d", len(inst.PendingFiles()))
	}

	if err := inst.CommitFiles(ctx, backend); err != nil {
		t.Fatalf("commit files: %v", err)
	}
	if len(inst.PendingFiles()) != 0 {
		t.Fatal("expected staged files to drain after commit")
	}

	ref, ok := inst.Get("attachment").(*storage.FileRef)
	if !ok || !ref.IsStored() {
		t.Fatalf("expected stored file ref, got %v", inst.Get("attachment"))
	}
	if ref.Filename != "notes.txt" {
		t.Fatalf("unexpected stored name %q", ref.Filename)
	}
}

func TestStageFileReplacesSameField(t *testing.T) {
	inst := NewInstance(articleSchema(t))
	inst.StageFile("attachment", &storage.Upload{Filename: "a.txt"})
	inst.StageFile("attachment", &storage.Upload{Filename: "b.txt"})
	pending := inst.PendingFiles()
	if len(pending) != 1 {
		t.Fatalf("expected a single staged entry, got %d", len(pending))
	}
	if up := pending[0].Value.(*storage.Upload); up.Filename != "b.txt" {
		t.Fatalf("expected latest payload staged, got %q", up.Filename)
	}
}

func TestRunCleanHook(t *testing.T) {
	doc, err := schema.New("Event", "events",
		schema.Field{Name: "start", Kind: schema.KindInt},
		schema.Field{Name: "end", Kind: schema.KindInt},
	)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	doc.Clean = func(values map[string]any) error {
		start, _ := values["start"].(int64)
		end, _ := values["end"].(int64)
		if end < start {
			return fmt.Errorf("end must not precede start")
		}
		return nil
	}

	inst := NewInstance(doc)
	_ = inst.Set("start", int64(5))
	_ = inst.Set("end", int64(3))
	if err := inst.RunClean(); err == nil {
		t.Fatal("expected clean hook failure")
	}
	_ = inst.Set("end", int64(9))
	if err := inst.RunClean(); err != nil {
		t.Fatalf("clean hook: %v", err)
	}
}
