package uiconfig

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-docforms/pkg/fields"
	"github.com/goliatone/go-docforms/pkg/forms"
	"github.com/goliatone/go-docforms/pkg/schema"
)

func TestLoadFSParsesJSONAndYAML(t *testing.T) {
	fsys := fstest.MapFS{
		"post.json": &fstest.MapFile{Data: []byte(`{
			"documents": {
				"Post": {
					"exclude": ["internal"],
					"fieldSettings": {
						"title": {"label": "Headline", "help": "Keep it short."}
					},
					"submitLabel": "Publish"
				}
			}
		}`)},
		"comment.yaml": &fstest.MapFile{Data: []byte(`documents:
  Comment:
    fields: [author, body]
    fieldSettings:
      body:
        widget: textarea
`)},
		"README.md": &fstest.MapFile{Data: []byte("ignored")},
	}

	store, err := LoadFS(fsys)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	post, ok := store.Document("Post")
	if !ok {
		t.Fatal("expected Post overlay")
	}
	if post.SubmitLabel != "Publish" {
		t.Fatalf("unexpected submit label %q", post.SubmitLabel)
	}
	if post.FieldSettings["title"].Label != "Headline" {
		t.Fatalf("unexpected title settings %+v", post.FieldSettings["title"])
	}

	comment, ok := store.Document("Comment")
	if !ok {
		t.Fatal("expected Comment overlay")
	}
	if diff := cmp.Diff([]string{"author", "body"}, comment.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if comment.FieldSettings["body"].Widget != "textarea" {
		t.Fatalf("unexpected widget %q", comment.FieldSettings["body"].Widget)
	}
}

func TestLoadFSDuplicateDocument(t *testing.T) {
	fsys := fstest.MapFS{
		"a.json": &fstest.MapFile{Data: []byte(`{"documents": {"Post": {}}}`)},
		"b.yaml": &fstest.MapFile{Data: []byte("documents:\n  Post: {}\n")},
	}
	if _, err := LoadFS(fsys); err == nil || !strings.Contains(err.Error(), "configured in both") {
		t.Fatalf("expected duplicate document error, got %v", err)
	}
}

func TestLoadFSRejectsMalformedFile(t *testing.T) {
	fsys := fstest.MapFS{
		"broken.json": &fstest.MapFile{Data: []byte(`{"documents": [`)},
	}
	if _, err := LoadFS(fsys); err == nil {
		t.Fatal("expected parse failure")
	}
}

func TestLoadFSNil(t *testing.T) {
	store, err := LoadFS(nil)
	if err != nil {
		t.Fatalf("load nil: %v", err)
	}
	if !store.Empty() {
		t.Fatal("expected empty store")
	}
}

func TestHiddenFieldsBecomeExcluded(t *testing.T) {
	fsys := fstest.MapFS{
		"post.yaml": &fstest.MapFile{Data: []byte(`documents:
  Post:
    fieldSettings:
      internal:
        hidden: true
`)},
	}
	store, err := LoadFS(fsys)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	post, _ := store.Document("Post")
	if !contains(post.Exclude, "internal") {
		t.Fatalf("expected hidden field excluded, got %v", post.Exclude)
	}
}

func TestDecorateAppliesLabels(t *testing.T) {
	doc := schema.MustNew("Post", "posts",
		schema.Field{Name: "title", Kind: schema.KindString},
		schema.Field{Name: "body", Kind: schema.KindString},
	)
	overlay := DocumentConfig{FieldSettings: map[string]FieldConfig{
		"title": {Label: "Headline", Help: "Front page text."},
	}}

	decorated, err := overlay.Decorate(doc)
	if err != nil {
		t.Fatalf("decorate: %v", err)
	}
	title, _ := decorated.Field("title")
	if title.Label != "Headline" || title.HelpText != "Front page text." {
		t.Fatalf("unexpected decorated field %+v", title)
	}
	// The source schema is untouched.
	original, _ := doc.Field("title")
	if original.Label != "" {
		t.Fatalf("expected original schema unchanged, got %+v", original)
	}
}

func TestApplyToMergesFormConfig(t *testing.T) {
	overlay := DocumentConfig{
		Fields:  []string{"title", "body"},
		Exclude: []string{"internal"},
		FieldSettings: map[string]FieldConfig{
			"body":  {Widget: fields.WidgetTextarea},
			"title": {Widget: "ignored"},
		},
	}

	cfg := overlay.ApplyTo(forms.Config{
		Widgets: map[string]string{"title": fields.WidgetText},
	})
	if diff := cmp.Diff([]string{"title", "body"}, cfg.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if !contains(cfg.Exclude, "internal") {
		t.Fatalf("expected exclude merged, got %v", cfg.Exclude)
	}
	if cfg.Widgets["body"] != fields.WidgetTextarea {
		t.Fatalf("expected overlay widget, got %q", cfg.Widgets["body"])
	}
	// Explicit configuration wins.
	if cfg.Widgets["title"] != fields.WidgetText {
		t.Fatalf("expected explicit widget kept, got %q", cfg.Widgets["title"])
	}

	// An explicit field list suppresses the overlay's.
	cfg = overlay.ApplyTo(forms.Config{Fields: []string{"body"}})
	if diff := cmp.Diff([]string{"body"}, cfg.Fields); diff != "" {
		t.Fatalf("explicit fields mismatch (-want +got):\n%s", diff)
	}
}
