package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/goliatone/go-docforms/pkg/document"
	"github.com/goliatone/go-docforms/pkg/forms"
	"github.com/goliatone/go-docforms/pkg/openapi"
	"github.com/goliatone/go-docforms/pkg/render"
	"github.com/goliatone/go-docforms/pkg/schema"
	"github.com/goliatone/go-docforms/pkg/uiconfig"
)

func main() {
	source := flag.String("source", "schema.json", "OpenAPI document path")
	docName := flag.String("document", "", "component schema to render (defaults to the only one)")
	overlays := flag.String("overlays", "", "directory of JSON/YAML form overlays")
	action := flag.String("action", "/", "form action URL")
	output := flag.String("output", "", "output file (stdout if empty)")
	flag.Parse()

	ctx := context.Background()

	raw, err := os.ReadFile(*source)
	if err != nil {
		log.Fatalf("Failed to read source: %v", err)
	}
	docs, err := openapi.Import(ctx, raw)
	if err != nil {
		log.Fatalf("Failed to import document schemas: %v", err)
	}

	doc := pickDocument(docs, *docName)
	if doc == nil {
		log.Fatalf("No component schema %q in %s (have: %s)", *docName, *source, documentNames(docs))
	}

	cfg := forms.Config{Store: document.NewMemoryStore()}
	submitLabel := ""
	if *overlays != "" {
		store, err := uiconfig.LoadFS(os.DirFS(*overlays))
		if err != nil {
			log.Fatalf("Failed to load overlays: %v", err)
		}
		if overlay, ok := store.Document(doc.Name); ok {
			doc, err = overlay.Decorate(doc)
			if err != nil {
				log.Fatalf("Failed to apply overlay: %v", err)
			}
			cfg = overlay.ApplyTo(cfg)
			submitLabel = overlay.SubmitLabel
		}
	}

	typ, err := forms.NewType(doc, cfg)
	if err != nil {
		log.Fatalf("Failed to build form type: %v", err)
	}
	renderer, err := render.New()
	if err != nil {
		log.Fatalf("Failed to configure renderer: %v", err)
	}
	markup, err := renderer.RenderForm(ctx, typ.New(), render.Options{
		Action:      *action,
		SubmitLabel: submitLabel,
	})
	if err != nil {
		log.Fatalf("Failed to render form: %v", err)
	}

	if *output != "" {
		if err := os.WriteFile(*output, markup, 0o644); err != nil {
			log.Fatalf("Failed to write output: %v", err)
		}
		fmt.Printf("Form written to %s\n", *output)
	} else {
		fmt.Println(string(markup))
	}
}

func pickDocument(docs []*schema.Document, name string) *schema.Document {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		if len(docs) == 1 {
			return docs[0]
		}
		return nil
	}
	for _, doc := range docs {
		if doc.Name == trimmed {
			return doc
		}
	}
	return nil
}

func documentNames(docs []*schema.Document) string {
	names := make([]string, 0, len(docs))
	for _, doc := range docs {
		names = append(names, doc.Name)
	}
	return strings.Join(names, ", ")
}
