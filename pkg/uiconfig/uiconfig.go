// Package uiconfig loads presentation overlays for document forms from
// JSON/YAML files: per-field labels, help text and widget overrides plus
// include/exclude lists, kept out of the schema declarations so designers
// can adjust form chrome without touching Go code.
package uiconfig

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-docforms/pkg/forms"
	"github.com/goliatone/go-docforms/pkg/schema"
)

// FieldConfig adjusts one field's presentation.
type FieldConfig struct {
	Label  string `json:"label" yaml:"label"`
	Help   string `json:"help" yaml:"help"`
	Widget string `json:"widget" yaml:"widget"`
	Hidden bool   `json:"hidden" yaml:"hidden"`
}

// DocumentConfig adjusts one document's form: field selection, ordering and
// per-field presentation.
type DocumentConfig struct {
	// Fields restricts and orders the form's field set.
	Fields []string `json:"fields" yaml:"fields"`

	// Exclude removes fields from the form. Fields marked hidden are
	// appended to this list during normalisation.
	Exclude []string `json:"exclude" yaml:"exclude"`

	// FieldSettings maps field names to presentation overrides.
	FieldSettings map[string]FieldConfig `json:"fieldSettings" yaml:"fieldSettings"`

	// SubmitLabel overrides the form's submit button text.
	SubmitLabel string `json:"submitLabel" yaml:"submitLabel"`

	// Source records the file the configuration came from.
	Source string `json:"-" yaml:"-"`
}

// Store holds loaded overlays keyed by document name.
type Store struct {
	documents map[string]DocumentConfig
}

// Document returns the overlay for a document name.
func (s *Store) Document(name string) (DocumentConfig, bool) {
	if s == nil {
		return DocumentConfig{}, false
	}
	cfg, ok := s.documents[name]
	return cfg, ok
}

// Empty reports whether the store holds any overlays.
func (s *Store) Empty() bool {
	return s == nil || len(s.documents) == 0
}

type configFile struct {
	Documents map[string]DocumentConfig `json:"documents" yaml:"documents"`
}

// LoadFS walks the provided filesystem and parses JSON/YAML overlay files.
// A nil filesystem yields an empty store; a document configured twice across
// files is an error.
func LoadFS(fsys fs.FS) (*Store, error) {
	store := &Store{documents: make(map[string]DocumentConfig)}
	if fsys == nil {
		return store, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isConfigFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("uiconfig: read %s: %w", path, err)
		}
		doc, err := parseFile(data, path)
		if err != nil {
			return err
		}

		for name, raw := range doc.Documents {
			trimmed := strings.TrimSpace(name)
			if trimmed == "" {
				return fmt.Errorf("uiconfig: file %s configures an empty document name", path)
			}
			if existing, exists := store.documents[trimmed]; exists {
				return fmt.Errorf("uiconfig: document %q configured in both %s and %s",
					trimmed, existing.Source, path)
			}
			store.documents[trimmed] = normalise(raw, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

func isConfigFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}

func parseFile(data []byte, source string) (configFile, error) {
	var doc configFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return configFile{}, fmt.Errorf("uiconfig: file %s is empty", source)
	}
	if err := json.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}
	return configFile{}, fmt.Errorf("uiconfig: parse %s: invalid JSON or YAML", source)
}

func normalise(raw DocumentConfig, source string) DocumentConfig {
	raw.Source = source
	for name, field := range raw.FieldSettings {
		if field.Hidden && !contains(raw.Exclude, name) {
			raw.Exclude = append(raw.Exclude, name)
		}
	}
	return raw
}

func contains(list []string, name string) bool {
	for _, item := range list {
		if item == name {
			return true
		}
	}
	return false
}

// Decorate returns a copy of the schema with the overlay's labels and help
// text applied, so generated form fields pick them up.
func (c DocumentConfig) Decorate(doc *schema.Document) (*schema.Document, error) {
	if doc == nil {
		return nil, fmt.Errorf("uiconfig: document schema is required")
	}
	if len(c.FieldSettings) == 0 {
		return doc, nil
	}

	fields := make([]schema.Field, len(doc.Fields))
	copy(fields, doc.Fields)
	for i := range fields {
		override, ok := c.FieldSettings[fields[i].Name]
		if !ok {
			continue
		}
		if override.Label != "" {
			fields[i].Label = override.Label
		}
		if override.Help != "" {
			fields[i].HelpText = override.Help
		}
	}
	if doc.Savable() {
		return schema.New(doc.Name, doc.Collection, fields...)
	}
	return schema.Embedded(doc.Name, fields...)
}

// ApplyTo merges the overlay into a form configuration: field selection,
// excludes and widget overrides. Explicit configuration wins over the
// overlay.
func (c DocumentConfig) ApplyTo(cfg forms.Config) forms.Config {
	if len(cfg.Fields) == 0 && len(c.Fields) > 0 {
		cfg.Fields = append([]string(nil), c.Fields...)
	}
	for _, name := range c.Exclude {
		if !contains(cfg.Exclude, name) {
			cfg.Exclude = append(cfg.Exclude, name)
		}
	}
	for name, field := range c.FieldSettings {
		if field.Widget == "" {
			continue
		}
		if cfg.Widgets == nil {
			cfg.Widgets = make(map[string]string)
		}
		if _, exists := cfg.Widgets[name]; !exists {
			cfg.Widgets[name] = field.Widget
		}
	}
	return cfg
}
