package render

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-docforms/pkg/fields"
	"github.com/goliatone/go-docforms/pkg/forms"
)

// Option configures a FormRenderer.
type Option func(*config)

type config struct {
	templateFS fs.FS
	engine     *Engine
	themeCfg   *theme.RendererConfig
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithEngine injects a preconfigured template engine.
func WithEngine(engine *Engine) Option {
	return func(cfg *config) {
		if engine != nil {
			cfg.engine = engine
		}
	}
}

// WithTheme applies a resolved theme configuration: its CSS variables become
// the form element's inline style and its name/variant become a class hook.
func WithTheme(cfg *theme.RendererConfig) Option {
	return func(c *config) {
		c.themeCfg = cfg
	}
}

// Options describe per-request rendering knobs.
type Options struct {
	// Method is the HTTP method the form submits with. Verbs browsers cannot
	// submit natively (PUT/PATCH/DELETE) render as POST plus a hidden
	// _method input.
	Method string

	// Action is the form's submit URL.
	Action string

	// SubmitLabel overrides the submit button text.
	SubmitLabel string
}

// FormRenderer renders bound or unbound forms into HTML.
type FormRenderer struct {
	engine   *Engine
	themeCfg *theme.RendererConfig
}

// New constructs a form renderer, defaulting to the embedded template
// bundle.
func New(options ...Option) (*FormRenderer, error) {
	cfg := config{templateFS: TemplatesFS()}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	engine := cfg.engine
	if engine == nil {
		var err error
		engine, err = NewEngine(WithFS(cfg.templateFS), WithExtension(".tpl"))
		if err != nil {
			return nil, fmt.Errorf("render: configure engine: %w", err)
		}
	}

	return &FormRenderer{engine: engine, themeCfg: cfg.themeCfg}, nil
}

// ContentType returns the media type of rendered output.
func (r *FormRenderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// RenderForm renders a form as a complete <form> element: one row per
// effective field, non-field errors up top, widget markup per field kind.
func (r *FormRenderer) RenderForm(_ context.Context, form *forms.Form, opts Options) ([]byte, error) {
	if form == nil {
		return nil, fmt.Errorf("render: form is required")
	}

	rows := make([]map[string]any, 0, len(form.Type().FieldNames()))
	multipart := false
	for _, name := range form.Type().FieldNames() {
		field, ok := form.Type().Field(name)
		if !ok {
			continue
		}
		if field.Widget() == fields.WidgetClearableFile {
			multipart = true
		}
		invalid := form.Errors().HasField(name)
		control := renderWidget(widgetContext{
			Name:    name,
			Field:   field,
			Value:   form.Value(name),
			Initial: form.Instance().Get(name),
			Invalid: invalid,
		})
		rows = append(rows, map[string]any{
			"id":       controlID(name),
			"label":    fieldLabel(form, name, field),
			"required": field.Required(),
			"control":  control,
			"help":     sanitizeHelpText(field.HelpText()),
			"errors":   form.Errors().Field(name),
		})
	}

	method := strings.ToUpper(strings.TrimSpace(opts.Method))
	if method == "" {
		method = "POST"
	}
	hiddenMethod := ""
	if method != "GET" && method != "POST" {
		hiddenMethod = method
		method = "POST"
	}
	submitLabel := opts.SubmitLabel
	if submitLabel == "" {
		submitLabel = "Save"
	}

	data := map[string]any{
		"method":           method,
		"hidden_method":    hiddenMethod,
		"action":           opts.Action,
		"multipart":        multipart,
		"rows":             rows,
		"non_field_errors": form.Errors().NonField(),
		"submit_label":     submitLabel,
		"theme_class":      themeClass(r.themeCfg),
		"css_vars":         cssVarsStyle(r.themeCfg),
	}

	rendered, err := r.engine.RenderTemplate("templates/form", data)
	if err != nil {
		return nil, fmt.Errorf("render: render form for %s: %w", form.Type().Document().Name, err)
	}
	return []byte(rendered), nil
}

// fieldLabel resolves the display label: explicit field label, then the
// schema declaration's derived label, then the capitalised field name.
func fieldLabel(form *forms.Form, name string, field fields.Field) string {
	if label := field.Label(); label != "" {
		return label
	}
	if schemaField, ok := form.Type().Document().Field(name); ok {
		return schemaField.DisplayLabel()
	}
	label := strings.ReplaceAll(name, "_", " ")
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

func themeClass(cfg *theme.RendererConfig) string {
	if cfg == nil || cfg.Theme == "" {
		return ""
	}
	class := "theme-" + cfg.Theme
	if cfg.Variant != "" {
		class += " theme-" + cfg.Theme + "--" + cfg.Variant
	}
	return class
}

func cssVarsStyle(cfg *theme.RendererConfig) string {
	if cfg == nil || len(cfg.CSSVars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(cfg.CSSVars))
	for key := range cfg.CSSVars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		name := key
		if !strings.HasPrefix(name, "--") {
			name = "--" + name
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(cfg.CSSVars[key])
		b.WriteString(";")
	}
	return b.String()
}
