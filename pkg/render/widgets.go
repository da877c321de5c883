package render

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/goliatone/go-docforms/pkg/document"
	"github.com/goliatone/go-docforms/pkg/fields"
	"github.com/goliatone/go-docforms/pkg/forms"
	"github.com/goliatone/go-docforms/pkg/storage"
)

// controlID derives an element id from a field name.
func controlID(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	return "df-" + trimmed
}

// widgetContext is everything a control needs to render itself.
type widgetContext struct {
	Name    string
	Field   fields.Field
	Value   any
	Initial any
	Invalid bool
}

// renderWidget emits the control markup for one field. Unknown widget names
// fall through to a text input so a misconfigured form still renders.
func renderWidget(wc widgetContext) string {
	switch wc.Field.Widget() {
	case fields.WidgetTextarea:
		return renderTextarea(wc)
	case fields.WidgetNumber:
		return renderInput(wc, "number")
	case fields.WidgetCheckbox:
		return renderCheckbox(wc)
	case fields.WidgetDateTime:
		return renderInput(wc, "datetime-local")
	case fields.WidgetSelect:
		return renderSelect(wc, false)
	case fields.WidgetSelectMulti:
		return renderSelect(wc, true)
	case fields.WidgetCheckboxMulti:
		return renderCheckboxMulti(wc)
	case fields.WidgetClearableFile:
		return renderClearableFile(wc)
	case fields.WidgetEmail:
		return renderInput(wc, "email")
	case fields.WidgetURL:
		return renderInput(wc, "url")
	default:
		return renderInput(wc, "text")
	}
}

func renderInput(wc widgetContext, inputType string) string {
	var b strings.Builder
	b.WriteString(`<input type="`)
	b.WriteString(inputType)
	b.WriteString(`" id="`)
	b.WriteString(html.EscapeString(controlID(wc.Name)))
	b.WriteString(`" name="`)
	b.WriteString(html.EscapeString(wc.Name))
	b.WriteString(`"`)
	if v := valueString(wc.Value, wc.Field.Widget()); v != "" {
		b.WriteString(` value="`)
		b.WriteString(html.EscapeString(v))
		b.WriteString(`"`)
	}
	if text, ok := wc.Field.(*fields.Text); ok {
		if max, ok := text.MaxLength(); ok {
			fmt.Fprintf(&b, ` maxlength="%d"`, max)
		}
	}
	writeCommonAttrs(&b, wc)
	b.WriteString(`>`)
	return b.String()
}

func renderTextarea(wc widgetContext) string {
	var b strings.Builder
	b.WriteString(`<textarea id="`)
	b.WriteString(html.EscapeString(controlID(wc.Name)))
	b.WriteString(`" name="`)
	b.WriteString(html.EscapeString(wc.Name))
	b.WriteString(`"`)
	writeCommonAttrs(&b, wc)
	b.WriteString(`>`)
	b.WriteString(html.EscapeString(valueString(wc.Value, wc.Field.Widget())))
	b.WriteString(`</textarea>`)
	return b.String()
}

func renderCheckbox(wc widgetContext) string {
	var b strings.Builder
	b.WriteString(`<input type="checkbox" id="`)
	b.WriteString(html.EscapeString(controlID(wc.Name)))
	b.WriteString(`" name="`)
	b.WriteString(html.EscapeString(wc.Name))
	b.WriteString(`" value="true"`)
	if isTruthy(wc.Value) {
		b.WriteString(` checked`)
	}
	writeCommonAttrs(&b, wc)
	b.WriteString(`>`)
	return b.String()
}

func renderSelect(wc widgetContext, multiple bool) string {
	var b strings.Builder
	b.WriteString(`<select id="`)
	b.WriteString(html.EscapeString(controlID(wc.Name)))
	b.WriteString(`" name="`)
	b.WriteString(html.EscapeString(wc.Name))
	b.WriteString(`"`)
	if multiple {
		b.WriteString(` multiple`)
	}
	writeCommonAttrs(&b, wc)
	b.WriteString(`>`)

	selected := selectedSet(wc.Value)
	if cf, ok := wc.Field.(fields.ChoiceField); ok {
		for _, choice := range cf.ChoiceList() {
			value := choiceValueString(choice.Value)
			b.WriteString(`<option value="`)
			b.WriteString(html.EscapeString(value))
			b.WriteString(`"`)
			if _, ok := selected[value]; ok {
				b.WriteString(` selected`)
			}
			b.WriteString(`>`)
			b.WriteString(html.EscapeString(choice.Label))
			b.WriteString(`</option>`)
		}
	}
	b.WriteString(`</select>`)
	return b.String()
}

func renderCheckboxMulti(wc widgetContext) string {
	var b strings.Builder
	b.WriteString(`<ul class="df-checkbox-list" id="`)
	b.WriteString(html.EscapeString(controlID(wc.Name)))
	b.WriteString(`">`)

	selected := selectedSet(wc.Value)
	if cf, ok := wc.Field.(fields.ChoiceField); ok {
		for i, choice := range cf.ChoiceList() {
			value := choiceValueString(choice.Value)
			itemID := fmt.Sprintf("%s-%d", controlID(wc.Name), i)
			b.WriteString(`<li><label for="`)
			b.WriteString(html.EscapeString(itemID))
			b.WriteString(`"><input type="checkbox" id="`)
			b.WriteString(html.EscapeString(itemID))
			b.WriteString(`" name="`)
			b.WriteString(html.EscapeString(wc.Name))
			b.WriteString(`" value="`)
			b.WriteString(html.EscapeString(value))
			b.WriteString(`"`)
			if _, ok := selected[value]; ok {
				b.WriteString(` checked`)
			}
			b.WriteString(`> `)
			b.WriteString(html.EscapeString(choice.Label))
			b.WriteString(`</label></li>`)
		}
	}
	b.WriteString(`</ul>`)
	return b.String()
}

// renderClearableFile shows the stored file, a clear checkbox when the field
// is optional, and the upload input.
func renderClearableFile(wc widgetContext) string {
	var b strings.Builder
	ref, _ := wc.Initial.(*storage.FileRef)

	if ref != nil && ref.IsStored() {
		b.WriteString(`<p class="df-file-current">Currently: <span>`)
		b.WriteString(html.EscapeString(ref.Filename))
		b.WriteString(`</span></p>`)
		if !wc.Field.Required() {
			clearName := wc.Name + forms.ClearSuffix
			b.WriteString(`<label class="df-file-clear" for="`)
			b.WriteString(html.EscapeString(controlID(clearName)))
			b.WriteString(`"><input type="checkbox" id="`)
			b.WriteString(html.EscapeString(controlID(clearName)))
			b.WriteString(`" name="`)
			b.WriteString(html.EscapeString(clearName))
			b.WriteString(`" value="true"> Clear</label>`)
		}
	}

	b.WriteString(`<input type="file" id="`)
	b.WriteString(html.EscapeString(controlID(wc.Name)))
	b.WriteString(`" name="`)
	b.WriteString(html.EscapeString(wc.Name))
	b.WriteString(`"`)
	// Required only applies when there is nothing stored to fall back on.
	if wc.Field.Required() && (ref == nil || !ref.IsStored()) {
		b.WriteString(` required`)
	}
	if wc.Invalid {
		b.WriteString(` aria-invalid="true"`)
	}
	b.WriteString(`>`)
	return b.String()
}

func writeCommonAttrs(b *strings.Builder, wc widgetContext) {
	if wc.Field.Required() {
		b.WriteString(` required`)
	}
	if wc.Invalid {
		b.WriteString(` aria-invalid="true"`)
	}
}

// valueString renders a bound or initial value as an input value attribute.
func valueString(value any, widget string) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		if widget == fields.WidgetDateTime {
			return v.Format("2006-01-02T15:04")
		}
		return v.Format(time.RFC3339)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case *document.Instance:
		return document.IDString(v.ID())
	case *storage.FileRef:
		return v.Filename
	case []string:
		return strings.Join(v, ",")
	default:
		return document.IDString(v)
	}
}

// choiceValueString renders a choice value for option matching.
func choiceValueString(value any) string {
	return valueString(value, "")
}

// selectedSet normalises a bound or initial value into the set of selected
// option values.
func selectedSet(value any) map[string]struct{} {
	out := make(map[string]struct{})
	switch v := value.(type) {
	case nil:
	case []string:
		for _, item := range v {
			out[item] = struct{}{}
		}
	case []*document.Instance:
		for _, item := range v {
			out[document.IDString(item.ID())] = struct{}{}
		}
	case []any:
		for _, item := range v {
			out[choiceValueString(item)] = struct{}{}
		}
	default:
		if s := choiceValueString(v); s != "" {
			out[s] = struct{}{}
		}
	}
	return out
}

func isTruthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(v) {
		case "true", "on", "1", "yes":
			return true
		}
	}
	return false
}
