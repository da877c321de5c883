package fields

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
)

// Text cleans free-form string input, enforcing optional length and pattern
// constraints.
type Text struct {
	Base
	minLength *int
	maxLength *int
	pattern   *regexp.Regexp
}

// TextOption configures a Text field beyond the shared base options.
type TextOption func(*Text)

// WithMinLength sets the minimum accepted length.
func WithMinLength(n int) TextOption {
	return func(t *Text) { t.minLength = &n }
}

// WithMaxLength sets the maximum accepted length.
func WithMaxLength(n int) TextOption {
	return func(t *Text) { t.maxLength = &n }
}

// WithPattern requires values to match a regular expression.
func WithPattern(re *regexp.Regexp) TextOption {
	return func(t *Text) { t.pattern = re }
}

// NewText constructs a text field. Fields without a max length default to a
// textarea widget, matching how unbounded strings are edited.
func NewText(options []Option, extra ...TextOption) *Text {
	t := &Text{Base: newBase(WidgetText, options)}
	for _, opt := range extra {
		if opt != nil {
			opt(t)
		}
	}
	if t.maxLength == nil && t.pattern == nil && t.Base.widget == WidgetText {
		t.Base.widget = WidgetTextarea
	}
	return t
}

// MaxLength returns the configured maximum length, if any.
func (t *Text) MaxLength() (int, bool) {
	if t.maxLength == nil {
		return 0, false
	}
	return *t.maxLength, true
}

// Clean implements Field.
func (t *Text) Clean(_ context.Context, value any) (any, error) {
	if done, err := t.checkEmpty(value); done {
		return nil, err
	}
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("expected text, got %T", value)
	}
	if t.minLength != nil && len(s) < *t.minLength {
		return nil, fmt.Errorf("ensure this value has at least %d characters", *t.minLength)
	}
	if t.maxLength != nil && len(s) > *t.maxLength {
		return nil, fmt.Errorf("ensure this value has at most %d characters", *t.maxLength)
	}
	if t.pattern != nil && !t.pattern.MatchString(s) {
		return nil, fmt.Errorf("enter a valid value matching %s", t.pattern)
	}
	if err := t.runValidators(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Email is a Text variant that additionally validates address syntax.
type Email struct {
	Text
}

// NewEmail constructs an email field.
func NewEmail(options []Option, extra ...TextOption) *Email {
	e := &Email{Text: *NewText(append([]Option{WithWidget(WidgetEmail)}, options...), extra...)}
	if e.Base.widget == WidgetTextarea {
		e.Base.widget = WidgetEmail
	}
	return e
}

// Clean implements Field.
func (e *Email) Clean(ctx context.Context, value any) (any, error) {
	cleaned, err := e.Text.Clean(ctx, value)
	if err != nil || cleaned == nil {
		return cleaned, err
	}
	s := cleaned.(string)
	if _, err := mail.ParseAddress(s); err != nil {
		return nil, fmt.Errorf("enter a valid email address")
	}
	return s, nil
}

// URL is a Text variant that additionally validates absolute URLs.
type URL struct {
	Text
}

// NewURL constructs a URL field.
func NewURL(options []Option, extra ...TextOption) *URL {
	u := &URL{Text: *NewText(append([]Option{WithWidget(WidgetURL)}, options...), extra...)}
	if u.Base.widget == WidgetTextarea {
		u.Base.widget = WidgetURL
	}
	return u
}

// Clean implements Field.
func (u *URL) Clean(ctx context.Context, value any) (any, error) {
	cleaned, err := u.Text.Clean(ctx, value)
	if err != nil || cleaned == nil {
		return cleaned, err
	}
	s := cleaned.(string)
	parsed, err := url.Parse(s)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("enter a valid URL")
	}
	return s, nil
}
