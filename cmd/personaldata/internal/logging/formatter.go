package logging

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/thalib/personaldata/cmd/personaldata/internal/constants"
	"github.com/thalib/personaldata/cmd/personaldata/internal/redact"
)

// Record attribute names available to templates.
const (
	AttrName    = "name"
	AttrLevel   = "level"
	AttrTime    = "time"
	AttrMessage = "message"
)

// Record is a single log call before it is rendered to text.
type Record struct {
	Name    string
	Level   string
	Time    time.Time
	Message string

	// Fields holds extra event attributes. They never shadow the four
	// built-in attributes.
	Fields map[string]any
}

// Formatter renders a Record to one line of text, without the trailing newline.
type Formatter interface {
	Format(rec Record) (string, error)
}

// FormatError reports that a record could not be rendered through a
// template, typically because the template references an attribute the
// record does not carry.
type FormatError struct {
	Template string
	Err      error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("logging: format record with %q: %v", e.Template, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// TemplateFormatter is the base, non-redacting formatter.
type TemplateFormatter struct {
	text       string
	timeLayout string
	tmpl       *template.Template
}

// NewTemplateFormatter parses text as a text/template evaluated against the
// record attributes. Empty arguments select constants.LogFormat and
// constants.LogTimeLayout.
func NewTemplateFormatter(text, timeLayout string) (*TemplateFormatter, error) {
	if text == "" {
		text = constants.LogFormat
	}
	if timeLayout == "" {
		timeLayout = constants.LogTimeLayout
	}

	tmpl, err := template.New("record").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log template: %w", err)
	}

	return &TemplateFormatter{
		text:       text,
		timeLayout: timeLayout,
		tmpl:       tmpl,
	}, nil
}

// Format renders rec. Missing attributes yield a *FormatError.
func (f *TemplateFormatter) Format(rec Record) (string, error) {
	attrs := make(map[string]any, len(rec.Fields)+4)
	for k, v := range rec.Fields {
		attrs[k] = v
	}
	attrs[AttrName] = rec.Name
	attrs[AttrLevel] = rec.Level
	attrs[AttrTime] = rec.Time.Format(f.timeLayout)
	attrs[AttrMessage] = rec.Message

	var buf bytes.Buffer
	if err := f.tmpl.Execute(&buf, attrs); err != nil {
		return "", &FormatError{Template: f.text, Err: err}
	}
	return buf.String(), nil
}

// RedactingConfig configures a RedactingFormatter.
type RedactingConfig struct {
	// Fields are masked in the rendered line. An empty set masks nothing.
	Fields []string
	// Token replaces each masked value.
	Token string
	// Separator ends a field value. It must not be empty.
	Separator string
	// Template and TimeLayout configure the base formatter when Base is nil.
	Template   string
	TimeLayout string
	// Sequential re-scans the line once per field, in order.
	Sequential bool
	// Base overrides the template formatter.
	Base Formatter
}

// DefaultRedactingConfig masks constants.PIIFields with the default token
// and separator.
func DefaultRedactingConfig() RedactingConfig {
	return RedactingConfig{
		Fields:    append([]string(nil), constants.PIIFields...),
		Token:     constants.RedactedPlaceholder,
		Separator: constants.FieldSeparator,
	}
}

// RedactingFormatter renders a record through a base formatter and masks
// the configured fields of the result.
type RedactingFormatter struct {
	base     Formatter
	redactor *redact.Redactor
}

// NewRedactingFormatter validates cfg and builds the formatter. An empty
// separator fails with redact.ErrInvalidSeparator.
func NewRedactingFormatter(cfg RedactingConfig) (*RedactingFormatter, error) {
	r, err := redact.New(cfg.Fields,
		redact.WithToken(cfg.Token),
		redact.WithSeparator(cfg.Separator),
		redact.WithSequential(cfg.Sequential),
	)
	if err != nil {
		return nil, err
	}

	base := cfg.Base
	if base == nil {
		tf, err := NewTemplateFormatter(cfg.Template, cfg.TimeLayout)
		if err != nil {
			return nil, err
		}
		base = tf
	}

	return &RedactingFormatter{
		base:     base,
		redactor: r,
	}, nil
}

// Format renders rec with the base formatter, then masks it. Errors from
// the base formatter are returned unchanged.
func (f *RedactingFormatter) Format(rec Record) (string, error) {
	line, err := f.base.Format(rec)
	if err != nil {
		return "", err
	}
	return f.redactor.Redact(line), nil
}

// Fields returns the masked field names.
func (f *RedactingFormatter) Fields() []string {
	return f.redactor.Fields()
}
