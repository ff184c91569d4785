// Package redact masks the values of named key=value fields in
// separator-delimited log lines such as "name=Bob;email=bob@example.com;".
//
// Matching is syntactic. A field is recognised when its exact, case-sensitive
// name is followed by '=' and preceded by the start of the line, the
// separator, or whitespace. The value runs up to, but not including, the next
// separator or the end of the line.
package redact

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidSeparator is returned by New when the separator is empty.
var ErrInvalidSeparator = errors.New("redact: separator must not be empty")

const (
	// DefaultToken replaces every masked value unless WithToken is given.
	DefaultToken = "***"
	// DefaultSeparator delimits fields unless WithSeparator is given.
	DefaultSeparator = ";"
)

// Redactor masks a fixed set of fields. It is immutable after New and safe
// for concurrent use.
type Redactor struct {
	fields     []string
	token      string
	separator  string
	sequential bool

	// all matches every field in a single pass.
	all *regexp.Regexp
	// each holds one pattern per field for sequential mode.
	each []*regexp.Regexp
}

// Option configures a Redactor.
type Option func(*Redactor)

// WithToken sets the replacement written in place of each masked value.
func WithToken(token string) Option {
	return func(r *Redactor) {
		r.token = token
	}
}

// WithSeparator sets the literal string that ends a field value.
func WithSeparator(sep string) Option {
	return func(r *Redactor) {
		r.separator = sep
	}
}

// WithSequential makes the Redactor process fields one at a time in the
// order given, re-scanning the already modified line for every field. A
// later field can then be masked inside text that an earlier field's value
// contained. The default single pass never looks inside a consumed value.
func WithSequential(sequential bool) Option {
	return func(r *Redactor) {
		r.sequential = sequential
	}
}

// New compiles a Redactor for fields. Empty names are ignored and
// duplicates are harmless.
func New(fields []string, opts ...Option) (*Redactor, error) {
	r := &Redactor{
		token:     DefaultToken,
		separator: DefaultSeparator,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.separator == "" {
		return nil, ErrInvalidSeparator
	}
	r.compile(fields)
	return r, nil
}

// Redact masks every field=value pair of message whose name is in fields.
// It compiles the patterns on every call; use New when the same field set
// is applied repeatedly. An empty separator makes each value run to the end
// of the message.
func Redact(fields []string, token, message, separator string) string {
	r := &Redactor{
		token:     token,
		separator: separator,
	}
	r.compile(fields)
	return r.Redact(message)
}

func (r *Redactor) compile(fields []string) {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		r.fields = append(r.fields, f)
	}
	if len(r.fields) == 0 {
		return
	}

	r.all = regexp.MustCompile(r.pattern(r.fields...))
	if r.sequential {
		r.each = make([]*regexp.Regexp, len(r.fields))
		for i, f := range r.fields {
			r.each[i] = regexp.MustCompile(r.pattern(f))
		}
	}
}

// pattern builds `(?:^|\s|SEP)(NAME|...)=`. Only the key is matched; the
// value boundary is found with a literal search so multi-character
// separators work.
func (r *Redactor) pattern(names ...string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = regexp.QuoteMeta(n)
	}

	var b strings.Builder
	b.WriteString(`(?:^|\s`)
	if r.separator != "" {
		b.WriteByte('|')
		b.WriteString(regexp.QuoteMeta(r.separator))
	}
	b.WriteString(`)(`)
	b.WriteString(strings.Join(quoted, "|"))
	b.WriteString(`)=`)
	return b.String()
}

// Fields returns a copy of the field names the Redactor masks.
func (r *Redactor) Fields() []string {
	return append([]string(nil), r.fields...)
}

// Token returns the replacement string.
func (r *Redactor) Token() string {
	return r.token
}

// Separator returns the value delimiter.
func (r *Redactor) Separator() string {
	return r.separator
}

// Redact returns message with the configured fields masked.
func (r *Redactor) Redact(message string) string {
	if r.all == nil || message == "" {
		return message
	}
	if !r.sequential {
		return r.replace(r.all, message)
	}
	for _, re := range r.each {
		message = r.replace(re, message)
	}
	return message
}

func (r *Redactor) replace(re *regexp.Regexp, message string) string {
	matches := re.FindAllStringSubmatchIndex(message, -1)
	if len(matches) == 0 {
		return message
	}

	var b strings.Builder
	b.Grow(len(message))
	last := 0
	for _, m := range matches {
		// m[2]:m[3] is the field name; skip keys found inside a value that
		// an earlier match already consumed.
		if m[2] < last {
			continue
		}
		valueStart := m[3] + 1
		b.WriteString(message[last:valueStart])
		b.WriteString(r.token)
		last = r.valueEnd(message, valueStart)
	}
	b.WriteString(message[last:])
	return b.String()
}

func (r *Redactor) valueEnd(message string, start int) int {
	if r.separator == "" {
		return len(message)
	}
	if i := strings.Index(message[start:], r.separator); i >= 0 {
		return start + i
	}
	return len(message)
}
