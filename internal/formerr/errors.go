// Package formerr defines the structured error values produced by the formula
// compiler.
//
// A FormulaError carries one or more contexts. Each context is a complete,
// locatable description of one problem (message, severity, source position,
// offending token and hierarchical code). Errors are created at detection time
// and never mutated; the With* helpers return copies.
//
// Mapping errors to user-facing diagnostics is the caller's job.
package formerr

import (
	"errors"
	"fmt"
	"strings"
)

// Level is the severity of an error context.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
)

// Position locates a fragment of formula source text.
// Start and End are byte offsets; Line and Column are 1-based (0 if unknown).
type Position struct {
	Start  int `json:"start"`
	End    int `json:"end"`
	Line   int `json:"line,omitempty"`
	Column int `json:"column,omitempty"`
}

// IsValid reports whether the position points anywhere.
func (p Position) IsValid() bool {
	return p.Line > 0 || p.End > p.Start
}

func (p Position) String() string {
	if p.Line > 0 {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%d-%d", p.Start, p.End)
}

// ErrorContext is one structured problem description.
type ErrorContext struct {
	Message  string   `json:"message"`
	Level    Level    `json:"level"`
	Position Position `json:"position"`
	Token    string   `json:"token,omitempty"`
	Code     []string `json:"code"`
}

// CodeString returns the dotted code path of the context.
func (c ErrorContext) CodeString() string {
	return strings.Join(c.Code, ".")
}

func (c ErrorContext) String() string {
	var sb strings.Builder
	sb.WriteString(c.CodeString())
	sb.WriteString(": ")
	sb.WriteString(c.Message)
	if c.Token != "" {
		sb.WriteString(fmt.Sprintf(" (token %q)", c.Token))
	}
	if c.Position.IsValid() {
		sb.WriteString(" at ")
		sb.WriteString(c.Position.String())
	}
	return sb.String()
}

// FormulaError is the single error type returned by the compiler core.
type FormulaError struct {
	Kind     ErrorKind
	Contexts []ErrorContext
}

// Option adjusts a context under construction.
type Option func(*contextOptions)

type contextOptions struct {
	position *Position
	token    *string
	level    *Level
	code     []string
}

// WithPosition sets the source position of the context.
func WithPosition(pos Position) Option {
	return func(o *contextOptions) { o.position = &pos }
}

// WithToken sets the offending token of the context.
func WithToken(token string) Option {
	return func(o *contextOptions) { o.token = &token }
}

// WithLevel sets the severity of the context.
func WithLevel(level Level) Option {
	return func(o *contextOptions) { o.level = &level }
}

// WithCode overrides the code path of the context.
func WithCode(code ...string) Option {
	return func(o *contextOptions) { o.code = append([]string(nil), code...) }
}

func collect(opts []Option) contextOptions {
	var o contextOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New wraps a bare message into a single-context error of the given kind.
func New(kind ErrorKind, message string, opts ...Option) *FormulaError {
	return FromContext(kind, ErrorContext{Message: message}, opts...)
}

// Newf is New with a formatted message.
func Newf(kind ErrorKind, format string, args ...any) *FormulaError {
	return New(kind, fmt.Sprintf(format, args...))
}

// FromContext builds an error from an already-structured context. Position,
// token, level and code are overridden only when an option supplies them;
// an empty code defaults to the kind's code and an empty level to LevelError.
func FromContext(kind ErrorKind, ctx ErrorContext, opts ...Option) *FormulaError {
	return &FormulaError{Kind: kind, Contexts: []ErrorContext{applyContext(kind, ctx, collect(opts))}}
}

// NewBatch builds one error carrying several contexts, e.g. all validation
// problems found in one formula.
func NewBatch(kind ErrorKind, contexts ...ErrorContext) *FormulaError {
	fe := &FormulaError{Kind: kind, Contexts: make([]ErrorContext, 0, len(contexts))}
	for _, ctx := range contexts {
		fe.Contexts = append(fe.Contexts, applyContext(kind, ctx, contextOptions{}))
	}
	return fe
}

func applyContext(kind ErrorKind, ctx ErrorContext, o contextOptions) ErrorContext {
	if o.position != nil {
		ctx.Position = *o.position
	}
	if o.token != nil {
		ctx.Token = *o.token
	}
	if o.level != nil {
		ctx.Level = *o.level
	}
	if o.code != nil {
		ctx.Code = o.code
	}
	if ctx.Level == "" {
		ctx.Level = LevelError
	}
	if len(ctx.Code) == 0 {
		ctx.Code = kind.Code()
	} else {
		ctx.Code = append([]string(nil), ctx.Code...)
	}
	return ctx
}

// Error implements the error interface.
func (e *FormulaError) Error() string {
	switch len(e.Contexts) {
	case 0:
		return e.Kind.CodeString()
	case 1:
		return e.Contexts[0].String()
	}
	parts := make([]string, len(e.Contexts))
	for i, ctx := range e.Contexts {
		parts[i] = ctx.String()
	}
	return fmt.Sprintf("%d errors: %s", len(parts), strings.Join(parts, "; "))
}

// Code returns the dotted code of the first context (or of the kind).
func (e *FormulaError) Code() string {
	if len(e.Contexts) == 0 {
		return e.Kind.CodeString()
	}
	return e.Contexts[0].CodeString()
}

// Is matches another *FormulaError of the same kind, so that
// errors.Is(err, &FormulaError{Kind: KindUnknownFunction}) works.
func (e *FormulaError) Is(target error) bool {
	var other *FormulaError
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

// WithLocator returns a copy whose messages are prefixed with a locator such
// as a dataset field name, for batch compilation reports.
func (e *FormulaError) WithLocator(locator string) *FormulaError {
	out := &FormulaError{Kind: e.Kind, Contexts: make([]ErrorContext, len(e.Contexts))}
	for i, ctx := range e.Contexts {
		ctx.Message = locator + ": " + ctx.Message
		ctx.Code = append([]string(nil), ctx.Code...)
		out.Contexts[i] = ctx
	}
	return out
}

// Merge combines several errors into one batch of the nearest common kind.
// Nil entries are skipped; it returns nil if nothing remains.
func Merge(errs ...*FormulaError) *FormulaError {
	var out *FormulaError
	for _, e := range errs {
		if e == nil {
			continue
		}
		if out == nil {
			out = &FormulaError{Kind: e.Kind}
		} else {
			out.Kind = commonKind(out.Kind, e.Kind)
		}
		out.Contexts = append(out.Contexts, e.Contexts...)
	}
	return out
}

func commonKind(a, b ErrorKind) ErrorKind {
	for cur := a; ; cur = cur.Parent() {
		if b.IsA(cur) {
			return cur
		}
		if cur == KindFormula {
			return KindFormula
		}
	}
}

// As extracts a *FormulaError from err.
func As(err error) (*FormulaError, bool) {
	var fe *FormulaError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// IsKind reports whether err is a FormulaError whose kind is kind or a
// specialization of it.
func IsKind(err error, kind ErrorKind) bool {
	fe, ok := As(err)
	if !ok {
		return false
	}
	return fe.Kind.IsA(kind)
}
