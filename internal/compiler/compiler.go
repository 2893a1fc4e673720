// Package compiler type-checks formula trees against a registry, validates
// their aggregation and window semantics, and runs the window rewrite
// pipeline.
//
// Compile works in three stages:
//
//  1. Every call and operator is resolved bottom-up through the registry and
//     annotated with its variant and result type.
//  2. Aggregation, window and level-of-detail rules are checked over the
//     whole tree. All violations are reported together.
//  3. The window passes of package mutation rewrite the tree.
//
// The input tree is never modified.
package compiler

import (
	"errors"
	"log/slog"

	"github.com/datalens-tech/datalens-backend-sub013/internal/ast"
	"github.com/datalens-tech/datalens-backend-sub013/internal/datatype"
	"github.com/datalens-tech/datalens-backend-sub013/internal/dialect"
	"github.com/datalens-tech/datalens-backend-sub013/internal/formerr"
	"github.com/datalens-tech/datalens-backend-sub013/internal/mutation"
	"github.com/datalens-tech/datalens-backend-sub013/internal/registry"
	"github.com/datalens-tech/datalens-backend-sub013/internal/translation"
)

// ErrInvalidRequest is returned when a Request names both or neither of a
// dialect and ForAnyDialect.
var ErrInvalidRequest = errors.New("compiler: exactly one of Dialect and ForAnyDialect must be set")

// Request configures one compilation.
type Request struct {
	// Dialect is the backend the formula is resolved for. Leave empty with
	// ForAnyDialect.
	Dialect       dialect.Combo
	ForAnyDialect bool

	// RequiredScopes filters candidate variants. Zero means
	// translation.ScopeExplicitUsage. Window calls also require
	// translation.ScopeWindow.
	RequiredScopes translation.Scope

	// GlobalDimensions are the dimensions of the query the formula is
	// evaluated in.
	GlobalDimensions []ast.Node

	// DefaultOrdering is injected into ordering-dependent window calls.
	DefaultOrdering mutation.DefaultOrdering
}

// Call is one resolved call site.
type Call struct {
	Key      registry.FuncKey
	ArgTypes []datatype.DataType
	Result   datatype.DataType
	Variant  *translation.Variant
	Position ast.Position
}

// Result is a compiled formula.
type Result struct {
	Tree  ast.Node
	Type  datatype.DataType
	Calls []Call
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) {
		c.logger = logger
	}
}

// Compiler compiles formulas against one registry. It holds no per-formula
// state and is safe for concurrent use.
type Compiler struct {
	reg    *registry.Registry
	logger *slog.Logger
}

// New creates a Compiler for reg.
func New(reg *registry.Registry, opts ...Option) *Compiler {
	c := &Compiler{
		reg:    reg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the registry the compiler resolves calls with.
func (c *Compiler) Registry() *registry.Registry {
	return c.reg
}

// Compile type-checks, validates and rewrites formula.
// Failures are returned as *formerr.FormulaError, except ErrInvalidRequest.
func (c *Compiler) Compile(formula ast.Node, req Request) (*Result, error) {
	if (req.Dialect != dialect.Empty) == req.ForAnyDialect {
		return nil, ErrInvalidRequest
	}
	if req.RequiredScopes == 0 {
		req.RequiredScopes = translation.ScopeExplicitUsage
	}

	tc := &typeChecker{reg: c.reg, req: req}
	typed, err := tc.check(formula)
	if err != nil {
		c.logger.Debug("type check failed", "formula", ast.Render(formula), "error", err)
		return nil, err
	}

	resolver := mutation.Resolver{GlobalDimensions: req.GlobalDimensions, Aggregates: c.reg}
	if err := validate(typed, resolver); err != nil {
		c.logger.Debug("validation failed", "formula", ast.Render(formula), "error", err)
		return nil, err
	}

	rewritten, err := mutation.Apply(typed, mutation.WindowPipeline(resolver, req.DefaultOrdering)...)
	if err != nil {
		c.logger.Debug("window rewrite failed", "formula", ast.Render(formula), "error", err)
		return nil, err
	}

	result := &Result{Tree: rewritten, Type: typeOf(rewritten), Calls: tc.calls}
	c.logger.Debug("formula compiled",
		"formula", ast.Render(formula),
		"type", result.Type,
		"calls", len(result.Calls),
	)
	return result, nil
}

func typeOf(n ast.Node) datatype.DataType {
	if t, ok := n.(ast.Typed); ok {
		return t.DataType()
	}
	return datatype.Unsupported
}

func typesOf(nodes []ast.Node) []datatype.DataType {
	out := make([]datatype.DataType, len(nodes))
	for i, n := range nodes {
		out[i] = typeOf(n)
	}
	return out
}

// asFormulaError attaches the call site to a type error.
func asFormulaError(err error, pos ast.Position, token string) error {
	fe, ok := formerr.As(err)
	if !ok || len(fe.Contexts) == 0 {
		return err
	}
	return formerr.FromContext(fe.Kind, fe.Contexts[0], formerr.WithPosition(pos), formerr.WithToken(token))
}
