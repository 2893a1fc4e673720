package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/datalens-tech/datalens-backend-sub013/internal/ast"
	"github.com/datalens-tech/datalens-backend-sub013/internal/compiler"
	"github.com/datalens-tech/datalens-backend-sub013/internal/dialect"
	"github.com/datalens-tech/datalens-backend-sub013/internal/formerr"
	"github.com/datalens-tech/datalens-backend-sub013/internal/mutation"
	"github.com/datalens-tech/datalens-backend-sub013/internal/registry"
	"github.com/datalens-tech/datalens-backend-sub013/internal/translation"
)

// Option configures Run.
type Option func(*config)

type config struct {
	logger *slog.Logger
}

// WithLogger sets the logger passed to the compiler. Logs are discarded by
// default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// Run compiles the scenario's formula against reg and evaluates its
// expectations.
//
// An error is returned only when the scenario itself cannot be executed
// (malformed node trees, or a failure that is not a formula error).
// Compilation errors are outcomes and are reported in the Result.
func Run(scenario *Scenario, reg *registry.Registry, opts ...Option) (*Result, error) {
	cfg := config{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	req, err := buildRequest(scenario)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	expr, err := scenario.Formula.Build()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: formula: %w", scenario.Name, err)
	}
	var expected ast.Node
	if scenario.Expect.Formula != nil {
		if expected, err = scenario.Expect.Formula.Build(); err != nil {
			return nil, fmt.Errorf("scenario %s: expect.formula: %w", scenario.Name, err)
		}
	}

	c := compiler.New(reg, compiler.WithLogger(cfg.logger))
	result := NewResult()

	compiled, err := c.Compile(&ast.Formula{Expr: expr, Position: expr.Pos()}, req)
	if err != nil {
		fe, ok := formerr.As(err)
		if !ok {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
		result.ErrorCodes = contextCodes(fe)
		for _, ctx := range fe.Contexts {
			result.Diagnostics = append(result.Diagnostics, ctx.String())
		}
		for _, e := range checkError(scenario.Expect, fe) {
			result.AddError(e.Error())
		}
		cfg.logger.Info("scenario completed",
			"scenario", scenario.Name,
			"pass", result.Pass,
			"error", fe.Code(),
		)
		return result, nil
	}

	result.Type = compiled.Type.String()
	result.Render = ast.Render(compiled.Tree)
	if req.Dialect.IsSingle() {
		sql, err := compiler.Translate(compiled, req.Dialect)
		if err != nil {
			result.Diagnostics = append(result.Diagnostics, err.Error())
		} else {
			result.Translation = sql
		}
	}

	for _, e := range checkSuccess(scenario.Expect, result, expected) {
		result.AddError(e.Error())
	}
	cfg.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"type", result.Type,
	)
	return result, nil
}

func buildRequest(s *Scenario) (compiler.Request, error) {
	var req compiler.Request
	if s.AnyDialect {
		req.ForAnyDialect = true
	} else {
		d, err := dialect.ParseList(s.Dialect)
		if err != nil {
			return req, err
		}
		req.Dialect = d
	}

	scopes, err := translation.ParseScopes(s.Scopes...)
	if err != nil {
		return req, err
	}
	req.RequiredScopes = scopes

	if req.GlobalDimensions, err = buildAll(s.Dimensions); err != nil {
		return req, fmt.Errorf("dimensions: %w", err)
	}
	ordering, err := BuildOrdering(s.DefaultOrdering)
	if err != nil {
		return req, fmt.Errorf("default_ordering: %w", err)
	}
	req.DefaultOrdering = mutation.DefaultOrdering{
		Functions: s.OrderingFunctions,
		Ordering:  ordering,
	}
	return req, nil
}
