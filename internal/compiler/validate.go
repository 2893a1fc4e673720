package compiler

import (
	"fmt"
	"strings"

	"github.com/datalens-tech/datalens-backend-sub013/internal/ast"
	"github.com/datalens-tech/datalens-backend-sub013/internal/formerr"
	"github.com/datalens-tech/datalens-backend-sub013/internal/mutation"
)

// validate checks aggregation, window and level-of-detail rules.
// Returns all problems found (does not fail fast).
func validate(tree ast.Node, resolver mutation.Resolver) error {
	v := &validator{resolver: resolver}
	ast.Inspect(tree, func(n ast.Node, parents []ast.Node) bool {
		switch node := n.(type) {
		case *ast.FuncCall:
			if resolver.IsAggregateCall(node) {
				v.checkAggregate(node, parents)
			}
		case *ast.WindowFuncCall:
			v.checkWindow(node, parents)
		}
		return true
	})
	v.checkConsistency(tree)

	if err := formerr.Merge(v.errs...); err != nil {
		return err
	}
	return nil
}

type validator struct {
	resolver mutation.Resolver
	errs     []*formerr.FormulaError
}

func (v *validator) add(kind formerr.ErrorKind, n ast.Node, format string, args ...any) {
	v.errs = append(v.errs, formerr.New(kind, fmt.Sprintf(format, args...),
		formerr.WithPosition(n.Pos()),
		formerr.WithToken(ast.Render(n)),
	))
}

// enclosingAggregate returns the nearest aggregate call among parents, or
// nil when a query fork or the root comes first.
func (v *validator) enclosingAggregate(parents []ast.Node) *ast.FuncCall {
	for i := len(parents) - 1; i >= 0; i-- {
		switch p := parents[i].(type) {
		case *ast.FuncCall:
			if v.resolver.IsAggregateCall(p) {
				return p
			}
		case *ast.QueryFork:
			return nil
		}
	}
	return nil
}

func (v *validator) checkAggregate(call *ast.FuncCall, parents []ast.Node) {
	outer := v.enclosingAggregate(parents)

	if outer != nil && call.Lod == nil {
		v.add(formerr.KindDoubleAggregation, call,
			"Double aggregation: %s is aggregated at the same level as the enclosing %s",
			strings.ToUpper(call.Name), strings.ToUpper(outer.Name))
	}

	if exclude, ok := call.Lod.(*ast.ExcludeLod); ok {
		level := v.resolver.AmbientDimensions(parents)
		for _, dim := range exclude.Dims {
			if !level.Has(dim) {
				v.add(formerr.KindLodIncompatibleDimensions, dim,
					"Cannot EXCLUDE %s in %s: it is not a dimension of the enclosing level",
					ast.Render(dim), strings.ToUpper(call.Name))
			}
		}
	}

	if outer != nil && call.Lod != nil {
		own := v.resolver.AmbientDimensions(append(parents[:len(parents):len(parents)], call))
		for id := range own.ParentIDs {
			if _, ok := own.IDs[id]; !ok {
				v.add(formerr.KindLodIncompatibleDimensions, call,
					"The dimensions of %s must include all dimensions of the enclosing %s",
					strings.ToUpper(call.Name), strings.ToUpper(outer.Name))
				break
			}
		}
	}
}

func (v *validator) checkWindow(call *ast.WindowFuncCall, parents []ast.Node) {
	if outer := v.enclosingAggregate(parents); outer != nil {
		v.add(formerr.KindWindowInsideAggregation, call,
			"Window function %s cannot be used inside aggregate function %s",
			strings.ToUpper(call.Name), strings.ToUpper(outer.Name))
	}

	if len(v.resolver.AmbientDimensions(parents).List) == 0 {
		return
	}
	for _, arg := range call.Args {
		if field := v.bareField(arg); field != nil {
			v.add(formerr.KindWindowWithoutAggregation, field,
				"Window function %s requires aggregated arguments when the query has dimensions: %s is not aggregated",
				strings.ToUpper(call.Name), ast.Render(field))
			return
		}
	}
}

// bareField returns the first field of n that is not under an aggregate
// call. Nested window calls are checked on their own.
func (v *validator) bareField(n ast.Node) *ast.Field {
	var found *ast.Field
	ast.Inspect(n, func(node ast.Node, _ []ast.Node) bool {
		if found != nil || v.resolver.IsAggregateCall(node) {
			return false
		}
		switch x := node.(type) {
		case *ast.WindowFuncCall:
			return false
		case *ast.Field:
			found = x
		}
		return true
	})
	return found
}

// checkConsistency rejects top-level expressions that mix aggregated values
// with fields that are neither aggregated nor dimensions.
func (v *validator) checkConsistency(tree ast.Node) {
	aggregated := ast.Any(tree, func(n ast.Node) bool {
		if _, ok := n.(*ast.WindowFuncCall); ok {
			return true
		}
		return v.resolver.IsAggregateCall(n)
	})
	if !aggregated {
		return
	}

	dims := v.resolver.AmbientDimensions(nil)
	ast.Inspect(tree, func(n ast.Node, _ []ast.Node) bool {
		if v.resolver.IsAggregateCall(n) {
			return false
		}
		switch x := n.(type) {
		case *ast.WindowFuncCall, *ast.QueryFork:
			return false
		case *ast.Field:
			if !dims.Has(x) {
				v.add(formerr.KindInconsistentAggregation, x,
					"Inconsistent aggregation: %s is neither aggregated nor a dimension", ast.Render(x))
			}
		}
		return true
	})
}
