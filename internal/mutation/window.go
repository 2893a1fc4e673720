package mutation

import (
	"fmt"
	"slices"

	"github.com/datalens-tech/datalens-backend-sub013/internal/ast"
	"github.com/datalens-tech/datalens-backend-sub013/internal/formerr"
	"github.com/datalens-tech/datalens-backend-sub013/internal/registry"
)

// AmongToWithinGroupingMutation rewrites AMONG groupings as WITHIN the
// ambient dimensions not listed in AMONG.
type AmongToWithinGroupingMutation struct {
	Resolver Resolver
}

func (m AmongToWithinGroupingMutation) MatchNode(node ast.Node, parents []ast.Node) bool {
	w, ok := node.(*ast.WindowFuncCall)
	if !ok {
		return false
	}
	_, ok = w.Grouping.(*ast.WindowGroupingAmong)
	return ok
}

func (m AmongToWithinGroupingMutation) MakeReplacement(node ast.Node, parents []ast.Node) (ast.Node, error) {
	w := node.(*ast.WindowFuncCall)
	among := w.Grouping.(*ast.WindowGroupingAmong)
	ambient := m.Resolver.AmbientDimensions(parents)

	excluded := make(map[string]struct{}, len(among.Dims))
	var unknown []formerr.ErrorContext
	for _, dim := range among.Dims {
		if !ambient.Has(dim) {
			unknown = append(unknown, formerr.ErrorContext{
				Message:  fmt.Sprintf("Invalid dimension for AMONG in %s: %s is not a dimension of the query", w.Name, ast.Render(dim)),
				Position: dim.Pos(),
				Token:    ast.Render(dim),
			})
			continue
		}
		excluded[ast.Fingerprint(dim)] = struct{}{}
	}
	if len(unknown) > 0 {
		return nil, formerr.NewBatch(formerr.KindUnknownWindowDimension, unknown...)
	}

	var within []ast.Node
	for _, dim := range ambient.List {
		if _, ok := excluded[ast.Fingerprint(dim)]; !ok {
			within = append(within, dim)
		}
	}

	out := *w
	out.Grouping = &ast.WindowGroupingWithin{Dims: within, Position: among.Position}
	return &out, nil
}

// IgnoreExtraWithinGroupingMutation drops WITHIN dimensions that cannot
// partition the window at this level: anything that is neither bound to the
// ambient dimensions nor an aggregate expression. Dropping is silent.
type IgnoreExtraWithinGroupingMutation struct {
	Resolver Resolver
}

func (m IgnoreExtraWithinGroupingMutation) MatchNode(node ast.Node, parents []ast.Node) bool {
	w, ok := node.(*ast.WindowFuncCall)
	if !ok {
		return false
	}
	within, ok := w.Grouping.(*ast.WindowGroupingWithin)
	if !ok {
		return false
	}
	kept := m.keep(within.Dims, m.Resolver.AmbientDimensions(parents))
	return len(kept) != len(within.Dims)
}

func (m IgnoreExtraWithinGroupingMutation) MakeReplacement(node ast.Node, parents []ast.Node) (ast.Node, error) {
	w := node.(*ast.WindowFuncCall)
	within := w.Grouping.(*ast.WindowGroupingWithin)

	out := *w
	out.Grouping = &ast.WindowGroupingWithin{
		Dims:     m.keep(within.Dims, m.Resolver.AmbientDimensions(parents)),
		Position: within.Position,
	}
	return &out, nil
}

func (m IgnoreExtraWithinGroupingMutation) keep(dims []ast.Node, ambient Dimensions) []ast.Node {
	var out []ast.Node
	for _, dim := range dims {
		if boundToDimensions(dim, ambient.IDs) || m.isAggregateExpr(dim) {
			out = append(out, dim)
		}
	}
	return out
}

// boundToDimensions reports whether dim references at least one field and
// every field it reaches sits inside a subexpression that is itself one of
// the dimensions in ids.
func boundToDimensions(dim ast.Node, ids map[string]struct{}) bool {
	if len(ast.FieldNames(dim)) == 0 {
		return false
	}
	return isBoundOnlyTo(dim, ids)
}

func isBoundOnlyTo(n ast.Node, ids map[string]struct{}) bool {
	if _, ok := ids[ast.Fingerprint(n)]; ok {
		return true
	}
	if _, ok := n.(*ast.Field); ok {
		return false
	}
	for _, child := range n.Children() {
		if !isBoundOnlyTo(child, ids) {
			return false
		}
	}
	return true
}

// isAggregateExpr reports whether n contains an aggregate call and every
// field it references sits under one.
func (m IgnoreExtraWithinGroupingMutation) isAggregateExpr(n ast.Node) bool {
	hasAggregate := false
	bareField := false
	ast.Inspect(n, func(node ast.Node, _ []ast.Node) bool {
		if m.Resolver.IsAggregateCall(node) {
			hasAggregate = true
			return false
		}
		if _, ok := node.(*ast.Field); ok {
			bareField = true
		}
		return true
	})
	return hasAggregate && !bareField
}

// DefaultOrderingFunctions are the window functions that need an ordering
// and receive the default one.
var DefaultOrderingFunctions = []string{
	"rsum", "rcount", "rmin", "rmax", "ravg",
	"msum", "mcount", "mmin", "mmax", "mavg",
	"lag", "first", "last", "nth",
}

// DefaultWindowOrderingMutation gives ordering-dependent window calls the
// default ordering. Calls without ordering get it verbatim; calls with an
// ordering get the default items whose expressions they do not order by yet,
// appended after their own items.
type DefaultWindowOrderingMutation struct {
	// Functions lists the window function names that take the default
	// ordering. Nil means DefaultOrderingFunctions.
	Functions []string
	// Ordering is the default ordering. Items that are not *ast.OrderAscending
	// or *ast.OrderDescending are ordered ascending.
	Ordering []ast.Node
}

func (m DefaultWindowOrderingMutation) applies(name string) bool {
	functions := m.Functions
	if functions == nil {
		functions = DefaultOrderingFunctions
	}
	folded := registry.FoldName(name)
	return slices.ContainsFunc(functions, func(f string) bool { return registry.FoldName(f) == folded })
}

func (m DefaultWindowOrderingMutation) defaults() []ast.Node {
	out := make([]ast.Node, len(m.Ordering))
	for i, item := range m.Ordering {
		if _, ok := ast.OrderExpr(item); ok {
			out[i] = item
		} else {
			out[i] = ast.Asc(item)
		}
	}
	return out
}

func (m DefaultWindowOrderingMutation) missing(w *ast.WindowFuncCall) []ast.Node {
	defaults := m.defaults()
	if w.Ordering == nil {
		return defaults
	}
	present := make(map[string]struct{}, len(w.Ordering.Items))
	for _, item := range w.Ordering.Items {
		if expr, ok := ast.OrderExpr(item); ok {
			present[ast.Fingerprint(expr)] = struct{}{}
		}
	}
	var out []ast.Node
	for _, item := range defaults {
		expr, _ := ast.OrderExpr(item)
		id := ast.Fingerprint(expr)
		if _, ok := present[id]; ok {
			continue
		}
		present[id] = struct{}{}
		out = append(out, item)
	}
	return out
}

func (m DefaultWindowOrderingMutation) MatchNode(node ast.Node, parents []ast.Node) bool {
	w, ok := node.(*ast.WindowFuncCall)
	if !ok || len(m.Ordering) == 0 || !m.applies(w.Name) {
		return false
	}
	return len(m.missing(w)) > 0
}

func (m DefaultWindowOrderingMutation) MakeReplacement(node ast.Node, parents []ast.Node) (ast.Node, error) {
	w := node.(*ast.WindowFuncCall)
	out := *w
	if w.Ordering == nil {
		out.Ordering = &ast.Ordering{Items: m.missing(w)}
		return &out, nil
	}
	ordering := *w.Ordering
	ordering.Items = append(slices.Clone(w.Ordering.Items), m.missing(w)...)
	out.Ordering = &ordering
	return &out, nil
}

// WindowFunctionToQueryForkMutation wraps every window call in a window
// query fork: an inner self-join on each ambient dimension with a FIXED
// level of detail over the same dimensions. Calls already wrapped are left
// alone, so the pass is idempotent.
type WindowFunctionToQueryForkMutation struct {
	Resolver Resolver
}

func (m WindowFunctionToQueryForkMutation) MatchNode(node ast.Node, parents []ast.Node) bool {
	if _, ok := node.(*ast.WindowFuncCall); !ok {
		return false
	}
	if len(parents) > 0 {
		if fork, ok := parents[len(parents)-1].(*ast.QueryFork); ok && fork.WindowFork &&
			ast.Fingerprint(fork.ResultExpr) == ast.Fingerprint(node) {
			return false
		}
	}
	return true
}

func (m WindowFunctionToQueryForkMutation) MakeReplacement(node ast.Node, parents []ast.Node) (ast.Node, error) {
	w := node.(*ast.WindowFuncCall)
	dims := m.Resolver.AmbientDimensions(parents).List

	conditions := make([]ast.Node, len(dims))
	for i, dim := range dims {
		conditions[i] = &ast.SelfEqualityCondition{Expr: dim, Position: dim.Pos()}
	}

	fork := &ast.QueryFork{
		JoinType:   ast.JoinInner,
		WindowFork: true,
		ResultExpr: w,
		Joining:    &ast.QueryForkJoining{Conditions: conditions, Position: w.Position},
		Lod:        &ast.FixedLod{Dims: slices.Clone(dims), Position: w.Position},
		Type:       w.Type,
		Position:   w.Position,
	}
	if w.BeforeFilterBy != nil {
		fork.BeforeFilterBy = &ast.BeforeFilterBy{
			FieldNames: slices.Clone(w.BeforeFilterBy.FieldNames),
			Position:   w.BeforeFilterBy.Position,
		}
	}
	return fork, nil
}

// DefaultOrdering configures DefaultWindowOrderingMutation in WindowPipeline.
type DefaultOrdering struct {
	Functions []string
	Ordering  []ast.Node
}

// WindowPipeline returns the window passes in the order they must run.
func WindowPipeline(resolver Resolver, ordering DefaultOrdering) []Mutation {
	return []Mutation{
		AmongToWithinGroupingMutation{Resolver: resolver},
		IgnoreExtraWithinGroupingMutation{Resolver: resolver},
		DefaultWindowOrderingMutation{Functions: ordering.Functions, Ordering: ordering.Ordering},
		WindowFunctionToQueryForkMutation{Resolver: resolver},
	}
}
