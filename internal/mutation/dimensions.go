package mutation

import (
	"github.com/datalens-tech/datalens-backend-sub013/internal/ast"
)

// AggregateChecker tells aggregate functions apart from scalar ones.
// *registry.Registry implements it.
type AggregateChecker interface {
	IsAggregate(name string) bool
}

// Dimensions is the set of dimension expressions in scope at a tree position.
type Dimensions struct {
	// List holds the dimensions in order.
	List []ast.Node
	// IDs holds the fingerprints of List.
	IDs map[string]struct{}
	// ParentIDs holds the fingerprints of the enclosing level's dimensions:
	// the level in effect just outside the nearest scoping construct. It is
	// empty when no construct encloses the position.
	ParentIDs map[string]struct{}
}

// Has reports whether a dimension with the same structure is in scope.
func (d Dimensions) Has(n ast.Node) bool {
	_, ok := d.IDs[ast.Fingerprint(n)]
	return ok
}

// Resolver computes ambient dimensions from the ancestor stack.
//
// Scoping constructs are aggregate function calls and query forks. An
// aggregate with an inherited level of detail keeps the dimensions of its
// parent level; FIXED replaces them, INCLUDE adds to them and EXCLUDE removes
// from them. Window calls do not open a level.
type Resolver struct {
	GlobalDimensions []ast.Node
	Aggregates       AggregateChecker
}

// AmbientDimensions returns the dimensions in scope for a node whose
// ancestors, ordered from the root, are parents.
func (r Resolver) AmbientDimensions(parents []ast.Node) Dimensions {
	current := dedupe(r.GlobalDimensions)
	var parent []ast.Node
	scoped := false

	for _, p := range parents {
		lod, ok := r.scopeOf(p)
		if !ok {
			continue
		}
		parent = current
		current = applyLod(lod, current)
		scoped = true
	}

	out := Dimensions{List: current, IDs: idSet(current), ParentIDs: map[string]struct{}{}}
	if scoped {
		out.ParentIDs = idSet(parent)
	}
	return out
}

// IsAggregateCall reports whether n is a call to an aggregate function.
func (r Resolver) IsAggregateCall(n ast.Node) bool {
	call, ok := n.(*ast.FuncCall)
	return ok && r.Aggregates != nil && r.Aggregates.IsAggregate(call.Name)
}

// scopeOf returns the level-of-detail node of a scoping construct (nil for
// an inherited level).
func (r Resolver) scopeOf(n ast.Node) (ast.Node, bool) {
	switch v := n.(type) {
	case *ast.FuncCall:
		if r.IsAggregateCall(v) {
			return v.Lod, true
		}
	case *ast.QueryFork:
		return v.Lod, true
	}
	return nil, false
}

func applyLod(lod ast.Node, current []ast.Node) []ast.Node {
	switch l := lod.(type) {
	case *ast.FixedLod:
		return dedupe(l.Dims)
	case *ast.IncludeLod:
		return dedupe(append(append([]ast.Node(nil), current...), l.Dims...))
	case *ast.ExcludeLod:
		drop := idSet(l.Dims)
		var out []ast.Node
		for _, d := range current {
			if _, ok := drop[ast.Fingerprint(d)]; !ok {
				out = append(out, d)
			}
		}
		return out
	default:
		return current
	}
}

func dedupe(nodes []ast.Node) []ast.Node {
	seen := make(map[string]struct{}, len(nodes))
	var out []ast.Node
	for _, n := range nodes {
		id := ast.Fingerprint(n)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, n)
	}
	return out
}

func idSet(nodes []ast.Node) map[string]struct{} {
	out := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		out[ast.Fingerprint(n)] = struct{}{}
	}
	return out
}
