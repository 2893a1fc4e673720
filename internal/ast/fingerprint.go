package ast

import (
	"fmt"
	"strings"

	"github.com/datalens-tech/datalens-backend-sub013/internal/ir"
)

// Structure encodes the node as an ir.Value for structural identity.
// Positions, data types and resolved variants are left out; function and
// operator names are compared case-insensitively.
func Structure(n Node) ir.Value {
	switch v := n.(type) {
	case nil:
		return ir.Null{}
	case *Formula:
		return node("formula", ir.O("expr", Structure(v.Expr)))
	case *Field:
		return node("field", ir.O("name", ir.String(v.Name)))
	case *Literal:
		value := v.Value
		if value == nil {
			value = ir.Null{}
		}
		return node("literal", ir.O("value", value))
	case *FuncCall:
		return node("call",
			ir.O("name", ir.String(strings.ToLower(v.Name))),
			ir.O("args", structures(v.Args)),
			ir.O("lod", optional(v.Lod)),
			ir.O("before_filter_by", optional(v.BeforeFilterBy)),
		)
	case *WindowFuncCall:
		return node("window",
			ir.O("name", ir.String(strings.ToLower(v.Name))),
			ir.O("args", structures(v.Args)),
			ir.O("grouping", optional(v.Grouping)),
			ir.O("ordering", optional(v.Ordering)),
			ir.O("before_filter_by", optional(v.BeforeFilterBy)),
		)
	case *Binary:
		return node("binary",
			ir.O("op", ir.String(strings.ToLower(v.Op))),
			ir.O("left", Structure(v.Left)),
			ir.O("right", Structure(v.Right)),
		)
	case *Unary:
		return node("unary",
			ir.O("op", ir.String(strings.ToLower(v.Op))),
			ir.O("operand", Structure(v.Operand)),
		)
	case *WindowGroupingTotal:
		return node("total")
	case *WindowGroupingWithin:
		return node("within", ir.O("dims", structures(v.Dims)))
	case *WindowGroupingAmong:
		return node("among", ir.O("dims", structures(v.Dims)))
	case *Ordering:
		return node("ordering", ir.O("items", structures(v.Items)))
	case *OrderAscending:
		return node("asc", ir.O("expr", Structure(v.Expr)))
	case *OrderDescending:
		return node("desc", ir.O("expr", Structure(v.Expr)))
	case *FixedLod:
		return node("fixed", ir.O("dims", structures(v.Dims)))
	case *IncludeLod:
		return node("include", ir.O("dims", structures(v.Dims)))
	case *ExcludeLod:
		return node("exclude", ir.O("dims", structures(v.Dims)))
	case *BeforeFilterBy:
		return node("before_filter_by", ir.O("fields", ir.Strings(v.FieldNames...)))
	case *QueryFork:
		return node("fork",
			ir.O("join_type", ir.String(v.JoinType)),
			ir.O("window_fork", ir.Bool(v.WindowFork)),
			ir.O("result", Structure(v.ResultExpr)),
			ir.O("joining", optional(v.Joining)),
			ir.O("lod", optional(v.Lod)),
			ir.O("before_filter_by", optional(v.BeforeFilterBy)),
		)
	case *QueryForkJoining:
		return node("joining", ir.O("conditions", structures(v.Conditions)))
	case *SelfEqualityCondition:
		return node("self_eq", ir.O("expr", Structure(v.Expr)))
	default:
		panic(fmt.Sprintf("ast: unhandled node %T", n))
	}
}

func node(kind string, pairs ...ir.Pair) ir.Object {
	return ir.Obj(append([]ir.Pair{ir.O("k", ir.String(kind))}, pairs...)...)
}

func structures(nodes []Node) ir.Array {
	out := make(ir.Array, len(nodes))
	for i, n := range nodes {
		out[i] = Structure(n)
	}
	return out
}

// optional encodes typed nil pointers as null.
func optional(n Node) ir.Value {
	switch v := n.(type) {
	case nil:
		return ir.Null{}
	case *Ordering:
		if v == nil {
			return ir.Null{}
		}
	case *BeforeFilterBy:
		if v == nil {
			return ir.Null{}
		}
	case *QueryForkJoining:
		if v == nil {
			return ir.Null{}
		}
	}
	return Structure(n)
}

// Fingerprint returns the structural identity of a node: equal structures
// have equal fingerprints regardless of positions, types and variants.
func Fingerprint(n Node) string {
	return ir.MustHash(ir.DomainNode, Structure(n))
}

// Equal reports whether two nodes are structurally identical.
func Equal(a, b Node) bool {
	return Fingerprint(a) == Fingerprint(b)
}
