// Package ast defines the typed formula tree consumed by the compiler.
//
// The parser that produces these trees lives outside this module; leaves
// arrive already tagged with their data types. Nodes are immutable values:
// rewrites build new nodes with WithChildren and never modify a node in
// place, so a subtree may be referenced from several trees safely.
package ast

import (
	"github.com/datalens-tech/datalens-backend-sub013/internal/datatype"
	"github.com/datalens-tech/datalens-backend-sub013/internal/formerr"
	"github.com/datalens-tech/datalens-backend-sub013/internal/ir"
	"github.com/datalens-tech/datalens-backend-sub013/internal/translation"
)

// Position locates a node in the formula source.
type Position = formerr.Position

// Node is a sealed interface implemented by every tree node.
type Node interface {
	// Pos returns the source position of the node.
	Pos() Position
	// Children returns the non-nil child nodes in a fixed order.
	Children() []Node
	// WithChildren returns a copy of the node with its children replaced.
	// children must have the length and order returned by Children.
	WithChildren(children []Node) Node

	node()
}

// Typed is implemented by expression nodes.
type Typed interface {
	Node
	DataType() datatype.DataType
}

// Formula is the root of a formula tree.
type Formula struct {
	Expr     Node
	Position Position
}

// Field references a dataset field.
type Field struct {
	Name     string
	Type     datatype.DataType
	Position Position
}

// Literal is a constant. Type is normally a CONST_ kind or NULL.
type Literal struct {
	Value    ir.Value
	Type     datatype.DataType
	Position Position
}

// FuncCall is a scalar or aggregate function call. Lod is nil (inherited
// level of detail) or one of *FixedLod, *IncludeLod, *ExcludeLod.
type FuncCall struct {
	Name           string
	Args           []Node
	Lod            Node
	BeforeFilterBy *BeforeFilterBy
	Variant        *translation.Variant
	Type           datatype.DataType
	Position       Position
}

// WindowFuncCall is a window function call. Grouping is nil or one of
// *WindowGroupingTotal, *WindowGroupingWithin, *WindowGroupingAmong.
type WindowFuncCall struct {
	Name           string
	Args           []Node
	Grouping       Node
	Ordering       *Ordering
	BeforeFilterBy *BeforeFilterBy
	Variant        *translation.Variant
	Type           datatype.DataType
	Position       Position
}

// Binary is a binary operator application.
type Binary struct {
	Op       string
	Left     Node
	Right    Node
	Variant  *translation.Variant
	Type     datatype.DataType
	Position Position
}

// Unary is a unary operator application.
type Unary struct {
	Op       string
	Operand  Node
	Variant  *translation.Variant
	Type     datatype.DataType
	Position Position
}

// WindowGroupingTotal computes the window over all rows.
type WindowGroupingTotal struct {
	Position Position
}

// WindowGroupingWithin partitions the window by Dims.
type WindowGroupingWithin struct {
	Dims     []Node
	Position Position
}

// WindowGroupingAmong partitions the window by every ambient dimension
// except Dims.
type WindowGroupingAmong struct {
	Dims     []Node
	Position Position
}

// Ordering is an ORDER BY clause of *OrderAscending and *OrderDescending items.
type Ordering struct {
	Items    []Node
	Position Position
}

// OrderAscending orders by Expr ascending.
type OrderAscending struct {
	Expr     Node
	Position Position
}

// OrderDescending orders by Expr descending.
type OrderDescending struct {
	Expr     Node
	Position Position
}

// FixedLod evaluates an aggregate at exactly Dims.
type FixedLod struct {
	Dims     []Node
	Position Position
}

// IncludeLod evaluates an aggregate at the parent dimensions plus Dims.
type IncludeLod struct {
	Dims     []Node
	Position Position
}

// ExcludeLod evaluates an aggregate at the parent dimensions minus Dims.
type ExcludeLod struct {
	Dims     []Node
	Position Position
}

// BeforeFilterBy names fields whose filters apply after the expression.
type BeforeFilterBy struct {
	FieldNames []string
	Position   Position
}

// JoinInner is the only join type produced by the compiler.
const JoinInner = "inner"

// QueryFork evaluates ResultExpr in a separate sub-query joined back to the
// main query on Joining.
type QueryFork struct {
	JoinType       string
	WindowFork     bool
	ResultExpr     Node
	Joining        *QueryForkJoining
	Lod            Node
	BeforeFilterBy *BeforeFilterBy
	Type           datatype.DataType
	Position       Position
}

// QueryForkJoining lists the join conditions of a QueryFork.
type QueryForkJoining struct {
	Conditions []Node
	Position   Position
}

// SelfEqualityCondition joins on equality of Expr in both sub-queries.
type SelfEqualityCondition struct {
	Expr     Node
	Position Position
}

func (*Formula) node()               {}
func (*Field) node()                 {}
func (*Literal) node()               {}
func (*FuncCall) node()              {}
func (*WindowFuncCall) node()        {}
func (*Binary) node()                {}
func (*Unary) node()                 {}
func (*WindowGroupingTotal) node()   {}
func (*WindowGroupingWithin) node()  {}
func (*WindowGroupingAmong) node()   {}
func (*Ordering) node()              {}
func (*OrderAscending) node()        {}
func (*OrderDescending) node()       {}
func (*FixedLod) node()              {}
func (*IncludeLod) node()            {}
func (*ExcludeLod) node()            {}
func (*BeforeFilterBy) node()        {}
func (*QueryFork) node()             {}
func (*QueryForkJoining) node()      {}
func (*SelfEqualityCondition) node() {}

func (n *Formula) Pos() Position               { return n.Position }
func (n *Field) Pos() Position                 { return n.Position }
func (n *Literal) Pos() Position               { return n.Position }
func (n *FuncCall) Pos() Position              { return n.Position }
func (n *WindowFuncCall) Pos() Position        { return n.Position }
func (n *Binary) Pos() Position                { return n.Position }
func (n *Unary) Pos() Position                 { return n.Position }
func (n *WindowGroupingTotal) Pos() Position   { return n.Position }
func (n *WindowGroupingWithin) Pos() Position  { return n.Position }
func (n *WindowGroupingAmong) Pos() Position   { return n.Position }
func (n *Ordering) Pos() Position              { return n.Position }
func (n *OrderAscending) Pos() Position        { return n.Position }
func (n *OrderDescending) Pos() Position       { return n.Position }
func (n *FixedLod) Pos() Position              { return n.Position }
func (n *IncludeLod) Pos() Position            { return n.Position }
func (n *ExcludeLod) Pos() Position            { return n.Position }
func (n *BeforeFilterBy) Pos() Position        { return n.Position }
func (n *QueryFork) Pos() Position             { return n.Position }
func (n *QueryForkJoining) Pos() Position      { return n.Position }
func (n *SelfEqualityCondition) Pos() Position { return n.Position }

func (n *Formula) DataType() datatype.DataType {
	if t, ok := n.Expr.(Typed); ok {
		return t.DataType()
	}
	return datatype.Unsupported
}
func (n *Field) DataType() datatype.DataType          { return n.Type }
func (n *Literal) DataType() datatype.DataType        { return n.Type }
func (n *FuncCall) DataType() datatype.DataType       { return n.Type }
func (n *WindowFuncCall) DataType() datatype.DataType { return n.Type }
func (n *Binary) DataType() datatype.DataType         { return n.Type }
func (n *Unary) DataType() datatype.DataType          { return n.Type }
func (n *QueryFork) DataType() datatype.DataType      { return n.Type }

// Dimensions returns the dimension list of a LOD or grouping node, and false
// for other nodes.
func Dimensions(n Node) ([]Node, bool) {
	switch v := n.(type) {
	case *FixedLod:
		return v.Dims, true
	case *IncludeLod:
		return v.Dims, true
	case *ExcludeLod:
		return v.Dims, true
	case *WindowGroupingWithin:
		return v.Dims, true
	case *WindowGroupingAmong:
		return v.Dims, true
	case *WindowGroupingTotal:
		return nil, true
	}
	return nil, false
}

// OrderExpr returns the expression of an ordering item, ignoring direction.
func OrderExpr(n Node) (Node, bool) {
	switch v := n.(type) {
	case *OrderAscending:
		return v.Expr, true
	case *OrderDescending:
		return v.Expr, true
	}
	return nil, false
}
