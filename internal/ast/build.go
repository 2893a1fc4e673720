package ast

import (
	"github.com/datalens-tech/datalens-backend-sub013/internal/datatype"
	"github.com/datalens-tech/datalens-backend-sub013/internal/ir"
)

// Fld builds a field reference.
func Fld(name string, t datatype.DataType) *Field {
	return &Field{Name: name, Type: t}
}

// Lit builds a literal.
func Lit(v ir.Value, t datatype.DataType) *Literal {
	return &Literal{Value: v, Type: t}
}

// Call builds a function call with an inherited level of detail.
func Call(name string, args ...Node) *FuncCall {
	return &FuncCall{Name: name, Args: args}
}

// Window builds a window function call without grouping or ordering.
func Window(name string, args ...Node) *WindowFuncCall {
	return &WindowFuncCall{Name: name, Args: args}
}

// Op builds a binary operator application.
func Op(op string, left, right Node) *Binary {
	return &Binary{Op: op, Left: left, Right: right}
}

// Asc builds an ascending ordering item.
func Asc(expr Node) *OrderAscending {
	return &OrderAscending{Expr: expr}
}

// Desc builds a descending ordering item.
func Desc(expr Node) *OrderDescending {
	return &OrderDescending{Expr: expr}
}

// Fixed returns a copy of c with a FIXED level of detail.
func (c *FuncCall) Fixed(dims ...Node) *FuncCall {
	out := *c
	out.Lod = &FixedLod{Dims: dims}
	return &out
}

// Include returns a copy of c with an INCLUDE level of detail.
func (c *FuncCall) Include(dims ...Node) *FuncCall {
	out := *c
	out.Lod = &IncludeLod{Dims: dims}
	return &out
}

// Exclude returns a copy of c with an EXCLUDE level of detail.
func (c *FuncCall) Exclude(dims ...Node) *FuncCall {
	out := *c
	out.Lod = &ExcludeLod{Dims: dims}
	return &out
}

// WithType returns a copy of c with data type t.
func (c *FuncCall) WithType(t datatype.DataType) *FuncCall {
	out := *c
	out.Type = t
	return &out
}

// Total returns a copy of w grouped over all rows.
func (w *WindowFuncCall) Total() *WindowFuncCall {
	out := *w
	out.Grouping = &WindowGroupingTotal{}
	return &out
}

// Within returns a copy of w partitioned by dims.
func (w *WindowFuncCall) Within(dims ...Node) *WindowFuncCall {
	out := *w
	out.Grouping = &WindowGroupingWithin{Dims: dims}
	return &out
}

// Among returns a copy of w partitioned by the ambient dimensions except dims.
func (w *WindowFuncCall) Among(dims ...Node) *WindowFuncCall {
	out := *w
	out.Grouping = &WindowGroupingAmong{Dims: dims}
	return &out
}

// OrderBy returns a copy of w ordered by items.
func (w *WindowFuncCall) OrderBy(items ...Node) *WindowFuncCall {
	out := *w
	out.Ordering = &Ordering{Items: items}
	return &out
}

// FilteredBy returns a copy of w with a BEFORE FILTER BY clause.
func (w *WindowFuncCall) FilteredBy(fields ...string) *WindowFuncCall {
	out := *w
	out.BeforeFilterBy = &BeforeFilterBy{FieldNames: fields}
	return &out
}

// WithType returns a copy of w with data type t.
func (w *WindowFuncCall) WithType(t datatype.DataType) *WindowFuncCall {
	out := *w
	out.Type = t
	return &out
}
