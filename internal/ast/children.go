package ast

import (
	"fmt"
	"slices"
)

// cursor consumes a WithChildren argument in Children order.
type cursor struct {
	owner Node
	nodes []Node
	i     int
}

func (c *cursor) next() Node {
	if c.i >= len(c.nodes) {
		panic(fmt.Sprintf("ast: too few children for %T", c.owner))
	}
	n := c.nodes[c.i]
	c.i++
	return n
}

func (c *cursor) list(k int) []Node {
	if k == 0 {
		return nil
	}
	out := make([]Node, k)
	for i := range out {
		out[i] = c.next()
	}
	return out
}

func (c *cursor) optional(present bool) Node {
	if !present {
		return nil
	}
	return c.next()
}

func (c *cursor) filterBy(present bool) *BeforeFilterBy {
	if !present {
		return nil
	}
	return c.next().(*BeforeFilterBy)
}

func (c *cursor) done() {
	if c.i != len(c.nodes) {
		panic(fmt.Sprintf("ast: %d children given to %T, %d used", len(c.nodes), c.owner, c.i))
	}
}

func appendOpt(out []Node, n Node, present bool) []Node {
	if present {
		return append(out, n)
	}
	return out
}

func (n *Formula) Children() []Node { return []Node{n.Expr} }

func (n *Formula) WithChildren(children []Node) Node {
	c := cursor{owner: n, nodes: children}
	out := *n
	out.Expr = c.next()
	c.done()
	return &out
}

func (n *Field) Children() []Node { return nil }

func (n *Field) WithChildren(children []Node) Node {
	(&cursor{owner: n, nodes: children}).done()
	out := *n
	return &out
}

func (n *Literal) Children() []Node { return nil }

func (n *Literal) WithChildren(children []Node) Node {
	(&cursor{owner: n, nodes: children}).done()
	out := *n
	return &out
}

func (n *FuncCall) Children() []Node {
	out := slices.Clone(n.Args)
	out = appendOpt(out, n.Lod, n.Lod != nil)
	return appendOpt(out, n.BeforeFilterBy, n.BeforeFilterBy != nil)
}

func (n *FuncCall) WithChildren(children []Node) Node {
	c := cursor{owner: n, nodes: children}
	out := *n
	out.Args = c.list(len(n.Args))
	out.Lod = c.optional(n.Lod != nil)
	out.BeforeFilterBy = c.filterBy(n.BeforeFilterBy != nil)
	c.done()
	return &out
}

func (n *WindowFuncCall) Children() []Node {
	out := slices.Clone(n.Args)
	out = appendOpt(out, n.Grouping, n.Grouping != nil)
	out = appendOpt(out, n.Ordering, n.Ordering != nil)
	return appendOpt(out, n.BeforeFilterBy, n.BeforeFilterBy != nil)
}

func (n *WindowFuncCall) WithChildren(children []Node) Node {
	c := cursor{owner: n, nodes: children}
	out := *n
	out.Args = c.list(len(n.Args))
	out.Grouping = c.optional(n.Grouping != nil)
	if n.Ordering != nil {
		out.Ordering = c.next().(*Ordering)
	}
	out.BeforeFilterBy = c.filterBy(n.BeforeFilterBy != nil)
	c.done()
	return &out
}

func (n *Binary) Children() []Node { return []Node{n.Left, n.Right} }

func (n *Binary) WithChildren(children []Node) Node {
	c := cursor{owner: n, nodes: children}
	out := *n
	out.Left = c.next()
	out.Right = c.next()
	c.done()
	return &out
}

func (n *Unary) Children() []Node { return []Node{n.Operand} }

func (n *Unary) WithChildren(children []Node) Node {
	c := cursor{owner: n, nodes: children}
	out := *n
	out.Operand = c.next()
	c.done()
	return &out
}

func (n *WindowGroupingTotal) Children() []Node { return nil }

func (n *WindowGroupingTotal) WithChildren(children []Node) Node {
	(&cursor{owner: n, nodes: children}).done()
	out := *n
	return &out
}

func (n *WindowGroupingWithin) Children() []Node { return slices.Clone(n.Dims) }

func (n *WindowGroupingWithin) WithChildren(children []Node) Node {
	c := cursor{owner: n, nodes: children}
	out := *n
	out.Dims = c.list(len(n.Dims))
	c.done()
	return &out
}

func (n *WindowGroupingAmong) Children() []Node { return slices.Clone(n.Dims) }

func (n *WindowGroupingAmong) WithChildren(children []Node) Node {
	c := cursor{owner: n, nodes: children}
	out := *n
	out.Dims = c.list(len(n.Dims))
	c.done()
	return &out
}

func (n *Ordering) Children() []Node { return slices.Clone(n.Items) }

func (n *Ordering) WithChildren(children []Node) Node {
	c := cursor{owner: n, nodes: children}
	out := *n
	out.Items = c.list(len(n.Items))
	c.done()
	return &out
}

func (n *OrderAscending) Children() []Node { return []Node{n.Expr} }

func (n *OrderAscending) WithChildren(children []Node) Node {
	c := cursor{owner: n, nodes: children}
	out := *n
	out.Expr = c.next()
	c.done()
	return &out
}

func (n *OrderDescending) Children() []Node { return []Node{n.Expr} }

func (n *OrderDescending) WithChildren(children []Node) Node {
	c := cursor{owner: n, nodes: children}
	out := *n
	out.Expr = c.next()
	c.done()
	return &out
}

func (n *FixedLod) Children() []Node { return slices.Clone(n.Dims) }

func (n *FixedLod) WithChildren(children []Node) Node {
	c := cursor{owner: n, nodes: children}
	out := *n
	out.Dims = c.list(len(n.Dims))
	c.done()
	return &out
}

func (n *IncludeLod) Children() []Node { return slices.Clone(n.Dims) }

func (n *IncludeLod) WithChildren(children []Node) Node {
	c := cursor{owner: n, nodes: children}
	out := *n
	out.Dims = c.list(len(n.Dims))
	c.done()
	return &out
}

func (n *ExcludeLod) Children() []Node { return slices.Clone(n.Dims) }

func (n *ExcludeLod) WithChildren(children []Node) Node {
	c := cursor{owner: n, nodes: children}
	out := *n
	out.Dims = c.list(len(n.Dims))
	c.done()
	return &out
}

func (n *BeforeFilterBy) Children() []Node { return nil }

func (n *BeforeFilterBy) WithChildren(children []Node) Node {
	(&cursor{owner: n, nodes: children}).done()
	out := *n
	out.FieldNames = slices.Clone(n.FieldNames)
	return &out
}

func (n *QueryFork) Children() []Node {
	out := []Node{n.ResultExpr}
	out = appendOpt(out, n.Joining, n.Joining != nil)
	out = appendOpt(out, n.Lod, n.Lod != nil)
	return appendOpt(out, n.BeforeFilterBy, n.BeforeFilterBy != nil)
}

func (n *QueryFork) WithChildren(children []Node) Node {
	c := cursor{owner: n, nodes: children}
	out := *n
	out.ResultExpr = c.next()
	if n.Joining != nil {
		out.Joining = c.next().(*QueryForkJoining)
	}
	out.Lod = c.optional(n.Lod != nil)
	out.BeforeFilterBy = c.filterBy(n.BeforeFilterBy != nil)
	c.done()
	return &out
}

func (n *QueryForkJoining) Children() []Node { return slices.Clone(n.Conditions) }

func (n *QueryForkJoining) WithChildren(children []Node) Node {
	c := cursor{owner: n, nodes: children}
	out := *n
	out.Conditions = c.list(len(n.Conditions))
	c.done()
	return &out
}

func (n *SelfEqualityCondition) Children() []Node { return []Node{n.Expr} }

func (n *SelfEqualityCondition) WithChildren(children []Node) Node {
	c := cursor{owner: n, nodes: children}
	out := *n
	out.Expr = c.next()
	c.done()
	return &out
}
