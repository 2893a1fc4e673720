package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dt "github.com/datalens-tech/datalens-backend-sub013/internal/datatype"
	"github.com/datalens-tech/datalens-backend-sub013/internal/ir"
)

func sampleWindow() *WindowFuncCall {
	return Window("rsum", Call("sum", Fld("sales", dt.Float))).
		Within(Fld("region", dt.String)).
		OrderBy(Asc(Fld("date", dt.Date))).
		FilteredBy("date")
}

func TestChildren_WithChildrenRoundTrip(t *testing.T) {
	nodes := []Node{
		&Formula{Expr: Fld("a", dt.Integer)},
		Fld("a", dt.Integer),
		Lit(ir.Int(1), dt.ConstInteger),
		Call("sum", Fld("x", dt.Float)).Include(Fld("a", dt.String)),
		sampleWindow(),
		Window("rank", Fld("x", dt.Float)).Total(),
		Op("+", Fld("a", dt.Integer), Lit(ir.Int(2), dt.ConstInteger)),
		&Unary{Op: "not", Operand: Fld("flag", dt.Boolean)},
		&QueryFork{
			JoinType:       JoinInner,
			WindowFork:     true,
			ResultExpr:     sampleWindow(),
			Joining:        &QueryForkJoining{Conditions: []Node{&SelfEqualityCondition{Expr: Fld("region", dt.String)}}},
			Lod:            &FixedLod{Dims: []Node{Fld("region", dt.String)}},
			BeforeFilterBy: &BeforeFilterBy{FieldNames: []string{"date"}},
		},
	}

	for _, n := range nodes {
		t.Run(Render(n), func(t *testing.T) {
			rebuilt := n.WithChildren(n.Children())
			assert.NotSame(t, n, rebuilt)
			assert.Equal(t, n, rebuilt)
			assert.Equal(t, Fingerprint(n), Fingerprint(rebuilt))
		})
	}
}

func TestWithChildren_DoesNotModifyOriginal(t *testing.T) {
	orig := Call("sum", Fld("x", dt.Float)).Fixed(Fld("a", dt.String))
	replaced := orig.WithChildren([]Node{Fld("y", dt.Float), &FixedLod{}}).(*FuncCall)

	assert.Equal(t, "SUM([x] FIXED [a])", Render(orig))
	assert.Equal(t, "SUM([y] FIXED)", Render(replaced))
}

func TestWithChildren_PanicsOnWrongCount(t *testing.T) {
	assert.Panics(t, func() { Fld("a", dt.Integer).WithChildren([]Node{Fld("b", dt.Integer)}) })
	assert.Panics(t, func() { Op("+", Fld("a", dt.Integer), Fld("b", dt.Integer)).WithChildren(nil) })
}

func TestFingerprint_IgnoresPositionsTypesAndCase(t *testing.T) {
	a := Call("SUM", &Field{Name: "x", Type: dt.Float, Position: Position{Start: 4, End: 7}})
	b := Call("sum", &Field{Name: "x", Type: dt.Integer}).WithType(dt.Float)

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, Call("sum", Fld("y", dt.Float))))
	assert.False(t, Equal(a, a.Fixed()), "LOD is part of the structure")
	assert.False(t, Equal(Asc(Fld("d", dt.Date)), Desc(Fld("d", dt.Date))))
	assert.False(t, Equal(Lit(ir.Int(1), dt.ConstInteger), Lit(ir.Float(1), dt.ConstFloat)))
}

func TestRender(t *testing.T) {
	tests := []struct {
		node Node
		want string
	}{
		{Fld("Sales [USD]", dt.Float), "[Sales [USD]]]"},
		{Lit(ir.String("it's"), dt.ConstString), `'it\'s'`},
		{Lit(ir.Float(2), dt.ConstFloat), "2.0"},
		{Lit(ir.Null{}, dt.Null), "NULL"},
		{Lit(ir.Bool(true), dt.ConstBoolean), "TRUE"},
		{Op("and", Fld("a", dt.Boolean), Fld("b", dt.Boolean)), "([a] AND [b])"},
		{&Unary{Op: "-", Operand: Fld("a", dt.Integer)}, "-[a]"},
		{&Unary{Op: "not", Operand: Fld("a", dt.Boolean)}, "NOT [a]"},
		{Call("sum", Fld("x", dt.Float)).Exclude(Fld("city", dt.String)), "SUM([x] EXCLUDE [city])"},
		{sampleWindow(), "RSUM(SUM([sales]) WITHIN [region] ORDER BY [date] ASC BEFORE FILTER BY [date])"},
		{Window("rank", Fld("x", dt.Float)).Among(Fld("a", dt.String)).OrderBy(Desc(Fld("x", dt.Float))), "RANK([x] AMONG [a] ORDER BY [x] DESC)"},
		{Window("rcount", Fld("x", dt.Float)).Within(), "RCOUNT([x] TOTAL)"},
		{
			&QueryFork{
				JoinType:   JoinInner,
				WindowFork: true,
				ResultExpr: Window("rank", Fld("x", dt.Float)).Total(),
				Joining:    &QueryForkJoining{Conditions: []Node{&SelfEqualityCondition{Expr: Fld("a", dt.String)}}},
				Lod:        &FixedLod{Dims: []Node{Fld("a", dt.String)}},
			},
			"FORK(INNER WINDOW RANK([x] TOTAL) ON [a] = [a] FIXED [a])",
		},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.node))
		})
	}
}

func TestInspect_PassesAncestors(t *testing.T) {
	root := &Formula{Expr: sampleWindow()}

	var fieldParents [][]string
	Inspect(root, func(n Node, parents []Node) bool {
		if f, ok := n.(*Field); ok && f.Name == "sales" {
			var kinds []string
			for _, p := range parents {
				kinds = append(kinds, Render(p))
			}
			fieldParents = append(fieldParents, kinds)
		}
		return true
	})

	require.Len(t, fieldParents, 1)
	assert.Equal(t, []string{
		Render(root),
		Render(sampleWindow()),
		"SUM([sales])",
	}, fieldParents[0])
}

func TestFieldNamesAndAny(t *testing.T) {
	root := sampleWindow()
	assert.Equal(t, []string{"sales", "region", "date"}, FieldNames(root))
	assert.True(t, Any(root, func(n Node) bool { _, ok := n.(*OrderAscending); return ok }))
	assert.False(t, Any(root, func(n Node) bool { _, ok := n.(*QueryFork); return ok }))
}

func TestDimensionsAndOrderExpr(t *testing.T) {
	dims, ok := Dimensions(&ExcludeLod{Dims: []Node{Fld("a", dt.String)}})
	require.True(t, ok)
	assert.Len(t, dims, 1)

	_, ok = Dimensions(Fld("a", dt.String))
	assert.False(t, ok)

	expr, ok := OrderExpr(Desc(Fld("d", dt.Date)))
	require.True(t, ok)
	assert.Equal(t, "[d]", Render(expr))
}
