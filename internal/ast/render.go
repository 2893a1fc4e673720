package ast

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/datalens-tech/datalens-backend-sub013/internal/ir"
)

// Render prints a node as formula-like text, e.g.
//
//	RSUM(SUM([sales]) WITHIN [region] ORDER BY [date] ASC)
//
// The output is meant for diagnostics and snapshots; it is not parsed back.
func Render(n Node) string {
	var sb strings.Builder
	render(&sb, n)
	return sb.String()
}

func render(sb *strings.Builder, n Node) {
	switch v := n.(type) {
	case nil:
		sb.WriteString("<nil>")
	case *Formula:
		render(sb, v.Expr)
	case *Field:
		sb.WriteString("[")
		sb.WriteString(strings.ReplaceAll(v.Name, "]", "]]"))
		sb.WriteString("]")
	case *Literal:
		renderValue(sb, v.Value)
	case *FuncCall:
		sb.WriteString(strings.ToUpper(v.Name))
		sb.WriteString("(")
		renderList(sb, v.Args)
		if v.Lod != nil {
			sb.WriteString(" ")
			render(sb, v.Lod)
		}
		if v.BeforeFilterBy != nil {
			sb.WriteString(" ")
			render(sb, v.BeforeFilterBy)
		}
		sb.WriteString(")")
	case *WindowFuncCall:
		sb.WriteString(strings.ToUpper(v.Name))
		sb.WriteString("(")
		renderList(sb, v.Args)
		if v.Grouping != nil {
			sb.WriteString(" ")
			render(sb, v.Grouping)
		}
		if v.Ordering != nil {
			sb.WriteString(" ")
			render(sb, v.Ordering)
		}
		if v.BeforeFilterBy != nil {
			sb.WriteString(" ")
			render(sb, v.BeforeFilterBy)
		}
		sb.WriteString(")")
	case *Binary:
		sb.WriteString("(")
		render(sb, v.Left)
		sb.WriteString(" ")
		sb.WriteString(renderOp(v.Op))
		sb.WriteString(" ")
		render(sb, v.Right)
		sb.WriteString(")")
	case *Unary:
		op := renderOp(v.Op)
		sb.WriteString(op)
		if isWord(op) {
			sb.WriteString(" ")
		}
		render(sb, v.Operand)
	case *WindowGroupingTotal:
		sb.WriteString("TOTAL")
	case *WindowGroupingWithin:
		if len(v.Dims) == 0 {
			sb.WriteString("TOTAL")
			return
		}
		sb.WriteString("WITHIN ")
		renderList(sb, v.Dims)
	case *WindowGroupingAmong:
		sb.WriteString("AMONG ")
		renderList(sb, v.Dims)
	case *Ordering:
		sb.WriteString("ORDER BY ")
		renderList(sb, v.Items)
	case *OrderAscending:
		render(sb, v.Expr)
		sb.WriteString(" ASC")
	case *OrderDescending:
		render(sb, v.Expr)
		sb.WriteString(" DESC")
	case *FixedLod:
		renderDims(sb, "FIXED", v.Dims)
	case *IncludeLod:
		renderDims(sb, "INCLUDE", v.Dims)
	case *ExcludeLod:
		renderDims(sb, "EXCLUDE", v.Dims)
	case *BeforeFilterBy:
		sb.WriteString("BEFORE FILTER BY ")
		for i, name := range v.FieldNames {
			if i > 0 {
				sb.WriteString(", ")
			}
			render(sb, &Field{Name: name})
		}
	case *QueryFork:
		sb.WriteString("FORK(")
		sb.WriteString(strings.ToUpper(v.JoinType))
		if v.WindowFork {
			sb.WriteString(" WINDOW")
		}
		sb.WriteString(" ")
		render(sb, v.ResultExpr)
		if v.Joining != nil {
			sb.WriteString(" ")
			render(sb, v.Joining)
		}
		if v.Lod != nil {
			sb.WriteString(" ")
			render(sb, v.Lod)
		}
		if v.BeforeFilterBy != nil {
			sb.WriteString(" ")
			render(sb, v.BeforeFilterBy)
		}
		sb.WriteString(")")
	case *QueryForkJoining:
		sb.WriteString("ON ")
		renderList(sb, v.Conditions)
	case *SelfEqualityCondition:
		render(sb, v.Expr)
		sb.WriteString(" = ")
		render(sb, v.Expr)
	default:
		panic(fmt.Sprintf("ast: unhandled node %T", n))
	}
}

func renderList(sb *strings.Builder, nodes []Node) {
	for i, n := range nodes {
		if i > 0 {
			sb.WriteString(", ")
		}
		render(sb, n)
	}
}

func renderDims(sb *strings.Builder, keyword string, dims []Node) {
	sb.WriteString(keyword)
	if len(dims) > 0 {
		sb.WriteString(" ")
		renderList(sb, dims)
	}
}

func renderOp(op string) string {
	if isWord(op) {
		return strings.ToUpper(op)
	}
	return op
}

func isWord(s string) bool {
	return strings.ContainsFunc(s, unicode.IsLetter)
}

func renderValue(sb *strings.Builder, v ir.Value) {
	switch val := v.(type) {
	case nil, ir.Null:
		sb.WriteString("NULL")
	case ir.String:
		sb.WriteString("'")
		sb.WriteString(strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(string(val)))
		sb.WriteString("'")
	case ir.Int:
		sb.WriteString(strconv.FormatInt(int64(val), 10))
	case ir.Float:
		s := strconv.FormatFloat(float64(val), 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		sb.WriteString(s)
	case ir.Bool:
		if val {
			sb.WriteString("TRUE")
		} else {
			sb.WriteString("FALSE")
		}
	case ir.Array:
		sb.WriteString("ARRAY(")
		for i, e := range val {
			if i > 0 {
				sb.WriteString(", ")
			}
			renderValue(sb, e)
		}
		sb.WriteString(")")
	default:
		b, err := ir.MarshalCanonical(v)
		if err != nil {
			sb.WriteString("<invalid>")
			return
		}
		sb.Write(b)
	}
}
