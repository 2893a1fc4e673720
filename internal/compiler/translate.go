package compiler

import (
	"strings"

	"github.com/datalens-tech/datalens-backend-sub013/internal/ast"
	"github.com/datalens-tech/datalens-backend-sub013/internal/dialect"
	"github.com/datalens-tech/datalens-backend-sub013/internal/formerr"
	"github.com/datalens-tech/datalens-backend-sub013/internal/ir"
	"github.com/datalens-tech/datalens-backend-sub013/internal/translation"
)

// Translate renders a compiled formula as SQL-like text for one backend
// using the resolved variants' templates. Query forks are rendered as their
// result expression; joining them back is left to the query planner.
func Translate(result *Result, d dialect.Combo) (string, error) {
	if !d.IsSingle() {
		return "", formerr.Newf(formerr.KindTranslation, "translation needs a single dialect, got %s", d)
	}
	return translateNode(result.Tree, d)
}

func translateNode(n ast.Node, d dialect.Combo) (string, error) {
	switch v := n.(type) {
	case *ast.Formula:
		return translateNode(v.Expr, d)
	case *ast.Field:
		return quoteIdent(v.Name), nil
	case *ast.Literal:
		if s, ok := v.Value.(ir.String); ok {
			return "'" + strings.ReplaceAll(string(s), "'", "''") + "'", nil
		}
		return ast.Render(v), nil
	case *ast.FuncCall:
		return translateCall(v.Name, v.Variant, v.Args, v.Position, d)
	case *ast.Binary:
		return translateCall(v.Op, v.Variant, []ast.Node{v.Left, v.Right}, v.Position, d)
	case *ast.Unary:
		return translateCall(v.Op, v.Variant, []ast.Node{v.Operand}, v.Position, d)
	case *ast.WindowFuncCall:
		return translateWindow(v, d)
	case *ast.QueryFork:
		return translateNode(v.ResultExpr, d)
	}
	return "", formerr.New(formerr.KindTranslation, "cannot translate "+ast.Render(n),
		formerr.WithPosition(n.Pos()))
}

func translateCall(name string, variant *translation.Variant, args []ast.Node, pos ast.Position, d dialect.Combo) (string, error) {
	if variant == nil {
		return "", formerr.New(formerr.KindTranslation, strings.ToUpper(name)+" has not been resolved",
			formerr.WithPosition(pos), formerr.WithToken(name))
	}
	rendered, err := translateAll(args, d)
	if err != nil {
		return "", err
	}
	out, err := variant.Translate(d, rendered)
	if err != nil {
		return "", asFormulaError(err, pos, name)
	}
	return out, nil
}

func translateWindow(w *ast.WindowFuncCall, d dialect.Combo) (string, error) {
	call, err := translateCall(w.Name, w.Variant, w.Args, w.Position, d)
	if err != nil {
		return "", err
	}

	var over []string
	if dims, ok := ast.Dimensions(w.Grouping); ok && len(dims) > 0 {
		if _, among := w.Grouping.(*ast.WindowGroupingAmong); among {
			return "", formerr.New(formerr.KindTranslation, "AMONG grouping must be resolved before translation",
				formerr.WithPosition(w.Position), formerr.WithToken(w.Name))
		}
		parts, err := translateAll(dims, d)
		if err != nil {
			return "", err
		}
		over = append(over, "PARTITION BY "+strings.Join(parts, ", "))
	}
	if w.Ordering != nil && len(w.Ordering.Items) > 0 {
		parts := make([]string, len(w.Ordering.Items))
		for i, item := range w.Ordering.Items {
			expr, _ := ast.OrderExpr(item)
			s, err := translateNode(expr, d)
			if err != nil {
				return "", err
			}
			if _, desc := item.(*ast.OrderDescending); desc {
				parts[i] = s + " DESC"
			} else {
				parts[i] = s + " ASC"
			}
		}
		over = append(over, "ORDER BY "+strings.Join(parts, ", "))
	}
	return call + " OVER (" + strings.Join(over, " ") + ")", nil
}

func translateAll(nodes []ast.Node, d dialect.Combo) ([]string, error) {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		s, err := translateNode(n, d)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
