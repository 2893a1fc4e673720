package compiler

import (
	"github.com/datalens-tech/datalens-backend-sub013/internal/ast"
	"github.com/datalens-tech/datalens-backend-sub013/internal/datatype"
	"github.com/datalens-tech/datalens-backend-sub013/internal/formerr"
	"github.com/datalens-tech/datalens-backend-sub013/internal/registry"
	"github.com/datalens-tech/datalens-backend-sub013/internal/translation"
)

type typeChecker struct {
	reg   *registry.Registry
	req   Request
	calls []Call
}

// check rebuilds n bottom-up with every call resolved. The first failure
// aborts: parents cannot be typed without their arguments.
func (tc *typeChecker) check(n ast.Node) (ast.Node, error) {
	children := n.Children()
	changed := false
	for i, child := range children {
		typed, err := tc.check(child)
		if err != nil {
			return nil, err
		}
		if typed != child {
			children[i] = typed
			changed = true
		}
	}
	if changed {
		n = n.WithChildren(children)
	}

	switch v := n.(type) {
	case *ast.FuncCall:
		fold := !tc.reg.IsAggregate(v.Name)
		variant, typ, err := tc.resolve(v.Name, v.Args, false, fold, v.Position)
		if err != nil {
			return nil, err
		}
		out := *v
		out.Variant, out.Type = variant, typ
		return &out, nil

	case *ast.WindowFuncCall:
		variant, typ, err := tc.resolve(v.Name, v.Args, true, false, v.Position)
		if err != nil {
			return nil, err
		}
		out := *v
		out.Variant, out.Type = variant, typ
		return &out, nil

	case *ast.Binary:
		variant, typ, err := tc.resolve(v.Op, []ast.Node{v.Left, v.Right}, false, true, v.Position)
		if err != nil {
			return nil, err
		}
		out := *v
		out.Variant, out.Type = variant, typ
		return &out, nil

	case *ast.Unary:
		variant, typ, err := tc.resolve(v.Op, []ast.Node{v.Operand}, false, true, v.Position)
		if err != nil {
			return nil, err
		}
		out := *v
		out.Variant, out.Type = variant, typ
		return &out, nil

	case *ast.QueryFork:
		out := *v
		out.Type = typeOf(v.ResultExpr)
		return &out, nil
	}
	return n, nil
}

// resolve looks a call up and computes its result type. With fold set, a
// call over constant arguments has a constant result.
func (tc *typeChecker) resolve(name string, args []ast.Node, isWindow, fold bool, pos ast.Position) (*translation.Variant, datatype.DataType, error) {
	argTypes := typesOf(args)
	scopes := tc.req.RequiredScopes
	if isWindow {
		scopes |= translation.ScopeWindow
	}

	variant, err := tc.reg.GetDefinition(registry.Lookup{
		Name:           name,
		ArgTypes:       argTypes,
		IsWindow:       isWindow,
		Dialect:        tc.req.Dialect,
		ForAnyDialect:  tc.req.ForAnyDialect,
		RequiredScopes: scopes,
		Options:        []formerr.Option{formerr.WithPosition(pos)},
	})
	if err != nil {
		return nil, datatype.Unsupported, err
	}

	typ, err := variant.ResultType(argTypes)
	if err != nil {
		return nil, datatype.Unsupported, asFormulaError(err, pos, name)
	}
	if fold && allConst(argTypes) {
		typ = typ.ConstType()
	}

	tc.calls = append(tc.calls, Call{
		Key:      registry.NewKey(name, len(argTypes), isWindow),
		ArgTypes: argTypes,
		Result:   typ,
		Variant:  variant,
		Position: pos,
	})
	return variant, typ, nil
}

func allConst(types []datatype.DataType) bool {
	if len(types) == 0 {
		return false
	}
	for _, t := range types {
		if !t.IsConst() {
			return false
		}
	}
	return true
}
