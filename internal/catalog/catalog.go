// Package catalog compiles declarative CUE function catalogs into registry
// definitions.
//
// A catalog has up to three top-level sections: function, window and
// operator. Each maps a name to its variants:
//
//	function: sum: {
//		aggregate: true
//		variants: [
//			{args: [["INTEGER"]], return: "arg0", dialects: ANY: "SUM({0})"},
//		]
//	}
//
// A variant declares exactly one argument pattern (args, alternatives or
// for_all), an optional return rule ("argN", "common" or a type name),
// optional scopes and a dialects struct mapping backend names to templates.
// Backend labels may join several names with "|".
//
// Definitions come out in declaration order: functions, then window
// functions, then operators. That order is the registration order.
package catalog

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/datalens-tech/datalens-backend-sub013/internal/datatype"
	"github.com/datalens-tech/datalens-backend-sub013/internal/dialect"
	"github.com/datalens-tech/datalens-backend-sub013/internal/registry"
	"github.com/datalens-tech/datalens-backend-sub013/internal/translation"
)

//go:embed schema.cue
var schemaSource string

// Mode controls how Compile handles errors.
type Mode int

const (
	// FailFast stops at the first error.
	FailFast Mode = iota
	// CollectAll compiles every definition and reports all errors.
	CollectAll
)

var sections = []struct {
	name     string
	window   bool
	operator bool
}{
	{"function", false, false},
	{"window", true, false},
	{"operator", false, true},
}

// CompileError is a catalog error with its CUE source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate unifies v with the catalog schema and checks that the result is
// concrete. It returns the unified value.
func Validate(v cue.Value) (cue.Value, error) {
	if err := v.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	schema := v.Context().CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compiling catalog schema: %w", err)
	}
	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return unified, nil
}

// Compile turns a catalog value into definitions. With FailFast it returns
// after the first error.
func Compile(v cue.Value, mode Mode) ([]registry.FuncDef, []error) {
	v, err := Validate(v)
	if err != nil {
		return nil, []error{err}
	}

	var defs []registry.FuncDef
	var errs []error
	for _, sec := range sections {
		secVal := v.LookupPath(cue.ParsePath(sec.name))
		if !secVal.Exists() {
			continue
		}
		iter, err := secVal.Fields()
		if err != nil {
			errs = append(errs, formatCUEError(err))
			if mode == FailFast {
				return defs, errs
			}
			continue
		}
		for iter.Next() {
			name := iter.Selector().Unquoted()
			def, err := CompileFunction(iter.Value(), name, sec.window, sec.operator)
			if err != nil {
				errs = append(errs, err)
				if mode == FailFast {
					return defs, errs
				}
				continue
			}
			defs = append(defs, def)
		}
	}

	if len(defs) == 0 && len(errs) == 0 {
		errs = append(errs, &CompileError{
			Field:   "catalog",
			Message: "no functions, window functions or operators found",
			Pos:     v.Pos(),
		})
	}
	return defs, errs
}

// CompileString compiles catalog source text. filename is used in error
// positions.
func CompileString(filename, src string) ([]registry.FuncDef, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	defs, errs := Compile(v, FailFast)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return defs, nil
}

// CompileFunction compiles one section entry.
func CompileFunction(v cue.Value, name string, isWindow, isOperator bool) (registry.FuncDef, error) {
	def := registry.FuncDef{Name: name, IsWindow: isWindow, IsOperator: isOperator}
	field := sectionName(isWindow, isOperator) + "." + name

	if agg := v.LookupPath(cue.ParsePath("aggregate")); agg.Exists() {
		b, err := agg.Bool()
		if err != nil {
			return def, formatCUEError(err)
		}
		def.IsAggregate = b
	}

	scopes, err := parseScopes(v, field, translation.ScopeDefault)
	if err != nil {
		return def, err
	}
	if isWindow {
		scopes |= translation.ScopeWindow
	}

	variantsVal := v.LookupPath(cue.ParsePath("variants"))
	iter, err := variantsVal.List()
	if err != nil {
		return def, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		variant, err := compileVariant(iter.Value(), fmt.Sprintf("%s.variants[%d]", field, i), scopes)
		if err != nil {
			return def, err
		}
		if isWindow {
			variant.Scopes |= translation.ScopeWindow
		}
		def.Variants = append(def.Variants, variant)
	}
	if len(def.Variants) == 0 {
		return def, &CompileError{
			Field:   field,
			Message: "at least one variant is required",
			Pos:     v.Pos(),
		}
	}
	return def, nil
}

// Install registers defs in order.
func Install(b *registry.Builder, defs []registry.FuncDef) {
	for _, def := range defs {
		b.Register(def)
	}
}

// NewRegistry builds a registry from several catalogs. Earlier catalogs take
// precedence over later ones for overlapping variants.
func NewRegistry(catalogs ...[]registry.FuncDef) *registry.Registry {
	b := registry.NewBuilder()
	for _, defs := range catalogs {
		Install(b, defs)
	}
	return b.Build()
}

func sectionName(isWindow, isOperator bool) string {
	switch {
	case isOperator:
		return "operator"
	case isWindow:
		return "window"
	default:
		return "function"
	}
}

func compileVariant(v cue.Value, field string, scopes translation.Scope) (*translation.Variant, error) {
	variant := &translation.Variant{}

	pattern, err := parsePattern(v, field)
	if err != nil {
		return nil, err
	}
	variant.Pattern = pattern

	if ret := v.LookupPath(cue.ParsePath("return")); ret.Exists() {
		s, err := ret.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		variant.Return, err = parseReturn(s)
		if err != nil {
			return nil, &CompileError{Field: field + ".return", Message: err.Error(), Pos: ret.Pos()}
		}
	}

	variant.Scopes, err = parseScopes(v, field, scopes)
	if err != nil {
		return nil, err
	}

	variant.Impls, err = parseDialects(v.LookupPath(cue.ParsePath("dialects")), field+".dialects")
	if err != nil {
		return nil, err
	}
	return variant, nil
}

func parsePattern(v cue.Value, field string) (translation.ArgTypePattern, error) {
	args := v.LookupPath(cue.ParsePath("args"))
	alternatives := v.LookupPath(cue.ParsePath("alternatives"))
	forAll := v.LookupPath(cue.ParsePath("for_all"))

	present := 0
	for _, p := range []cue.Value{args, alternatives, forAll} {
		if p.Exists() {
			present++
		}
	}
	if present != 1 {
		return nil, &CompileError{
			Field:   field,
			Message: "exactly one of args, alternatives and for_all is required",
			Pos:     v.Pos(),
		}
	}

	switch {
	case args.Exists():
		return parseSequence(args, field+".args")

	case alternatives.Exists():
		iter, err := alternatives.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var multi translation.ArgTypeMultiSequence
		for i := 0; iter.Next(); i++ {
			seq, err := parseSequence(iter.Value(), fmt.Sprintf("%s.alternatives[%d]", field, i))
			if err != nil {
				return nil, err
			}
			if len(multi.Alternatives) > 0 && len(seq.Positions) != multi.Arity() {
				return nil, &CompileError{
					Field:   fmt.Sprintf("%s.alternatives[%d]", field, i),
					Message: "all alternatives must have the same number of arguments",
					Pos:     iter.Value().Pos(),
				}
			}
			multi.Alternatives = append(multi.Alternatives, seq)
		}
		if len(multi.Alternatives) == 0 {
			return nil, &CompileError{Field: field + ".alternatives", Message: "at least one alternative is required", Pos: alternatives.Pos()}
		}
		checked, err := translation.Multi(multi.Alternatives...)
		if err != nil {
			return nil, &CompileError{Field: field + ".alternatives", Message: err.Error(), Pos: alternatives.Pos()}
		}
		return checked, nil

	default:
		types, err := parseTypes(forAll.LookupPath(cue.ParsePath("types")), field+".for_all.types")
		if err != nil {
			return nil, err
		}
		if len(types) == 0 {
			return nil, &CompileError{Field: field + ".for_all.types", Message: "at least one type is required", Pos: forAll.Pos()}
		}
		pattern := translation.ArgTypeForAll{Types: types}
		if req := forAll.LookupPath(cue.ParsePath("required")); req.Exists() {
			pattern.Required, err = parseTypes(req, field+".for_all.required")
			if err != nil {
				return nil, err
			}
		}
		return pattern, nil
	}
}

func parseSequence(v cue.Value, field string) (translation.ArgTypeSequence, error) {
	iter, err := v.List()
	if err != nil {
		return translation.ArgTypeSequence{}, formatCUEError(err)
	}
	var positions [][]datatype.DataType
	for i := 0; iter.Next(); i++ {
		posField := fmt.Sprintf("%s[%d]", field, i)
		types, err := parseTypes(iter.Value(), posField)
		if err != nil {
			return translation.ArgTypeSequence{}, err
		}
		if len(types) == 0 {
			return translation.ArgTypeSequence{}, &CompileError{
				Field:   posField,
				Message: "argument position accepts no types",
				Pos:     iter.Value().Pos(),
			}
		}
		positions = append(positions, types)
	}
	return translation.Seq(positions...), nil
}

func parseTypes(v cue.Value, field string) ([]datatype.DataType, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []datatype.DataType
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		t, err := datatype.Parse(s)
		if err != nil {
			return nil, &CompileError{Field: field, Message: err.Error(), Pos: iter.Value().Pos()}
		}
		out = append(out, t)
	}
	return out, nil
}

func parseReturn(s string) (translation.ReturnType, error) {
	if strings.EqualFold(s, "common") {
		return translation.Common(), nil
	}
	if rest, ok := strings.CutPrefix(strings.ToLower(s), "arg"); ok {
		i, err := strconv.Atoi(rest)
		if err != nil || i < 0 {
			return nil, fmt.Errorf("invalid argument reference %q", s)
		}
		return translation.FromArg(i), nil
	}
	t, err := datatype.Parse(s)
	if err != nil {
		return nil, err
	}
	return translation.Fixed(t), nil
}

func parseScopes(v cue.Value, field string, def translation.Scope) (translation.Scope, error) {
	scopesVal := v.LookupPath(cue.ParsePath("scopes"))
	if !scopesVal.Exists() {
		return def, nil
	}
	var names []string
	if err := scopesVal.Decode(&names); err != nil {
		return 0, formatCUEError(err)
	}
	scopes, err := translation.ParseScopes(names...)
	if err != nil {
		return 0, &CompileError{Field: field + ".scopes", Message: err.Error(), Pos: scopesVal.Pos()}
	}
	return scopes, nil
}

func parseDialects(v cue.Value, field string) ([]translation.Impl, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var impls []translation.Impl
	for iter.Next() {
		label := iter.Selector().Unquoted()
		combo, err := dialect.ParseList(label)
		if err == nil && combo == dialect.Empty {
			err = fmt.Errorf("dialect label %q names no backend", label)
		}
		if err != nil {
			return nil, &CompileError{Field: field, Message: err.Error(), Pos: iter.Value().Pos()}
		}

		template, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		translate, err := translation.ParseTemplate(template)
		if err != nil {
			return nil, &CompileError{Field: field + "." + label, Message: err.Error(), Pos: iter.Value().Pos()}
		}
		impls = append(impls, translation.Impl{Dialects: combo, Translate: translate, Template: template})
	}
	if len(impls) == 0 {
		return nil, &CompileError{Field: field, Message: "at least one dialect is required", Pos: v.Pos()}
	}
	return impls, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
