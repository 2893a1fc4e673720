package registry

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/datalens-tech/datalens-backend-sub013/internal/datatype"
	"github.com/datalens-tech/datalens-backend-sub013/internal/dialect"
	"github.com/datalens-tech/datalens-backend-sub013/internal/formerr"
	"github.com/datalens-tech/datalens-backend-sub013/internal/translation"
)

// Lookup is a request to resolve one call site.
// Exactly one of Dialect and ForAnyDialect must be set.
type Lookup struct {
	Name           string
	ArgTypes       []datatype.DataType
	IsWindow       bool
	Dialect        dialect.Combo
	ForAnyDialect  bool
	RequiredScopes translation.Scope
	Options        []formerr.Option
}

// GetDefinition resolves a call site to a translation variant.
//
// Candidates are the variants under the exact-arity key followed by those
// under the variadic key, filtered by RequiredScopes. They are tried in
// order: with ForAnyDialect the first type match wins; with a concrete
// Dialect the first type match that also supports the dialect wins.
//
// It panics if both or neither of Dialect and ForAnyDialect are set.
func (r *Registry) GetDefinition(l Lookup) (*translation.Variant, error) {
	if (l.Dialect != dialect.Empty) == l.ForAnyDialect {
		panic("registry: exactly one of Dialect and ForAnyDialect must be set")
	}

	key := NewKey(l.Name, len(l.ArgTypes), l.IsWindow)
	var candidates []*translation.Variant
	for _, k := range []FuncKey{key, key.Variadic()} {
		for _, v := range r.t.variants[k] {
			if v.Eligible(l.RequiredScopes) {
				candidates = append(candidates, v)
			}
		}
	}

	what := r.describe(l.Name)
	if len(candidates) == 0 {
		return nil, formerr.New(formerr.KindUnknownFunction,
			fmt.Sprintf("Unknown %d-argument %s %s", len(l.ArgTypes), what, strings.ToUpper(l.Name)),
			withToken(l)...)
	}

	someTypeMatch := false
	for _, v := range candidates {
		if !v.MatchTypes(l.ArgTypes) {
			continue
		}
		if l.ForAnyDialect || v.MatchDialect(l.Dialect) {
			return v, nil
		}
		someTypeMatch = true
	}

	argTypes := strings.Join(datatype.Names(l.ArgTypes), ", ")
	var msg string
	if someTypeMatch {
		msg = fmt.Sprintf("The %s %s is defined for other databases but is not available for %s with argument types (%s)",
			what, strings.ToUpper(l.Name), l.Dialect, argTypes)
	} else {
		msg = fmt.Sprintf("There is no %s %s for argument types (%s)", what, strings.ToUpper(l.Name), argTypes)
	}
	return nil, formerr.New(formerr.KindDataType, msg, withToken(l)...)
}

func withToken(l Lookup) []formerr.Option {
	return append([]formerr.Option{formerr.WithToken(l.Name)}, l.Options...)
}

func (r *Registry) describe(name string) string {
	if r.IsOperator(name) || !strings.ContainsFunc(name, unicode.IsLetter) {
		return "operator"
	}
	return "function"
}

// GetSupportedFunctions returns the sorted keys whose scope-eligible variants
// together support every backend in requireDialects. Operators are skipped
// when onlyFunctions is set.
func (r *Registry) GetSupportedFunctions(requireDialects dialect.Combo, onlyFunctions bool, scopes translation.Scope) []FuncKey {
	acc := make(map[FuncKey]dialect.Combo)
	for _, k := range r.t.order {
		if onlyFunctions && r.t.info[k].IsOperator {
			continue
		}
		for _, v := range r.t.variants[k] {
			if !v.Eligible(scopes) {
				continue
			}
			acc[k] |= v.Dialects()
		}
	}

	var out []FuncKey
	for k, d := range acc {
		if d&requireDialects == requireDialects {
			out = append(out, k)
		}
	}
	slices.SortFunc(out, FuncKey.Compare)
	return out
}
