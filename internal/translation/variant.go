// Package translation pairs argument-type patterns with dialect-specific
// implementations.
//
// A Variant is one implementation of a function or operator: the argument
// types it accepts, the backends it supports, its visibility scopes and a
// Translator per backend group. Variants are created once, registered, and
// never mutated; the registry compares them by pointer.
package translation

import (
	"github.com/datalens-tech/datalens-backend-sub013/internal/datatype"
	"github.com/datalens-tech/datalens-backend-sub013/internal/dialect"
	"github.com/datalens-tech/datalens-backend-sub013/internal/formerr"
)

// Impl is the implementation of a variant for a group of backends.
// Template holds the source the Translator was parsed from, if any.
type Impl struct {
	Dialects  dialect.Combo
	Translate Translator
	Template  string
}

// Variant is one translation of a function or operator.
type Variant struct {
	Pattern ArgTypePattern
	Impls   []Impl
	Scopes  Scope
	Return  ReturnType
}

// For builds an Impl from a template, panicking on malformed templates.
func For(dialects dialect.Combo, template string) Impl {
	return Impl{Dialects: dialects, Translate: MustTemplate(template), Template: template}
}

// Dialects returns the union of the backends of every Impl.
func (v *Variant) Dialects() dialect.Combo {
	var out dialect.Combo
	for _, impl := range v.Impls {
		out |= impl.Dialects
	}
	return out
}

// MatchDialect reports whether every backend of d is supported.
func (v *Variant) MatchDialect(d dialect.Combo) bool {
	return v.Dialects().Contains(d)
}

// MatchTypes reports whether the variant accepts the argument types.
func (v *Variant) MatchTypes(args []datatype.DataType) bool {
	return MatchTypes(v.Pattern, args)
}

// Eligible reports whether the variant carries every required scope flag.
func (v *Variant) Eligible(required Scope) bool {
	return v.Scopes.Has(required)
}

// ResultType computes the variant's return type for the argument types.
// Without a Return function the result is the common type of the arguments.
func (v *Variant) ResultType(args []datatype.DataType) (datatype.DataType, error) {
	if v.Return == nil {
		return Common()(args)
	}
	return v.Return(args)
}

// Translate renders the call with the first Impl whose backends include d.
func (v *Variant) Translate(d dialect.Combo, args []string) (string, error) {
	for _, impl := range v.Impls {
		if impl.Dialects.Contains(d) {
			return impl.Translate(args)
		}
	}
	return "", formerr.Newf(formerr.KindTranslation, "no implementation for dialect %s", d)
}
