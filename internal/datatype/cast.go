package datatype

import (
	"slices"
	"strings"

	"github.com/datalens-tech/datalens-backend-sub013/internal/formerr"
)

// castRule is one autocast lattice entry: values of any From kind (or their
// const twins) may be implicitly widened to To.
type castRule struct {
	To   DataType
	From map[DataType]struct{}
}

// autocast is ordered from the most specific target to the least specific.
// CommonCastType depends on this order.
var autocast = buildLattice([]struct {
	to   DataType
	from []DataType
}{
	{Null, []DataType{Null}},
	{Boolean, []DataType{Boolean, Null}},
	{Integer, []DataType{Integer, Boolean, Null}},
	{Float, []DataType{Float, Integer, Boolean, Null}},
	{String, []DataType{String, Null}},
	{Markup, []DataType{Markup, String, Null}},
	{Date, []DataType{Date, Null}},
	{Datetime, []DataType{Datetime, Null}},
	{DatetimeTZ, []DataType{DatetimeTZ, Null}},
	{GenericDatetime, []DataType{GenericDatetime, Datetime, DatetimeTZ, Date, Null}},
	{GeoPoint, []DataType{GeoPoint, Null}},
	{GeoPolygon, []DataType{GeoPolygon, Null}},
	{UUID, []DataType{UUID, Null}},
	{ArrayInt, []DataType{ArrayInt, Null}},
	{ArrayFloat, []DataType{ArrayFloat, ArrayInt, Null}},
	{ArrayStr, []DataType{ArrayStr, Null}},
	{TreeStr, []DataType{TreeStr, Null}},
	{Unsupported, []DataType{Unsupported, Null}},
})

var autocastIndex = func() map[DataType]*castRule {
	m := make(map[DataType]*castRule, len(autocast))
	for i := range autocast {
		m[autocast[i].To] = &autocast[i]
	}
	return m
}()

func buildLattice(decl []struct {
	to   DataType
	from []DataType
}) []castRule {
	rules := make([]castRule, 0, len(decl))
	for _, d := range decl {
		from := make(map[DataType]struct{}, 2*len(d.from))
		for _, t := range d.from {
			from[t] = struct{}{}
			from[t.ConstType()] = struct{}{}
		}
		rules = append(rules, castRule{To: d.to, From: from})
	}
	return rules
}

// CastsTo reports whether t may be implicitly widened to target. A const
// target additionally requires t to be const (or NULL).
func (t DataType) CastsTo(target DataType) bool {
	rule, ok := autocastIndex[target.NonConstType()]
	if !ok {
		return false
	}
	if _, ok := rule.From[t]; !ok {
		return false
	}
	if target.IsConst() {
		return t.IsConst() || t == Null
	}
	return true
}

// AutocastFrom returns the kinds that cast to target, in a stable order.
func AutocastFrom(target DataType) []DataType {
	rule, ok := autocastIndex[target.NonConstType()]
	if !ok {
		return nil
	}
	out := make([]DataType, 0, len(rule.From))
	for t := range rule.From {
		if t.CastsTo(target) {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return out
}

// CommonCastType returns the narrowest kind every given type casts to.
//
// Identical inputs return that type. Otherwise the lattice is scanned in
// declaration order and the first target whose source set contains all the
// given types wins. When nothing matches the result is a TYPE_CONFLICT error.
func CommonCastType(types ...DataType) (DataType, error) {
	if len(types) == 0 {
		return Null, formerr.New(formerr.KindTypeConflict, "cannot determine common type of an empty type list")
	}

	allSame := true
	for _, t := range types[1:] {
		if t != types[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return types[0], nil
	}

	for _, rule := range autocast {
		if containsAll(rule.From, types) {
			return rule.To, nil
		}
	}

	return Unsupported, formerr.Newf(formerr.KindTypeConflict,
		"cannot find common type for %s", strings.Join(Names(uniqueSorted(types)), ", "))
}

func containsAll(set map[DataType]struct{}, types []DataType) bool {
	for _, t := range types {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}

func uniqueSorted(types []DataType) []DataType {
	out := slices.Clone(types)
	slices.Sort(out)
	return slices.Compact(out)
}
