package translation

import (
	"fmt"
	"slices"

	"github.com/datalens-tech/datalens-backend-sub013/internal/datatype"
)

// ArgTypePattern decides which argument type lists a variant accepts.
//
// The set of patterns is closed: ArgTypeSequence, ArgTypeMultiSequence and
// ArgTypeForAll. MatchTypes dispatches over them with an exhaustive switch.
type ArgTypePattern interface {
	// Matches reports whether the argument types are accepted.
	Matches(args []datatype.DataType) bool
	// PossibleTypesAtPosition lists the types accepted at pos for a call
	// with total arguments. It is used for documentation only.
	PossibleTypesAtPosition(pos, total int) []datatype.DataType
	// Arity returns the fixed argument count, or -1 if any count is accepted.
	Arity() int

	argTypePattern()
}

// ArgTypeSequence accepts exactly len(Positions) arguments; each argument
// must autocast to one of the types listed for its position.
type ArgTypeSequence struct {
	Positions [][]datatype.DataType
}

// ArgTypeMultiSequence accepts several overloads of one arity. Every
// alternative must have the same number of positions; the registry keys the
// variant by that count. Build it with Multi to have that checked.
type ArgTypeMultiSequence struct {
	Alternatives []ArgTypeSequence
}

// ArgTypeForAll accepts any number of arguments, each autocasting to one of
// Types. When Required is non-empty at least one argument must have exactly
// one of the Required types (const or not), so MARKUP-or-STRING concatenation
// can insist on a true MARKUP argument.
type ArgTypeForAll struct {
	Types    []datatype.DataType
	Required []datatype.DataType
}

func (ArgTypeSequence) argTypePattern()      {}
func (ArgTypeMultiSequence) argTypePattern() {}
func (ArgTypeForAll) argTypePattern()        {}

// Seq builds an ArgTypeSequence from per-position type sets.
func Seq(positions ...[]datatype.DataType) ArgTypeSequence {
	return ArgTypeSequence{Positions: positions}
}

// Multi builds an ArgTypeMultiSequence. It fails when alts is empty or the
// alternatives differ in arity.
func Multi(alts ...ArgTypeSequence) (ArgTypeMultiSequence, error) {
	if len(alts) == 0 {
		return ArgTypeMultiSequence{}, fmt.Errorf("multi-sequence needs at least one alternative")
	}
	for i, alt := range alts[1:] {
		if alt.Arity() != alts[0].Arity() {
			return ArgTypeMultiSequence{}, fmt.Errorf(
				"alternative %d takes %d argument(s), alternative 0 takes %d",
				i+1, alt.Arity(), alts[0].Arity())
		}
	}
	return ArgTypeMultiSequence{Alternatives: alts}, nil
}

// Types is shorthand for a position's type set.
func Types(ts ...datatype.DataType) []datatype.DataType {
	return ts
}

// MatchTypes reports whether pattern accepts args.
func MatchTypes(pattern ArgTypePattern, args []datatype.DataType) bool {
	switch p := pattern.(type) {
	case ArgTypeSequence:
		return matchSequence(p, args)
	case ArgTypeMultiSequence:
		for _, alt := range p.Alternatives {
			if matchSequence(alt, args) {
				return true
			}
		}
		return false
	case ArgTypeForAll:
		return matchForAll(p, args)
	default:
		panic(fmt.Sprintf("unhandled argument pattern %T", pattern))
	}
}

func (p ArgTypeSequence) Matches(args []datatype.DataType) bool      { return MatchTypes(p, args) }
func (p ArgTypeMultiSequence) Matches(args []datatype.DataType) bool { return MatchTypes(p, args) }
func (p ArgTypeForAll) Matches(args []datatype.DataType) bool        { return MatchTypes(p, args) }

func (p ArgTypeSequence) Arity() int { return len(p.Positions) }

func (p ArgTypeMultiSequence) Arity() int {
	if len(p.Alternatives) == 0 {
		return 0
	}
	return p.Alternatives[0].Arity()
}

func (p ArgTypeForAll) Arity() int { return -1 }

func (p ArgTypeSequence) PossibleTypesAtPosition(pos, total int) []datatype.DataType {
	if pos < 0 || pos >= len(p.Positions) {
		return nil
	}
	return slices.Clone(p.Positions[pos])
}

func (p ArgTypeMultiSequence) PossibleTypesAtPosition(pos, total int) []datatype.DataType {
	var out []datatype.DataType
	for _, alt := range p.Alternatives {
		out = append(out, alt.PossibleTypesAtPosition(pos, total)...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// PossibleTypesAtPosition returns the whole family regardless of position.
func (p ArgTypeForAll) PossibleTypesAtPosition(pos, total int) []datatype.DataType {
	return slices.Clone(p.Types)
}

func matchSequence(p ArgTypeSequence, args []datatype.DataType) bool {
	if len(args) != len(p.Positions) {
		return false
	}
	for i, arg := range args {
		if !castsToAny(arg, p.Positions[i]) {
			return false
		}
	}
	return true
}

func matchForAll(p ArgTypeForAll, args []datatype.DataType) bool {
	hasRequired := len(p.Required) == 0
	for _, arg := range args {
		if !castsToAny(arg, p.Types) {
			return false
		}
		if !hasRequired && slices.Contains(p.Required, arg.NonConstType()) {
			hasRequired = true
		}
	}
	return hasRequired
}

func castsToAny(arg datatype.DataType, targets []datatype.DataType) bool {
	for _, t := range targets {
		if arg.CastsTo(t) {
			return true
		}
	}
	return false
}
