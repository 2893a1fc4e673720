package registry

import (
	"cmp"
	"fmt"

	"golang.org/x/text/cases"
)

// Unlimited is the ArgCnt of a variadic fallback entry.
const Unlimited = -1

// FuncKey identifies a function or operator overload family.
type FuncKey struct {
	Name     string
	ArgCnt   int
	IsWindow bool
}

// NewKey builds a key with a case-folded name.
func NewKey(name string, argCnt int, isWindow bool) FuncKey {
	return FuncKey{Name: FoldName(name), ArgCnt: argCnt, IsWindow: isWindow}
}

// Variadic returns k with the Unlimited arity.
func (k FuncKey) Variadic() FuncKey {
	k.ArgCnt = Unlimited
	return k
}

func (k FuncKey) String() string {
	arity := "*"
	if k.ArgCnt != Unlimited {
		arity = fmt.Sprint(k.ArgCnt)
	}
	if k.IsWindow {
		return k.Name + "/" + arity + "/window"
	}
	return k.Name + "/" + arity
}

// Compare orders keys by name, then arity (variadic first), then window flag.
func (k FuncKey) Compare(other FuncKey) int {
	if c := cmp.Compare(k.Name, other.Name); c != 0 {
		return c
	}
	if c := cmp.Compare(k.ArgCnt, other.ArgCnt); c != 0 {
		return c
	}
	switch {
	case k.IsWindow == other.IsWindow:
		return 0
	case !k.IsWindow:
		return -1
	default:
		return 1
	}
}

// FoldName case-folds a function or operator name for lookup.
// A Caser is stateful, so a fresh one is used per call.
func FoldName(name string) string {
	return cases.Fold().String(name)
}
