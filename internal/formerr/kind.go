package formerr

import "strings"

// ErrorKind identifies a node in the formula error taxonomy.
//
// Kinds form a tree: every kind except KindFormula has a parent, and a kind's
// code path is its parent's path with the kind's own segment appended.
// Specialization is expressed by the parent link, not by type embedding.
type ErrorKind int

const (
	KindFormula ErrorKind = iota
	KindParse
	KindUnknownFunction
	KindDataType
	KindTypeConflict
	KindTranslation
	KindValidation
	KindAggregation
	KindDoubleAggregation
	KindInconsistentAggregation
	KindWindow
	KindWindowWithoutAggregation
	KindWindowInsideAggregation
	KindUnknownWindowDimension
	KindLookup
	KindLod
	KindLodIncompatibleDimensions
)

type kindInfo struct {
	parent  ErrorKind
	segment string
	name    string
}

// kinds is indexed by ErrorKind. KindFormula is its own parent (the root).
var kinds = [...]kindInfo{
	KindFormula:                   {KindFormula, "FORMULA", "FormulaError"},
	KindParse:                     {KindFormula, "PARSE", "ParseError"},
	KindUnknownFunction:           {KindFormula, "UNKNOWN_FUNCTION", "UnknownFunctionError"},
	KindDataType:                  {KindFormula, "DATA_TYPE", "DataTypeError"},
	KindTypeConflict:              {KindDataType, "TYPE_CONFLICT", "TypeConflictError"},
	KindTranslation:               {KindFormula, "TRANSLATION", "TranslationError"},
	KindValidation:                {KindFormula, "VALIDATION", "ValidationError"},
	KindAggregation:               {KindValidation, "AGG", "AggregationError"},
	KindDoubleAggregation:         {KindAggregation, "DOUBLE", "DoubleAggregationError"},
	KindInconsistentAggregation:   {KindAggregation, "INCONSISTENT", "InconsistentAggregationError"},
	KindWindow:                    {KindValidation, "WIN", "WindowFunctionError"},
	KindWindowWithoutAggregation:  {KindWindow, "NO_AGG", "WindowFunctionWOAggregationError"},
	KindWindowInsideAggregation:   {KindWindow, "INSIDE_AGG", "WindowFunctionInsideAggregationError"},
	KindUnknownWindowDimension:    {KindWindow, "UNKNOWN_DIMENSION", "UnknownWindowDimensionError"},
	KindLookup:                    {KindValidation, "LOOKUP", "LookupFunctionError"},
	KindLod:                       {KindValidation, "LOD", "LodError"},
	KindLodIncompatibleDimensions: {KindLod, "INCOMPATIBLE_DIMENSIONS", "LodIncompatibleDimensionsError"},
}

// valid reports whether k is a declared kind.
func (k ErrorKind) valid() bool {
	return k >= 0 && int(k) < len(kinds)
}

// Parent returns the kind this kind specializes. KindFormula returns itself.
func (k ErrorKind) Parent() ErrorKind {
	if !k.valid() {
		return KindFormula
	}
	return kinds[k].parent
}

// Code returns the kind's code path from the root, e.g.
// ["FORMULA", "VALIDATION", "AGG", "DOUBLE"].
func (k ErrorKind) Code() []string {
	if !k.valid() {
		return []string{kinds[KindFormula].segment}
	}
	if k == KindFormula {
		return []string{kinds[k].segment}
	}
	return append(k.Parent().Code(), kinds[k].segment)
}

// CodeString returns the dotted code path.
func (k ErrorKind) CodeString() string {
	return strings.Join(k.Code(), ".")
}

// String returns the kind's descriptive name.
func (k ErrorKind) String() string {
	if !k.valid() {
		return "UnknownErrorKind"
	}
	return kinds[k].name
}

// IsA reports whether k equals other or specializes it (directly or transitively).
func (k ErrorKind) IsA(other ErrorKind) bool {
	for cur := k; ; cur = cur.Parent() {
		if cur == other {
			return true
		}
		if cur == KindFormula {
			return false
		}
	}
}

// KindByCode resolves a dotted code path (as produced by CodeString) to its kind.
func KindByCode(code string) (ErrorKind, bool) {
	for i := range kinds {
		k := ErrorKind(i)
		if k.CodeString() == code {
			return k, true
		}
	}
	return KindFormula, false
}
