// Package datatype defines the value kinds of the formula type system.
//
// Every kind except NULL and UNSUPPORTED has a constant twin (INTEGER and
// CONST_INTEGER). Constness marks values known at compile time; the autocast
// lattice in cast.go decides implicit widenings between kinds.
//
// All functions in this package are pure and the tables are immutable.
package datatype

import (
	"fmt"
	"strings"
)

// DataType is a closed enumeration of formula value kinds.
type DataType int

const (
	Null DataType = iota
	Integer
	Float
	String
	Date
	Datetime
	DatetimeTZ
	GenericDatetime
	Boolean
	GeoPoint
	GeoPolygon
	Markup
	UUID
	ArrayInt
	ArrayFloat
	ArrayStr
	TreeStr
	Unsupported

	ConstInteger
	ConstFloat
	ConstString
	ConstDate
	ConstDatetime
	ConstDatetimeTZ
	ConstGenericDatetime
	ConstBoolean
	ConstGeoPoint
	ConstGeoPolygon
	ConstMarkup
	ConstUUID
	ConstArrayInt
	ConstArrayFloat
	ConstArrayStr
	ConstTreeStr

	numTypes
)

const constPrefix = "CONST_"

var names = [numTypes]string{
	Null:            "NULL",
	Integer:         "INTEGER",
	Float:           "FLOAT",
	String:          "STRING",
	Date:            "DATE",
	Datetime:        "DATETIME",
	DatetimeTZ:      "DATETIMETZ",
	GenericDatetime: "GENERICDATETIME",
	Boolean:         "BOOLEAN",
	GeoPoint:        "GEOPOINT",
	GeoPolygon:      "GEOPOLYGON",
	Markup:          "MARKUP",
	UUID:            "UUID",
	ArrayInt:        "ARRAY_INT",
	ArrayFloat:      "ARRAY_FLOAT",
	ArrayStr:        "ARRAY_STR",
	TreeStr:         "TREE_STR",
	Unsupported:     "UNSUPPORTED",
}

// constPairs maps every non-const kind to its const twin.
var constPairs = map[DataType]DataType{
	Integer:         ConstInteger,
	Float:           ConstFloat,
	String:          ConstString,
	Date:            ConstDate,
	Datetime:        ConstDatetime,
	DatetimeTZ:      ConstDatetimeTZ,
	GenericDatetime: ConstGenericDatetime,
	Boolean:         ConstBoolean,
	GeoPoint:        ConstGeoPoint,
	GeoPolygon:      ConstGeoPolygon,
	Markup:          ConstMarkup,
	UUID:            ConstUUID,
	ArrayInt:        ConstArrayInt,
	ArrayFloat:      ConstArrayFloat,
	ArrayStr:        ConstArrayStr,
	TreeStr:         ConstTreeStr,
}

var nonConstPairs = func() map[DataType]DataType {
	m := make(map[DataType]DataType, len(constPairs))
	for nc, c := range constPairs {
		m[c] = nc
	}
	return m
}()

var byName = func() map[string]DataType {
	m := make(map[string]DataType, numTypes)
	for t := DataType(0); t < numTypes; t++ {
		m[t.String()] = t
	}
	return m
}()

// All returns every declared kind, non-const kinds first, in declaration order.
func All() []DataType {
	out := make([]DataType, 0, numTypes)
	for t := DataType(0); t < numTypes; t++ {
		out = append(out, t)
	}
	return out
}

// Valid reports whether t is a declared kind.
func (t DataType) Valid() bool {
	return t >= 0 && t < numTypes
}

// String returns the kind's canonical name, e.g. "CONST_INTEGER".
func (t DataType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("DataType(%d)", int(t))
	}
	if nc, ok := nonConstPairs[t]; ok {
		return constPrefix + names[nc]
	}
	return names[t]
}

// IsConst reports whether t is a const twin.
func (t DataType) IsConst() bool {
	_, ok := nonConstPairs[t]
	return ok
}

// ConstType returns the const twin of t. Const kinds, NULL and UNSUPPORTED
// are returned unchanged.
func (t DataType) ConstType() DataType {
	if c, ok := constPairs[t]; ok {
		return c
	}
	return t
}

// NonConstType returns the non-const twin of t. Non-const kinds, NULL and
// UNSUPPORTED are returned unchanged.
func (t DataType) NonConstType() DataType {
	if nc, ok := nonConstPairs[t]; ok {
		return nc
	}
	return t
}

// Parse resolves a kind by name, case-insensitively.
func Parse(name string) (DataType, error) {
	t, ok := byName[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return Unsupported, fmt.Errorf("unknown data type %q", name)
	}
	return t, nil
}

// MustParse is like Parse but panics on unknown names.
// Use only for static tables and tests.
func MustParse(name string) DataType {
	t, err := Parse(name)
	if err != nil {
		panic(err)
	}
	return t
}

// MarshalText implements encoding.TextMarshaler.
func (t DataType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid data type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *DataType) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Names returns the names of ts in order.
func Names(ts []DataType) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.String()
	}
	return out
}
