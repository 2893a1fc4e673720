package store

import (
	"fmt"
	"strings"

	"github.com/datalens-tech/datalens-backend-sub013/internal/datatype"
	"github.com/datalens-tech/datalens-backend-sub013/internal/dialect"
	"github.com/datalens-tech/datalens-backend-sub013/internal/ir"
	"github.com/datalens-tech/datalens-backend-sub013/internal/registry"
	"github.com/datalens-tech/datalens-backend-sub013/internal/translation"
)

// Snapshot is one exported registry.
type Snapshot struct {
	ID              string
	CatalogHash     string
	Dialects        dialect.Combo
	EntryCount      int
	CompilerVersion string
	FormatVersion   string

	// Seq orders snapshots by write time. It is assigned by WriteSnapshot.
	Seq     int64
	Entries []Entry
}

// Entry documents one registered variant.
type Entry struct {
	Position    int
	Name        string
	ArgCnt      int
	IsWindow    bool
	IsFunction  bool
	IsAggregate bool
	Scopes      translation.Scope
	Dialects    dialect.Combo

	// ArgTypes lists the accepted types per argument position. Variadic
	// entries have a single position describing every argument.
	ArgTypes    [][]datatype.DataType
	Templates   []Template
	VariantHash string
}

// Template is the source of one backend group's implementation.
type Template struct {
	Dialects dialect.Combo
	Source   string
}

// SnapshotFromRegistry flattens reg into a snapshot with the given ID.
// Entries follow registration order.
func SnapshotFromRegistry(reg *registry.Registry, id string) (Snapshot, error) {
	snap := Snapshot{
		ID:              id,
		CompilerVersion: ir.CompilerVersion,
		FormatVersion:   ir.CatalogFormatVersion,
		Entries:         []Entry{},
	}

	hashes := make([]string, 0, reg.Len())
	for i, e := range reg.Entries() {
		entry := Entry{
			Position:    i,
			Name:        e.Key.Name,
			ArgCnt:      e.Key.ArgCnt,
			IsWindow:    e.Key.IsWindow,
			IsFunction:  !e.Info.IsOperator,
			IsAggregate: e.Info.IsAggregate,
			Scopes:      e.Variant.Scopes,
			Dialects:    e.Variant.Dialects(),
			ArgTypes:    argTypes(e.Key, e.Variant.Pattern),
			Templates:   templates(e.Variant),
		}
		hash, err := entryHash(entry)
		if err != nil {
			return Snapshot{}, fmt.Errorf("snapshot entry %s: %w", e.Key, err)
		}
		entry.VariantHash = hash

		snap.Entries = append(snap.Entries, entry)
		snap.Dialects |= entry.Dialects
		hashes = append(hashes, hash)
	}
	snap.EntryCount = len(snap.Entries)
	snap.CatalogHash = ir.CatalogHash(hashes)
	return snap, nil
}

func argTypes(key registry.FuncKey, pattern translation.ArgTypePattern) [][]datatype.DataType {
	if pattern == nil {
		return [][]datatype.DataType{}
	}
	if key.ArgCnt == registry.Unlimited {
		return [][]datatype.DataType{nonNil(pattern.PossibleTypesAtPosition(0, 1))}
	}
	out := make([][]datatype.DataType, key.ArgCnt)
	for pos := 0; pos < key.ArgCnt; pos++ {
		out[pos] = nonNil(pattern.PossibleTypesAtPosition(pos, key.ArgCnt))
	}
	return out
}

func nonNil(ts []datatype.DataType) []datatype.DataType {
	if ts == nil {
		return []datatype.DataType{}
	}
	return ts
}

func templates(v *translation.Variant) []Template {
	out := make([]Template, len(v.Impls))
	for i, impl := range v.Impls {
		out[i] = Template{Dialects: impl.Dialects, Source: impl.Template}
	}
	return out
}

// entryHash content-addresses an entry. Position is left out so identical
// variants hash the same wherever they are registered; the catalog hash
// covers order.
func entryHash(e Entry) (string, error) {
	return ir.Hash(ir.DomainCatalogEntry, ir.Obj(
		ir.O("name", ir.String(e.Name)),
		ir.O("arg_cnt", ir.Int(e.ArgCnt)),
		ir.O("is_window", ir.Bool(e.IsWindow)),
		ir.O("is_function", ir.Bool(e.IsFunction)),
		ir.O("is_aggregate", ir.Bool(e.IsAggregate)),
		ir.O("scopes", ir.Strings(e.Scopes.Names()...)),
		ir.O("dialects", ir.Strings(e.Dialects.Names()...)),
		ir.O("arg_types", argTypesValue(e.ArgTypes)),
		ir.O("templates", templatesValue(e.Templates)),
	))
}

func argTypesValue(positions [][]datatype.DataType) ir.Array {
	out := make(ir.Array, len(positions))
	for i, ts := range positions {
		out[i] = ir.Strings(datatype.Names(ts)...)
	}
	return out
}

func templatesValue(ts []Template) ir.Array {
	out := make(ir.Array, len(ts))
	for i, t := range ts {
		out[i] = ir.Obj(
			ir.O("dialects", ir.String(dialectText(t.Dialects))),
			ir.O("template", ir.String(t.Source)),
		)
	}
	return out
}

// dialectText is the stored form of a combo: "|"-joined backend names,
// readable back with dialect.ParseList.
func dialectText(c dialect.Combo) string {
	return strings.Join(c.Names(), "|")
}
