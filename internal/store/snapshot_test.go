package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dt "github.com/datalens-tech/datalens-backend-sub013/internal/datatype"
	"github.com/datalens-tech/datalens-backend-sub013/internal/dialect"
	"github.com/datalens-tech/datalens-backend-sub013/internal/ir"
	"github.com/datalens-tech/datalens-backend-sub013/internal/registry"
	"github.com/datalens-tech/datalens-backend-sub013/internal/testutil"
	tr "github.com/datalens-tech/datalens-backend-sub013/internal/translation"
)

func testRegistry() *registry.Registry {
	b := registry.NewBuilder()
	b.Register(registry.FuncDef{
		Name:        "SUM",
		IsAggregate: true,
		Variants: []*tr.Variant{
			{Pattern: tr.Seq(tr.Types(dt.Integer)), Impls: []tr.Impl{tr.For(dialect.Any, "SUM({0})")}, Scopes: tr.ScopeDefault},
			{Pattern: tr.Seq(tr.Types(dt.Float)), Impls: []tr.Impl{tr.For(dialect.Any, "SUM({0})")}, Scopes: tr.ScopeDefault},
		},
	})
	b.Register(registry.FuncDef{
		Name: "concat",
		Variants: []*tr.Variant{{
			Pattern: tr.ArgTypeForAll{Types: tr.Types(dt.String)},
			Impls:   []tr.Impl{tr.For(dialect.Any, "CONCAT({*})")},
			Scopes:  tr.ScopeExplicitUsage,
		}},
	})
	b.Register(registry.FuncDef{
		Name:       "+",
		IsOperator: true,
		Variants: []*tr.Variant{{
			Pattern: tr.Seq(tr.Types(dt.Integer), tr.Types(dt.Integer)),
			Impls: []tr.Impl{
				tr.For(dialect.ClickHouse, "plus({0}, {1})"),
				tr.For(dialect.PostgreSQL|dialect.Greenplum, "({0} + {1})"),
			},
			Scopes: tr.ScopeDefault,
		}},
	})
	b.Register(registry.FuncDef{
		Name:     "lag",
		IsWindow: true,
		Variants: []*tr.Variant{{
			Pattern: tr.Seq(tr.Types(dt.Float, dt.Integer), tr.Types(dt.ConstInteger)),
			Impls:   []tr.Impl{tr.For(dialect.PostgreSQL, "LAG({0}, {1})")},
			Scopes:  tr.ScopeDefault | tr.ScopeWindow,
		}},
	})
	return b.Build()
}

func TestSnapshotFromRegistry_Entries(t *testing.T) {
	snap, err := SnapshotFromRegistry(testRegistry(), "snap-1")
	require.NoError(t, err)

	assert.Equal(t, "snap-1", snap.ID)
	assert.Equal(t, ir.CompilerVersion, snap.CompilerVersion)
	assert.Equal(t, ir.CatalogFormatVersion, snap.FormatVersion)
	assert.Equal(t, dialect.Any, snap.Dialects)
	require.Len(t, snap.Entries, 5)
	assert.Equal(t, 5, snap.EntryCount)

	names := make([]string, len(snap.Entries))
	for i, e := range snap.Entries {
		assert.Equal(t, i, e.Position)
		assert.Len(t, e.VariantHash, 64)
		names[i] = e.Name
	}
	assert.Equal(t, []string{"sum", "sum", "concat", "+", "lag"}, names)

	sum := snap.Entries[1]
	assert.Equal(t, 1, sum.ArgCnt)
	assert.True(t, sum.IsFunction)
	assert.True(t, sum.IsAggregate)
	assert.Equal(t, [][]dt.DataType{{dt.Float}}, sum.ArgTypes)

	concat := snap.Entries[2]
	assert.Equal(t, registry.Unlimited, concat.ArgCnt)
	assert.Equal(t, [][]dt.DataType{{dt.String}}, concat.ArgTypes)
	assert.Equal(t, tr.ScopeExplicitUsage, concat.Scopes)

	plus := snap.Entries[3]
	assert.False(t, plus.IsFunction)
	assert.Equal(t, dialect.ClickHouse|dialect.PostgreSQL|dialect.Greenplum, plus.Dialects)
	assert.Equal(t, []Template{
		{Dialects: dialect.ClickHouse, Source: "plus({0}, {1})"},
		{Dialects: dialect.PostgreSQL | dialect.Greenplum, Source: "({0} + {1})"},
	}, plus.Templates)

	lag := snap.Entries[4]
	assert.True(t, lag.IsWindow)
	assert.Equal(t, [][]dt.DataType{{dt.Float, dt.Integer}, {dt.ConstInteger}}, lag.ArgTypes)
}

func TestSnapshotFromRegistry_HashesAreContentAddressed(t *testing.T) {
	a, err := SnapshotFromRegistry(testRegistry(), "a")
	require.NoError(t, err)
	b, err := SnapshotFromRegistry(testRegistry(), "b")
	require.NoError(t, err)

	assert.Equal(t, a.CatalogHash, b.CatalogHash)
	for i := range a.Entries {
		assert.Equal(t, a.Entries[i].VariantHash, b.Entries[i].VariantHash)
	}
	assert.Equal(t, a.Entries[0].Name, a.Entries[1].Name)
	assert.NotEqual(t, a.Entries[0].VariantHash, a.Entries[1].VariantHash)
}

func TestSnapshotFromRegistry_OrderChangesCatalogHash(t *testing.T) {
	mk := func(names ...string) *registry.Registry {
		b := registry.NewBuilder()
		for _, n := range names {
			b.Register(registry.FuncDef{Name: n, Variants: []*tr.Variant{{
				Pattern: tr.Seq(tr.Types(dt.String)),
				Impls:   []tr.Impl{tr.For(dialect.Any, "F({0})")},
				Scopes:  tr.ScopeDefault,
			}}})
		}
		return b.Build()
	}

	ab, err := SnapshotFromRegistry(mk("upper", "lower"), "ab")
	require.NoError(t, err)
	ba, err := SnapshotFromRegistry(mk("lower", "upper"), "ba")
	require.NoError(t, err)

	assert.NotEqual(t, ab.CatalogHash, ba.CatalogHash)
	assert.Equal(t, ab.Entries[0].VariantHash, ba.Entries[1].VariantHash)
}

func TestSnapshotFromRegistry_Empty(t *testing.T) {
	snap, err := SnapshotFromRegistry(registry.NewBuilder().Build(), "empty")
	require.NoError(t, err)

	assert.NotNil(t, snap.Entries)
	assert.Empty(t, snap.Entries)
	assert.Equal(t, dialect.Empty, snap.Dialects)
	assert.Equal(t, ir.CatalogHash(nil), snap.CatalogHash)
}

func TestWriteSnapshot_ReadBack(t *testing.T) {
	s := createTestStore(t)
	ids := testutil.NewSequentialIDGenerator("snap")

	snap, err := SnapshotFromRegistry(testRegistry(), ids.Generate())
	require.NoError(t, err)

	seq, err := s.WriteSnapshot(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	got, err := s.ReadSnapshot(context.Background(), "snap-0001")
	require.NoError(t, err)
	snap.Seq = seq
	assert.Equal(t, snap, got)
}

func TestWriteSnapshot_Idempotent(t *testing.T) {
	s := createTestStore(t)

	first, err := SnapshotFromRegistry(testRegistry(), "same")
	require.NoError(t, err)
	seq1, err := s.WriteSnapshot(context.Background(), first)
	require.NoError(t, err)

	second, err := SnapshotFromRegistry(registry.NewBuilder().Build(), "same")
	require.NoError(t, err)
	seq2, err := s.WriteSnapshot(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, seq1, seq2)

	entries, err := s.ListEntries(context.Background(), "same")
	require.NoError(t, err)
	assert.Len(t, entries, 5)

	snaps, err := s.ListSnapshots(context.Background())
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestWriteSnapshot_EmptyID(t *testing.T) {
	s := createTestStore(t)
	_, err := s.WriteSnapshot(context.Background(), Snapshot{})
	assert.Error(t, err)
}

func TestReadSnapshot_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadSnapshot(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestListEntries_UnknownSnapshotIsEmpty(t *testing.T) {
	s := createTestStore(t)

	entries, err := s.ListEntries(context.Background(), "missing")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestLatestSnapshotForHash(t *testing.T) {
	s := createTestStore(t)
	ids := testutil.NewFixedIDGenerator("old", "other", "new")
	reg := testRegistry()

	old, err := SnapshotFromRegistry(reg, ids.Generate())
	require.NoError(t, err)
	other, err := SnapshotFromRegistry(registry.NewBuilder().Build(), ids.Generate())
	require.NoError(t, err)
	newer, err := SnapshotFromRegistry(reg, ids.Generate())
	require.NoError(t, err)

	for _, snap := range []Snapshot{old, other, newer} {
		_, err := s.WriteSnapshot(context.Background(), snap)
		require.NoError(t, err)
	}

	latest, err := s.LatestSnapshotForHash(context.Background(), old.CatalogHash)
	require.NoError(t, err)
	assert.Equal(t, "new", latest.ID)
	assert.Equal(t, int64(3), latest.Seq)
	assert.Equal(t, 5, latest.EntryCount)
	assert.Empty(t, latest.Entries)

	_, err = s.LatestSnapshotForHash(context.Background(), "no-such-hash")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestFindEntries_AcrossSnapshots(t *testing.T) {
	s := createTestStore(t)
	ids := testutil.NewSequentialIDGenerator("snap")

	for i := 0; i < 2; i++ {
		snap, err := SnapshotFromRegistry(testRegistry(), ids.Generate())
		require.NoError(t, err)
		_, err = s.WriteSnapshot(context.Background(), snap)
		require.NoError(t, err)
	}

	entries, err := s.FindEntries(context.Background(), "sum")
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, []dt.DataType{dt.Integer}, entries[0].ArgTypes[0])
	assert.Equal(t, []dt.DataType{dt.Float}, entries[1].ArgTypes[0])
	assert.Equal(t, entries[0].VariantHash, entries[2].VariantHash)

	none, err := s.FindEntries(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUUIDv7Generator_Unique(t *testing.T) {
	gen := UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()

	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
