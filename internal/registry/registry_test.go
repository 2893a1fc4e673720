package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dt "github.com/datalens-tech/datalens-backend-sub013/internal/datatype"
	"github.com/datalens-tech/datalens-backend-sub013/internal/dialect"
	"github.com/datalens-tech/datalens-backend-sub013/internal/formerr"
	tr "github.com/datalens-tech/datalens-backend-sub013/internal/translation"
)

func variant(pattern tr.ArgTypePattern, dialects dialect.Combo, template string) *tr.Variant {
	return &tr.Variant{
		Pattern: pattern,
		Impls:   []tr.Impl{tr.For(dialects, template)},
		Scopes:  tr.ScopeDefault,
	}
}

func TestRegister_DuplicateVariantIsNoop(t *testing.T) {
	b := NewBuilder()
	v := variant(tr.Seq(tr.Types(dt.Float)), dialect.Any, "SUM({0})")
	def := FuncDef{Name: "SUM", IsAggregate: true, Variants: []*tr.Variant{v}}

	b.Register(def)
	b.Register(def)
	b.Register(FuncDef{Name: "sum", IsAggregate: true, Variants: []*tr.Variant{v, v}})

	key := NewKey("sum", 1, false)
	assert.Equal(t, 1, b.Len(key))

	reg := b.Build()
	assert.Equal(t, []FuncKey{key}, reg.Keys())
	assert.True(t, reg.IsAggregate("Sum"))
	assert.False(t, reg.IsWindow("sum"))
}

func TestRegister_KeysFollowPatternArity(t *testing.T) {
	b := NewBuilder()
	one := variant(tr.Seq(tr.Types(dt.String)), dialect.Any, "f({0})")
	many := variant(tr.ArgTypeForAll{Types: tr.Types(dt.String)}, dialect.Any, "f({*})")
	b.Register(FuncDef{Name: "concat", Variants: []*tr.Variant{one, many}})

	reg := b.Build()
	assert.Equal(t, []FuncKey{
		{Name: "concat", ArgCnt: 1},
		{Name: "concat", ArgCnt: Unlimited},
	}, reg.Keys())
}

func TestUnregister_DropsEmptyKey(t *testing.T) {
	b := NewBuilder()
	v1 := variant(tr.Seq(tr.Types(dt.Integer)), dialect.ClickHouse, "a({0})")
	v2 := variant(tr.Seq(tr.Types(dt.Float)), dialect.ClickHouse, "b({0})")
	b.Register(FuncDef{Name: "abs", Variants: []*tr.Variant{v1, v2}})
	key := NewKey("abs", 1, false)

	b.Unregister(key, v1)
	assert.Equal(t, 1, b.Len(key))

	b.Unregister(FuncKey{Name: "ABS", ArgCnt: 1}, v2)
	assert.Equal(t, 0, b.Len(key))
	assert.Empty(t, b.Build().Keys())

	// Unknown keys are ignored.
	b.Unregister(key, v2)
}

func TestBuild_SnapshotIsIsolatedFromBuilder(t *testing.T) {
	b := NewBuilder()
	v1 := variant(tr.Seq(tr.Types(dt.Integer)), dialect.Any, "x")
	b.Register(FuncDef{Name: "f", Variants: []*tr.Variant{v1}})
	reg := b.Build()

	b.Register(FuncDef{Name: "f", Variants: []*tr.Variant{variant(tr.Seq(tr.Types(dt.Float)), dialect.Any, "y")}})
	b.Register(FuncDef{Name: "g", Variants: []*tr.Variant{v1}})

	assert.Len(t, reg.Candidates(NewKey("f", 1, false)), 1)
	assert.Len(t, reg.Keys(), 1)
	assert.Equal(t, 1, reg.Len())
}

func TestGetDefinition_UnknownFunction(t *testing.T) {
	reg := NewBuilder().Build()

	_, err := reg.GetDefinition(Lookup{Name: "frobnicate", ArgTypes: []dt.DataType{dt.Integer}, ForAnyDialect: true})
	require.Error(t, err)
	assert.True(t, formerr.IsKind(err, formerr.KindUnknownFunction))
	assert.Contains(t, err.Error(), "Unknown 1-argument function FROBNICATE")

	fe, ok := formerr.As(err)
	require.True(t, ok)
	assert.Equal(t, "frobnicate", fe.Contexts[0].Token)

	_, err = reg.GetDefinition(Lookup{Name: "+", ArgTypes: []dt.DataType{dt.Integer, dt.Integer}, ForAnyDialect: true})
	assert.Contains(t, err.Error(), "2-argument operator +")
}

func TestGetDefinition_ScopesFilterCandidates(t *testing.T) {
	b := NewBuilder()
	hidden := &tr.Variant{
		Pattern: tr.Seq(tr.Types(dt.Integer)),
		Impls:   []tr.Impl{tr.For(dialect.Any, "h({0})")},
		Scopes:  tr.ScopeExplicitUsage,
	}
	b.Register(FuncDef{Name: "h", Variants: []*tr.Variant{hidden}})
	reg := b.Build()

	_, err := reg.GetDefinition(Lookup{Name: "h", ArgTypes: []dt.DataType{dt.Integer}, ForAnyDialect: true, RequiredScopes: tr.ScopeExplicitUsage})
	require.NoError(t, err)

	_, err = reg.GetDefinition(Lookup{Name: "h", ArgTypes: []dt.DataType{dt.Integer}, ForAnyDialect: true, RequiredScopes: tr.ScopeDocumented})
	assert.True(t, formerr.IsKind(err, formerr.KindUnknownFunction))
}

func TestGetDefinition_DialectResolution(t *testing.T) {
	b := NewBuilder()
	chOnly := variant(tr.Seq(tr.Types(dt.Float)), dialect.ClickHouse, "sumCH({0})")
	pg := variant(tr.Seq(tr.Types(dt.Float)), dialect.PostgreSQL|dialect.Greenplum, "SUM({0})")
	b.Register(FuncDef{Name: "sum", IsAggregate: true, Variants: []*tr.Variant{chOnly, pg}})
	reg := b.Build()

	args := []dt.DataType{dt.Integer}

	got, err := reg.GetDefinition(Lookup{Name: "SUM", ArgTypes: args, ForAnyDialect: true})
	require.NoError(t, err)
	assert.Same(t, chOnly, got, "first type match wins for any dialect")

	got, err = reg.GetDefinition(Lookup{Name: "sum", ArgTypes: args, Dialect: dialect.Greenplum})
	require.NoError(t, err)
	assert.Same(t, pg, got)

	_, err = reg.GetDefinition(Lookup{Name: "sum", ArgTypes: args, Dialect: dialect.MySQL})
	require.Error(t, err)
	assert.True(t, formerr.IsKind(err, formerr.KindDataType))
	assert.False(t, formerr.IsKind(err, formerr.KindTypeConflict))
	assert.Contains(t, err.Error(), "defined for other databases")

	_, err = reg.GetDefinition(Lookup{Name: "sum", ArgTypes: []dt.DataType{dt.String}, Dialect: dialect.ClickHouse})
	require.Error(t, err)
	assert.True(t, formerr.IsKind(err, formerr.KindDataType))
	assert.Contains(t, err.Error(), "There is no function SUM for argument types (STRING)")
}

func TestGetDefinition_RegistrationOrderWins(t *testing.T) {
	first := variant(tr.Seq(tr.Types(dt.String)), dialect.ClickHouse|dialect.YQL, "lowerUTF8({0})")
	second := variant(tr.Seq(tr.Types(dt.String)), dialect.ClickHouse, "lower({0})")

	b := NewBuilder()
	b.Register(FuncDef{Name: "lower", Variants: []*tr.Variant{first}})
	b.Register(FuncDef{Name: "lower", Variants: []*tr.Variant{second}})
	reg := b.Build()

	got, err := reg.GetDefinition(Lookup{Name: "lower", ArgTypes: []dt.DataType{dt.String}, Dialect: dialect.ClickHouse})
	require.NoError(t, err)
	assert.Same(t, first, got)

	b = NewBuilder()
	b.Register(FuncDef{Name: "lower", Variants: []*tr.Variant{second}})
	b.Register(FuncDef{Name: "lower", Variants: []*tr.Variant{first}})
	reg = b.Build()

	got, err = reg.GetDefinition(Lookup{Name: "lower", ArgTypes: []dt.DataType{dt.String}, Dialect: dialect.ClickHouse})
	require.NoError(t, err)
	assert.Same(t, second, got)
}

func TestGetDefinition_FallsBackToVariadicKey(t *testing.T) {
	b := NewBuilder()
	two := variant(tr.Seq(tr.Types(dt.Integer), tr.Types(dt.Integer)), dialect.Any, "least2")
	many := variant(tr.ArgTypeForAll{Types: tr.Types(dt.Float, dt.String)}, dialect.Any, "least({*})")
	b.Register(FuncDef{Name: "least", Variants: []*tr.Variant{many, two}})
	reg := b.Build()

	got, err := reg.GetDefinition(Lookup{Name: "least", ArgTypes: []dt.DataType{dt.Integer, dt.Integer}, ForAnyDialect: true})
	require.NoError(t, err)
	assert.Same(t, two, got, "exact arity is tried before variadic")

	got, err = reg.GetDefinition(Lookup{Name: "least", ArgTypes: []dt.DataType{dt.Float, dt.Integer, dt.Float}, ForAnyDialect: true})
	require.NoError(t, err)
	assert.Same(t, many, got)
}

func TestGetDefinition_WindowKeysAreSeparate(t *testing.T) {
	b := NewBuilder()
	b.Register(FuncDef{Name: "sum", IsAggregate: true, Variants: []*tr.Variant{variant(tr.Seq(tr.Types(dt.Float)), dialect.Any, "SUM({0})")}})
	reg := b.Build()

	_, err := reg.GetDefinition(Lookup{Name: "sum", ArgTypes: []dt.DataType{dt.Float}, IsWindow: true, ForAnyDialect: true})
	assert.True(t, formerr.IsKind(err, formerr.KindUnknownFunction))
}

func TestGetDefinition_PanicsOnDialectContractViolation(t *testing.T) {
	reg := NewBuilder().Build()
	assert.Panics(t, func() {
		_, _ = reg.GetDefinition(Lookup{Name: "f"})
	})
	assert.Panics(t, func() {
		_, _ = reg.GetDefinition(Lookup{Name: "f", Dialect: dialect.ClickHouse, ForAnyDialect: true})
	})
}

func TestGetSupportedFunctions(t *testing.T) {
	b := NewBuilder()
	b.Register(FuncDef{Name: "sum", IsAggregate: true, Variants: []*tr.Variant{
		variant(tr.Seq(tr.Types(dt.Float)), dialect.ClickHouse, "a"),
		variant(tr.Seq(tr.Types(dt.Integer)), dialect.PostgreSQL, "b"),
	}})
	b.Register(FuncDef{Name: "avg", IsAggregate: true, Variants: []*tr.Variant{
		variant(tr.Seq(tr.Types(dt.Float)), dialect.ClickHouse, "c"),
	}})
	b.Register(FuncDef{Name: "+", IsOperator: true, Variants: []*tr.Variant{
		variant(tr.Seq(tr.Types(dt.Float), tr.Types(dt.Float)), dialect.Any, "({0} + {1})"),
	}})
	b.Register(FuncDef{Name: "secret", Variants: []*tr.Variant{{
		Pattern: tr.Seq(),
		Impls:   []tr.Impl{tr.For(dialect.Any, "s()")},
		Scopes:  tr.ScopeExplicitUsage,
	}}})
	reg := b.Build()

	got := reg.GetSupportedFunctions(dialect.ClickHouse|dialect.PostgreSQL, false, tr.ScopeDocumented)
	assert.Equal(t, []FuncKey{{Name: "+", ArgCnt: 2}, {Name: "sum", ArgCnt: 1}}, got)

	got = reg.GetSupportedFunctions(dialect.ClickHouse, true, tr.ScopeDocumented)
	assert.Equal(t, []FuncKey{{Name: "avg", ArgCnt: 1}, {Name: "sum", ArgCnt: 1}}, got)

	got = reg.GetSupportedFunctions(dialect.Empty, true, tr.ScopeExplicitUsage)
	assert.Equal(t, []FuncKey{{Name: "avg", ArgCnt: 1}, {Name: "secret", ArgCnt: 0}, {Name: "sum", ArgCnt: 1}}, got)
}

func TestRegistry_ConcurrentReaders(t *testing.T) {
	b := NewBuilder()
	v := variant(tr.Seq(tr.Types(dt.Float)), dialect.Any, "SUM({0})")
	b.Register(FuncDef{Name: "sum", Variants: []*tr.Variant{v}})
	reg := b.Build()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				got, err := reg.GetDefinition(Lookup{Name: "SUM", ArgTypes: []dt.DataType{dt.Integer}, Dialect: dialect.YDB})
				assert.NoError(t, err)
				assert.Same(t, v, got)
			}
		}()
	}
	wg.Wait()
}
