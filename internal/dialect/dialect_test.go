package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	got, err := Parse("clickhouse")
	require.NoError(t, err)
	assert.Equal(t, ClickHouse, got)

	got, err = Parse("Any")
	require.NoError(t, err)
	assert.Equal(t, Any, got)

	_, err = Parse("db2")
	assert.Error(t, err)
}

func TestParseList(t *testing.T) {
	got, err := ParseList("postgresql|greenplum", "MSSQL", "")
	require.NoError(t, err)
	assert.Equal(t, PostgreSQL|Greenplum|MSSQL, got)
	assert.Equal(t, "POSTGRESQL|GREENPLUM|MSSQL", got.String())

	_, err = ParseList("clickhouse|nope")
	assert.Error(t, err)
}

func TestContains(t *testing.T) {
	c := ClickHouse | PostgreSQL
	assert.True(t, c.Contains(ClickHouse))
	assert.True(t, c.Contains(ClickHouse|PostgreSQL))
	assert.False(t, c.Contains(ClickHouse|MySQL))
	assert.False(t, c.Contains(Empty))
	assert.True(t, Any.Contains(CompEng))
}

func TestSingles(t *testing.T) {
	assert.Equal(t, []Combo{ClickHouse, YDB}, (YDB | ClickHouse).Singles())
	assert.Len(t, Any.Singles(), len(KnownNames()))
	assert.True(t, Trino.IsSingle())
	assert.False(t, (Trino | YQL).IsSingle())
	assert.Equal(t, "ANY", Any.String())
	assert.Equal(t, "NONE", Empty.String())
}
