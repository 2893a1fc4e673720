// Package dialect names the SQL backends a translation can target.
//
// A Combo is a bitset of backends. Single-backend combos are used as lookup
// targets; unions describe which backends a translation variant supports.
package dialect

import (
	"fmt"
	"math/bits"
	"sort"
	"strings"
)

// Combo is a set of backends.
type Combo uint32

const (
	ClickHouse Combo = 1 << iota
	PostgreSQL
	Greenplum
	MSSQL
	MySQL
	Oracle
	Trino
	YQL
	YDB
	CHYT
	BigQuery
	Snowflake
	SQLite
	CompEng

	// Empty is the combo of no backends.
	Empty Combo = 0
)

// Any is the union of every known backend.
const Any = ClickHouse | PostgreSQL | Greenplum | MSSQL | MySQL | Oracle |
	Trino | YQL | YDB | CHYT | BigQuery | Snowflake | SQLite | CompEng

var singles = []struct {
	combo Combo
	name  string
}{
	{ClickHouse, "CLICKHOUSE"},
	{PostgreSQL, "POSTGRESQL"},
	{Greenplum, "GREENPLUM"},
	{MSSQL, "MSSQL"},
	{MySQL, "MYSQL"},
	{Oracle, "ORACLE"},
	{Trino, "TRINO"},
	{YQL, "YQL"},
	{YDB, "YDB"},
	{CHYT, "CHYT"},
	{BigQuery, "BIGQUERY"},
	{Snowflake, "SNOWFLAKE"},
	{SQLite, "SQLITE"},
	{CompEng, "COMPENG"},
}

// Contains reports whether every backend of other is also in c.
// An empty other is never contained.
func (c Combo) Contains(other Combo) bool {
	return other != Empty && c&other == other
}

// Intersects reports whether c and other share a backend.
func (c Combo) Intersects(other Combo) bool {
	return c&other != 0
}

// Union returns the backends in either combo.
func (c Combo) Union(other Combo) Combo {
	return c | other
}

// IsSingle reports whether c names exactly one backend.
func (c Combo) IsSingle() bool {
	return bits.OnesCount32(uint32(c)) == 1
}

// Singles splits c into its single-backend combos, in declaration order.
func (c Combo) Singles() []Combo {
	var out []Combo
	for _, s := range singles {
		if c&s.combo != 0 {
			out = append(out, s.combo)
		}
	}
	return out
}

// Names returns the backend names in c, in declaration order.
func (c Combo) Names() []string {
	var out []string
	for _, s := range singles {
		if c&s.combo != 0 {
			out = append(out, s.name)
		}
	}
	return out
}

func (c Combo) String() string {
	switch c {
	case Empty:
		return "NONE"
	case Any:
		return "ANY"
	}
	return strings.Join(c.Names(), "|")
}

// Parse resolves a single backend name (case-insensitive) or "ANY".
func Parse(name string) (Combo, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if upper == "ANY" {
		return Any, nil
	}
	for _, s := range singles {
		if s.name == upper {
			return s.combo, nil
		}
	}
	return Empty, fmt.Errorf("unknown dialect %q", name)
}

// ParseList resolves and unions several names. Entries may also be
// "|"-separated.
func ParseList(names ...string) (Combo, error) {
	var out Combo
	for _, n := range names {
		for _, part := range strings.Split(n, "|") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			c, err := Parse(part)
			if err != nil {
				return Empty, err
			}
			out |= c
		}
	}
	return out, nil
}

// KnownNames returns all backend names sorted alphabetically.
func KnownNames() []string {
	out := make([]string, len(singles))
	for i, s := range singles {
		out[i] = s.name
	}
	sort.Strings(out)
	return out
}
