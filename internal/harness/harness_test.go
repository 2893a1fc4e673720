package harness

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datalens-tech/datalens-backend-sub013/internal/catalog"
	"github.com/datalens-tech/datalens-backend-sub013/internal/registry"
)

func builtin(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := catalog.BuiltinRegistry()
	require.NoError(t, err)
	return reg
}

func mustParse(t *testing.T, src string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(strings.TrimLeft(src, "\n")))
	require.NoError(t, err)
	return s
}

func TestRunWithGolden_Scenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	reg := builtin(t)
	for _, path := range paths {
		scenario, err := LoadScenario(path)
		require.NoError(t, err, path)

		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario, reg)
			require.NoError(t, err)
			assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
		})
	}
}

func TestRun_ReportsMismatches(t *testing.T) {
	s := mustParse(t, `
name: mismatch
description: every expectation is wrong
dialect: sqlite
formula:
  call: upper
  args:
    - field: s
      type: STRING
expect:
  type: INTEGER
  render: LOWER([s])
  translation: lower("s")
`)

	result, err := Run(s, builtin(t))
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Equal(t, "STRING", result.Type)
	assert.Equal(t, "UPPER([s])", result.Render)
	assert.Equal(t, `UPPER("s")`, result.Translation)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "Expectation failed: type")
	assert.Contains(t, result.Errors[1], "Expectation failed: render")
	assert.Contains(t, result.Errors[2], "Expectation failed: translation")
}

func TestRun_UnexpectedError(t *testing.T) {
	s := mustParse(t, `
name: unexpected
description: compilation fails but a type was expected
any_dialect: true
formula:
  op: "+"
  args:
    - call: sum
      args: [{field: x, type: FLOAT}]
    - field: y
      type: FLOAT
expect:
  type: FLOAT
`)

	result, err := Run(s, builtin(t))
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Equal(t, []string{"FORMULA.VALIDATION.AGG.INCONSISTENT"}, result.ErrorCodes)
	require.Len(t, result.Diagnostics, 1)
	assert.Contains(t, result.Diagnostics[0], "[y]")
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "successful compilation")
}

func TestRun_ExpectedErrorMissing(t *testing.T) {
	s := mustParse(t, `
name: missing_error
description: compiles although an error was expected
any_dialect: true
formula:
  call: sum
  args: [{field: x, type: FLOAT}]
expect:
  error: FORMULA.VALIDATION
`)

	result, err := Run(s, builtin(t))
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, "FLOAT", result.Type)
}

func TestRun_ErrorMatchesParentKind(t *testing.T) {
	s := mustParse(t, `
name: batch
description: two validation errors share the VALIDATION kind
any_dialect: true
dimensions:
  - field: a
    type: STRING
formula:
  op: "+"
  args:
    - call: sum
      args:
        - call: sum
          args: [{field: x, type: FLOAT}]
    - window: rsum
      args: [{field: y, type: FLOAT}]
expect:
  error: FORMULA.VALIDATION
  error_count: 2
`)

	result, err := Run(s, builtin(t))
	require.NoError(t, err)
	assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
	assert.Equal(t, []string{
		"FORMULA.VALIDATION.AGG.DOUBLE",
		"FORMULA.VALIDATION.WIN.NO_AGG",
	}, result.ErrorCodes)
}

func TestRun_ErrorCountMismatch(t *testing.T) {
	s := mustParse(t, `
name: count
description: wrong number of contexts
any_dialect: true
formula:
  call: sum
  args:
    - call: sum
      args: [{field: x, type: FLOAT}]
expect:
  error: FORMULA.VALIDATION.AGG.DOUBLE
  error_count: 3
`)

	result, err := Run(s, builtin(t))
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "error_count")
}

func TestRun_DescendingOrderAndTotal(t *testing.T) {
	s := mustParse(t, `
name: rank_total
description: RANK over all rows ordered descending
dialect: postgresql
formula:
  window: rank
  args:
    - call: sum
      args: [{field: x, type: FLOAT}]
  total: true
  order_by:
    - desc:
        call: sum
        args: [{field: x, type: FLOAT}]
expect:
  type: INTEGER
  translation: RANK() OVER (ORDER BY SUM("x") DESC)
`)

	result, err := Run(s, builtin(t))
	require.NoError(t, err)
	assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
}

func TestRun_WithLogger(t *testing.T) {
	s := mustParse(t, `
name: logged
description: the logger receives a completion record
any_dialect: true
formula: {literal: 1}
expect: {type: CONST_INTEGER}
`)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	result, err := Run(s, builtin(t), WithLogger(logger))
	require.NoError(t, err)
	assert.True(t, result.Pass)
	assert.Contains(t, buf.String(), "scenario completed")
	assert.Contains(t, buf.String(), "scenario=logged")
}

func TestResult_Snapshot(t *testing.T) {
	r := NewResult()
	r.Type = "FLOAT"
	r.Render = "SUM([x])"
	assert.Equal(t, "scenario: s\npass: true\ntype: FLOAT\nrender: SUM([x])\n", string(r.Snapshot("s")))

	failed := NewResult()
	failed.ErrorCodes = []string{"FORMULA.UNKNOWN_FUNCTION"}
	failed.AddError("boom")
	assert.Equal(t, "scenario: f\npass: false\nerror: FORMULA.UNKNOWN_FUNCTION\n", string(failed.Snapshot("f")))
}
