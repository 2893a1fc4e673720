package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/datalens-tech/datalens-backend-sub013/internal/registry"
)

// Snapshot renders the parts of a result that golden files pin: the pass
// flag, and either the type, rendered tree and translation, or the error
// codes. Diagnostic messages are left out so that rewording them does not
// churn golden files.
func (r *Result) Snapshot(name string) []byte {
	var buf strings.Builder
	fmt.Fprintf(&buf, "scenario: %s\n", name)
	fmt.Fprintf(&buf, "pass: %t\n", r.Pass)
	if r.Type != "" {
		fmt.Fprintf(&buf, "type: %s\n", r.Type)
	}
	if r.Render != "" {
		fmt.Fprintf(&buf, "render: %s\n", r.Render)
	}
	if r.Translation != "" {
		fmt.Fprintf(&buf, "translation: %s\n", r.Translation)
	}
	for _, code := range r.ErrorCodes {
		fmt.Fprintf(&buf, "error: %s\n", code)
	}
	return []byte(buf.String())
}

// RunWithGolden runs a scenario and compares its snapshot with
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario cannot be executed. A snapshot mismatch
// fails t through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario, reg *registry.Registry, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, reg, opts...)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result with its golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, result.Snapshot(name))
}
