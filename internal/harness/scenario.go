package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/datalens-tech/datalens-backend-sub013/internal/datatype"
	"github.com/datalens-tech/datalens-backend-sub013/internal/dialect"
	"github.com/datalens-tech/datalens-backend-sub013/internal/formerr"
	"github.com/datalens-tech/datalens-backend-sub013/internal/translation"
)

// Scenario defines one formula compilation and its expected outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Dialect is the backend to compile for (e.g. "clickhouse", or
	// "postgresql|greenplum"). Exactly one of Dialect and AnyDialect is set.
	Dialect    string `yaml:"dialect,omitempty"`
	AnyDialect bool   `yaml:"any_dialect,omitempty"`

	// Scopes overrides the required variant scopes (default: explicit_usage).
	Scopes []string `yaml:"scopes,omitempty"`

	// Dimensions are the global dimensions of the query.
	Dimensions []NodeSpec `yaml:"dimensions,omitempty"`

	// DefaultOrdering is injected into ordering-dependent window calls.
	// Items are plain nodes (ascending) or asc/desc mappings.
	DefaultOrdering []NodeSpec `yaml:"default_ordering,omitempty"`

	// OrderingFunctions overrides which window functions take the default
	// ordering.
	OrderingFunctions []string `yaml:"ordering_functions,omitempty"`

	// Formula is the tree to compile.
	Formula NodeSpec `yaml:"formula"`

	Expect Expect `yaml:"expect"`
}

// Expect is the expected outcome of a scenario. Error excludes every other
// field.
type Expect struct {
	// Error is a dotted error code, e.g. FORMULA.VALIDATION.AGG.DOUBLE.
	// It matches the error's kind or the code of any of its contexts.
	Error string `yaml:"error,omitempty"`

	// ErrorCount, if positive, is the exact number of error contexts.
	ErrorCount int `yaml:"error_count,omitempty"`

	// Type is the expected result data type name.
	Type string `yaml:"type,omitempty"`

	// Render is the expected rendering of the rewritten tree.
	Render string `yaml:"render,omitempty"`

	// Formula is an expected tree, compared by rendering.
	Formula *NodeSpec `yaml:"formula,omitempty"`

	// Translation is the expected SQL text. Needs a single Dialect.
	Translation string `yaml:"translation,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and consistent.
// Node shapes are checked when the trees are built.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if (s.Dialect != "") == s.AnyDialect {
		return fmt.Errorf("exactly one of dialect and any_dialect is required")
	}
	if s.Dialect != "" {
		if _, err := dialect.ParseList(s.Dialect); err != nil {
			return fmt.Errorf("dialect: %w", err)
		}
	}
	if _, err := translation.ParseScopes(s.Scopes...); err != nil {
		return fmt.Errorf("scopes: %w", err)
	}

	if s.Formula.empty() {
		return fmt.Errorf("formula is required")
	}

	return validateExpect(s, &s.Expect)
}

func validateExpect(s *Scenario, e *Expect) error {
	hasResult := e.Type != "" || e.Render != "" || e.Formula != nil || e.Translation != ""
	switch {
	case e.Error == "" && !hasResult:
		return fmt.Errorf("expect: at least one of error, type, render, formula and translation is required")
	case e.Error != "" && hasResult:
		return fmt.Errorf("expect: error cannot be combined with result expectations")
	case e.ErrorCount < 0:
		return fmt.Errorf("expect: error_count must be non-negative")
	case e.ErrorCount > 0 && e.Error == "":
		return fmt.Errorf("expect: error_count needs error")
	}

	if e.Error != "" {
		if _, ok := formerr.KindByCode(e.Error); !ok {
			return fmt.Errorf("expect: unknown error code %q", e.Error)
		}
	}
	if e.Type != "" {
		if _, err := datatype.Parse(e.Type); err != nil {
			return fmt.Errorf("expect: %w", err)
		}
	}
	if e.Translation != "" {
		d, _ := dialect.ParseList(s.Dialect)
		if !d.IsSingle() {
			return fmt.Errorf("expect: translation needs a single dialect")
		}
	}
	return nil
}
