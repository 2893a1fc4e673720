package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/datalens-tech/datalens-backend-sub013/internal/ast"
	"github.com/datalens-tech/datalens-backend-sub013/internal/datatype"
	"github.com/datalens-tech/datalens-backend-sub013/internal/formerr"
)

// ExpectationError describes one expectation that did not match.
type ExpectationError struct {
	Field    string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *ExpectationError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Expectation failed: %s\n", e.Field)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// checkError matches a compilation error against the expected code.
func checkError(expect Expect, fe *formerr.FormulaError) []error {
	var errs []error
	codes := contextCodes(fe)

	if expect.Error == "" {
		return append(errs, &ExpectationError{
			Field:    "error",
			Expected: "successful compilation",
			Actual:   fe.Error(),
		})
	}

	if fe.Kind.CodeString() != expect.Error && !slices.Contains(codes, expect.Error) {
		errs = append(errs, &ExpectationError{
			Field:    "error",
			Expected: expect.Error,
			Actual:   strings.Join(codes, ", "),
		})
	}
	if expect.ErrorCount > 0 && len(fe.Contexts) != expect.ErrorCount {
		errs = append(errs, &ExpectationError{
			Field:    "error_count",
			Expected: fmt.Sprint(expect.ErrorCount),
			Actual:   fmt.Sprint(len(fe.Contexts)),
		})
	}
	return errs
}

// checkSuccess matches a successful compilation against the expectations.
// expected is the built Expect.Formula tree, or nil.
func checkSuccess(expect Expect, result *Result, expected ast.Node) []error {
	var errs []error

	if expect.Error != "" {
		errs = append(errs, &ExpectationError{
			Field:    "error",
			Expected: expect.Error,
			Actual:   "successful compilation",
		})
	}
	if expect.Type != "" {
		want, _ := datatype.Parse(expect.Type)
		if want.String() != result.Type {
			errs = append(errs, &ExpectationError{Field: "type", Expected: want.String(), Actual: result.Type})
		}
	}
	if expect.Render != "" && expect.Render != result.Render {
		errs = append(errs, &ExpectationError{Field: "render", Expected: expect.Render, Actual: result.Render})
	}
	if expected != nil {
		if want := ast.Render(expected); want != result.Render {
			errs = append(errs, &ExpectationError{Field: "formula", Expected: want, Actual: result.Render})
		}
	}
	if expect.Translation != "" && expect.Translation != result.Translation {
		errs = append(errs, &ExpectationError{Field: "translation", Expected: expect.Translation, Actual: result.Translation})
	}
	return errs
}

func contextCodes(fe *formerr.FormulaError) []string {
	if len(fe.Contexts) == 0 {
		return []string{fe.Kind.CodeString()}
	}
	codes := make([]string, len(fe.Contexts))
	for i, ctx := range fe.Contexts {
		codes[i] = ctx.CodeString()
	}
	return codes
}
