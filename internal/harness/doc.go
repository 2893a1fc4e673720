// Package harness runs formula conformance scenarios.
//
// A scenario is a YAML file describing a formula tree, the query context it
// is compiled in (dialect, dimensions, default window ordering) and the
// expected outcome: either an error code, or any of the result type, the
// rendered rewritten tree, an expected tree and the translated SQL text.
//
// Formula nodes are written as mappings with exactly one discriminating key:
//
//	field: sales          # a field reference; needs type
//	type: FLOAT
//
//	literal: 5            # a constant; type is inferred or coerced
//
//	call: sum             # a function call
//	args: [...]
//	fixed: [...]          # or include / exclude: level of detail
//	before_filter_by: [region]
//
//	window: rsum          # a window call
//	args: [...]
//	within: [...]         # or among: [...], or total: true
//	order_by: [{desc: {field: date, type: DATE}}]
//
//	op: "+"               # an operator with one or two args
//	args: [...]
//
// Each scenario runs against the registry it is given with a discarded
// logger, so results depend only on the scenario and the catalog.
// RunWithGolden snapshots the outcome under testdata/golden.
package harness
