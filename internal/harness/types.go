package harness

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every expectation matched.
	Pass bool `json:"pass"`

	// Type, Render and Translation describe a successful compilation.
	// Translation is empty unless the scenario names a single dialect.
	Type        string `json:"type,omitempty"`
	Render      string `json:"render,omitempty"`
	Translation string `json:"translation,omitempty"`

	// ErrorCodes and Diagnostics describe a failed compilation, one entry
	// per error context.
	ErrorCodes  []string `json:"error_codes,omitempty"`
	Diagnostics []string `json:"diagnostics,omitempty"`

	// Errors lists the expectations that did not match.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError records a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
