package harness

import "github.com/roach88/commonjs/internal/trace"

// StepResult is the observed outcome of one step.
type StepResult struct {
	Label string `json:"step"`

	// Value is the JSON rendering of the result, "undefined" when it has
	// none. Empty on error.
	Value string `json:"value,omitempty"`

	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step matched and every assertion held.
	Pass bool `json:"pass"`

	Steps []StepResult `json:"steps"`

	// Trace holds the require events as read back from the store.
	Trace []trace.Event `json:"trace"`

	// Cache lists the canonical ids cached at the end of the run.
	Cache []string `json:"cache"`

	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Trace:  []trace.Event{},
		Cache:  []string{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
