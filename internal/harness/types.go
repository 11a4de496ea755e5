package harness

// Outcome is the translation of one case.
type Outcome struct {
	// Name is the document name.
	Name string `json:"name"`

	// Seq is the journal sequence number of the outcome.
	Seq int64 `json:"seq"`

	// Input is the built tree before null compensation, in sqlexpr.Format
	// form. Empty when the document could not be built.
	Input string `json:"input,omitempty"`

	SQL        string   `json:"sql,omitempty"`
	Parameters []string `json:"parameters,omitempty"`
	Nullable   bool     `json:"nullable"`

	// ErrorCode and Error describe a failed translation.
	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Failed reports whether the case failed to translate.
func (o Outcome) Failed() bool { return o.Error != "" }

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every expect clause and assertion
	// held.
	Pass bool `json:"pass"`

	// Outcomes are the case translations in execution order.
	Outcomes []Outcome `json:"outcomes"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Outcomes: []Outcome{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Outcome returns the outcome of the named case.
func (r *Result) Outcome(name string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Name == name {
			return o, true
		}
	}
	return Outcome{}, false
}
