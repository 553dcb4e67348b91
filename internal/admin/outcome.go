package admin

import "fmt"

// Outcome is one finding produced by a validator.
type Outcome struct {
	// Check names the validator that produced this outcome (e.g.
	// "config", "coordinator-nblocks", "primary_store_data").
	Check string
	// Message is the human-readable description of the finding.
	Message string
	// Collection/ID identify the record a data-decoding outcome refers
	// to; empty for non-data validators.
	Collection string
	ID         string
}

func (o Outcome) String() string {
	if o.Collection != "" {
		return fmt.Sprintf("[%s] %s %s: %s", o.Check, o.Collection, o.ID, o.Message)
	}
	return fmt.Sprintf("[%s] %s", o.Check, o.Message)
}

// Outcomes accumulates errors and warnings across one or more validator
// runs. The CLI exits non-zero only if Errors is non-empty.
type Outcomes struct {
	Errors   []Outcome
	Warnings []Outcome
}

// Error records an error-level outcome.
func (o *Outcomes) Error(outcome Outcome) {
	o.Errors = append(o.Errors, outcome)
}

// Warning records a warning-level outcome.
func (o *Outcomes) Warning(outcome Outcome) {
	o.Warnings = append(o.Warnings, outcome)
}

// Extend merges other's findings into o.
func (o *Outcomes) Extend(other Outcomes) {
	o.Errors = append(o.Errors, other.Errors...)
	o.Warnings = append(o.Warnings, other.Warnings...)
}

// HasErrors reports whether any error-level outcome was recorded.
func (o Outcomes) HasErrors() bool {
	return len(o.Errors) > 0
}
