package pipeline

import (
	"github.com/hashicorp/go-multierror"
)

type Step string

const (
	StepBind        Step = "bind"
	StepSubmit      Step = "submit"
	StepCorrelate   Step = "correlate"
	StepFetchDetail Step = "fetch_detail"
	StepAssert      Step = "assert"
)

type Status string

const (
	StatusPassed   Status = "passed"
	StatusFailed   Status = "failed"
	StatusNotFound Status = "not_found"
	StatusError    Status = "error"
)

// Outcome is the result of one fixture record. Step is the last step the
// record reached.
type Outcome struct {
	Set  string
	Case string
	Row  int
	Key  string
	ID   string

	Step    Step
	Status  Status
	Reasons []string
	Err     error
}

// Report collects the outcomes of one case.
type Report struct {
	Set      string
	Case     string
	Outcomes []*Outcome
}

// Failed reports whether any record failed or errored. Records whose entity
// was not found are skipped, not failed.
func (r *Report) Failed() bool {
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed || o.Status == StatusError {
			return true
		}
	}
	return false
}

// Count returns the number of outcomes with the status.
func (r *Report) Count(status Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Err aggregates all record failures.
func (r *Report) Err() error {
	var result *multierror.Error

	for _, o := range r.Outcomes {
		if o.Status != StatusFailed && o.Status != StatusError {
			continue
		}

		result = multierror.Append(result, &RecordError{
			Row:  o.Row,
			Key:  o.Key,
			Step: o.Step,
			Err:  o.Err,
		})
	}

	return result.ErrorOrNil()
}
