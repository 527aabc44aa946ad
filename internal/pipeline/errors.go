package pipeline

import (
	"fmt"
	"strings"
)

var (
	_ error = (*CorrelationNotFoundError)(nil)
	_ error = (*ShapeError)(nil)
	_ error = (*AssertionFailedError)(nil)
	_ error = (*RecordError)(nil)
)

// CorrelationNotFoundError is recorded when the search result holds no
// entry with the correlation value of the record.
type CorrelationNotFoundError struct {
	Field      string
	Value      string
	Candidates int
}

func (e *CorrelationNotFoundError) Error() string {
	return fmt.Sprintf("no entry with %s=%q among %d search results", e.Field, e.Value, e.Candidates)
}

// ShapeError reports a response that decoded fine but does not have the
// expected envelope.
type ShapeError struct {
	Reason string
}

func (e *ShapeError) Error() string {
	return "unexpected response shape: " + e.Reason
}

// AssertionFailedError lists the detail fields that differ from the record.
type AssertionFailedError struct {
	Mismatches []string
}

func (e *AssertionFailedError) Error() string {
	return fmt.Sprintf("%d assertion(s) failed: %s", len(e.Mismatches), strings.Join(e.Mismatches, "; "))
}

// RecordError ties a failure to the fixture row and step where it happened.
type RecordError struct {
	Row  int
	Key  string
	Step Step
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("row %d (%s) failed at %s: %s", e.Row, e.Key, e.Step, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
