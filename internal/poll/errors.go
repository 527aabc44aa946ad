package poll

import (
	"fmt"
	"time"
)

var _ error = (*ConvergenceTimeoutError)(nil)

// ConvergenceTimeoutError is returned when a condition never held within
// the allowed attempts.
type ConvergenceTimeoutError struct {
	Name     string
	Attempts int
	Interval time.Duration
	LastErr  error
}

func (e *ConvergenceTimeoutError) Error() string {
	msg := fmt.Sprintf("%s did not converge after %d attempts (interval %s)", e.Name, e.Attempts, e.Interval)
	if e.LastErr != nil {
		msg += ": " + e.LastErr.Error()
	}

	return msg
}

func (e *ConvergenceTimeoutError) Unwrap() error {
	return e.LastErr
}
