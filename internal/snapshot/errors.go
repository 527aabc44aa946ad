package snapshot

import (
	"fmt"
)

var (
	_ error = (*CaptureError)(nil)
	_ error = (*AssertionFailedError)(nil)
	_ error = (*ArtifactConflictError)(nil)
)

// CaptureError is returned when the surface produced no usable image.
type CaptureError struct {
	Name string
	Err  error
}

func (e *CaptureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("couldn't capture %s: %s", e.Name, e.Err)
	}

	return fmt.Sprintf("couldn't capture %s: empty image", e.Name)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// AssertionFailedError reports a capture that differs from its baseline
// beyond the configured tolerance.
type AssertionFailedError struct {
	Baseline  string
	Current   string
	DiffRatio float64
	Allowed   float64
}

func (e *AssertionFailedError) Error() string {
	return fmt.Sprintf(
		"%s differs from baseline %s: %.4f of pixels changed, %.4f allowed",
		e.Current, e.Baseline, e.DiffRatio, e.Allowed,
	)
}

// ArtifactConflictError is returned when the current capture or its diff
// image would be written over the baseline.
type ArtifactConflictError struct {
	Baseline string
	Current  string
}

func (e *ArtifactConflictError) Error() string {
	return fmt.Sprintf("current capture %s would overwrite baseline %s", e.Current, e.Baseline)
}
