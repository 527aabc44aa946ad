package fixture

import (
	"fmt"
)

var (
	_ error = (*NotFoundError)(nil)
	_ error = (*ParseError)(nil)
)

// NotFoundError is returned when the fixture file does not exist.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("fixture %s not found", e.Path)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// ParseError is returned for malformed fixture content. Line is zero when
// the error is not tied to a particular line.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("couldn't parse fixture %s at line %d: %s", e.Path, e.Line, e.Err)
	}

	return fmt.Sprintf("couldn't parse fixture %s: %s", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
