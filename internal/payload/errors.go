package payload

import (
	"fmt"
)

var (
	_ error = (*TemplateError)(nil)
	_ error = (*MissingColumnError)(nil)
	_ error = (*UnknownPlaceholderError)(nil)
)

// TemplateError is returned when a template cannot be loaded or does not
// have the expected shape.
type TemplateError struct {
	Source string
	Err    error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("bad template %s: %s", e.Source, e.Err)
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}

// MissingColumnError is returned when a mapped fixture column is absent
// from the record.
type MissingColumnError struct {
	Field  string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("fixture column %q mapped to %q is missing", e.Column, e.Field)
}

type UnknownPlaceholderError struct {
	name string
}

func (e *UnknownPlaceholderError) Error() string {
	return fmt.Sprintf("unknown placeholder: {{%s}}", e.name)
}
