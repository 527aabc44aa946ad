package match

import (
	"fmt"
	"strings"

	"github.com/wallarm/gotestflow/internal/fixture"
	"github.com/wallarm/gotestflow/internal/helpers"
)

// Field binds a response field (dotted path) to a fixture column.
type Field struct {
	Field  string `yaml:"field" validate:"required"`
	Column string `yaml:"column"`
	Kind   Kind   `yaml:"kind" validate:"omitempty,oneof=string number date"`
}

// column defaults to the field name.
func (f Field) column() string {
	if f.Column != "" {
		return f.Column
	}
	return f.Field
}

// Contains requires the collection at Path to hold at least one element
// matching every field.
type Contains struct {
	Path   string  `yaml:"path" validate:"required"`
	Fields []Field `yaml:"fields" validate:"required,min=1,dive"`
}

// Mismatch describes one failed comparison.
type Mismatch struct {
	Path   string
	Reason string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: %s", m.Path, m.Reason)
}

// Fields performs a partial match of doc against the record: only listed
// fields are compared and extra response fields are ignored.
func Fields(doc any, record fixture.Record, fields []Field) []Mismatch {
	var mismatches []Mismatch

	for _, f := range fields {
		if reason := fieldReason(doc, record, f); reason != "" {
			mismatches = append(mismatches, Mismatch{Path: f.Field, Reason: reason})
		}
	}

	return mismatches
}

func fieldReason(doc any, record fixture.Record, f Field) string {
	want, ok := record.Get(f.column())
	if !ok {
		return fmt.Sprintf("fixture column %q is missing", f.column())
	}

	got, found := helpers.Lookup(doc, f.Field)
	if !found {
		return "field is missing in the response"
	}

	return Value(f.Kind, want, got)
}

// Collection checks that the array at rule.Path contains an element for
// which every field matches.
func Collection(doc any, record fixture.Record, rule Contains) []Mismatch {
	raw, found := helpers.Lookup(doc, rule.Path)
	if !found {
		return []Mismatch{{Path: rule.Path, Reason: "collection is missing in the response"}}
	}

	items, ok := raw.([]any)
	if !ok {
		return []Mismatch{{Path: rule.Path, Reason: fmt.Sprintf("expected an array, got %T", raw)}}
	}

	var closest []Mismatch

	for _, item := range items {
		mismatches := Fields(item, record, rule.Fields)
		if len(mismatches) == 0 {
			return nil
		}

		if closest == nil || len(mismatches) < len(closest) {
			closest = mismatches
		}
	}

	if len(items) == 0 {
		return []Mismatch{{Path: rule.Path, Reason: "collection is empty"}}
	}

	reasons := make([]string, 0, len(closest))
	for _, m := range closest {
		reasons = append(reasons, m.String())
	}

	return []Mismatch{{
		Path:   rule.Path,
		Reason: fmt.Sprintf("no element of %d matches, closest differs in %s", len(items), strings.Join(reasons, "; ")),
	}}
}

// Document runs the field and collection rules against doc.
func Document(doc any, record fixture.Record, fields []Field, contains []Contains) []Mismatch {
	mismatches := Fields(doc, record, fields)

	for _, rule := range contains {
		mismatches = append(mismatches, Collection(doc, record, rule)...)
	}

	return mismatches
}
