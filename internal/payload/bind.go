// Package payload merges fixture records into request templates and expands
// run-scoped placeholders.
package payload

import (
	"encoding/json"
	"sort"

	"github.com/pkg/errors"

	"github.com/wallarm/gotestflow/internal/fixture"
)

// Mapping maps template fields to fixture columns.
type Mapping map[string]string

// IdentityMapping maps every listed field to the column of the same name.
func IdentityMapping(fields ...string) Mapping {
	m := make(Mapping, len(fields))
	for _, f := range fields {
		m[f] = f
	}
	return m
}

// Fields returns template fields in a stable order.
func (m Mapping) Fields() []string {
	fields := make([]string, 0, len(m))
	for f := range m {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Bound is a template with one record's values merged in.
type Bound struct {
	doc   map[string]any
	index int
}

// Record returns the bound element of the records collection.
func (b *Bound) Record() map[string]any {
	records := b.doc[RecordsField].([]any)
	return records[b.index].(map[string]any)
}

func (b *Bound) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.doc)
}

// Bind loads a fresh template from src and copies the mapped record values
// into records[index]. Unmapped fields keep their template defaults and the
// record is left untouched.
func Bind(src Source, record fixture.Record, mapping Mapping, index int) (*Bound, error) {
	doc, err := src.Load()
	if err != nil {
		return nil, err
	}

	records := doc[RecordsField].([]any)
	if index < 0 || index >= len(records) {
		return nil, &TemplateError{
			Source: src.Name(),
			Err:    errors.Errorf("record index %d is out of range, template has %d records", index, len(records)),
		}
	}

	target := records[index].(map[string]any)

	for _, field := range mapping.Fields() {
		column := mapping[field]

		value, ok := record.Get(column)
		if !ok {
			return nil, &MissingColumnError{Field: field, Column: column}
		}

		target[field] = value
	}

	return &Bound{doc: doc, index: index}, nil
}
