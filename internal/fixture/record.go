package fixture

// Record is one data row of a fixture. Values are always text; coercion is
// up to the consumer.
type Record struct {
	row    int
	fields []string
	values map[string]string
}

// NewRecord builds a record from parallel field and value slices.
func NewRecord(row int, fields, values []string) Record {
	r := Record{
		row:    row,
		fields: make([]string, len(fields)),
		values: make(map[string]string, len(fields)),
	}
	copy(r.fields, fields)

	for i, field := range fields {
		if i < len(values) {
			r.values[field] = values[i]
		} else {
			r.values[field] = ""
		}
	}

	return r
}

// Row is the 1-based data row number (the header is not counted).
func (r Record) Row() int {
	return r.row
}

// Get returns the value of the field.
func (r Record) Get(field string) (string, bool) {
	v, ok := r.values[field]
	return v, ok
}

// Fields returns field names in header order.
func (r Record) Fields() []string {
	out := make([]string, len(r.fields))
	copy(out, r.fields)
	return out
}

// Map returns a copy of the record values.
func (r Record) Map() map[string]string {
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}
