package payload

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// RecordsField is the top-level collection every template carries.
const RecordsField = "records"

// Source yields a fresh, unshared template document on every Load.
type Source interface {
	Name() string
	Load() (map[string]any, error)
}

var (
	_ Source = (*FileSource)(nil)
	_ Source = (*BytesSource)(nil)
)

// FileSource re-reads the template file on every Load.
type FileSource struct {
	Path string
}

func (s *FileSource) Name() string {
	return s.Path
}

func (s *FileSource) Load() (map[string]any, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, &TemplateError{Source: s.Path, Err: err}
	}

	return decodeTemplate(s.Path, data)
}

// BytesSource decodes the same raw document on every Load.
type BytesSource struct {
	Label string
	Data  []byte
}

func (s *BytesSource) Name() string {
	if s.Label == "" {
		return "inline template"
	}
	return s.Label
}

func (s *BytesSource) Load() (map[string]any, error) {
	return decodeTemplate(s.Name(), s.Data)
}

func decodeTemplate(name string, data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, &TemplateError{Source: name, Err: errors.Wrap(err, "couldn't decode JSON")}
	}

	records, ok := doc[RecordsField].([]any)
	if !ok {
		return nil, &TemplateError{Source: name, Err: errors.Errorf("top-level %q array is missing", RecordsField)}
	}

	for i, r := range records {
		if _, ok = r.(map[string]any); !ok {
			return nil, &TemplateError{Source: name, Err: errors.Errorf("%s[%d] is not an object", RecordsField, i)}
		}
	}

	return doc, nil
}
