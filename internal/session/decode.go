package session

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// DecodeJSON decodes a JSON body keeping numbers as json.Number. The backend
// sometimes wraps the document into a JSON string; such bodies are decoded
// a second time.
func DecodeJSON(body []byte) (any, error) {
	v, err := decode(body)
	if err != nil {
		return nil, err
	}

	if s, ok := v.(string); ok {
		trimmed := strings.TrimSpace(s)
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			return decode([]byte(trimmed))
		}
	}

	return v, nil
}

func decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errors.Wrap(err, "couldn't decode JSON response")
	}

	return v, nil
}
