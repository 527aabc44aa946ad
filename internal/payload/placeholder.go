package payload

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"github.com/wallarm/gotestflow/internal/helpers"
)

const (
	CustomerIDPlaceholder = "customerId"
	IDPlaceholder         = "id"
)

var (
	placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z][A-Za-z0-9_]*)\s*\}\}`)
	jsonNumberRe  = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)
)

// Vars holds placeholder values such as the customer id of the run.
type Vars map[string]string

// With returns a copy of vars extended with name=value.
func (v Vars) With(name, value string) Vars {
	out := make(Vars, len(v)+1)
	for k, val := range v {
		out[k] = val
	}
	out[name] = value
	return out
}

// Expand replaces every {{name}} in s. escape, when not nil, is applied to
// substituted values.
func Expand(s string, vars Vars, escape func(string) string) (string, error) {
	var expandErr error

	out := placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]

		value, ok := vars[name]
		if !ok {
			if expandErr == nil {
				expandErr = &UnknownPlaceholderError{name: name}
			}
			return m
		}

		if escape != nil {
			return escape(value)
		}
		return value
	})

	if expandErr != nil {
		return "", expandErr
	}

	return out, nil
}

// ExpandURL expands a request target. Values substituted before "?" are
// path-escaped, values in the query are query-escaped.
func ExpandURL(target string, vars Vars) (string, error) {
	path, query, hasQuery := strings.Cut(target, "?")

	path, err := Expand(path, vars, url.PathEscape)
	if err != nil {
		return "", err
	}
	if !hasQuery {
		return path, nil
	}

	query, err = Expand(query, vars, url.QueryEscape)
	if err != nil {
		return "", err
	}

	return path + "?" + query, nil
}

// ExpandValue returns a deep copy of a decoded JSON value with placeholders
// expanded in every string. A string that consists of exactly one
// placeholder whose value is numeric becomes a JSON number.
func ExpandValue(v any, vars Vars) (any, error) {
	switch typed := v.(type) {
	case string:
		if m := placeholderRe.FindStringSubmatch(typed); m != nil && m[0] == typed {
			value, ok := vars[m[1]]
			if !ok {
				return nil, &UnknownPlaceholderError{name: m[1]}
			}
			if jsonNumberRe.MatchString(value) {
				return json.Number(value), nil
			}
			return value, nil
		}
		return Expand(typed, vars, nil)

	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, value := range typed {
			expanded, err := ExpandValue(value, vars)
			if err != nil {
				return nil, err
			}
			out[key] = expanded
		}
		return out, nil

	case []any:
		out := make([]any, len(typed))
		for i, value := range typed {
			expanded, err := ExpandValue(value, vars)
			if err != nil {
				return nil, err
			}
			out[i] = expanded
		}
		return out, nil

	default:
		return helpers.DeepCopyJSON(typed), nil
	}
}
