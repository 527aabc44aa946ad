// Package match compares decoded API documents with fixture records.
package match

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// Kind selects how a fixture string is compared with a response value.
type Kind string

const (
	KindAuto   Kind = ""
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindDate   Kind = "date"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
}

// ParseDate parses the date-time formats produced by the fixtures and the
// backend. The offset of s, when present, is kept.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// SameDate compares calendar dates, each side in its own offset.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()

	return ay == by && am == bm && ad == bd
}

func parseNumber(s string) (*big.Rat, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return nil, false
	}

	r, ok := new(big.Rat).SetString(s)
	return r, ok
}

func numberOf(v any) (*big.Rat, bool) {
	switch n := v.(type) {
	case json.Number:
		return parseNumber(n.String())
	case float64:
		r := new(big.Rat).SetFloat64(n)
		return r, r != nil
	case int:
		return new(big.Rat).SetInt64(int64(n)), true
	case int64:
		return new(big.Rat).SetInt64(n), true
	case string:
		return parseNumber(n)
	}

	return nil, false
}

// Text renders a scalar response value the way it would appear in a
// fixture.
func Text(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	case bool:
		return strconv.FormatBool(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}

func isEmpty(v any) bool {
	switch s := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(s) == ""
	}
	return false
}

// Value compares a fixture string with a response value. The returned
// reason is empty when they match.
func Value(kind Kind, want string, got any) string {
	if kind == KindAuto {
		kind = autoKind(want, got)
	}

	switch kind {
	case KindNumber:
		if strings.TrimSpace(want) == "" {
			if isEmpty(got) {
				return ""
			}
			if n, ok := numberOf(got); ok && n.Sign() == 0 {
				return ""
			}
			return fmt.Sprintf("expected empty number, got %v", Text(got))
		}

		w, ok := parseNumber(want)
		if !ok {
			return fmt.Sprintf("fixture value %q is not a number", want)
		}

		g, ok := numberOf(got)
		if !ok {
			return fmt.Sprintf("expected number %s, got %q", want, Text(got))
		}
		if w.Cmp(g) != 0 {
			return fmt.Sprintf("expected %s, got %s", want, Text(got))
		}
		return ""

	case KindDate:
		if strings.TrimSpace(want) == "" {
			if isEmpty(got) {
				return ""
			}
			return fmt.Sprintf("expected empty date, got %q", Text(got))
		}

		w, ok := ParseDate(want)
		if !ok {
			return fmt.Sprintf("fixture value %q is not a date", want)
		}

		g, ok := ParseDate(Text(got))
		if !ok {
			return fmt.Sprintf("expected date %s, got %q", w.Format("2006-01-02"), Text(got))
		}
		if !SameDate(w, g) {
			return fmt.Sprintf("expected date %s, got %s", w.Format("2006-01-02"), g.Format("2006-01-02"))
		}
		return ""

	default:
		if Text(got) != want {
			return fmt.Sprintf("expected %q, got %q", want, Text(got))
		}
		return ""
	}
}

func autoKind(want string, got any) Kind {
	switch got.(type) {
	case json.Number, float64, int, int64:
		return KindNumber
	case string:
		if _, ok := ParseDate(want); ok {
			if _, ok = ParseDate(got.(string)); ok {
				return KindDate
			}
		}
	}

	return KindString
}
