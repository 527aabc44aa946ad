package config

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var _ error = (*ValidationError)(nil)

// ValidationError lists every field that failed validation.
type ValidationError struct {
	errors validator.ValidationErrors
}

func (e *ValidationError) Error() string {
	errMsgs := make([]string, len(e.errors))
	for i, fe := range e.errors {
		errMsgs[i] = fmt.Sprintf("%s (%s), bad value: '%v'", fe.Namespace(), fe.Tag(), fe.Value())
	}

	return fmt.Sprintf("found invalid values: %s", strings.Join(errMsgs, "; "))
}

// NewValidator returns a validator with the http_path and selector tags
// registered.
func NewValidator() *validator.Validate {
	validate := validator.New()

	// registration only fails on an empty tag or a nil func
	_ = validate.RegisterValidation("http_path", validateHTTPPath)
	_ = validate.RegisterValidation("selector", validateSelector)

	return validate
}

// ValidateStruct checks s and converts validator errors into a
// *ValidationError.
func ValidateStruct(validate *validator.Validate, s any) error {
	err := validate.Struct(s)
	if err != nil {
		var validatorErr validator.ValidationErrors
		if errors.As(err, &validatorErr) {
			return &ValidationError{validatorErr}
		}

		return errors.Wrap(err, "couldn't validate")
	}

	return nil
}

// Validate checks the merged config.
func Validate(cfg *Config) error {
	return ValidateStruct(NewValidator(), cfg)
}

// IsHTTPPath reports whether s is an origin-relative request path.
func IsHTTPPath(s string) bool {
	if !strings.HasPrefix(s, "/") || strings.HasPrefix(s, "//") {
		return false
	}
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return false
	}

	_, err := url.Parse(s)
	return err == nil
}

func validateHTTPPath(fl validator.FieldLevel) bool {
	return IsHTTPPath(fl.Field().String())
}

// IsSelector performs a shallow sanity check of a CSS selector: not blank,
// no control characters, balanced brackets and quotes.
func IsSelector(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}

	var stack []rune
	var quote rune

	for _, r := range s {
		if unicode.IsControl(r) {
			return false
		}

		if quote != 0 {
			if r == quote {
				quote = 0
			}
			continue
		}

		switch r {
		case '"', '\'':
			quote = r
		case '(', '[':
			stack = append(stack, r)
		case ')', ']':
			open := '('
			if r == ']' {
				open = '['
			}
			if len(stack) == 0 || stack[len(stack)-1] != open {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}

	return quote == 0 && len(stack) == 0
}

func validateSelector(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		// empty values are left to required/omitempty
		return true
	}
	return IsSelector(s)
}
