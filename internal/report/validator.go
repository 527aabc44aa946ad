package report

import (
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var (
	gtfVersionRegex = regexp.MustCompile(`^(v\d+\.\d+\.\d+(\-\d+\-g[a-f0-9]{7})?)$`)
	markRegex       = regexp.MustCompile(`^(N/A|[A-F][\+\-]?)$`)
	suffixRegex     = regexp.MustCompile(`^(na|[a-f])$`)
)

var customValidators = map[string]validator.Func{
	"gtf_version": validateGtfVersion,
	"mark":        validateMark,
	"css_suffix":  validateCssSuffix,
}

func validateGtfVersion(fl validator.FieldLevel) bool {
	version := fl.Field().String()

	// skip validation if empty or 'unknown' version
	if version == "" || version == "unknown" {
		return true
	}

	return gtfVersionRegex.MatchString(version)
}

func validateMark(fl validator.FieldLevel) bool {
	return markRegex.MatchString(fl.Field().String())
}

func validateCssSuffix(fl validator.FieldLevel) bool {
	return suffixRegex.MatchString(fl.Field().String())
}

// ValidateReportData validates report data
func ValidateReportData(reportData *HtmlReport) error {
	validate := validator.New()
	for tag, validatorFunc := range customValidators {
		err := validate.RegisterValidation(tag, validatorFunc)
		if err != nil {
			return errors.Wrap(err, "couldn't build validator")
		}
	}

	err := validate.Struct(reportData)
	if err != nil {
		var validatorErr validator.ValidationErrors
		if errors.As(err, &validatorErr) {
			return &ValidationError{validatorErr}
		}

		return errors.Wrap(err, "couldn't validate report data")
	}

	return nil
}
