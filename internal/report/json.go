package report

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/wallarm/gotestflow/internal/db"
	"github.com/wallarm/gotestflow/internal/helpers"
)

type jsonReport struct {
	Date        string  `json:"date"`
	ProjectName string  `json:"project_name"`
	URL         string  `json:"url"`
	Duration    string  `json:"duration,omitempty"`
	Args        string  `json:"args"`
	Score       float64 `json:"score"`

	Records recordStats `json:"records"`
	UI      uiStats     `json:"ui"`

	TestSets testSets `json:"test_sets"`

	Failed       []*db.RecordDetails `json:"failed,omitempty"`
	NotFound     []*db.RecordDetails `json:"not_found,omitempty"`
	Errors       []*db.RecordDetails `json:"errors,omitempty"`
	VisualChecks []*db.UIDetails     `json:"visual_checks,omitempty"`
	CaseErrors   []*caseError        `json:"case_errors,omitempty"`
}

type recordStats struct {
	Total    int     `json:"total"`
	Resolved int     `json:"resolved"`
	Passed   int     `json:"passed"`
	Failed   int     `json:"failed"`
	NotFound int     `json:"not_found"`
	Errors   int     `json:"errors"`
	Score    float64 `json:"score"`
}

type uiStats struct {
	Total  int     `json:"total"`
	Passed int     `json:"passed"`
	Failed int     `json:"failed"`
	Errors int     `json:"errors"`
	Score  float64 `json:"score"`
}

type caseError struct {
	TestSet  string `json:"test_set"`
	TestCase string `json:"test_case"`
	Reason   string `json:"reason"`
}

type testCaseInfo struct {
	Percentage float64 `json:"percentage"`
	Records    int     `json:"records"`
	Passed     int     `json:"passed"`
	Failed     int     `json:"failed"`
	NotFound   int     `json:"not_found"`
	Errors     int     `json:"errors"`
	UISteps    int     `json:"ui_steps"`
	UIFailed   int     `json:"ui_failed"`
}

type testCases map[string]*testCaseInfo

type testSets map[string]testCases

func newJsonReport(s *db.Statistics, meta *Meta) *jsonReport {
	report := &jsonReport{
		Date:        meta.ReportTime.Format(time.ANSIC),
		ProjectName: meta.ProjectName,
		URL:         meta.URL,
		Args:        strings.Join(meta.Args, " "),
		Score:       s.Score,
		Records: recordStats{
			Total:    s.Records.AllNumber,
			Resolved: s.Records.ResolvedNumber,
			Passed:   s.Records.PassedNumber,
			Failed:   s.Records.FailedNumber,
			NotFound: s.Records.NotFoundNumber,
			Errors:   s.Records.ErrorNumber,
			Score:    s.Records.ResolvedPassedPercentage,
		},
		UI: uiStats{
			Total:  s.UI.AllNumber,
			Passed: s.UI.PassedNumber,
			Failed: s.UI.FailedNumber,
			Errors: s.UI.ErrorNumber,
			Score:  s.UI.PassedPercentage,
		},
		TestSets:     make(testSets),
		Failed:       s.Failed,
		NotFound:     s.NotFound,
		Errors:       s.Errors,
		VisualChecks: s.VisualChecks,
	}

	if s.Duration > 0 {
		report.Duration = s.Duration.Round(time.Millisecond).String()
	}

	for _, row := range s.SummaryTable {
		if report.TestSets[row.TestSet] == nil {
			report.TestSets[row.TestSet] = make(testCases)
		}
		report.TestSets[row.TestSet][row.TestCase] = &testCaseInfo{
			Percentage: row.Percentage,
			Records:    row.Records,
			Passed:     row.Passed,
			Failed:     row.Failed,
			NotFound:   row.NotFound,
			Errors:     row.Errors,
			UISteps:    row.UISteps,
			UIFailed:   row.UIFailed,
		}
	}

	for _, c := range s.CaseErrors {
		report.CaseErrors = append(report.CaseErrors, &caseError{
			TestSet:  c.Set,
			TestCase: c.Case,
			Reason:   c.Reason,
		})
	}

	return report
}

// printFullReportToJson saves the full report on disk in JSON format.
func printFullReportToJson(s *db.Statistics, reportFile string, meta *Meta) error {
	jsonBytes, err := json.MarshalIndent(newJsonReport(s, meta), "", "  ")
	if err != nil {
		return errors.Wrap(err, "couldn't dump report to JSON")
	}

	if err = helpers.WriteFile(reportFile, jsonBytes); err != nil {
		return errors.Wrap(err, "couldn't save JSON report")
	}

	return nil
}
