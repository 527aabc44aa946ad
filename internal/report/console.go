package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"

	"github.com/wallarm/gotestflow/internal/db"
)

// RenderConsoleReport prints a console report in the selected format.
func RenderConsoleReport(w io.Writer, s *db.Statistics, meta *Meta, format string) error {
	switch format {
	case ConsoleReportTextFormat:
		return printConsoleReportTable(w, s, meta)
	case ConsoleReportJsonFormat:
		return printConsoleReportJson(w, s, meta)
	default:
		return fmt.Errorf("unknown report format: %s", format)
	}
}

func cells(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func scoreString(score float64) string {
	if score < 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", score)
}

// printConsoleReportTable prints the per-case summary and the failures in
// tabular format.
func printConsoleReportTable(w io.Writer, s *db.Statistics, meta *Meta) error {
	var buffer strings.Builder

	fmt.Fprintf(&buffer, "Test cases:\n")

	table := tablewriter.NewWriter(&buffer)
	table.Header(cells([]string{"Test set", "Test case", "Passed, %", "Records", "Passed", "Failed", "Not found", "Errors", "UI steps", "UI failed"})...)

	for _, row := range s.SummaryTable {
		err := table.Append([]string{
			row.TestSet,
			row.TestCase,
			fmt.Sprintf("%.2f", row.Percentage),
			fmt.Sprintf("%d", row.Records),
			fmt.Sprintf("%d", row.Passed),
			fmt.Sprintf("%d", row.Failed),
			fmt.Sprintf("%d", row.NotFound),
			fmt.Sprintf("%d", row.Errors),
			fmt.Sprintf("%d", row.UISteps),
			fmt.Sprintf("%d", row.UIFailed),
		})
		if err != nil {
			return errors.Wrap(err, "couldn't build summary table")
		}
	}

	table.Footer(cells([]string{
		fmt.Sprintf("Date:\n%s", meta.ReportTime.Format("2006-01-02")),
		fmt.Sprintf("Project:\n%s", meta.ProjectName),
		fmt.Sprintf("Score:\n%s", scoreString(s.Score)),
		fmt.Sprintf("Records:\n%d", s.Records.AllNumber),
		fmt.Sprintf("Passed (Resolved):\n%d/%d (%.2f%%)",
			s.Records.PassedNumber,
			s.Records.ResolvedNumber,
			s.Records.ResolvedPassedPercentage,
		),
		fmt.Sprintf("Failed (Resolved):\n%d/%d (%.2f%%)",
			s.Records.FailedNumber,
			s.Records.ResolvedNumber,
			s.Records.ResolvedFailedPercentage,
		),
		fmt.Sprintf("Not found:\n%d (%.2f%%)", s.Records.NotFoundNumber, s.Records.NotFoundPercentage),
		fmt.Sprintf("Errors:\n%d (%.2f%%)", s.Records.ErrorNumber, s.Records.ErrorPercentage),
		fmt.Sprintf("UI steps:\n%d", s.UI.AllNumber),
		fmt.Sprintf("UI passed:\n%.2f%%", s.UI.PassedPercentage),
	})...)

	if err := table.Render(); err != nil {
		return errors.Wrap(err, "couldn't render summary table")
	}

	failures := append(append(append([]*db.RecordDetails{}, s.Failed...), s.Errors...), s.NotFound...)
	if len(failures) > 0 {
		fmt.Fprintf(&buffer, "\nRecords:\n")

		failTable := tablewriter.NewWriter(&buffer)
		failTable.Header(cells([]string{"Test case", "Row", "Key", "Step", "Reason"})...)

		for _, f := range failures {
			err := failTable.Append([]string{
				f.TestSet + "/" + f.TestCase,
				fmt.Sprintf("%d", f.Row),
				f.Key,
				f.Step,
				strings.Join(f.Reason, "\n"),
			})
			if err != nil {
				return errors.Wrap(err, "couldn't build records table")
			}
		}

		if err := failTable.Render(); err != nil {
			return errors.Wrap(err, "couldn't render records table")
		}
	}

	if len(s.VisualChecks) > 0 {
		fmt.Fprintf(&buffer, "\nVisual checks:\n")

		uiTable := tablewriter.NewWriter(&buffer)
		uiTable.Header(cells([]string{"Test case", "Step", "Target", "Status", "Diff, %", "Current"})...)

		for _, v := range s.VisualChecks {
			err := uiTable.Append([]string{
				v.TestSet + "/" + v.TestCase,
				fmt.Sprintf("%d", v.Index),
				v.Target,
				v.Status,
				fmt.Sprintf("%.2f", v.DiffRatio*100),
				v.Current,
			})
			if err != nil {
				return errors.Wrap(err, "couldn't build visual checks table")
			}
		}

		if err := uiTable.Render(); err != nil {
			return errors.Wrap(err, "couldn't render visual checks table")
		}
	}

	for _, c := range s.CaseErrors {
		fmt.Fprintf(&buffer, "\nCase %s/%s stopped: %s\n", c.Set, c.Case, c.Reason)
	}

	_, err := fmt.Fprintln(w, buffer.String())
	return err
}

// printConsoleReportJson prints a console report in json format.
func printConsoleReportJson(w io.Writer, s *db.Statistics, meta *Meta) error {
	report := newJsonReport(s, meta)

	jsonBytes, err := json.Marshal(report)
	if err != nil {
		return errors.Wrap(err, "couldn't export report to JSON")
	}

	_, err = fmt.Fprintln(w, string(jsonBytes))
	return err
}
