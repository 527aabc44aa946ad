// Package report renders run statistics to the console and to HTML, PDF and
// JSON files.
package report

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/wallarm/gotestflow/internal/db"
)

const (
	maxReportFilenameLength = 249 // 255 (max length) - 5 (".html") - 1 (to be sure)

	ConsoleReportTextFormat = "text"
	ConsoleReportJsonFormat = "json"
)

const (
	NoneFormat = "none"
	JsonFormat = "json"
	HtmlFormat = "html"
	PdfFormat  = "pdf"
)

var (
	ReportFormatsSet = map[string]any{
		NoneFormat: nil,
		JsonFormat: nil,
		HtmlFormat: nil,
		PdfFormat:  nil,
	}
	ReportFormats = sortedFormats()
)

func sortedFormats() []string {
	formats := slices.Collect(maps.Keys(ReportFormatsSet))
	sort.Strings(formats)
	return formats
}

// PDFPrinter renders an HTML document to PDF.
type PDFPrinter interface {
	PrintPDF(ctx context.Context, html []byte) ([]byte, error)
}

// Meta describes the run a report is built for.
type Meta struct {
	ProjectName string
	URL         string
	OpenAPIFile string
	Args        []string
	ReportTime  time.Time
}

// ExportFullReport saves the full report on disk in the selected formats and
// returns the written file names.
func ExportFullReport(
	ctx context.Context, s *db.Statistics, reportFile string, meta *Meta,
	formats []string, printer PDFPrinter,
) (reportFileNames []string, err error) {
	_, reportFileName := filepath.Split(reportFile)
	if len(reportFileName) > maxReportFilenameLength {
		return nil, errors.New("report filename too long")
	}

	for _, format := range formats {
		switch format {
		case HtmlFormat:
			reportFileName = reportFile + ".html"
			err = printFullReportToHtml(s, reportFileName, meta)
			if err != nil {
				return nil, err
			}

		case PdfFormat:
			reportFileName = reportFile + ".pdf"
			err = printFullReportToPdf(ctx, s, reportFileName, meta, printer)
			if err != nil {
				return nil, err
			}

		case JsonFormat:
			reportFileName = reportFile + ".json"
			err = printFullReportToJson(s, reportFileName, meta)
			if err != nil {
				return nil, err
			}

		case NoneFormat:
			return nil, nil

		default:
			return nil, fmt.Errorf("unknown report format: %s", format)
		}

		reportFileNames = append(reportFileNames, reportFileName)
	}

	return reportFileNames, nil
}

func ValidateReportFormat(formats []string) error {
	if len(formats) == 0 {
		return errors.New("no report format specified")
	}

	// Convert slice to set (map)
	set := make(map[string]any)
	for _, s := range formats {
		if _, ok := ReportFormatsSet[s]; !ok {
			return fmt.Errorf("unknown report format: %s", s)
		}

		set[s] = nil
	}

	// Check for duplicating values
	if len(set) != len(formats) {
		return fmt.Errorf("found duplicated values: %s", strings.Join(formats, ","))
	}

	_, isNone := set[NoneFormat]

	if len(set) > 1 && isNone {
		delete(set, NoneFormat)
		conflictedFormats := slices.Collect(maps.Keys(set))
		sort.Strings(conflictedFormats)

		return fmt.Errorf("\"none\" conflicts with other formats: %s", strings.Join(conflictedFormats, ","))
	}

	return nil
}

func IsNoneReportFormat(reportFormat []string) bool {
	return len(reportFormat) > 0 && reportFormat[0] == NoneFormat
}

func IsPdfReportFormat(reportFormats []string) bool {
	return slices.Contains(reportFormats, PdfFormat)
}
