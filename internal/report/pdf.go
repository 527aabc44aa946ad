package report

import (
	"context"

	"github.com/pkg/errors"

	"github.com/wallarm/gotestflow/internal/db"
	"github.com/wallarm/gotestflow/internal/helpers"
)

// printFullReportToPdf renders the HTML report and prints it to PDF.
func printFullReportToPdf(ctx context.Context, s *db.Statistics, reportFile string, meta *Meta, printer PDFPrinter) error {
	if printer == nil {
		return errors.New("PDF report requires a browser")
	}

	buffer, err := renderHTML(s, meta)
	if err != nil {
		return errors.Wrap(err, "couldn't render HTML report")
	}

	pdf, err := printer.PrintPDF(ctx, buffer.Bytes())
	if err != nil {
		return errors.Wrap(err, "couldn't render HTML report to PDF")
	}

	if err = helpers.WriteFile(reportFile, pdf); err != nil {
		return errors.Wrap(err, "couldn't save PDF report")
	}

	return nil
}
