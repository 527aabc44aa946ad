package browser

import (
	"context"
	"os"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"
)

// PrintPDF renders an HTML document in the tab and prints it to PDF.
func (b *Browser) PrintPDF(ctx context.Context, html []byte) ([]byte, error) {
	file, err := os.CreateTemp("", "gotestflow_report_*.html")
	if err != nil {
		return nil, errors.Wrap(err, "couldn't create temporary report file")
	}
	defer os.Remove(file.Name())

	_, err = file.Write(html)
	if errClose := file.Close(); err == nil {
		err = errClose
	}
	if err != nil {
		return nil, errors.Wrap(err, "couldn't write temporary report file")
	}

	var pdf []byte

	err = b.Run(ctx,
		chromedp.Navigate("file://"+file.Name()),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithDisplayHeaderFooter(false).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't print report to PDF")
	}

	return pdf, nil
}
