package platform

import (
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/wallarm/gotestflow/internal/pipeline"
)

// NewProgressBar tracks the fixture records of a run.
func NewProgressBar(total int, w io.Writer) *progressbar.ProgressBar {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Verifying records"),
		progressbar.OptionSetItsString("record"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionClearOnFinish())

	return bar
}

// RecordObserver calls next and advances bar after every record. Both may be
// nil.
func RecordObserver(bar *progressbar.ProgressBar, next func(*pipeline.Outcome)) func(*pipeline.Outcome) {
	return func(o *pipeline.Outcome) {
		if next != nil {
			next(o)
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
}
