package report

import (
	"bytes"
	"regexp"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pkg/errors"
)

const (
	titleColor = "#000000"

	passedColor   = "#34a853"
	failedColor   = "#ea4336"
	notFoundColor = "#fbbc05"
	errorColor    = "#c1c1c1"
)

var (
	scriptRegex   = regexp.MustCompile(`<script type="text/javascript">(\n|.)*</script>`)
	rendererRegex = regexp.MustCompile(`(echarts\.init\()(.*)(\))`)
)

type chartPart struct {
	name  string
	value int
	color string
}

// generateChart renders a pie chart and returns the JS code that draws it
// into the element with id chartID. It returns nil when all parts are zero.
func generateChart(chartID, title string, parts []chartPart) (*string, error) {
	var data []opts.PieData

	total := 0
	for _, p := range parts {
		total += p.value
		if p.value == 0 {
			continue
		}

		data = append(data, opts.PieData{
			Name:      p.name,
			Value:     p.value,
			ItemStyle: &opts.ItemStyle{Color: p.color},
		})
	}

	if total == 0 {
		return nil, nil
	}

	chart := charts.NewPie()
	chart.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: title,
			Right: "center",
			TitleStyle: &opts.TextStyle{
				Color: titleColor,
			},
		}),
		charts.WithInitializationOpts(opts.Initialization{
			ChartID: chartID,
		}),
	)
	chart.AddSeries(title, data)

	var buffer bytes.Buffer

	err := chart.Render(&buffer)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't render chart")
	}

	scriptParts := scriptRegex.FindAllString(buffer.String(), -1)
	if len(scriptParts) != 1 {
		return nil, errors.New("couldn't get chart script")
	}

	script := rendererRegex.ReplaceAllString(scriptParts[0], "$1$2, {renderer: \"svg\"}$3")

	return &script, nil
}
