package report

import (
	"bytes"
	_ "embed"
	"html/template"
	"strings"

	"github.com/pkg/errors"

	"github.com/wallarm/gotestflow/internal/db"
	"github.com/wallarm/gotestflow/internal/helpers"
	"github.com/wallarm/gotestflow/internal/version"
)

//go:embed report_template.html
var htmlTemplate string

// HtmlReport is the data required to render a full report in HTML/PDF format.
type HtmlReport struct {
	ProjectName string   `json:"project_name" validate:"omitempty,printascii,max=256"`
	Url         string   `json:"url" validate:"required,url,max=256"`
	TestingDate string   `json:"testing_date" validate:"required,datetime=02 January 2006"`
	Duration    string   `json:"duration"`
	GtfVersion  string   `json:"gtf_version" validate:"required,gtf_version"`
	OpenApiFile string   `json:"open_api_file" validate:"omitempty,max=512"`
	Args        []string `json:"args" validate:"max=50,dive,max=200"`

	Overall *Grade `json:"overall" validate:"required"`
	API     *Grade `json:"api" validate:"required"`
	UI      *Grade `json:"ui" validate:"required"`

	RecordsChart *template.HTML `json:"-" validate:"-"`
	UIChart      *template.HTML `json:"-" validate:"-"`

	SummaryTable map[string]*TestSetSummary `json:"summary_table" validate:"omitempty,dive,keys,required,max=256,endkeys,required"`

	Records struct {
		Total    int `json:"total" validate:"min=0"`
		Passed   int `json:"passed" validate:"min=0"`
		Failed   int `json:"failed" validate:"min=0"`
		NotFound int `json:"not_found" validate:"min=0"`
		Errors   int `json:"errors" validate:"min=0"`
	} `json:"records"`

	Failed       []*db.RecordDetails `json:"failed" validate:"omitempty,dive,required"`
	NotFound     []*db.RecordDetails `json:"not_found" validate:"omitempty,dive,required"`
	Errors       []*db.RecordDetails `json:"errors" validate:"omitempty,dive,required"`
	VisualChecks []*db.UIDetails     `json:"visual_checks" validate:"omitempty,dive,required"`
	CaseErrors   []*db.CaseError     `json:"case_errors" validate:"omitempty,dive,required"`
}

type TestSetSummary struct {
	TestCases []*db.SummaryTableRow `json:"test_cases" validate:"required,max=1024,dive,required"`

	Percentage float64 `json:"percentage" validate:"min=0,max=100"`
	Records    int     `json:"records" validate:"min=0"`
	Passed     int     `json:"passed" validate:"min=0"`
	Failed     int     `json:"failed" validate:"min=0"`
	NotFound   int     `json:"not_found" validate:"min=0"`
	Errors     int     `json:"errors" validate:"min=0"`

	resolved int
}

// prepareHTMLFullReport collects the report data from statistics.
func prepareHTMLFullReport(s *db.Statistics, meta *Meta) (*HtmlReport, error) {
	data := &HtmlReport{
		ProjectName:  meta.ProjectName,
		Url:          meta.URL,
		TestingDate:  meta.ReportTime.Format("02 January 2006"),
		GtfVersion:   version.Version,
		OpenApiFile:  meta.OpenAPIFile,
		Args:         meta.Args,
		Overall:      computeGrade(s.Score),
		API:          computeGrade(-1),
		UI:           computeGrade(-1),
		SummaryTable: make(map[string]*TestSetSummary),
		Failed:       s.Failed,
		NotFound:     s.NotFound,
		Errors:       s.Errors,
		VisualChecks: s.VisualChecks,
		CaseErrors:   s.CaseErrors,
	}

	if s.Duration > 0 {
		data.Duration = s.Duration.String()
	}
	if s.Records.ResolvedNumber > 0 {
		data.API = computeGrade(s.Records.ResolvedPassedPercentage)
	}
	if s.UI.AllNumber > 0 {
		data.UI = computeGrade(s.UI.PassedPercentage)
	}

	data.Records.Total = s.Records.AllNumber
	data.Records.Passed = s.Records.PassedNumber
	data.Records.Failed = s.Records.FailedNumber
	data.Records.NotFound = s.Records.NotFoundNumber
	data.Records.Errors = s.Records.ErrorNumber

	for _, row := range s.SummaryTable {
		if _, ok := data.SummaryTable[row.TestSet]; !ok {
			data.SummaryTable[row.TestSet] = &TestSetSummary{}
		}

		testSetSum := data.SummaryTable[row.TestSet]

		testSetSum.TestCases = append(testSetSum.TestCases, row)

		testSetSum.Records += row.Records
		testSetSum.Passed += row.Passed
		testSetSum.Failed += row.Failed
		testSetSum.NotFound += row.NotFound
		testSetSum.Errors += row.Errors

		if row.Passed+row.Failed+row.Errors != 0 {
			testSetSum.resolved += 1
			testSetSum.Percentage += row.Percentage
		}
	}
	for _, testSetSum := range data.SummaryTable {
		if testSetSum.resolved != 0 {
			testSetSum.Percentage = db.Round(testSetSum.Percentage / float64(testSetSum.resolved))
		}
	}

	recordsChart, err := generateChart("records_chart", "Records", []chartPart{
		{"Passed", s.Records.PassedNumber, passedColor},
		{"Failed", s.Records.FailedNumber, failedColor},
		{"Not found", s.Records.NotFoundNumber, notFoundColor},
		{"Errors", s.Records.ErrorNumber, errorColor},
	})
	if err != nil {
		return nil, errors.Wrap(err, "couldn't generate records chart")
	}
	if recordsChart != nil {
		v := template.HTML(*recordsChart)
		data.RecordsChart = &v
	}

	uiChart, err := generateChart("ui_chart", "UI steps", []chartPart{
		{"Passed", s.UI.PassedNumber, passedColor},
		{"Failed", s.UI.FailedNumber, failedColor},
		{"Errors", s.UI.ErrorNumber, errorColor},
	})
	if err != nil {
		return nil, errors.Wrap(err, "couldn't generate UI chart")
	}
	if uiChart != nil {
		v := template.HTML(*uiChart)
		data.UIChart = &v
	}

	return data, nil
}

// RenderFullReportToHTML substitutes report data into the HTML template.
func RenderFullReportToHTML(reportData *HtmlReport) (*bytes.Buffer, error) {
	templ, err := template.New("report").
		Funcs(template.FuncMap{
			"StringsJoin": strings.Join,
			"percent": func(ratio float64) float64 {
				return db.Round(ratio * 100)
			},
		}).
		Parse(htmlTemplate)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't parse template")
	}

	var buffer bytes.Buffer

	err = templ.Execute(&buffer, reportData)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't execute template")
	}

	return &buffer, nil
}

func renderHTML(s *db.Statistics, meta *Meta) (*bytes.Buffer, error) {
	data, err := prepareHTMLFullReport(s, meta)
	if err != nil {
		return nil, err
	}

	if err = ValidateReportData(data); err != nil {
		return nil, err
	}

	return RenderFullReportToHTML(data)
}

// printFullReportToHtml saves the full report on disk in HTML format.
func printFullReportToHtml(s *db.Statistics, reportFile string, meta *Meta) error {
	buffer, err := renderHTML(s, meta)
	if err != nil {
		return errors.Wrap(err, "couldn't render HTML report")
	}

	if err = helpers.WriteFile(reportFile, buffer.Bytes()); err != nil {
		return errors.Wrap(err, "couldn't save HTML report")
	}

	return nil
}
