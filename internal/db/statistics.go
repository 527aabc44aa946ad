package db

import (
	"sort"
	"time"
)

type Statistics struct {
	StartTime time.Time
	Duration  time.Duration
	URL       string

	SummaryTable []*SummaryTableRow

	Failed     []*RecordDetails
	NotFound   []*RecordDetails
	Errors     []*RecordDetails
	CaseErrors []*CaseError

	VisualChecks []*UIDetails

	Records struct {
		AllNumber      int
		PassedNumber   int
		FailedNumber   int
		NotFoundNumber int
		ErrorNumber    int
		ResolvedNumber int

		NotFoundPercentage       float64
		ResolvedPassedPercentage float64
		ResolvedFailedPercentage float64
		ErrorPercentage          float64
	}

	UI struct {
		AllNumber    int
		PassedNumber int
		FailedNumber int
		ErrorNumber  int

		PassedPercentage float64
	}

	// Score is the passed share of resolved records and UI steps, -1 when
	// nothing was resolved.
	Score float64
}

type SummaryTableRow struct {
	TestSet    string  `json:"test_set" validate:"required,printascii,max=256"`
	TestCase   string  `json:"test_case" validate:"required,printascii,max=256"`
	Percentage float64 `json:"percentage" validate:"min=0,max=100"`
	Records    int     `json:"records" validate:"min=0"`
	Passed     int     `json:"passed" validate:"min=0"`
	Failed     int     `json:"failed" validate:"min=0"`
	NotFound   int     `json:"not_found" validate:"min=0"`
	Errors     int     `json:"errors" validate:"min=0"`
	UISteps    int     `json:"ui_steps" validate:"min=0"`
	UIFailed   int     `json:"ui_failed" validate:"min=0"`
}

type RecordDetails struct {
	TestSet  string   `json:"test_set" validate:"required,printascii"`
	TestCase string   `json:"test_case" validate:"required,printascii"`
	Row      int      `json:"row" validate:"min=1"`
	Key      string   `json:"key"`
	ID       string   `json:"id,omitempty"`
	Step     string   `json:"step" validate:"required"`
	Reason   []string `json:"reason" validate:"omitempty,dive,required"`
}

type UIDetails struct {
	TestSet   string  `json:"test_set"`
	TestCase  string  `json:"test_case"`
	Index     int     `json:"index"`
	Target    string  `json:"target"`
	Status    string  `json:"status"`
	DiffRatio float64 `json:"diff_ratio"`
	Baseline  string  `json:"baseline"`
	Current   string  `json:"current"`
	Diff      string  `json:"diff,omitempty"`
	Reason    string  `json:"reason,omitempty"`
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (db *DB) GetStatistics() *Statistics {
	db.Lock()
	defer db.Unlock()

	s := &Statistics{
		StartTime: db.Info.StartTime,
		URL:       db.Info.URL,
	}
	if !db.Info.EndTime.IsZero() {
		s.Duration = db.Info.EndTime.Sub(db.Info.StartTime)
	}

	for _, testSet := range sortedKeys(db.counters) {
		for _, testCase := range sortedKeys(db.counters[testSet]) {
			counters := db.counters[testSet][testCase]
			uiCounters := db.uiCounters[testSet][testCase]

			passed := counters[counterPassed]
			failed := counters[counterFailed]
			notFound := counters[counterNotFound]
			errored := counters[counterError]

			row := &SummaryTableRow{
				TestSet:    testSet,
				TestCase:   testCase,
				Percentage: CalculatePercentage(passed, passed+failed+errored),
				Records:    passed + failed + notFound + errored,
				Passed:     passed,
				Failed:     failed,
				NotFound:   notFound,
				Errors:     errored,
				UISteps:    uiCounters[counterPassed] + uiCounters[counterFailed] + uiCounters[counterError],
				UIFailed:   uiCounters[counterFailed] + uiCounters[counterError],
			}

			s.Records.PassedNumber += passed
			s.Records.FailedNumber += failed
			s.Records.NotFoundNumber += notFound
			s.Records.ErrorNumber += errored

			s.UI.PassedNumber += uiCounters[counterPassed]
			s.UI.FailedNumber += uiCounters[counterFailed]
			s.UI.ErrorNumber += uiCounters[counterError]

			s.SummaryTable = append(s.SummaryTable, row)
		}
	}

	s.Records.AllNumber = s.Records.PassedNumber +
		s.Records.FailedNumber +
		s.Records.NotFoundNumber +
		s.Records.ErrorNumber

	// records whose entity was not found are skipped, not resolved
	s.Records.ResolvedNumber = s.Records.PassedNumber +
		s.Records.FailedNumber +
		s.Records.ErrorNumber

	s.Records.NotFoundPercentage = CalculatePercentage(s.Records.NotFoundNumber, s.Records.AllNumber)
	s.Records.ResolvedPassedPercentage = CalculatePercentage(s.Records.PassedNumber, s.Records.ResolvedNumber)
	s.Records.ResolvedFailedPercentage = CalculatePercentage(s.Records.FailedNumber, s.Records.ResolvedNumber)
	s.Records.ErrorPercentage = CalculatePercentage(s.Records.ErrorNumber, s.Records.AllNumber)

	s.UI.AllNumber = s.UI.PassedNumber + s.UI.FailedNumber + s.UI.ErrorNumber
	s.UI.PassedPercentage = CalculatePercentage(s.UI.PassedNumber, s.UI.AllNumber)

	for _, r := range db.records {
		details := &RecordDetails{
			TestSet:  r.Set,
			TestCase: r.Case,
			Row:      r.Row,
			Key:      r.Key,
			ID:       r.ID,
			Step:     r.Step,
			Reason:   r.Reasons,
		}

		switch r.Status {
		case counterFailed:
			s.Failed = append(s.Failed, details)
		case counterNotFound:
			s.NotFound = append(s.NotFound, details)
		case counterError:
			s.Errors = append(s.Errors, details)
		}
	}

	for _, step := range db.uiSteps {
		if step.Kind != "snapshot" && step.Status == counterPassed {
			continue
		}

		s.VisualChecks = append(s.VisualChecks, &UIDetails{
			TestSet:   step.Set,
			TestCase:  step.Case,
			Index:     step.Index,
			Target:    step.Target,
			Status:    step.Status,
			DiffRatio: step.DiffRatio,
			Baseline:  step.Baseline,
			Current:   step.Current,
			Diff:      step.Diff,
			Reason:    step.Reason,
		})
	}

	s.CaseErrors = append(s.CaseErrors, db.caseErrors...)

	resolved := s.Records.ResolvedNumber + s.UI.AllNumber
	if resolved != 0 {
		s.Score = CalculatePercentage(s.Records.PassedNumber+s.UI.PassedNumber, resolved)
	} else {
		s.Score = -1.0
	}

	return s
}
