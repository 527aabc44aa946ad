package db

import (
	"sync"

	"github.com/wallarm/gotestflow/internal/pipeline"
	"github.com/wallarm/gotestflow/internal/scenario"
)

const (
	counterPassed   = "passed"
	counterFailed   = "failed"
	counterNotFound = "not_found"
	counterError    = "error"
)

// DB collects the outcomes of a run. It is safe for concurrent use.
type DB struct {
	sync.Mutex

	counters   map[string]map[string]map[string]int
	uiCounters map[string]map[string]map[string]int

	records    []*Info
	uiSteps    []*UIInfo
	caseErrors []*CaseError

	NumberOfRecords uint

	Info RunInfo
}

func NewDB(tests []*Case) *DB {
	db := &DB{
		counters:   make(map[string]map[string]map[string]int),
		uiCounters: make(map[string]map[string]map[string]int),
	}

	for _, test := range tests {
		ensure(db.counters, test.Set, test.Name)
		ensure(db.uiCounters, test.Set, test.Name)
	}

	return db
}

func ensure(counters map[string]map[string]map[string]int, set, name string) map[string]int {
	if _, ok := counters[set]; !ok {
		counters[set] = map[string]map[string]int{}
	}
	if _, ok := counters[set][name]; !ok {
		counters[set][name] = map[string]int{}
	}
	return counters[set][name]
}

// AddFixture registers the number of records a case will verify.
func (db *DB) AddFixture(records int) {
	db.Lock()
	defer db.Unlock()
	db.NumberOfRecords += uint(records)
}

// AddOutcome stores one record outcome.
func (db *DB) AddOutcome(o *pipeline.Outcome) {
	info := &Info{
		Set:     o.Set,
		Case:    o.Case,
		Row:     o.Row,
		Key:     o.Key,
		ID:      o.ID,
		Step:    string(o.Step),
		Status:  string(o.Status),
		Reasons: append([]string(nil), o.Reasons...),
	}
	if len(info.Reasons) == 0 && o.Err != nil {
		info.Reasons = []string{o.Err.Error()}
	}

	db.Lock()
	defer db.Unlock()
	ensure(db.counters, info.Set, info.Case)[info.Status]++
	db.records = append(db.records, info)
}

// AddUIResult stores the steps of one UI scenario run.
func (db *DB) AddUIResult(set string, r *scenario.Result) {
	db.Lock()
	defer db.Unlock()

	counters := ensure(db.uiCounters, set, r.Case)

	for _, s := range r.Steps {
		info := &UIInfo{
			Set:    set,
			Case:   r.Case,
			Index:  s.Index,
			Kind:   string(s.Kind),
			Target: s.Target,
			Status: string(s.Status),
		}
		if s.Err != nil {
			info.Reason = s.Err.Error()
		}
		if cmp := s.Comparison; cmp != nil {
			info.DiffRatio = cmp.DiffRatio
			info.Baseline = cmp.Baseline
			info.Current = cmp.Current
			info.Diff = cmp.Diff
		}

		counters[info.Status]++
		db.uiSteps = append(db.uiSteps, info)
	}
}

// AddCaseError records a case that was stopped early.
func (db *DB) AddCaseError(set, name string, err error) {
	db.Lock()
	defer db.Unlock()
	db.caseErrors = append(db.caseErrors, &CaseError{Set: set, Case: name, Reason: err.Error()})
}

func (db *DB) GetNumberOfRecords() uint {
	db.Lock()
	defer db.Unlock()
	return db.NumberOfRecords
}

// Failed reports whether any record, UI step or case failed.
func (db *DB) Failed() bool {
	db.Lock()
	defer db.Unlock()

	if len(db.caseErrors) > 0 {
		return true
	}
	for _, r := range db.records {
		if r.Status == counterFailed || r.Status == counterError {
			return true
		}
	}
	for _, s := range db.uiSteps {
		if s.Status != counterPassed {
			return true
		}
	}
	return false
}
