package pipeline

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/sirupsen/logrus"

	"github.com/wallarm/gotestflow/internal/fixture"
	"github.com/wallarm/gotestflow/internal/match"
	"github.com/wallarm/gotestflow/internal/payload"
	"github.com/wallarm/gotestflow/internal/session"
)

var fixtureColumns = []string{"constructionName", "amount", "period_From", "companyAbility", "total"}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func openSession(t *testing.T, baseURL string) *session.Session {
	t.Helper()

	artifact := filepath.Join(t.TempDir(), "user.json")
	if err := (&session.StorageState{}).Save(artifact); err != nil {
		t.Fatal(err)
	}

	s, err := session.Open(context.Background(), testLogger(), baseURL, artifact, session.StaticCustomerID(testCustomerID), session.Options{})
	if err != nil {
		t.Fatalf("couldn't open session: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func prospectCase() *Case {
	return &Case{
		Set:      "prospect",
		Name:     "csv-import",
		Template: &payload.FileSource{Path: filepath.Join("testdata", "prospect.json")},
		Mapping:  payload.IdentityMapping(fixtureColumns...),
		Submit: Submit{
			Path:       "/prospectmanagementapi/csvBulkUpsert?CustomerId={{customerId}}&State=0",
			MethodName: "CsvBulkUpsert",
		},
		Correlate: &Correlate{
			Path:      "/prospectmanagementapi/rawQuerySearch",
			WrapField: "JsonString",
			Query: map[string]any{
				"customerId":   "{{customerId}}",
				"page":         1,
				"maxItemCount": 100,
				"sortItem":     map[string]any{"itemName": "ModifiedOn", "isAscending": false},
			},
			Collection: "value.prospects",
			Field:      "constructionName",
			IDField:    "id",
		},
		Detail: Detail{
			Path:       "/prospectmanagementapi/{{id}}?modes=31&calendarType=1&customerId={{customerId}}",
			MethodName: "Get",
			IDPath:     "value.id",
		},
		Assert: Assert{
			Root: "value",
			Fields: []match.Field{
				{Field: "constructionName"},
				{Field: "amount", Kind: match.KindNumber},
				{Field: "period_From", Kind: match.KindDate},
			},
			Contains: []match.Contains{{
				Path: "bidResult.prospectsBidResultCompanies",
				Fields: []match.Field{
					{Field: "companyAbility", Kind: match.KindString},
					{Field: "total", Kind: match.KindString},
				},
			}},
		},
	}
}

func record(row int, name, amount string) fixture.Record {
	return fixture.NewRecord(row, fixtureColumns, []string{name, amount, "2024-04-01T00:00+09:00", "10", "30"})
}

func TestBridgeA(t *testing.T) {
	backend := &fakeBackend{}
	srv := newFakeBackend(t, backend)

	var observed []*Outcome
	p := New(testLogger(), openSession(t, srv.URL), WithObserver(func(o *Outcome) {
		observed = append(observed, o)
	}))

	report, err := p.Run(context.Background(), prospectCase(), []fixture.Record{record(1, "Bridge A", "1000000")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Failed() {
		t.Fatalf("case must pass: %v", report.Err())
	}

	o := report.Outcomes[0]
	if o.Status != StatusPassed || o.Step != StepAssert || o.ID != "p-1" || o.Key != "Bridge A" {
		t.Errorf("bad outcome: %+v", o)
	}
	if len(observed) != 1 {
		t.Errorf("observer must be called once per record, got %d", len(observed))
	}
}

func TestCorrelationNotFoundContinues(t *testing.T) {
	backend := &fakeBackend{drop: func(name string) bool { return strings.HasPrefix(name, "Ghost") }}
	srv := newFakeBackend(t, backend)

	report, err := New(testLogger(), openSession(t, srv.URL)).Run(context.Background(), prospectCase(), []fixture.Record{
		record(1, "Ghost C", "1"),
		record(2, "Bridge A", "1000000"),
	})
	if err != nil {
		t.Fatalf("correlation miss must not abort the run: %v", err)
	}

	if len(report.Outcomes) != 2 {
		t.Fatalf("all records must be processed, got %d", len(report.Outcomes))
	}

	ghost := report.Outcomes[0]
	if ghost.Status != StatusNotFound || ghost.Step != StepCorrelate {
		t.Errorf("bad outcome for missing entity: %+v", ghost)
	}

	var notFound *CorrelationNotFoundError
	if !errors.As(ghost.Err, &notFound) || notFound.Value != "Ghost C" {
		t.Errorf("err should be an %T, got %v", notFound, ghost.Err)
	}

	if report.Outcomes[1].Status != StatusPassed {
		t.Errorf("next record must pass: %+v", report.Outcomes[1])
	}
	if report.Failed() {
		t.Errorf("skipped records do not fail the case")
	}
}

func TestAssertionFailureContinues(t *testing.T) {
	backend := &fakeBackend{alter: func(p map[string]any) {
		if p["constructionName"] == "Tunnel B" {
			p["amount"] = 1
			p["period_From"] = "2024-04-02T00:00"
		}
	}}
	srv := newFakeBackend(t, backend)

	report, err := New(testLogger(), openSession(t, srv.URL)).Run(context.Background(), prospectCase(), []fixture.Record{
		record(1, "Tunnel B", "250000"),
		record(2, "Bridge A", "1000000"),
	})
	if err != nil {
		t.Fatalf("assertion failure must not abort the run: %v", err)
	}

	failed := report.Outcomes[0]
	if failed.Status != StatusFailed || failed.Step != StepAssert {
		t.Fatalf("bad outcome: %+v", failed)
	}
	if len(failed.Reasons) != 2 {
		t.Errorf("expected 2 mismatches, got %v", failed.Reasons)
	}

	if report.Outcomes[1].Status != StatusPassed {
		t.Errorf("next record must pass: %+v", report.Outcomes[1])
	}

	if !report.Failed() {
		t.Fatalf("case must fail")
	}

	var recErr *RecordError
	if !errors.As(report.Err(), &recErr) || recErr.Row != 1 || recErr.Key != "Tunnel B" || recErr.Step != StepAssert {
		t.Errorf("aggregated error must carry row, key and step: %v", report.Err())
	}
}

func TestSubmitAPIError(t *testing.T) {
	backend := &fakeBackend{fail: func(name string) bool { return name == "Broken" }}
	srv := newFakeBackend(t, backend)

	report, err := New(testLogger(), openSession(t, srv.URL)).Run(context.Background(), prospectCase(), []fixture.Record{
		record(1, "Broken", "1"),
		record(2, "Bridge A", "1000000"),
	})
	if err != nil {
		t.Fatalf("API errors abort the record only: %v", err)
	}

	o := report.Outcomes[0]
	var apiErr *session.APIError
	if o.Status != StatusFailed || o.Step != StepSubmit || !errors.As(o.Err, &apiErr) {
		t.Errorf("bad outcome: %+v", o)
	}
	if report.Outcomes[1].Status != StatusPassed {
		t.Errorf("next record must pass: %+v", report.Outcomes[1])
	}
}

func TestTransportErrorAbortsCase(t *testing.T) {
	backend := &fakeBackend{}
	srv := newFakeBackend(t, backend)
	s := openSession(t, srv.URL)
	srv.Close()

	report, err := New(testLogger(), s).Run(context.Background(), prospectCase(), []fixture.Record{
		record(1, "Bridge A", "1000000"),
		record(2, "Tunnel B", "250000"),
	})
	if err == nil {
		t.Fatalf("transport error must abort the case")
	}
	if len(report.Outcomes) != 1 || report.Outcomes[0].Status != StatusError {
		t.Errorf("bad partial report: %+v", report.Outcomes)
	}
}

func TestCanceledContext(t *testing.T) {
	srv := newFakeBackend(t, &fakeBackend{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(testLogger(), openSession(t, srv.URL)).Run(ctx, prospectCase(), []fixture.Record{record(1, "Bridge A", "1")})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err must be context.Canceled, got %v", err)
	}
}

func TestEchoedIDSkipsSearch(t *testing.T) {
	backend := &fakeBackend{}
	srv := newFakeBackend(t, backend)

	c := prospectCase()
	c.Submit.IDPath = "value.id"

	report, err := New(testLogger(), openSession(t, srv.URL)).Run(context.Background(), c, []fixture.Record{record(1, "Bridge A", "1000000")})
	if err != nil {
		t.Fatal(err)
	}
	if report.Outcomes[0].Status != StatusPassed {
		t.Errorf("bad outcome: %+v", report.Outcomes[0])
	}
	if backend.searches != 0 {
		t.Errorf("search must not be called when the id is echoed, got %d calls", backend.searches)
	}
}

func TestDetailOfAnotherEntity(t *testing.T) {
	backend := &fakeBackend{alter: func(p map[string]any) {
		p["id"] = "p-999"
	}}
	srv := newFakeBackend(t, backend)

	report, err := New(testLogger(), openSession(t, srv.URL)).Run(context.Background(), prospectCase(), []fixture.Record{record(1, "Bridge A", "1000000")})
	if err != nil {
		t.Fatalf("id mismatch must not abort the run: %v", err)
	}

	o := report.Outcomes[0]
	if o.Status != StatusFailed || o.Step != StepAssert {
		t.Fatalf("bad outcome: %+v", o)
	}
	if len(o.Reasons) != 1 || !strings.Contains(o.Reasons[0], `expected "p-1", got "p-999"`) {
		t.Errorf("bad reasons: %v", o.Reasons)
	}
	if report.Count(StatusFailed) != 1 || report.Count(StatusPassed) != 0 {
		t.Errorf("bad counts: %d failed, %d passed", report.Count(StatusFailed), report.Count(StatusPassed))
	}

	c := prospectCase()
	c.Detail.IDPath = ""

	report, err = New(testLogger(), openSession(t, srv.URL)).Run(context.Background(), c, []fixture.Record{record(1, "Bridge A", "1000000")})
	if err != nil {
		t.Fatal(err)
	}
	if report.Outcomes[0].Status != StatusPassed {
		t.Errorf("id must not be checked without idPath: %+v", report.Outcomes[0])
	}
}

func TestMissingEnvelopeFields(t *testing.T) {
	tests := []struct {
		doc    any
		method string
	}{
		{[]any{}, ""},
		{map[string]any{"methodName": "Other", "error": nil}, "Get"},
		{map[string]any{"methodName": "Get"}, "Get"},
		{map[string]any{"methodName": "Get", "error": "denied"}, "Get"},
	}

	for i, tt := range tests {
		var shapeErr *ShapeError
		if err := checkEnvelope(tt.doc, tt.method); !errors.As(err, &shapeErr) {
			t.Errorf("case %d: err should be an %T, got %v", i, shapeErr, err)
		}
	}

	if err := checkEnvelope(map[string]any{"methodName": "Get", "error": nil, "value": 1}, "Get"); err != nil {
		t.Errorf("valid envelope rejected: %v", err)
	}
}

func TestCorrelationIsDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300

	properties := gopter.NewProperties(parameters)

	properties.Property("a unique key always yields its own identifier", prop.ForAll(
		func(n, pick int) bool {
			pick = pick % n

			entries := make([]any, n)
			for i := range entries {
				entries[i] = map[string]any{
					"id":               "id-" + string(rune('a'+i)),
					"constructionName": "name-" + string(rune('a'+i)),
				}
			}

			want := "name-" + string(rune('a'+pick))
			for i := 0; i < 3; i++ {
				id, matches := Find(entries, "constructionName", want, "id")
				if matches != 1 || id != "id-"+string(rune('a'+pick)) {
					return false
				}
			}

			return true
		},
		gen.IntRange(1, 20),
		gen.IntRange(0, 100),
	))

	properties.Property("the first of duplicate keys wins", prop.ForAll(
		func(n int) bool {
			entries := make([]any, n)
			for i := range entries {
				entries[i] = map[string]any{"id": i, "constructionName": "dup"}
			}

			id, matches := Find(entries, "constructionName", "dup", "id")
			return id == "0" && matches == n
		},
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t)
}
