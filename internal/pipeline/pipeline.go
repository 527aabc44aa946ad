// Package pipeline verifies fixture records against the backend: each record
// is submitted, located by its correlation key, fetched and compared.
package pipeline

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wallarm/gotestflow/internal/fixture"
	"github.com/wallarm/gotestflow/internal/helpers"
	"github.com/wallarm/gotestflow/internal/match"
	"github.com/wallarm/gotestflow/internal/payload"
	"github.com/wallarm/gotestflow/internal/session"
)

// Client is the authenticated API context.
type Client interface {
	CustomerID() string
	Post(ctx context.Context, path string, body any) (*session.Response, error)
	Get(ctx context.Context, path string) (*session.Response, error)
}

var _ Client = (*session.Session)(nil)

// ResponseValidator checks a response against an API description.
type ResponseValidator interface {
	ValidateResponse(ctx context.Context, resp *session.Response) error
}

type Pipeline struct {
	client    Client
	validator ResponseValidator
	observer  func(*Outcome)
	logger    *logrus.Logger
}

type Option func(p *Pipeline)

// WithValidator validates every response before it is decoded.
func WithValidator(v ResponseValidator) Option {
	return func(p *Pipeline) {
		p.validator = v
	}
}

// WithObserver is called after every record.
func WithObserver(f func(*Outcome)) Option {
	return func(p *Pipeline) {
		p.observer = f
	}
}

func New(logger *logrus.Logger, client Client, opts ...Option) *Pipeline {
	p := &Pipeline{
		client: client,
		logger: logger,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// fatalError marks errors that abort the whole case.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Run verifies records one by one. Record failures are kept in the report;
// transport, filesystem and cancellation errors stop the run and are
// returned together with the partial report.
func (p *Pipeline) Run(ctx context.Context, c *Case, records []fixture.Record) (*Report, error) {
	report := &Report{Set: c.Set, Case: c.Name}

	vars := payload.Vars{payload.CustomerIDPlaceholder: p.client.CustomerID()}

	for _, record := range records {
		outcome := &Outcome{
			Set:  c.Set,
			Case: c.Name,
			Row:  record.Row(),
			Key:  correlationKey(c, record),
		}

		err := p.runRecord(ctx, c, record, vars, outcome)
		report.Outcomes = append(report.Outcomes, outcome)

		p.log(outcome)
		if p.observer != nil {
			p.observer(outcome)
		}

		var fatal *fatalError
		if errors.As(err, &fatal) {
			return report, errors.Wrapf(fatal.err, "row %d (%s) at %s", outcome.Row, outcome.Key, outcome.Step)
		}
	}

	return report, nil
}

func correlationKey(c *Case, record fixture.Record) string {
	if c.Correlate != nil {
		if v, ok := record.Get(c.Correlate.column()); ok {
			return v
		}
	}

	return "row " + strconv.Itoa(record.Row())
}

func (p *Pipeline) log(o *Outcome) {
	logger := p.logger.WithFields(logrus.Fields{
		"case":   o.Case,
		"row":    o.Row,
		"key":    o.Key,
		"step":   o.Step,
		"status": o.Status,
	})

	switch o.Status {
	case StatusPassed:
		logger.WithField("id", o.ID).Info("Record verified")
	case StatusNotFound:
		logger.WithError(o.Err).Warn("Created entity not found, record skipped")
	default:
		for _, reason := range o.Reasons {
			logger.WithField("reason", reason).Error("Record failed")
		}
		if len(o.Reasons) == 0 {
			logger.WithError(o.Err).Error("Record failed")
		}
	}
}

// classify fills the outcome from a step error and reports whether the run
// has to stop.
func classify(o *Outcome, step Step, err error) error {
	o.Step = step
	o.Err = err
	o.Reasons = append(o.Reasons, err.Error())

	var (
		apiErr      *session.APIError
		shapeErr    *ShapeError
		notFound    *CorrelationNotFoundError
		assertErr   *AssertionFailedError
		missingErr  *payload.MissingColumnError
		placeholder *payload.UnknownPlaceholderError
	)

	switch {
	case errors.As(err, &notFound):
		o.Status = StatusNotFound
	case errors.As(err, &assertErr):
		o.Status = StatusFailed
		o.Reasons = assertErr.Mismatches
	case errors.As(err, &apiErr), errors.As(err, &shapeErr),
		errors.As(err, &missingErr), errors.As(err, &placeholder):
		o.Status = StatusFailed
	default:
		o.Status = StatusError
		return &fatalError{err: err}
	}

	return err
}

func (p *Pipeline) runRecord(ctx context.Context, c *Case, record fixture.Record, vars payload.Vars, o *Outcome) error {
	if err := ctx.Err(); err != nil {
		return classify(o, StepBind, err)
	}

	bound, err := payload.Bind(c.Template, record, c.Mapping, c.RecordIndex)
	if err != nil {
		return classify(o, StepBind, err)
	}

	id, err := p.submit(ctx, c, bound, vars)
	if err != nil {
		return classify(o, StepSubmit, err)
	}

	if id == "" {
		if c.Correlate == nil {
			return classify(o, StepSubmit, &ShapeError{Reason: "no identifier echoed and no correlation configured"})
		}

		id, err = p.correlate(ctx, c, record, vars)
		if err != nil {
			return classify(o, StepCorrelate, err)
		}
	}
	o.ID = id

	doc, err := p.fetchDetail(ctx, c, vars.With(payload.IDPlaceholder, id))
	if err != nil {
		return classify(o, StepFetchDetail, err)
	}

	if c.Detail.IDPath != "" {
		got, ok := helpers.Lookup(doc, c.Detail.IDPath)
		if !ok || match.Text(got) != id {
			return classify(o, StepAssert, &AssertionFailedError{Mismatches: []string{
				c.Detail.IDPath + ": expected " + strconv.Quote(id) + ", got " + strconv.Quote(match.Text(got)),
			}})
		}
	}

	root, ok := helpers.Lookup(doc, c.Assert.Root)
	if !ok {
		return classify(o, StepAssert, &ShapeError{Reason: "detail root " + c.Assert.Root + " is missing"})
	}

	mismatches := match.Document(root, record, c.Assert.Fields, c.Assert.Contains)
	if len(mismatches) > 0 {
		reasons := make([]string, 0, len(mismatches))
		for _, m := range mismatches {
			reasons = append(reasons, m.String())
		}

		return classify(o, StepAssert, &AssertionFailedError{Mismatches: reasons})
	}

	o.Step = StepAssert
	o.Status = StatusPassed

	return nil
}

// handle validates and decodes the response of one call.
func (p *Pipeline) handle(ctx context.Context, resp *session.Response, err error) (any, error) {
	if err != nil {
		return nil, err
	}

	if p.validator != nil {
		if err = p.validator.ValidateResponse(ctx, resp); err != nil {
			return nil, &ShapeError{Reason: err.Error()}
		}
	}

	doc, err := resp.Decode()
	if err != nil {
		return nil, &ShapeError{Reason: err.Error()}
	}

	return doc, nil
}

// checkEnvelope asserts {methodName: <expected>, error: null}.
func checkEnvelope(doc any, methodName string) error {
	obj, ok := doc.(map[string]any)
	if !ok {
		return &ShapeError{Reason: "response is not an object"}
	}

	if methodName != "" && match.Text(obj["methodName"]) != methodName {
		return &ShapeError{Reason: "methodName is " + strconv.Quote(match.Text(obj["methodName"])) + ", expected " + strconv.Quote(methodName)}
	}

	apiErr, present := obj["error"]
	if !present {
		return &ShapeError{Reason: "error field is missing"}
	}
	if apiErr != nil {
		encoded, _ := json.Marshal(apiErr)
		return &ShapeError{Reason: "backend reported error " + string(encoded)}
	}

	return nil
}

func (p *Pipeline) submit(ctx context.Context, c *Case, bound *payload.Bound, vars payload.Vars) (string, error) {
	path, err := payload.ExpandURL(c.Submit.Path, vars)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Post(ctx, path, bound)
	doc, err := p.handle(ctx, resp, err)
	if err != nil {
		return "", err
	}

	if err = checkEnvelope(doc, c.Submit.MethodName); err != nil {
		return "", err
	}

	if c.Submit.IDPath == "" {
		return "", nil
	}

	id, ok := helpers.Lookup(doc, c.Submit.IDPath)
	if !ok {
		return "", nil
	}

	return match.Text(id), nil
}

func (p *Pipeline) correlate(ctx context.Context, c *Case, record fixture.Record, vars payload.Vars) (string, error) {
	want, ok := record.Get(c.Correlate.column())
	if !ok {
		return "", &payload.MissingColumnError{Field: c.Correlate.Field, Column: c.Correlate.column()}
	}

	query, err := payload.ExpandValue(c.Correlate.Query, vars)
	if err != nil {
		return "", err
	}

	var body any = query
	if c.Correlate.WrapField != "" {
		serialized, err := json.Marshal(query)
		if err != nil {
			return "", errors.Wrap(err, "couldn't encode search query")
		}

		body = map[string]string{c.Correlate.WrapField: string(serialized)}
	}

	path, err := payload.ExpandURL(c.Correlate.Path, vars)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Post(ctx, path, body)
	doc, err := p.handle(ctx, resp, err)
	if err != nil {
		return "", err
	}

	raw, ok := helpers.Lookup(doc, c.Correlate.Collection)
	if !ok {
		return "", &ShapeError{Reason: "collection " + c.Correlate.Collection + " is missing"}
	}

	entries, ok := raw.([]any)
	if !ok {
		return "", &ShapeError{Reason: "collection " + c.Correlate.Collection + " is not an array"}
	}

	id, matches := Find(entries, c.Correlate.Field, want, c.Correlate.idField())
	if matches == 0 {
		return "", &CorrelationNotFoundError{Field: c.Correlate.Field, Value: want, Candidates: len(entries)}
	}

	if matches > 1 {
		p.logger.WithFields(logrus.Fields{
			"case":    c.Name,
			"row":     record.Row(),
			"key":     want,
			"step":    StepCorrelate,
			"matches": matches,
		}).Warn("Correlation key is not unique, the first match is used")
	}

	if id == "" {
		return "", &ShapeError{Reason: "matched entry has no " + c.Correlate.idField()}
	}

	return id, nil
}

// Find scans entries in order and returns the identifier of the first one
// whose field equals want, together with the number of matching entries.
func Find(entries []any, field, want, idField string) (string, int) {
	var (
		id      string
		matches int
	)

	for _, entry := range entries {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}

		value, ok := obj[field]
		if !ok || match.Text(value) != want {
			continue
		}

		if matches == 0 {
			id = match.Text(obj[idField])
		}
		matches++
	}

	return id, matches
}

func (p *Pipeline) fetchDetail(ctx context.Context, c *Case, vars payload.Vars) (any, error) {
	path, err := payload.ExpandURL(c.Detail.Path, vars)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Get(ctx, path)
	doc, err := p.handle(ctx, resp, err)
	if err != nil {
		return nil, err
	}

	if err = checkEnvelope(doc, c.Detail.MethodName); err != nil {
		return nil, err
	}

	return doc, nil
}
