// Package scenario runs the UI steps of a case: preconditions are converged
// with polling and visual checks go through the snapshot store.
package scenario

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wallarm/gotestflow/internal/payload"
	"github.com/wallarm/gotestflow/internal/poll"
	"github.com/wallarm/gotestflow/internal/snapshot"
)

type Status string

const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
	StatusError  Status = "error"
)

type StepResult struct {
	Index  int
	Kind   Kind
	Target string
	Status Status
	Err    error

	Comparison *snapshot.ComparisonResult
}

type Result struct {
	Case  string
	Steps []*StepResult
}

// Failed reports whether a step failed or errored.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Status != StatusPassed {
			return true
		}
	}
	return false
}

// Err aggregates visual mismatches.
func (r *Result) Err() error {
	var result *multierror.Error
	for _, s := range r.Steps {
		if s.Err != nil {
			result = multierror.Append(result, errors.Wrapf(s.Err, "step %d (%s %s)", s.Index, s.Kind, s.Target))
		}
	}
	return result.ErrorOrNil()
}

type Runner struct {
	surface Surface
	store   *snapshot.Store
	poll    poll.Options
	vars    payload.Vars
	logger  *logrus.Logger
}

func NewRunner(logger *logrus.Logger, surface Surface, store *snapshot.Store, pollOpts poll.Options, vars payload.Vars) *Runner {
	return &Runner{
		surface: surface,
		store:   store,
		poll:    pollOpts,
		vars:    vars,
		logger:  logger,
	}
}

// Run executes the steps in order. A snapshot mismatch is recorded and the
// remaining steps still run; any other error stops the case and is returned
// with the partial result.
func (r *Runner) Run(ctx context.Context, caseName string, steps []Step) (*Result, error) {
	result := &Result{Case: caseName}

	for i := range steps {
		step := &steps[i]

		kind, err := step.Kind()
		if err != nil {
			return result, errors.Wrapf(err, "step %d", i+1)
		}

		sr := &StepResult{
			Index:  i + 1,
			Kind:   kind,
			Target: step.Target(),
			Status: StatusPassed,
		}
		result.Steps = append(result.Steps, sr)

		logger := r.logger.WithFields(logrus.Fields{
			"case":   caseName,
			"step":   kind,
			"target": sr.Target,
		})

		err = r.runStep(ctx, kind, step, sr)

		var assertErr *snapshot.AssertionFailedError
		switch {
		case err == nil:
			logger.Debug("UI step done")

		case errors.As(err, &assertErr):
			sr.Status = StatusFailed
			sr.Err = err
			logger.WithError(err).Error("Visual check failed")

		default:
			sr.Status = StatusError
			sr.Err = err
			logger.WithError(err).Error("UI step failed")

			return result, errors.Wrapf(err, "step %d (%s %s)", sr.Index, kind, sr.Target)
		}
	}

	return result, nil
}

func (r *Runner) opts(name string) poll.Options {
	opts := r.poll
	opts.Name = name
	return opts
}

func (r *Runner) runStep(ctx context.Context, kind Kind, step *Step, sr *StepResult) error {
	switch kind {
	case KindNavigate:
		path, err := payload.ExpandURL(step.Navigate, r.vars)
		if err != nil {
			return err
		}
		return r.surface.Navigate(ctx, path)

	case KindCheck:
		return poll.UntilChecked(ctx, r.surface.Element(step.Check), r.opts("checked "+step.Check))

	case KindUncheck:
		return poll.UntilUnchecked(ctx, r.surface.Element(step.Uncheck), r.opts("unchecked "+step.Uncheck))

	case KindReveal:
		return poll.UntilVisible(ctx,
			r.surface.Element(step.Reveal.Click),
			r.surface.Element(step.Reveal.Visible),
			r.opts("visible "+step.Reveal.Visible),
		)

	case KindFill:
		value, err := payload.Expand(step.Fill.Value, r.vars, nil)
		if err != nil {
			return err
		}
		return poll.UntilFilled(ctx, r.surface.Element(step.Fill.Selector), value, r.opts("value of "+step.Fill.Selector))

	case KindHide:
		return r.surface.Hide(ctx, step.Hide, r.opts("visible "+step.Hide))

	case KindSnapshot:
		var capturer snapshot.Capturer = r.surface.Page()
		if step.Snapshot.Selector != "" {
			capturer = r.surface.Element(step.Snapshot.Selector)
		}

		cmp, err := r.store.CompareOrEstablish(ctx, capturer, step.Snapshot.Baseline, step.Snapshot.Current)
		sr.Comparison = cmp
		return err
	}

	return errors.Errorf("unknown step kind %q", kind)
}
