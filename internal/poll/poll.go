// Package poll converges asynchronously rendered UI state by repeating an
// action and re-observing the result at a fixed interval.
package poll

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultInterval    = 200 * time.Millisecond
	DefaultMaxAttempts = 50
)

// Options bound a polling loop.
type Options struct {
	// Interval is the pause between an action and the observation that
	// follows it. Zero means DefaultInterval.
	Interval time.Duration

	// MaxAttempts is the number of action+observe rounds before the loop
	// gives up with a ConvergenceTimeoutError.
	MaxAttempts int

	// Name is used in error messages.
	Name string
}

func (o Options) normalize() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.Name == "" {
		o.Name = "condition"
	}

	return o
}

// Action performs one externally observable attempt. It must be safe to
// repeat.
type Action func(ctx context.Context) error

// Predicate re-observes state after an action.
type Predicate func(ctx context.Context) (bool, error)

// Until executes action, waits for the interval, evaluates predicate and
// repeats until the predicate holds or the attempts are exhausted.
func Until(ctx context.Context, action Action, predicate Predicate, opts Options) error {
	opts = opts.normalize()

	var lastErr error

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if action != nil {
			if err := action(ctx); err != nil {
				return errors.Wrapf(err, "%s: action failed on attempt %d", opts.Name, attempt)
			}
		}

		if err := sleep(ctx, opts.Interval); err != nil {
			return err
		}

		ok, err := predicate(ctx)
		if err != nil {
			// observation errors are treated as "not yet"
			lastErr = err
			continue
		}
		if ok {
			return nil
		}
	}

	return &ConvergenceTimeoutError{
		Name:     opts.Name,
		Attempts: opts.MaxAttempts,
		Interval: opts.Interval,
		LastErr:  lastErr,
	}
}

// Wait polls predicate without acting.
func Wait(ctx context.Context, predicate Predicate, opts Options) error {
	return Until(ctx, nil, predicate, opts)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
