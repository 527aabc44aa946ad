package poll

import (
	"context"
	"strings"
)

// Clickable is an element that can receive a click.
type Clickable interface {
	Click(ctx context.Context) error
}

// Toggle is a binary control such as a checkbox.
type Toggle interface {
	Clickable
	IsChecked(ctx context.Context) (bool, error)
}

// Gate is a control that may be disabled until the page is ready.
type Gate interface {
	Clickable
	IsEnabled(ctx context.Context) (bool, error)
}

// Visible reports whether an element is currently rendered.
type Visible interface {
	IsVisible(ctx context.Context) (bool, error)
}

// Fillable is an input whose value can be set and read back.
type Fillable interface {
	Fill(ctx context.Context, value string) error
	Value(ctx context.Context) (string, error)
}

// UntilChecked clicks the toggle until it reports the "on" state. A toggle
// that is already on is left untouched.
func UntilChecked(ctx context.Context, toggle Toggle, opts Options) error {
	return untilToggled(ctx, toggle, true, opts)
}

// UntilUnchecked clicks the toggle until it reports the "off" state. A
// toggle that is already off is left untouched.
func UntilUnchecked(ctx context.Context, toggle Toggle, opts Options) error {
	return untilToggled(ctx, toggle, false, opts)
}

func untilToggled(ctx context.Context, toggle Toggle, want bool, opts Options) error {
	checked, err := toggle.IsChecked(ctx)
	if err == nil && checked == want {
		return nil
	}

	if opts.Name == "" {
		if want {
			opts.Name = "checked state"
		} else {
			opts.Name = "unchecked state"
		}
	}

	return Until(ctx, toggle.Click, func(ctx context.Context) (bool, error) {
		checked, err := toggle.IsChecked(ctx)
		if err != nil {
			return false, err
		}

		return checked == want, nil
	}, opts)
}

// GateMaxAttempts bounds the wait for a gate to become enabled before each
// click issued by UntilVisible.
const GateMaxAttempts = 10

// UntilVisible repeats a gating click until target becomes visible. Each
// click is issued only after the gate reports itself enabled.
func UntilVisible(ctx context.Context, gate Gate, target Visible, opts Options) error {
	if opts.Name == "" {
		opts.Name = "target visibility"
	}

	waitOpts := opts.normalize()
	waitOpts.MaxAttempts = min(waitOpts.MaxAttempts, GateMaxAttempts)
	waitOpts.Name = "gate enabled"

	click := func(ctx context.Context) error {
		err := Wait(ctx, gate.IsEnabled, waitOpts)
		if err != nil {
			return err
		}

		return gate.Click(ctx)
	}

	return Until(ctx, click, target.IsVisible, opts)
}

// UntilFilled fills the input until it holds a non-blank value. Empty
// values are not retried.
func UntilFilled(ctx context.Context, input Fillable, value string, opts Options) error {
	if value == "" {
		return nil
	}

	if opts.Name == "" {
		opts.Name = "input value"
	}

	return Until(ctx, func(ctx context.Context) error {
		return input.Fill(ctx, value)
	}, func(ctx context.Context) (bool, error) {
		current, err := input.Value(ctx)
		if err != nil {
			return false, err
		}

		return strings.TrimSpace(current) != "", nil
	}, opts)
}
