// Package snapshot stores reference screenshots and compares fresh captures
// against them.
package snapshot

import (
	"bytes"
	"context"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wallarm/gotestflow/internal/helpers"
	"github.com/wallarm/gotestflow/internal/poll"
)

const (
	DefaultSettleDelay = 1500 * time.Millisecond

	diffSuffix = "-diff.png"
)

// Capturer produces an encoded image of the element or page under test.
type Capturer interface {
	Capture(ctx context.Context) ([]byte, error)
}

// CaptureFunc adapts a function to the Capturer interface.
type CaptureFunc func(ctx context.Context) ([]byte, error)

func (f CaptureFunc) Capture(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

// Options tune settling and comparison tolerance.
type Options struct {
	// SettleDelay is slept before capturing unless Ready is set.
	SettleDelay time.Duration

	// Ready, when set, is polled instead of sleeping SettleDelay.
	Ready     poll.Predicate
	ReadyPoll poll.Options

	// MaxDiffPixelRatio is the allowed fraction of differing pixels.
	MaxDiffPixelRatio float64

	// PixelThreshold is the per-channel tolerance of a single pixel (0..1).
	PixelThreshold float64
}

// ComparisonResult describes one comparison.
type ComparisonResult struct {
	Matched     bool
	DiffRatio   float64
	Established bool

	Baseline string
	Current  string
	Diff     string
}

// Store keeps baselines and current captures of one case directory.
type Store struct {
	dir    string
	opts   Options
	logger *logrus.Logger
}

func NewStore(logger *logrus.Logger, dir string, opts Options) *Store {
	if opts.SettleDelay <= 0 && opts.Ready == nil {
		opts.SettleDelay = DefaultSettleDelay
	}

	return &Store{
		dir:    dir,
		opts:   opts,
		logger: logger,
	}
}

func (s *Store) path(name string) (string, error) {
	if name == "" {
		return "", errors.New("empty snapshot name")
	}

	clean := filepath.Clean(name)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("snapshot name %q escapes the artifact directory", name)
	}

	return filepath.Join(s.dir, clean), nil
}

// CompareOrEstablish settles the surface, bootstraps the baseline from a
// first capture when it does not exist yet, persists an independent second
// capture as currentName and compares it with the baseline.
//
// A mismatch returns the result together with an *AssertionFailedError.
func (s *Store) CompareOrEstablish(
	ctx context.Context,
	capturer Capturer,
	baselineName string,
	currentName string,
) (*ComparisonResult, error) {
	baselinePath, err := s.path(baselineName)
	if err != nil {
		return nil, err
	}

	currentPath, err := s.path(currentName)
	if err != nil {
		return nil, err
	}

	diffPath := strings.TrimSuffix(currentPath, filepath.Ext(currentPath)) + diffSuffix
	if currentPath == baselinePath || diffPath == baselinePath {
		return nil, &ArtifactConflictError{Baseline: baselineName, Current: currentName}
	}

	if err = s.settle(ctx); err != nil {
		return nil, errors.Wrap(err, "surface did not settle")
	}

	result := &ComparisonResult{
		Baseline: baselinePath,
		Current:  currentPath,
	}

	logger := s.logger.WithFields(logrus.Fields{
		"baseline": baselinePath,
		"current":  currentPath,
	})

	first, err := s.capture(ctx, capturer, baselineName)
	if err != nil {
		return nil, err
	}

	_, err = os.Stat(baselinePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err = helpers.WriteFile(baselinePath, first); err != nil {
			return nil, errors.Wrap(err, "couldn't save baseline")
		}

		result.Established = true
		logger.Info("Baseline not found, the capture was saved as the new baseline")

	case err != nil:
		return nil, errors.Wrap(err, "couldn't check baseline")
	}

	current, err := s.capture(ctx, capturer, currentName)
	if err != nil {
		return nil, err
	}

	if err = helpers.WriteFile(currentPath, current); err != nil {
		return nil, errors.Wrap(err, "couldn't save current capture")
	}

	baseline, err := os.ReadFile(baselinePath)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't read baseline")
	}

	diff, err := Compare(baseline, current, s.opts.PixelThreshold)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't compare captures")
	}

	result.DiffRatio = diff.Ratio
	result.Matched = diff.Ratio <= s.opts.MaxDiffPixelRatio

	logger = logger.WithField("diff_ratio", diff.Ratio)

	if result.Matched {
		logger.Debug("Capture matches the baseline")
		return result, nil
	}

	if diff.Image != nil {
		result.Diff = diffPath

		diffPNG, errEnc := EncodeDiff(diff)
		if errEnc == nil {
			errEnc = helpers.WriteFile(result.Diff, diffPNG)
		}
		if errEnc != nil {
			logger.WithError(errEnc).Warn("Couldn't save diff image")
			result.Diff = ""
		}
	}

	logger.Error("Capture differs from the baseline")

	return result, &AssertionFailedError{
		Baseline:  baselinePath,
		Current:   currentPath,
		DiffRatio: diff.Ratio,
		Allowed:   s.opts.MaxDiffPixelRatio,
	}
}

func (s *Store) settle(ctx context.Context) error {
	if s.opts.Ready != nil {
		opts := s.opts.ReadyPoll
		if opts.Name == "" {
			opts.Name = "snapshot readiness"
		}

		return poll.Wait(ctx, s.opts.Ready, opts)
	}

	timer := time.NewTimer(s.opts.SettleDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Store) capture(ctx context.Context, capturer Capturer, name string) ([]byte, error) {
	data, err := capturer.Capture(ctx)
	if err != nil {
		return nil, &CaptureError{Name: name, Err: err}
	}
	if len(data) == 0 {
		return nil, &CaptureError{Name: name}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err == nil && (cfg.Width == 0 || cfg.Height == 0) {
		return nil, &CaptureError{Name: name, Err: errors.New("zero-size image")}
	}

	return data, nil
}
