package snapshot

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// solidPNG encodes a w*h image filled with c, with the first `changed`
// pixels painted with alt.
func solidPNG(t testing.TB, w, h int, c, alt color.Color, changed int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	n := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if n < changed {
				img.Set(x, y, alt)
			} else {
				img.Set(x, y, c)
			}
			n++
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("couldn't encode test image: %v", err)
	}
	return buf.Bytes()
}

var (
	white = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	black = color.NRGBA{A: 0xff}
)

type sequenceCapturer struct {
	frames [][]byte
	calls  int
}

func (s *sequenceCapturer) Capture(context.Context) ([]byte, error) {
	frame := s.frames[min(s.calls, len(s.frames)-1)]
	s.calls++
	return frame, nil
}

func newTestStore(dir string, ratio float64) *Store {
	return NewStore(testLogger(), dir, Options{
		SettleDelay:       time.Millisecond,
		MaxDiffPixelRatio: ratio,
	})
}

func TestBaselineBootstrapIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	frame := solidPNG(t, 10, 10, white, black, 0)
	store := newTestStore(dir, 0)

	first, err := store.CompareOrEstablish(context.Background(), &sequenceCapturer{frames: [][]byte{frame}}, "001.png", "current.png")
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if !first.Established || !first.Matched {
		t.Errorf("first run must establish and match: %+v", first)
	}

	second, err := store.CompareOrEstablish(context.Background(), &sequenceCapturer{frames: [][]byte{frame}}, "001.png", "current.png")
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if second.Established {
		t.Errorf("existing baseline must not be re-established")
	}
	if !second.Matched || second.DiffRatio != 0 {
		t.Errorf("second run must match: %+v", second)
	}

	for _, name := range []string{"001.png", "current.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s must exist: %v", name, err)
		}
	}
}

func TestCaptureIsTakenTwice(t *testing.T) {
	dir := t.TempDir()
	capturer := &sequenceCapturer{frames: [][]byte{
		solidPNG(t, 4, 4, white, black, 0),
		solidPNG(t, 4, 4, white, black, 16),
	}}

	result, err := newTestStore(dir, 0).CompareOrEstablish(context.Background(), capturer, "001.png", "current.png")

	var assertErr *AssertionFailedError
	if !errors.As(err, &assertErr) {
		t.Fatalf("independent second capture must be compared, got %v", err)
	}
	if capturer.calls != 2 {
		t.Errorf("expected 2 captures, got %d", capturer.calls)
	}
	if !result.Established || result.DiffRatio != 1 {
		t.Errorf("bad result: %+v", result)
	}
}

func TestMismatchKeepsBaseline(t *testing.T) {
	dir := t.TempDir()
	baseline := solidPNG(t, 10, 10, white, black, 0)
	if err := os.WriteFile(filepath.Join(dir, "001.png"), baseline, 0o644); err != nil {
		t.Fatal(err)
	}

	changed := solidPNG(t, 10, 10, white, black, 50)
	result, err := newTestStore(dir, 0.1).CompareOrEstablish(context.Background(), &sequenceCapturer{frames: [][]byte{changed}}, "001.png", "current.png")

	var assertErr *AssertionFailedError
	if !errors.As(err, &assertErr) {
		t.Fatalf("err should be an %T, got %v", assertErr, err)
	}
	if assertErr.DiffRatio != 0.5 {
		t.Errorf("bad diff ratio: %f", assertErr.DiffRatio)
	}
	if result == nil || result.Matched {
		t.Fatalf("result must be returned with Matched=false: %+v", result)
	}

	stored, err := os.ReadFile(filepath.Join(dir, "001.png"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(stored, baseline) {
		t.Errorf("baseline must never be overwritten")
	}

	current, err := os.ReadFile(filepath.Join(dir, "current.png"))
	if err != nil || !bytes.Equal(current, changed) {
		t.Errorf("current capture must be persisted on mismatch")
	}

	if result.Diff != filepath.Join(dir, "current-diff.png") {
		t.Errorf("bad diff path: %s", result.Diff)
	}
	if _, err := os.Stat(result.Diff); err != nil {
		t.Errorf("diff image must exist: %v", err)
	}
}

func TestTolerance(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "001.png"), solidPNG(t, 10, 10, white, black, 0), 0o644); err != nil {
		t.Fatal(err)
	}

	// one pixel of a hundred changed
	result, err := newTestStore(dir, 0.02).CompareOrEstablish(context.Background(),
		&sequenceCapturer{frames: [][]byte{solidPNG(t, 10, 10, white, black, 1)}}, "001.png", "current.png")
	if err != nil {
		t.Fatalf("difference within tolerance must pass: %v", err)
	}
	if result.DiffRatio != 0.01 {
		t.Errorf("bad diff ratio: %f", result.DiffRatio)
	}

	// slightly different shade is absorbed by the per-pixel threshold
	grey := color.NRGBA{R: 0xf0, G: 0xf0, B: 0xf0, A: 0xff}
	diff, err := Compare(solidPNG(t, 4, 4, white, white, 0), solidPNG(t, 4, 4, grey, grey, 0), 0.1)
	if err != nil {
		t.Fatal(err)
	}
	if diff.Ratio != 0 {
		t.Errorf("shade within threshold must not count: %f", diff.Ratio)
	}
}

func TestCaptureErrors(t *testing.T) {
	captureErr := errors.New("node not found")

	tests := []struct {
		name     string
		capturer Capturer
		wrapped  error
	}{
		{"empty", CaptureFunc(func(context.Context) ([]byte, error) { return nil, nil }), nil},
		{"failed", CaptureFunc(func(context.Context) ([]byte, error) { return nil, captureErr }), captureErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			_, err := newTestStore(dir, 0).CompareOrEstablish(context.Background(), tt.capturer, "001.png", "current.png")

			var capErr *CaptureError
			if !errors.As(err, &capErr) {
				t.Fatalf("err should be an %T, got %v", capErr, err)
			}
			if tt.wrapped != nil && !errors.Is(err, tt.wrapped) {
				t.Errorf("capture error must wrap the cause")
			}
			if _, err := os.Stat(filepath.Join(dir, "001.png")); !errors.Is(err, os.ErrNotExist) {
				t.Errorf("baseline must not be created from a failed capture")
			}
		})
	}
}

func TestSnapshotNameEscape(t *testing.T) {
	capturer := &sequenceCapturer{frames: [][]byte{solidPNG(t, 1, 1, white, white, 0)}}

	_, err := newTestStore(t.TempDir(), 0).CompareOrEstablish(context.Background(), capturer, "../001.png", "current.png")
	if err == nil {
		t.Errorf("baseline outside the artifact directory must be rejected")
	}
}

func TestCurrentNeverOverwritesBaseline(t *testing.T) {
	tests := []struct {
		baseline string
		current  string
	}{
		{"001.png", "001.png"},
		{"001.png", "./001.png"},
		{"shots/001.png", "shots/../shots/001.png"},
		{"current-diff.png", "current.png"},
	}

	for _, tc := range tests {
		dir := t.TempDir()
		baseline := solidPNG(t, 4, 4, white, black, 0)
		baselinePath := filepath.Join(dir, tc.baseline)
		if err := os.MkdirAll(filepath.Dir(baselinePath), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(baselinePath, baseline, 0o644); err != nil {
			t.Fatal(err)
		}

		capturer := &sequenceCapturer{frames: [][]byte{solidPNG(t, 4, 4, white, black, 16)}}

		result, err := newTestStore(dir, 0).CompareOrEstablish(context.Background(), capturer, tc.baseline, tc.current)

		var conflict *ArtifactConflictError
		if !errors.As(err, &conflict) || result != nil {
			t.Errorf("%s/%s: err should be an %T, got %v", tc.baseline, tc.current, conflict, err)
		}
		if capturer.calls != 0 {
			t.Errorf("%s/%s: nothing must be captured", tc.baseline, tc.current)
		}

		stored, err := os.ReadFile(baselinePath)
		if err != nil || !bytes.Equal(stored, baseline) {
			t.Errorf("%s/%s: baseline must be kept", tc.baseline, tc.current)
		}
	}
}

func TestReadyPredicateReplacesDelay(t *testing.T) {
	checks := 0
	store := NewStore(testLogger(), t.TempDir(), Options{
		Ready: func(context.Context) (bool, error) {
			checks++
			return checks >= 2, nil
		},
	})
	store.opts.ReadyPoll.Interval = time.Millisecond

	frame := solidPNG(t, 2, 2, white, white, 0)
	if _, err := store.CompareOrEstablish(context.Background(), &sequenceCapturer{frames: [][]byte{frame}}, "a.png", "b.png"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if checks != 2 {
		t.Errorf("readiness must be polled until true, got %d checks", checks)
	}
}

func TestCompareSizeMismatch(t *testing.T) {
	diff, err := Compare(solidPNG(t, 2, 2, white, white, 0), solidPNG(t, 3, 2, white, white, 0), 0)
	if err != nil {
		t.Fatal(err)
	}
	if diff.Ratio != 1 || !diff.SizeDiffer {
		t.Errorf("different sizes must not match: %+v", diff)
	}
}

func TestCompareUndecodable(t *testing.T) {
	diff, _ := Compare([]byte("raw"), []byte("raw"), 0)
	if diff.Ratio != 0 {
		t.Errorf("equal bytes must match")
	}

	diff, _ = Compare([]byte("raw"), []byte("other"), 0)
	if diff.Ratio != 1 {
		t.Errorf("different bytes must not match")
	}
}

func TestDiffRatioMatchesChangedPixels(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("ratio equals changed/total and stays within [0, 1]", prop.ForAll(
		func(w, h, changed int) bool {
			changed = changed % (w*h + 1)

			diff, err := Compare(solidPNG(t, w, h, white, black, 0), solidPNG(t, w, h, white, black, changed), 0)
			if err != nil {
				return false
			}

			return diff.Ratio >= 0 && diff.Ratio <= 1 &&
				diff.Pixels == changed &&
				diff.Ratio == float64(changed)/float64(w*h)
		},
		gen.IntRange(1, 8),
		gen.IntRange(1, 8),
		gen.IntRange(0, 64),
	))

	properties.TestingRun(t)
}
