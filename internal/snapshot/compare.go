package snapshot

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	_ "image/jpeg"
)

// Diff holds the outcome of a pixel comparison.
type Diff struct {
	Ratio      float64
	Pixels     int
	Total      int
	SizeDiffer bool

	// Image marks differing pixels in red. It is nil when the images
	// could not be compared pixel by pixel.
	Image *image.NRGBA
}

// Compare computes the fraction of pixels that differ between two encoded
// images. A pixel differs when any channel moves by more than threshold
// (0..1). Images that cannot be decoded are compared byte by byte.
func Compare(baseline, current []byte, threshold float64) (*Diff, error) {
	baseImg, _, errBase := image.Decode(bytes.NewReader(baseline))
	curImg, _, errCur := image.Decode(bytes.NewReader(current))
	if errBase != nil || errCur != nil {
		d := &Diff{Total: 1}
		if !bytes.Equal(baseline, current) {
			d.Ratio = 1
			d.Pixels = 1
		}
		return d, nil
	}

	bb := baseImg.Bounds()
	cb := curImg.Bounds()

	if bb.Dx() != cb.Dx() || bb.Dy() != cb.Dy() {
		total := max(bb.Dx()*bb.Dy(), cb.Dx()*cb.Dy())
		return &Diff{Ratio: 1, Pixels: total, Total: total, SizeDiffer: true}, nil
	}

	total := bb.Dx() * bb.Dy()
	if total == 0 {
		return &Diff{}, nil
	}

	limit := uint32(threshold * 0xffff)
	diffImg := image.NewNRGBA(image.Rect(0, 0, bb.Dx(), bb.Dy()))
	pixels := 0

	for y := 0; y < bb.Dy(); y++ {
		for x := 0; x < bb.Dx(); x++ {
			b := baseImg.At(bb.Min.X+x, bb.Min.Y+y)
			c := curImg.At(cb.Min.X+x, cb.Min.Y+y)

			if channelDelta(b, c) > limit {
				pixels++
				diffImg.SetNRGBA(x, y, color.NRGBA{R: 0xff, A: 0xff})
				continue
			}

			gray := color.GrayModel.Convert(b).(color.Gray)
			diffImg.SetNRGBA(x, y, color.NRGBA{R: gray.Y, G: gray.Y, B: gray.Y, A: 0x40})
		}
	}

	return &Diff{
		Ratio:  float64(pixels) / float64(total),
		Pixels: pixels,
		Total:  total,
		Image:  diffImg,
	}, nil
}

func channelDelta(a, b color.Color) uint32 {
	ar, ag, ab, aa := a.RGBA()
	br, bg, bb, ba := b.RGBA()

	return max(absDiff(ar, br), absDiff(ag, bg), absDiff(ab, bb), absDiff(aa, ba))
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

// EncodeDiff renders the diff image as PNG.
func EncodeDiff(d *Diff) ([]byte, error) {
	if d == nil || d.Image == nil {
		return nil, nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, d.Image); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
