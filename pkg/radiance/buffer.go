// Package radiance holds the in-memory accumulation buffer, and the
// pure transforms over it: sample-weighted fusion and mirroring.
package radiance

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/mdouchement/hdr/hdrcolor"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrDimensionMismatch is returned when two buffers of different shape are combined.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrInvalidConfiguration is returned for settings that can't be acted on,
	// e.g. a non-positive checkpoint step or an unknown output kind.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrExportFailed wraps an error from one of the external encoders.
	ErrExportFailed = errors.New("export failed")
)

// A Buffer is a grid of linear radiance values, plus the number of
// Monte-Carlo samples that have been folded into them. Values are
// unbounded and are never clipped here.
type Buffer struct {
	width    int
	height   int
	channels int

	Samples int

	// Pix is row-major, with the channels of a pixel stored together:
	// Pix[(y*width + x)*channels + c]
	Pix []float64
}

// New allocates a zeroed buffer.
func New(width, height, channels, samples int) (*Buffer, error) {
	if width <= 0 || height <= 0 || channels <= 0 {
		return nil, fmt.Errorf("%w: buffer shape %dx%dx%d", ErrInvalidConfiguration, width, height, channels)
	}
	if samples < 0 {
		return nil, fmt.Errorf("%w: negative sample count %d", ErrInvalidConfiguration, samples)
	}

	return &Buffer{
		width:    width,
		height:   height,
		channels: channels,
		Samples:  samples,
		Pix:      make([]float64, width*height*channels),
	}, nil
}

func (b *Buffer) Width() int    { return b.width }
func (b *Buffer) Height() int   { return b.height }
func (b *Buffer) Channels() int { return b.channels }

func (b *Buffer) offset(x, y int) int { return (y*b.width + x) * b.channels }

func (b *Buffer) Value(x, y, c int) float64       { return b.Pix[b.offset(x, y)+c] }
func (b *Buffer) SetValue(x, y, c int, v float64) { b.Pix[b.offset(x, y)+c] = v }

// Pixel returns the channels of one pixel. The slice aliases Pix.
func (b *Buffer) Pixel(x, y int) []float64 {
	o := b.offset(x, y)
	return b.Pix[o : o+b.channels : o+b.channels]
}

// SameShape is true if both buffers have identical width, height and channel count.
func (b *Buffer) SameShape(o *Buffer) bool {
	return b.width == o.width && b.height == o.height && b.channels == o.channels
}

func (b *Buffer) Clone() *Buffer {
	c := *b
	c.Pix = make([]float64, len(b.Pix))
	copy(c.Pix, b.Pix)
	return &c
}

func (b *Buffer) String() string {
	return fmt.Sprintf("Buffer[%dx%dx%d, %d samples]", b.width, b.height, b.channels, b.Samples)
}

// Stats summarizes the radiance over every channel of every pixel.
type Stats struct {
	Min  float64
	Max  float64
	Mean float64
}

func (s Stats) String() string {
	return fmt.Sprintf("radiance{min %.6f, max %.6f, mean %.6f}", s.Min, s.Max, s.Mean)
}

func (b *Buffer) Stats() Stats {
	return Stats{
		Min:  floats.Min(b.Pix),
		Max:  floats.Max(b.Pix),
		Mean: stat.Mean(b.Pix, nil),
	}
}

// Implement image.Image, so the buffer can go straight into encoders
func (b *Buffer) ColorModel() color.Model { return hdrcolor.RGBModel }
func (b *Buffer) Bounds() image.Rectangle { return image.Rect(0, 0, b.width, b.height) }
func (b *Buffer) At(x, y int) color.Color { return b.HDRAt(x, y) }

// Implement hdr.Image
func (b *Buffer) HDRAt(x, y int) hdrcolor.Color { return b.RGBAt(x, y) }
func (b *Buffer) Size() int                     { return b.width * b.height }

// RGBAt returns the first three channels as linear RGB. A single channel
// buffer is treated as grey; a two channel one leaves blue at zero.
func (b *Buffer) RGBAt(x, y int) hdrcolor.RGB {
	p := b.Pixel(x, y)
	switch len(p) {
	case 1:
		return hdrcolor.RGB{R: p[0], G: p[0], B: p[0]}
	case 2:
		return hdrcolor.RGB{R: p[0], G: p[1]}
	default:
		return hdrcolor.RGB{R: p[0], G: p[1], B: p[2]}
	}
}
