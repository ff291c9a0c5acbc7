package radiance

import "fmt"

// Fuse combines two buffers into a new one, weighting each value by the
// number of samples behind it. The result carries the sum of both sample
// counts, so fusing partial renders one at a time gives the same running
// mean as averaging them all at once. Neither input is modified.
//
// If neither buffer has any samples, the result is all zeros.
func Fuse(a, b *Buffer) (*Buffer, error) {
	if !a.SameShape(b) {
		return nil, fmt.Errorf("fuse %dx%dx%d with %dx%dx%d: %w",
			a.width, a.height, a.channels, b.width, b.height, b.channels, ErrDimensionMismatch)
	}

	out := &Buffer{
		width:    a.width,
		height:   a.height,
		channels: a.channels,
		Samples:  a.Samples + b.Samples,
		Pix:      make([]float64, len(a.Pix)),
	}

	if out.Samples == 0 {
		return out, nil
	}

	n := float64(out.Samples)
	na := float64(a.Samples)
	nb := float64(b.Samples)
	for i := range out.Pix {
		out.Pix[i] = (a.Pix[i]*na + b.Pix[i]*nb) / n
	}

	return out, nil
}
