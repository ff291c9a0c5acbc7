package radiance

import (
	"fmt"
	"strings"
)

// Flip names a mirroring of the pixel grid.
type Flip int

const (
	FlipNone Flip = iota
	FlipHorizontal
	FlipVertical
)

func (f Flip) String() string {
	switch f {
	case FlipNone:
		return "none"
	case FlipHorizontal:
		return "horizontal"
	case FlipVertical:
		return "vertical"
	}
	return fmt.Sprintf("Flip(%d)", int(f))
}

// ParseFlip accepts the long names, and the single letters used on the command line.
func ParseFlip(s string) (Flip, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return FlipNone, nil
	case "h", "horizontal":
		return FlipHorizontal, nil
	case "v", "vertical":
		return FlipVertical, nil
	}
	return FlipNone, fmt.Errorf("%w: no flip named '%s'", ErrInvalidConfiguration, s)
}

// Apply mirrors the buffer in place.
func (b *Buffer) Apply(f Flip) {
	switch f {
	case FlipHorizontal:
		b.FlipHorizontal()
	case FlipVertical:
		b.FlipVertical()
	}
}

// FlipHorizontal reverses each row in place: column x becomes column width-1-x.
func (b *Buffer) FlipHorizontal() {
	for y := 0; y < b.height; y++ {
		for l, r := 0, b.width-1; l < r; l, r = l+1, r-1 {
			pl, pr := b.Pixel(l, y), b.Pixel(r, y)
			for c := range pl {
				pl[c], pr[c] = pr[c], pl[c]
			}
		}
	}
}

// FlipVertical reverses the order of the rows in place.
func (b *Buffer) FlipVertical() {
	stride := b.width * b.channels
	tmp := make([]float64, stride)
	for t, u := 0, b.height-1; t < u; t, u = t+1, u-1 {
		top := b.Pix[t*stride : (t+1)*stride]
		bot := b.Pix[u*stride : (u+1)*stride]
		copy(tmp, top)
		copy(top, bot)
		copy(bot, tmp)
	}
}
