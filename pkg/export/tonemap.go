package export

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/mdouchement/hdr/tmo"

	"github.com/abworrall/rawls-accum/pkg/emath"
	"github.com/abworrall/rawls-accum/pkg/radiance"
)

// OperatorSRGB is the default: each channel gamma encoded on its own, see emath.ToDisplayRange.
const OperatorSRGB = "srgb"

var (
	Operators = []string{OperatorSRGB, "linear", "reinhard05", "drago03"}
)

// ToDisplay gamma encodes every pixel into an opaque 8-bit RGB image. Only
// the first three channels are shown (see radiance.Buffer.RGBAt); any
// further channels are dropped, as they are for LinearHDR. Only RawBuffer
// output keeps them.
func ToDisplay(buf *radiance.Buffer) *image.NRGBA {
	img := image.NewNRGBA(buf.Bounds())

	for y := 0; y < buf.Height(); y++ {
		for x := 0; x < buf.Width(); x++ {
			rgb := buf.RGBAt(x, y)
			img.SetNRGBA(x, y, color.NRGBA{
				R: emath.ToDisplayRange(rgb.R),
				G: emath.ToDisplayRange(rgb.G),
				B: emath.ToDisplayRange(rgb.B),
				A: 0xff,
			})
		}
	}

	return img
}

// The global operators look at the whole image before mapping any pixel,
// which helps when the render has a few very hot pixels (fireflies).
func setupTonemapper(name string, buf *radiance.Buffer) tmo.ToneMappingOperator {
	switch name {
	case "linear":
		return tmo.NewLinear(buf)
	case "reinhard05":
		return tmo.NewDefaultReinhard05(buf)
	case "drago03":
		return tmo.NewDefaultDrago03(buf)
	}
	// NewDispatcher has already checked the name
	panic("no tonemapper named " + name)
}

func annotate(img image.Image, text string) image.Image {
	dc := gg.NewContextForImage(img)
	dc.SetRGB(0, 0, 0)
	dc.DrawString(text, 5, 15)
	dc.SetRGB(1, 1, 1)
	dc.DrawString(text, 4, 14)
	return dc.Image()
}
