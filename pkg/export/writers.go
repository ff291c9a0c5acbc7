package export

// The writers for each container. These are thin wrappers around the
// third party encoders.

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mrjoshuak/go-openexr/exr"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/abworrall/rawls-accum/pkg/radiance"
)

func WritePNG(filename string, img image.Image) error {
	return writeFile(filename, func(f *os.File) error { return png.Encode(f, img) })
}

func WriteTIFF(filename string, img image.Image) error {
	opts := &tiff.Options{Compression: tiff.Deflate}
	return writeFile(filename, func(f *os.File) error { return tiff.Encode(f, img, opts) })
}

func WriteBMP(filename string, img image.Image) error {
	return writeFile(filename, func(f *os.File) error { return bmp.Encode(f, img) })
}

// WriteRGBE outputs a Radiance .hdr file. You can load this into photoshop or other HDR tools.
func WriteRGBE(filename string, buf *radiance.Buffer) error {
	return writeFile(filename, func(f *os.File) error { return rgbe.Encode(f, buf) })
}

// WriteEXR outputs an OpenEXR file, half float RGBA with the alpha fully opaque.
func WriteEXR(filename string, buf *radiance.Buffer) error {
	img := exr.NewRGBAImage(buf.Bounds())
	for y := 0; y < buf.Height(); y++ {
		for x := 0; x < buf.Width(); x++ {
			rgb := buf.RGBAt(x, y)
			img.SetRGBA(x, y, float32(rgb.R), float32(rgb.G), float32(rgb.B), 1)
		}
	}

	return writeFile(filename, func(f *os.File) error { return exr.Encode(f, img) })
}

func writeFile(filename string, encode func(*os.File) error) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("open+w '%s': %w", filename, err)
	}

	if err := encode(f); err != nil {
		f.Close()
		return fmt.Errorf("encoding '%s': %w", filename, err)
	}
	return f.Close()
}
