// Package export writes snapshots of a radiance buffer. A Dispatcher
// routes each OutputKind to the writer for its container; the writers
// themselves wrap third party encoders and can be swapped out.
package export

import (
	"fmt"
	"image"
	"slices"

	"github.com/abworrall/rawls-accum/pkg/radiance"
	"github.com/abworrall/rawls-accum/pkg/rawls"
)

// A BufferWriter saves the raw values of a buffer.
type BufferWriter func(filename string, buf *radiance.Buffer) error

// An ImageWriter saves an already tonemapped image.
type ImageWriter func(filename string, img image.Image) error

type Options struct {
	Raster   string // container for DisplayImage: png, tiff, bmp
	HDR      string // container for LinearHDR: hdr, exr
	Operator string // how DisplayImage gets to 8 bits: srgb, or one of the global tonemappers
	Annotate bool   // stamp the sample count onto display images
	Compress bool   // zstd the payload of RawBuffer files
}

type Dispatcher struct {
	Options

	WriteRaw    BufferWriter
	WriteRaster ImageWriter
	WriteHDR    BufferWriter
}

// NewDispatcher fills in defaults for empty options and picks the writers.
func NewDispatcher(opts Options) (*Dispatcher, error) {
	if opts.Raster == "" {
		opts.Raster = RasterContainers[0]
	}
	if opts.HDR == "" {
		opts.HDR = HDRContainers[0]
	}
	if opts.Operator == "" {
		opts.Operator = OperatorSRGB
	}

	if !slices.Contains(Operators, opts.Operator) {
		return nil, fmt.Errorf("%w: no tonemapping operator '%s', wanted %v",
			radiance.ErrInvalidConfiguration, opts.Operator, Operators)
	}

	d := &Dispatcher{
		Options: opts,
		WriteRaw: func(filename string, buf *radiance.Buffer) error {
			return rawls.Save(filename, buf, opts.Compress)
		},
	}

	switch opts.Raster {
	case "png":
		d.WriteRaster = WritePNG
	case "tiff":
		d.WriteRaster = WriteTIFF
	case "bmp":
		d.WriteRaster = WriteBMP
	default:
		return nil, fmt.Errorf("%w: no raster format '%s', wanted %v",
			radiance.ErrInvalidConfiguration, opts.Raster, RasterContainers)
	}

	switch opts.HDR {
	case "hdr":
		d.WriteHDR = WriteRGBE
	case "exr":
		d.WriteHDR = WriteEXR
	default:
		return nil, fmt.Errorf("%w: no HDR format '%s', wanted %v",
			radiance.ErrInvalidConfiguration, opts.HDR, HDRContainers)
	}

	return d, nil
}

// Ext is the filename extension (with the dot) that Export will write for kind.
func (d *Dispatcher) Ext(kind OutputKind) string {
	switch kind {
	case RawBuffer:
		return rawls.Ext
	case DisplayImage:
		return "." + d.Raster
	case LinearHDR:
		return "." + d.HDR
	}
	return ""
}

// Export writes buf to filename. The directory must already exist. If the
// writer fails, the error matches both radiance.ErrExportFailed and the
// underlying cause.
func (d *Dispatcher) Export(buf *radiance.Buffer, kind OutputKind, filename string) error {
	var err error

	switch kind {
	case RawBuffer:
		err = d.WriteRaw(filename, buf)
	case DisplayImage:
		err = d.WriteRaster(filename, d.Display(buf))
	case LinearHDR:
		err = d.WriteHDR(filename, buf) // linear values go out untouched
	default:
		return fmt.Errorf("%w: can't export %s", radiance.ErrInvalidConfiguration, kind)
	}

	if err != nil {
		return fmt.Errorf("%w: %s '%s': %w", radiance.ErrExportFailed, kind, filename, err)
	}
	return nil
}

// Display produces the 8-bit image that a DisplayImage export would encode.
func (d *Dispatcher) Display(buf *radiance.Buffer) image.Image {
	var img image.Image
	if d.Operator == OperatorSRGB {
		img = ToDisplay(buf)
	} else {
		img = setupTonemapper(d.Operator, buf).Perform()
	}

	if d.Annotate {
		img = annotate(img, fmt.Sprintf("%d spp", buf.Samples))
	}
	return img
}
