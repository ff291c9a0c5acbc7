package export

import (
	"fmt"
	"slices"
	"strings"

	"github.com/abworrall/rawls-accum/pkg/radiance"
)

// OutputKind says what sort of snapshot to write.
type OutputKind int

const (
	RawBuffer    OutputKind = iota // the .rawls accumulation format, lossless
	DisplayImage                   // 8-bit sRGB raster, tonemapped
	LinearHDR                      // floating point radiance, not tonemapped
)

func (k OutputKind) String() string {
	switch k {
	case RawBuffer:
		return "raw"
	case DisplayImage:
		return "display"
	case LinearHDR:
		return "hdr"
	}
	return fmt.Sprintf("OutputKind(%d)", int(k))
}

// Containers for each kind; the first one listed is the default.
var (
	RawContainers    = []string{"rawls"}
	RasterContainers = []string{"png", "tiff", "bmp"}
	HDRContainers    = []string{"hdr", "exr"}
)

// ParseFormat maps a container name (a file extension, with or without the
// leading dot) onto the kind of output it holds.
func ParseFormat(name string) (OutputKind, string, error) {
	name = strings.TrimPrefix(strings.ToLower(name), ".")

	switch {
	case slices.Contains(RawContainers, name):
		return RawBuffer, name, nil
	case slices.Contains(RasterContainers, name):
		return DisplayImage, name, nil
	case slices.Contains(HDRContainers, name):
		return LinearHDR, name, nil
	}
	return 0, "", fmt.Errorf("%w: no output format '%s'", radiance.ErrInvalidConfiguration, name)
}
