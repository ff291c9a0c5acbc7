package accum

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"strings"

	"github.com/abworrall/rawls-accum/pkg/export"
	"github.com/abworrall/rawls-accum/pkg/radiance"
	"github.com/abworrall/rawls-accum/pkg/rawls"
)

// A Converter rewrites each input on its own (optionally flipped) into
// the configured format, with no fusion and no checkpoint step.
type Converter struct {
	Config

	Kind     export.OutputKind
	Exporter Exporter
	Load     Loader

	flip radiance.Flip
}

func NewConverter(cfg Config) (*Converter, error) {
	if err := cfg.validateOutput(); err != nil {
		return nil, err
	}

	kind, d, _ := cfg.exportSetup()
	flip, _ := radiance.ParseFlip(cfg.Flip)

	return &Converter{
		Config:   cfg,
		Kind:     kind,
		Exporter: d,
		Load:     rawls.Load,
		flip:     flip,
	}, nil
}

// OutputName maps an input file onto its converted name in the output dir,
// e.g. "in/pass-01.rawls" -> "<Output>/pass-01.png".
func (c *Converter) OutputName(filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(c.Output, base+c.Exporter.Ext(c.Kind))
}

// Convert writes one output per input, and returns the names written.
// Failed writes are skipped if KeepGoing is set; the returned error then
// joins them all.
func (c *Converter) Convert(ctx context.Context, filenames []string) ([]string, error) {
	written := []string{}
	var failed []error

	for i, filename := range filenames {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		buf, err := loadInput(c.Load, c.flip, filename)
		if err != nil {
			return written, err
		}

		out := c.OutputName(filename)
		if err := c.Exporter.Export(buf, c.Kind, out); err != nil {
			if !c.KeepGoing {
				return written, err
			}
			log.Printf("Skipping %s: %v\n", filename, err)
			failed = append(failed, err)
			continue
		}

		written = append(written, out)
		log.Printf("[%d/%d] %s -> %s\n", i+1, len(filenames), filepath.Base(filename), out)
	}

	return written, errors.Join(failed...)
}
