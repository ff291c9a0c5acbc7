// Package accum runs the accumulation pipeline: partial render buffers
// are loaded one at a time, in a fixed order, fused into a running
// estimate, and snapshots are written whenever the accumulated sample
// count calls for one.
package accum

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"github.com/abworrall/rawls-accum/pkg/export"
	"github.com/abworrall/rawls-accum/pkg/radiance"
	"github.com/abworrall/rawls-accum/pkg/rawls"
)

// An Exporter writes a snapshot; export.Dispatcher is the real one.
type Exporter interface {
	Export(buf *radiance.Buffer, kind export.OutputKind, filename string) error
	Ext(kind export.OutputKind) string
}

// A Loader reads one input buffer; rawls.Load is the real one.
type Loader func(filename string) (*radiance.Buffer, error)

// Accumulator folds input files into a merged buffer. It never keeps hold
// of the merged buffer itself: callers pass the current one in to Add and
// get the next one back.
type Accumulator struct {
	Config

	Kind      export.OutputKind
	Scheduler Scheduler
	Exporter  Exporter
	Load      Loader

	Checkpoints   []string // snapshot files written, in order
	FailedExports int      // snapshot writes that failed, with KeepGoing set

	flip radiance.Flip
}

// NewAccumulator validates the config; nothing is loaded or written yet.
func NewAccumulator(cfg Config) (*Accumulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sched, _ := NewScheduler(cfg.Step, Policy(cfg.Policy))
	kind, d, _ := cfg.exportSetup()
	flip, _ := radiance.ParseFlip(cfg.Flip)

	return &Accumulator{
		Config:    cfg,
		Kind:      kind,
		Scheduler: sched,
		Exporter:  d,
		Load:      rawls.Load,
		flip:      flip,
	}, nil
}

// Add loads filename and fuses it into merged (nil before the first input),
// writing a checkpoint if the new sample count calls for one.
//
// The returned buffer is always the newest valid estimate: on a load or
// fusion error it is merged, unchanged; if only the checkpoint write
// failed it is the newly fused buffer, returned alongside an error that
// matches radiance.ErrExportFailed.
func (a *Accumulator) Add(merged *radiance.Buffer, filename string) (*radiance.Buffer, error) {
	next, err := loadInput(a.Load, a.flip, filename)
	if err != nil {
		return merged, err
	}

	prior := 0
	if merged != nil {
		prior = merged.Samples
		if next, err = radiance.Fuse(merged, next); err != nil {
			return merged, fmt.Errorf("fuse %s: %w", filename, err)
		}
	}

	if !a.Scheduler.ShouldCheckpoint(prior, next.Samples) {
		return next, nil
	}

	if err := a.checkpoint(next); err != nil {
		if !a.KeepGoing {
			return next, err
		}
		a.FailedExports++
		log.Printf("Checkpoint at %d samples failed, carrying on: %v\n", next.Samples, err)
	}
	return next, nil
}

func (a *Accumulator) checkpoint(buf *radiance.Buffer) error {
	filename := filepath.Join(a.Output, CheckpointName(a.GetBaseName(), buf.Samples, a.Exporter.Ext(a.Kind)))

	if err := a.Exporter.Export(buf, a.Kind, filename); err != nil {
		return err
	}

	a.Checkpoints = append(a.Checkpoints, filename)
	log.Printf("Number of samples is now %d, wrote %s\n", buf.Samples, filename)
	if a.Verbosity > 0 {
		log.Printf("  %s %s\n", buf, buf.Stats())
	}
	return nil
}

// Run fuses all the files, in the order given, and returns the final
// merged buffer. Any load or fusion error stops the run, as does a
// checkpoint failure unless KeepGoing is set. The context is checked
// between files.
func (a *Accumulator) Run(ctx context.Context, filenames []string) (*radiance.Buffer, error) {
	var merged *radiance.Buffer

	for i, filename := range filenames {
		if err := ctx.Err(); err != nil {
			return merged, err
		}

		var err error
		if merged, err = a.Add(merged, filename); err != nil {
			return merged, err
		}

		log.Printf("[%d/%d] %s: %d samples\n", i+1, len(filenames), filepath.Base(filename), merged.Samples)
	}

	if merged == nil {
		return nil, errors.New("no input buffers to fuse")
	}
	return merged, nil
}

func loadInput(load Loader, flip radiance.Flip, filename string) (*radiance.Buffer, error) {
	buf, err := load(filename)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filename, err)
	}
	buf.Apply(flip)
	return buf, nil
}
