package accum

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/abworrall/rawls-accum/pkg/radiance"
)

// Watch fuses the .rawls files already in dir, then keeps fusing new ones
// as a renderer drops them in, in the order they show up. Only the top
// level of dir is read; subdirectories are ignored. A file whose
// data is still incomplete is skipped, and retried when it is next
// written to; writers that create the file under a temporary name and
// rename it into place avoid this altogether.
//
// Watch returns the merged buffer (nil if nothing has been fused) when
// ctx is done, or on the first error that Run would stop on.
func (a *Accumulator) Watch(ctx context.Context, dir string) (*radiance.Buffer, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	defer watcher.Close()

	// Start watching before listing, so nothing lands in between unseen
	if err := watcher.Add(dir); err != nil {
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	existing, err := listDirInputs(dir)
	if err != nil {
		return nil, err
	}

	var merged *radiance.Buffer
	seen := map[string]bool{}

	consider := func(filename string) error {
		filename = filepath.Clean(filename)
		if seen[filename] || !isInput(filename) {
			return nil
		}

		next, err := a.Add(merged, filename)
		merged = next
		if errors.Is(err, io.ErrUnexpectedEOF) {
			if a.Verbosity > 0 {
				log.Printf("%s is incomplete, will retry\n", filename)
			}
			return nil
		}
		seen[filename] = true
		if err != nil {
			return err
		}

		log.Printf("%s: %d samples\n", filepath.Base(filename), merged.Samples)
		return nil
	}

	for _, filename := range existing {
		if err := consider(filename); err != nil {
			return merged, err
		}
	}

	log.Printf("Watching %s for new buffers\n", dir)

	for {
		select {
		case <-ctx.Done():
			return merged, nil

		case err, ok := <-watcher.Errors:
			if !ok {
				return merged, nil
			}
			return merged, fmt.Errorf("watch %s: %w", dir, err)

		case ev, ok := <-watcher.Events:
			if !ok {
				return merged, nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if err := consider(ev.Name); err != nil {
				return merged, err
			}
		}
	}
}
