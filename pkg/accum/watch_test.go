package accum

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/rawls-accum/pkg/radiance"
	"github.com/abworrall/rawls-accum/pkg/rawls"
)

// dropBuffer writes a buffer under a temporary name, then renames it into
// place, the way a renderer should.
func dropBuffer(t *testing.T, dir, name string, samples int, v float64) {
	t.Helper()
	b, err := radiance.New(2, 2, 3, samples)
	require.NoError(t, err)
	for i := range b.Pix {
		b.Pix[i] = v
	}
	tmp := filepath.Join(dir, name+".tmp")
	require.NoError(t, rawls.Save(tmp, b, true))
	require.NoError(t, os.Rename(tmp, filepath.Join(dir, name)))
}

func TestWatch(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()

	dropBuffer(t, in, "pass-000.rawls", 10, 1.0)

	cfg := testConfig(20)
	cfg.Output = out
	cfg.BaseName = "live"
	cfg.Format = "rawls"
	a, err := NewAccumulator(cfg)
	require.NoError(t, err)

	var mu sync.Mutex
	loaded := 0
	a.Load = func(filename string) (*radiance.Buffer, error) {
		mu.Lock()
		defer mu.Unlock()
		loaded++
		return rawls.Load(filename)
	}
	countLoaded := func() int {
		mu.Lock()
		defer mu.Unlock()
		return loaded
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type result struct {
		merged *radiance.Buffer
		err    error
	}
	done := make(chan result, 1)
	go func() {
		merged, err := a.Watch(ctx, in)
		done <- result{merged, err}
	}()

	require.Eventually(t, func() bool { return countLoaded() >= 1 }, 5*time.Second, 10*time.Millisecond)

	dropBuffer(t, in, "pass-001.rawls", 10, 3.0)

	snap := filepath.Join(out, "live_00020.rawls")
	require.Eventually(t, func() bool {
		_, err := os.Stat(snap)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	var r result
	select {
	case r = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Watch didn't return after cancel")
	}

	require.NoError(t, r.err)
	require.NotNil(t, r.merged)
	assert.Equal(t, 20, r.merged.Samples)
	assert.InDelta(t, 2.0, r.merged.Pix[0], 1e-6)

	b, err := rawls.Load(snap)
	require.NoError(t, err)
	assert.Equal(t, 20, b.Samples)
}

// watchRun is a Watch running in the background, with a count of the
// loads of each file and of the ones that succeeded.
type watchRun struct {
	mu        sync.Mutex
	attempts  map[string]int
	succeeded map[string]int

	cancel context.CancelFunc
	done   chan struct{}
	merged *radiance.Buffer
	err    error
}

func startWatch(t *testing.T, a *Accumulator, dir string) *watchRun {
	t.Helper()
	w := &watchRun{
		attempts:  map[string]int{},
		succeeded: map[string]int{},
		done:      make(chan struct{}),
	}
	a.Load = func(filename string) (*radiance.Buffer, error) {
		b, err := rawls.Load(filename)
		w.mu.Lock()
		defer w.mu.Unlock()
		w.attempts[filepath.Base(filename)]++
		if err == nil {
			w.succeeded[filepath.Base(filename)]++
		}
		return b, err
	}

	var ctx context.Context
	ctx, w.cancel = context.WithCancel(context.Background())
	go func() {
		w.merged, w.err = a.Watch(ctx, dir)
		close(w.done)
	}()
	t.Cleanup(w.cancel)
	return w
}

func (w *watchRun) counts(name string) (attempts, succeeded int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.attempts[name], w.succeeded[name]
}

func (w *watchRun) stop(t *testing.T) {
	t.Helper()
	w.cancel()
	select {
	case <-w.done:
	case <-time.After(5 * time.Second):
		t.Fatal("Watch didn't return after cancel")
	}
}

func TestWatch_RetriesIncompleteFile(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	dropBuffer(t, in, "pass-000.rawls", 10, 1.0)

	cfg := testConfig(20)
	cfg.Output = out
	cfg.BaseName = "live"
	cfg.Format = "rawls"
	a, err := NewAccumulator(cfg)
	require.NoError(t, err)

	w := startWatch(t, a, in)
	require.Eventually(t, func() bool {
		_, n := w.counts("pass-000.rawls")
		return n == 1
	}, 5*time.Second, 10*time.Millisecond)

	// Written in place, in two goes, the way a slow renderer would
	b, err := radiance.New(2, 2, 3, 10)
	require.NoError(t, err)
	for i := range b.Pix {
		b.Pix[i] = 3.0
	}
	var encoded bytes.Buffer
	require.NoError(t, rawls.Encode(&encoded, b, false))
	data := encoded.Bytes()
	half := len(data) - len(b.Pix)*4/2

	filename := filepath.Join(in, "pass-001.rawls")
	require.NoError(t, os.WriteFile(filename, data[:half], 0o644))

	require.Eventually(t, func() bool {
		attempts, _ := w.counts("pass-001.rawls")
		return attempts >= 1
	}, 5*time.Second, 10*time.Millisecond)
	_, succeeded := w.counts("pass-001.rawls")
	require.Equal(t, 0, succeeded, "half a payload must not load")

	f, err := os.OpenFile(filename, os.O_WRONLY|os.O_APPEND, 0)
	require.NoError(t, err)
	_, err = f.Write(data[half:])
	require.NoError(t, err)
	require.NoError(t, f.Close())

	snap := filepath.Join(out, "live_00020.rawls")
	require.Eventually(t, func() bool {
		_, err := os.Stat(snap)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	w.stop(t)
	require.NoError(t, w.err)
	require.NotNil(t, w.merged)
	assert.Equal(t, 20, w.merged.Samples, "incomplete file fused exactly once")
	assert.InDelta(t, 2.0, w.merged.Pix[0], 1e-6)

	attempts, succeeded := w.counts("pass-001.rawls")
	assert.Equal(t, 1, succeeded)
	assert.GreaterOrEqual(t, attempts, 2)
}

func TestWatch_TopLevelOnly(t *testing.T) {
	in := t.TempDir()
	sub := filepath.Join(in, "old")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	dropBuffer(t, sub, "stale.rawls", 50, 9.0)
	dropBuffer(t, in, "pass-000.rawls", 10, 1.0)

	a, err := NewAccumulator(testConfig(1000))
	require.NoError(t, err)

	w := startWatch(t, a, in)
	require.Eventually(t, func() bool {
		_, n := w.counts("pass-000.rawls")
		return n == 1
	}, 5*time.Second, 10*time.Millisecond)

	w.stop(t)
	require.NoError(t, w.err)
	assert.Equal(t, 10, w.merged.Samples)
	attempts, _ := w.counts("stale.rawls")
	assert.Zero(t, attempts, "subdirectories are not read")
}

func TestWatch_MissingDir(t *testing.T) {
	a, err := NewAccumulator(testConfig(10))
	require.NoError(t, err)

	_, err = a.Watch(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
