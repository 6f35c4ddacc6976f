// Package flusher periodically persists a grid or overlay as a snapshot.
package flusher

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/banshee-data/flaggrid/internal/grid"
	"github.com/banshee-data/flaggrid/internal/layout"
	"github.com/banshee-data/flaggrid/internal/metrics"
	"github.com/banshee-data/flaggrid/internal/overlay"
	"github.com/banshee-data/flaggrid/internal/storage"
	"github.com/banshee-data/flaggrid/internal/timeutil"
)

// Source produces the layout to persist.
type Source interface {
	Capture() (layout.Layout, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func() (layout.Layout, error)

// Capture calls f.
func (f SourceFunc) Capture() (layout.Layout, error) { return f() }

// GridSource captures g.
func GridSource(g *grid.Grid) Source {
	return SourceFunc(func() (layout.Layout, error) { return layout.FromGrid(g), nil })
}

// OverlaySource captures o with its metadata.
func OverlaySource[T any](o *overlay.Overlay[T]) Source {
	return SourceFunc(func() (layout.Layout, error) { return layout.FromOverlay(o) })
}

// Config contains configuration for Flusher.
type Config struct {
	// Name is the snapshot name written to the store.
	Name string
	// Source is captured on every flush.
	Source Source
	// Store receives the snapshots.
	Store storage.SnapshotStore
	// Interval is how often to flush (e.g., 60*time.Second).
	Interval time.Duration
	// Reason is recorded on periodic flushes; defaults to "periodic_flush".
	Reason string
	// SkipUnchanged suppresses a flush whose layout equals the last one saved.
	SkipUnchanged bool
	// Clock is optional; defaults to the real clock.
	Clock timeutil.Clock
	// Metrics is optional.
	Metrics *metrics.Metrics
	// Logger is optional; if nil, uses log.Default().
	Logger *log.Logger
}

// Flusher periodically writes snapshots of a Source to a SnapshotStore.
type Flusher struct {
	cfg    Config
	clock  timeutil.Clock
	logger *log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	flushMu sync.Mutex
	last    *layout.Layout
}

// New creates a Flusher. It does not start it.
func New(cfg Config) *Flusher {
	if cfg.Reason == "" {
		cfg.Reason = "periodic_flush"
	}
	f := &Flusher{cfg: cfg, clock: cfg.Clock, logger: cfg.Logger}
	if f.clock == nil {
		f.clock = timeutil.RealClock{}
	}
	if f.logger == nil {
		f.logger = log.Default()
	}
	return f
}

// Run flushes every Interval until ctx is cancelled or Stop is called, then
// performs a final flush. It returns nil on clean shutdown.
func (f *Flusher) Run(ctx context.Context) error {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return nil
	}
	f.running = true
	f.stopCh = make(chan struct{})
	f.doneCh = make(chan struct{})
	stopCh, doneCh := f.stopCh, f.doneCh
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.running = false
		f.mu.Unlock()
		close(doneCh)
	}()

	if f.cfg.Interval <= 0 {
		f.logger.Printf("[Flusher] %s: interval is zero or negative, not starting", f.cfg.Name)
		return nil
	}

	ticker := f.clock.NewTicker(f.cfg.Interval)
	defer ticker.Stop()
	f.logger.Printf("[Flusher] %s started: interval=%v", f.cfg.Name, f.cfg.Interval)

	for {
		select {
		case <-ctx.Done():
			f.logger.Printf("[Flusher] %s stopping due to context cancellation", f.cfg.Name)
			f.flushLogged(context.WithoutCancel(ctx), "final_flush")
			return nil
		case <-stopCh:
			f.logger.Printf("[Flusher] %s stopping due to Stop() call", f.cfg.Name)
			f.flushLogged(context.Background(), "final_flush")
			return nil
		case <-ticker.C():
			f.flushLogged(ctx, f.cfg.Reason)
		}
	}
}

// Stop asks Run to return and waits for its final flush. It is safe to call
// multiple times and when Run is not running.
func (f *Flusher) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	select {
	case <-f.stopCh:
	default:
		close(f.stopCh)
	}
	doneCh := f.doneCh
	f.mu.Unlock()
	<-doneCh
}

// IsRunning reports whether Run is active.
func (f *Flusher) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// FlushNow flushes immediately with reason "manual".
func (f *Flusher) FlushNow(ctx context.Context) error {
	_, err := f.flush(ctx, "manual")
	return err
}

func (f *Flusher) flushLogged(ctx context.Context, reason string) {
	saved, err := f.flush(ctx, reason)
	switch {
	case err != nil:
		f.logger.Printf("[Flusher] %s: error flushing (%s): %v", f.cfg.Name, reason, err)
	case saved:
		f.logger.Printf("[Flusher] %s: flushed (%s)", f.cfg.Name, reason)
	}
}

// flush reports whether a snapshot was written.
func (f *Flusher) flush(ctx context.Context, reason string) (saved bool, err error) {
	if f.cfg.Source == nil || f.cfg.Store == nil {
		return false, nil
	}
	f.flushMu.Lock()
	defer f.flushMu.Unlock()
	defer func() {
		if saved || err != nil {
			f.cfg.Metrics.ObserveFlush(err)
		}
	}()

	l, err := f.cfg.Source.Capture()
	if err != nil {
		return false, fmt.Errorf("capture %s: %w", f.cfg.Name, err)
	}
	if f.cfg.SkipUnchanged && f.last != nil && sameLayout(*f.last, l) {
		return false, nil
	}
	snap := storage.NewSnapshot(f.cfg.Name, reason, l, f.clock.Now())
	if err := f.cfg.Store.Save(ctx, snap); err != nil {
		return false, fmt.Errorf("save %s: %w", f.cfg.Name, err)
	}
	f.last = &l
	return true, nil
}

func sameLayout(a, b layout.Layout) bool {
	return a.Rows == b.Rows && a.Cols == b.Cols &&
		bytes.Equal(a.Flags, b.Flags) && bytes.Equal(a.Meta, b.Meta)
}
