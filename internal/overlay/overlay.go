// Package overlay pairs every cell of a flag grid with a metadata value.
//
// The flag half is a *grid.Grid and follows its atomic discipline. The
// metadata half is one atomic pointer per cell: writes are last-write-wins
// unless they are serialised through an UpdateQueue.
package overlay

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/flaggrid/internal/grid"
)

// Match is one search hit.
type Match[T any] struct {
	grid.Coord
	Metadata T `json:"metadata"`
}

// Overlay is a rows×cols grid of (flag, metadata) cells.
type Overlay[T any] struct {
	flags *grid.Grid
	meta  []atomic.Pointer[T] // nil means the zero T
}

// New allocates an overlay with every flag false and every metadata value
// zero. Grid options apply to the flag half; a validator installed with
// grid.WithValidator is consulted by Update.
func New[T any](rows, cols int, opts ...grid.Option) (*Overlay[T], error) {
	flags, err := grid.New(rows, cols, opts...)
	if err != nil {
		return nil, err
	}
	return wrap[T](flags), nil
}

// Restore builds an overlay from an existing flag grid and row-major
// metadata. meta may be nil, otherwise it must hold rows*cols values.
// The overlay takes ownership of flags.
func Restore[T any](flags *grid.Grid, meta []T) (*Overlay[T], error) {
	if meta != nil && len(meta) != flags.Len() {
		return nil, fmt.Errorf("%w: %d metadata values for %dx%d overlay",
			grid.ErrDimensionMismatch, len(meta), flags.Rows(), flags.Cols())
	}
	o := wrap[T](flags)
	for i := range meta {
		v := meta[i]
		o.meta[i].Store(&v)
	}
	return o, nil
}

func wrap[T any](flags *grid.Grid) *Overlay[T] {
	return &Overlay[T]{
		flags: flags,
		meta:  make([]atomic.Pointer[T], flags.Len()),
	}
}

// Rows returns the number of rows.
func (o *Overlay[T]) Rows() int { return o.flags.Rows() }

// Cols returns the number of columns.
func (o *Overlay[T]) Cols() int { return o.flags.Cols() }

// Flags exposes the flag half. Writes through it bypass metadata.
func (o *Overlay[T]) Flags() *grid.Grid { return o.flags }

func (o *Overlay[T]) index(row, col int) (int, error) {
	if row < 0 || col < 0 || row >= o.Rows() || col >= o.Cols() {
		return 0, &grid.BoundsError{Row: row, Col: col, Rows: o.Rows(), Cols: o.Cols()}
	}
	return row*o.Cols() + col, nil
}

// Value returns the flag at (row, col).
func (o *Overlay[T]) Value(row, col int) (bool, error) {
	return o.flags.Get(row, col)
}

// Priority returns the metadata at (row, col).
func (o *Overlay[T]) Priority(row, col int) (T, error) {
	var zero T
	i, err := o.index(row, col)
	if err != nil {
		return zero, err
	}
	return o.load(i), nil
}

func (o *Overlay[T]) load(i int) T {
	if p := o.meta[i].Load(); p != nil {
		return *p
	}
	var zero T
	return zero
}

// Update writes both halves of the cell. The validator runs first; a
// rejected or out-of-range write leaves the cell unchanged. The two halves
// are stored separately, so a concurrent reader may briefly see the new
// flag with the old metadata.
func (o *Overlay[T]) Update(row, col int, value bool, priority T) error {
	i, err := o.index(row, col)
	if err != nil {
		return err
	}
	if err := o.flags.Set(row, col, value); err != nil {
		return err
	}
	o.meta[i].Store(&priority)
	return nil
}

// Search scans the live overlay for cells whose flag equals target. Row
// bands are scanned in parallel and merged; the order of the result is
// unspecified. Each call rescans.
func (o *Overlay[T]) Search(ctx context.Context, target bool) ([]Match[T], error) {
	start := time.Now()
	defer func() { o.flags.Metrics().ObserveSearch(time.Since(start)) }()

	var (
		mu  sync.Mutex
		out []Match[T]
	)
	err := o.forBands(ctx, func(ctx context.Context, from, to int) error {
		var local []Match[T]
		for r := from; r < to; r++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			for c := 0; c < o.Cols(); c++ {
				v, _ := o.flags.Get(r, c)
				if v != target {
					continue
				}
				local = append(local, Match[T]{
					Coord:    grid.Coord{Row: r, Col: c},
					Metadata: o.load(r*o.Cols() + c),
				})
			}
		}
		mu.Lock()
		out = append(out, local...)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ParallelUpdate fills every cell from fn, spreading rows across workers.
// The first failing Update cancels the remaining work; cells already
// written keep their new values.
func (o *Overlay[T]) ParallelUpdate(ctx context.Context, fn func(grid.Coord) (bool, T)) error {
	return o.forBands(ctx, func(ctx context.Context, from, to int) error {
		for r := from; r < to; r++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			for c := 0; c < o.Cols(); c++ {
				v, p := fn(grid.Coord{Row: r, Col: c})
				if err := o.Update(r, c, v, p); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// forBands splits the rows into one contiguous band per worker.
func (o *Overlay[T]) forBands(ctx context.Context, fn func(ctx context.Context, from, to int) error) error {
	rows := o.Rows()
	if rows == 0 || o.Cols() == 0 {
		return ctx.Err()
	}
	workers := min(runtime.GOMAXPROCS(0), rows)
	band := (rows + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for from := 0; from < rows; from += band {
		from, to := from, min(from+band, rows)
		g.Go(func() error { return fn(ctx, from, to) })
	}
	return g.Wait()
}

// SaveAsMask returns every flag in row-major order.
func (o *Overlay[T]) SaveAsMask() []bool { return o.flags.Snapshot() }

// Metadata returns every metadata value in row-major order.
func (o *Overlay[T]) Metadata() []T {
	out := make([]T, len(o.meta))
	for i := range o.meta {
		out[i] = o.load(i)
	}
	return out
}

// Mean is the fraction of set flags. It reports false for an empty overlay.
func (o *Overlay[T]) Mean() (float64, bool) {
	mask := o.SaveAsMask()
	if len(mask) == 0 {
		return 0, false
	}
	xs := make([]float64, len(mask))
	for i, v := range mask {
		if v {
			xs[i] = 1
		}
	}
	return stat.Mean(xs, nil), true
}

// Dense exports the flags as a 0/1 matrix. It returns nil for an empty overlay.
func (o *Overlay[T]) Dense() *mat.Dense { return Dense(o.flags) }

// Dense exports g as a 0/1 matrix. It returns nil when g has no cells.
func Dense(g *grid.Grid) *mat.Dense {
	if g.Rows() == 0 || g.Cols() == 0 {
		return nil
	}
	mask := g.Snapshot()
	data := make([]float64, len(mask))
	for i, v := range mask {
		if v {
			data[i] = 1
		}
	}
	return mat.NewDense(g.Rows(), g.Cols(), data)
}
