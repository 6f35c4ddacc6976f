// Package layout converts grids and overlays to and from their persisted
// form: a dense row-major bitmap of flags plus, for overlays, a parallel
// metadata blob.
package layout

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"errors"
	"fmt"

	"github.com/banshee-data/flaggrid/internal/grid"
	"github.com/banshee-data/flaggrid/internal/overlay"
)

// ErrCorrupt is returned when a layout does not describe a valid grid.
var ErrCorrupt = errors.New("corrupt layout")

// Layout is the storage-agnostic image of a grid or overlay.
type Layout struct {
	Rows int
	Cols int
	// Flags holds rows*cols bits, row-major, least significant bit first.
	Flags []byte
	// Meta is the gob+gzip encoded []T of an overlay. Empty for plain grids.
	Meta []byte
}

// SetCount returns the number of set flags.
func (l Layout) SetCount() int {
	n := 0
	for i := 0; i < l.Rows*l.Cols && i/8 < len(l.Flags); i++ {
		if l.Flags[i/8]&(1<<(i%8)) != 0 {
			n++
		}
	}
	return n
}

// FromGrid captures g. Cells are read one at a time.
func FromGrid(g *grid.Grid) Layout {
	return Layout{Rows: g.Rows(), Cols: g.Cols(), Flags: Pack(g.Snapshot())}
}

// Grid rebuilds a grid from l.
func (l Layout) Grid(opts ...grid.Option) (*grid.Grid, error) {
	if err := l.check(); err != nil {
		return nil, err
	}
	return grid.FromValues(l.Rows, l.Cols, Unpack(l.Flags, l.Rows*l.Cols), opts...)
}

// FromOverlay captures o, including its metadata.
func FromOverlay[T any](o *overlay.Overlay[T]) (Layout, error) {
	meta, err := encodeMeta(o.Metadata())
	if err != nil {
		return Layout{}, err
	}
	l := FromGrid(o.Flags())
	l.Meta = meta
	return l, nil
}

// ToOverlay rebuilds an overlay from l. A layout without metadata yields
// zero metadata everywhere.
func ToOverlay[T any](l Layout, opts ...grid.Option) (*overlay.Overlay[T], error) {
	flags, err := l.Grid(opts...)
	if err != nil {
		return nil, err
	}
	var meta []T
	if len(l.Meta) > 0 {
		if meta, err = decodeMeta[T](l.Meta); err != nil {
			return nil, err
		}
	}
	return overlay.Restore(flags, meta)
}

func (l Layout) check() error {
	if l.Rows < 0 || l.Cols < 0 {
		return fmt.Errorf("%w: negative dimensions %dx%d", ErrCorrupt, l.Rows, l.Cols)
	}
	if l.Cols != 0 && l.Rows > grid.MaxCells/l.Cols {
		return fmt.Errorf("%w: %dx%d exceeds %d cells", ErrCorrupt, l.Rows, l.Cols, grid.MaxCells)
	}
	if want := (l.Rows*l.Cols + 7) / 8; len(l.Flags) != want {
		return fmt.Errorf("%w: %d flag bytes for %dx%d, want %d", ErrCorrupt, len(l.Flags), l.Rows, l.Cols, want)
	}
	return nil
}

// Pack packs values into bytes, least significant bit first.
func Pack(values []bool) []byte {
	out := make([]byte, (len(values)+7)/8)
	for i, v := range values {
		if v {
			out[i/8] |= 1 << (i % 8)
		}
	}
	return out
}

// Unpack returns the first n bits of b.
func Unpack(b []byte, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		if i/8 < len(b) {
			out[i] = b[i/8]&(1<<(i%8)) != 0
		}
	}
	return out
}

// encodeMeta compresses the metadata using gob encoding and gzip compression.
func encodeMeta[T any](meta []T) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := gob.NewEncoder(gz).Encode(meta); err != nil {
		gz.Close()
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeMeta[T any](blob []byte) ([]T, error) {
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("%w: metadata gzip: %v", ErrCorrupt, err)
	}
	defer gz.Close()

	var meta []T
	if err := gob.NewDecoder(gz).Decode(&meta); err != nil {
		return nil, fmt.Errorf("%w: metadata gob: %v", ErrCorrupt, err)
	}
	return meta, nil
}
