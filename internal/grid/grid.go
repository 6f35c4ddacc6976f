package grid

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"github.com/banshee-data/flaggrid/internal/metrics"
)

// Coord is a 0-indexed (row, col) position.
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c Coord) String() string { return fmt.Sprintf("(%d,%d)", c.Row, c.Col) }

// Validator decides whether a candidate write may be applied. It is called
// synchronously, before the cell is touched, on Set and on overlay updates.
type Validator interface {
	Accept(c Coord, value bool) bool
}

// ValidatorFunc adapts a plain function to Validator.
type ValidatorFunc func(c Coord, value bool) bool

// Accept calls f.
func (f ValidatorFunc) Accept(c Coord, value bool) bool { return f(c, value) }

// Option configures a Grid at construction.
type Option func(*Grid)

// WithValidator installs a pre-commit validator for Set.
func WithValidator(v Validator) Option {
	return func(g *Grid) { g.validator = v }
}

// WithTags attaches a region-keyed tag store.
func WithTags(t TagStore) Option {
	return func(g *Grid) { g.tags = t }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Grid) { g.metrics = m }
}

// Grid is a rows×cols matrix of independently atomic boolean cells.
// Dimensions never change; resizing produces a new Grid.
type Grid struct {
	rows, cols int
	cells      []atomic.Bool

	validator Validator
	tags      TagStore
	metrics   *metrics.Metrics
}

// MaxCells caps rows*cols for any grid.
const MaxCells = 1 << 32

// checkDims rejects negative shapes and shapes whose cell count overflows
// or exceeds MaxCells.
func checkDims(rows, cols int) error {
	if rows < 0 || cols < 0 {
		return fmt.Errorf("%w: negative dimensions %dx%d", ErrDimensionMismatch, rows, cols)
	}
	if cols != 0 && (rows > math.MaxInt/cols || rows*cols > MaxCells) {
		return fmt.Errorf("%w: %dx%d exceeds %d cells", ErrDimensionMismatch, rows, cols, MaxCells)
	}
	return nil
}

// New allocates a grid with every cell false.
func New(rows, cols int, opts ...Option) (*Grid, error) {
	if err := checkDims(rows, cols); err != nil {
		return nil, err
	}
	g := &Grid{
		rows:  rows,
		cols:  cols,
		cells: make([]atomic.Bool, rows*cols),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// FromValues builds a grid from a row-major slice of exactly rows*cols flags.
func FromValues(rows, cols int, values []bool, opts ...Option) (*Grid, error) {
	g, err := New(rows, cols, opts...)
	if err != nil {
		return nil, err
	}
	if len(values) != rows*cols {
		return nil, fmt.Errorf("%w: %d values for %dx%d grid", ErrDimensionMismatch, len(values), rows, cols)
	}
	for i, v := range values {
		g.cells[i].Store(v)
	}
	return g, nil
}

// derive allocates an empty grid that shares g's collaborators but not its cells.
func (g *Grid) derive(rows, cols int) *Grid {
	return &Grid{
		rows:      rows,
		cols:      cols,
		cells:     make([]atomic.Bool, rows*cols),
		validator: g.validator,
		tags:      g.tags,
		metrics:   g.metrics,
	}
}

// Rows returns the number of rows.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of columns.
func (g *Grid) Cols() int { return g.cols }

// Len returns rows*cols.
func (g *Grid) Len() int { return len(g.cells) }

func (g *Grid) index(row, col int) (int, error) {
	if row < 0 || col < 0 || row >= g.rows || col >= g.cols {
		return 0, &BoundsError{Row: row, Col: col, Rows: g.rows, Cols: g.cols}
	}
	return row*g.cols + col, nil
}

// Get returns the value at (row, col).
func (g *Grid) Get(row, col int) (bool, error) {
	i, err := g.index(row, col)
	if err != nil {
		return false, err
	}
	return g.cells[i].Load(), nil
}

// Set overwrites the value at (row, col). The store is a single atomic write,
// visible to concurrent readers immediately.
func (g *Grid) Set(row, col int, value bool) error {
	i, err := g.index(row, col)
	if err != nil {
		return err
	}
	if err := g.accept(Coord{Row: row, Col: col}, value); err != nil {
		return err
	}
	g.cells[i].Store(value)
	return nil
}

// Bitwise combines the cell at (row, col) with operand using op (OpAnd, OpOr
// or OpXor). The combination is an atomic read-modify-write on that cell.
func (g *Grid) Bitwise(row, col int, op Op, operand *bool) error {
	i, err := g.index(row, col)
	if err != nil {
		return err
	}
	fn, err := binaryFunc(op, operand)
	if err != nil {
		return err
	}
	g.modify(i, fn)
	return nil
}

// Not flips the cell at (row, col) atomically.
func (g *Grid) Not(row, col int) error {
	i, err := g.index(row, col)
	if err != nil {
		return err
	}
	g.modify(i, not)
	return nil
}

// modify applies fn to cell i with a compare-and-swap loop and returns the
// stored value. A concurrent writer between the load and the swap forces a
// retry, so no update is lost.
func (g *Grid) modify(i int, fn func(bool) bool) bool {
	c := &g.cells[i]
	for {
		old := c.Load()
		next := fn(old)
		if next == old || c.CompareAndSwap(old, next) {
			return next
		}
	}
}

func not(v bool) bool { return !v }

func binaryFunc(op Op, operand *bool) (func(bool) bool, error) {
	switch op {
	case OpAnd, OpOr, OpXor:
	default:
		return nil, fmt.Errorf("%w: %s is not a binary bitwise op", ErrUnknownOp, op)
	}
	if operand == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingOperand, op)
	}
	b := *operand
	switch op {
	case OpAnd:
		return func(v bool) bool { return v && b }, nil
	case OpOr:
		return func(v bool) bool { return v || b }, nil
	default:
		return func(v bool) bool { return v != b }, nil
	}
}

func (g *Grid) accept(c Coord, value bool) error {
	if g.validator == nil || g.validator.Accept(c, value) {
		return nil
	}
	g.metrics.ObserveRejection()
	return fmt.Errorf("%w: %s=%t", ErrValidationRejected, c, value)
}

// Count returns the number of set cells.
func (g *Grid) Count() int {
	n := 0
	for i := range g.cells {
		if g.cells[i].Load() {
			n++
		}
	}
	return n
}

// Snapshot returns every cell in row-major order. Cells are read one at a
// time, so concurrent writers may produce a torn snapshot.
func (g *Grid) Snapshot() []bool {
	out := make([]bool, len(g.cells))
	for i := range g.cells {
		out[i] = g.cells[i].Load()
	}
	return out
}

// Equal reports whether both grids have the same shape and cell values.
func (g *Grid) Equal(other *Grid) bool {
	if other == nil || g.rows != other.rows || g.cols != other.cols {
		return false
	}
	for i := range g.cells {
		if g.cells[i].Load() != other.cells[i].Load() {
			return false
		}
	}
	return true
}

// String renders the grid as rows of '1' and '.'.
func (g *Grid) String() string {
	var b strings.Builder
	for r := 0; r < g.rows; r++ {
		for c := 0; c < g.cols; c++ {
			if g.cells[r*g.cols+c].Load() {
				b.WriteByte('1')
			} else {
				b.WriteByte('.')
			}
		}
		if r < g.rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Metrics returns the collectors attached with WithMetrics, or nil.
func (g *Grid) Metrics() *metrics.Metrics { return g.metrics }
