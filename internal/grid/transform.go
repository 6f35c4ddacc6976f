package grid

import (
	"fmt"
	"math"
)

// Structural transforms build a new grid and never mutate their inputs.
// Source cells are read independently; a transform that races with writers
// may copy a torn snapshot.

// Transpose returns a cols×rows grid with out[i][j] = g[j][i].
func (g *Grid) Transpose() *Grid {
	out := g.derive(g.cols, g.rows)
	for r := 0; r < g.rows; r++ {
		for c := 0; c < g.cols; c++ {
			out.cells[c*out.cols+r].Store(g.cells[r*g.cols+c].Load())
		}
	}
	return out
}

// Invert returns a grid with every cell flipped.
func (g *Grid) Invert() *Grid {
	out := g.derive(g.rows, g.cols)
	for i := range g.cells {
		out.cells[i].Store(!g.cells[i].Load())
	}
	return out
}

// Clone returns an independent copy of g.
func (g *Grid) Clone() *Grid {
	out := g.derive(g.rows, g.cols)
	for i := range g.cells {
		out.cells[i].Store(g.cells[i].Load())
	}
	return out
}

// Grow returns a grid extended by extraRows and extraCols false cells.
func (g *Grid) Grow(extraRows, extraCols int) (*Grid, error) {
	if extraRows < 0 || extraCols < 0 {
		return nil, fmt.Errorf("%w: grow by negative %dx%d", ErrDimensionMismatch, extraRows, extraCols)
	}
	if extraRows > math.MaxInt-g.rows || extraCols > math.MaxInt-g.cols {
		return nil, fmt.Errorf("%w: grow by %dx%d overflows", ErrDimensionMismatch, extraRows, extraCols)
	}
	if err := checkDims(g.rows+extraRows, g.cols+extraCols); err != nil {
		return nil, err
	}
	out := g.derive(g.rows+extraRows, g.cols+extraCols)
	for r := 0; r < g.rows; r++ {
		for c := 0; c < g.cols; c++ {
			out.cells[r*out.cols+c].Store(g.cells[r*g.cols+c].Load())
		}
	}
	return out, nil
}

// Stack places other below g. Column counts must match.
func (g *Grid) Stack(other *Grid) (*Grid, error) {
	if g.cols != other.cols {
		return nil, g.shapeError("stack", other, "column counts differ")
	}
	if err := checkDims(g.rows+other.rows, g.cols); err != nil {
		return nil, err
	}
	out := g.derive(g.rows+other.rows, g.cols)
	for i := range g.cells {
		out.cells[i].Store(g.cells[i].Load())
	}
	off := len(g.cells)
	for i := range other.cells {
		out.cells[off+i].Store(other.cells[i].Load())
	}
	return out, nil
}

// Append places other to the right of g. Row counts must match.
func (g *Grid) Append(other *Grid) (*Grid, error) {
	return g.concatColumns("append", other)
}

// Merge joins other column-wise onto g. It has the same shape rules and
// result as Append and exists as a separate name for callers combining
// independently maintained grids.
func (g *Grid) Merge(other *Grid) (*Grid, error) {
	return g.concatColumns("merge", other)
}

func (g *Grid) concatColumns(op string, other *Grid) (*Grid, error) {
	if g.rows != other.rows {
		return nil, g.shapeError(op, other, "row counts differ")
	}
	if err := checkDims(g.rows, g.cols+other.cols); err != nil {
		return nil, err
	}
	out := g.derive(g.rows, g.cols+other.cols)
	for r := 0; r < g.rows; r++ {
		for c := 0; c < g.cols; c++ {
			out.cells[r*out.cols+c].Store(g.cells[r*g.cols+c].Load())
		}
		for c := 0; c < other.cols; c++ {
			out.cells[r*out.cols+g.cols+c].Store(other.cells[r*other.cols+c].Load())
		}
	}
	return out, nil
}

func (g *Grid) shapeError(op string, other *Grid, constraint string) error {
	return &ShapeError{
		Op:         op,
		LeftRows:   g.rows,
		LeftCols:   g.cols,
		RightRows:  other.rows,
		RightCols:  other.cols,
		Constraint: constraint,
	}
}
