package grid

import (
	"fmt"
	"strings"
)

// LensKind selects the coordinate pattern of a Lens.
type LensKind int

const (
	LensRow LensKind = iota
	LensColumn
	LensSubmatrix
	LensDiagonal
	LensBand
	LensUpperTriangular
	LensLowerTriangular
	LensSparse
)

// Lens describes a region of a grid. It is plain data and knows nothing
// about any particular grid: bounds are checked against the target every
// time the lens is used.
type Lens struct {
	Kind        LensKind `json:"kind"`
	Index       int      `json:"index,omitempty"` // row for LensRow, column for LensColumn
	TopLeft     Coord    `json:"top_left"`
	BottomRight Coord    `json:"bottom_right"` // inclusive
	Width       int      `json:"width,omitempty"`
}

// RowLens covers every cell of row r.
func RowLens(r int) Lens { return Lens{Kind: LensRow, Index: r} }

// ColumnLens covers every cell of column c.
func ColumnLens(c int) Lens { return Lens{Kind: LensColumn, Index: c} }

// SubmatrixLens covers the inclusive rectangle from tl to br.
func SubmatrixLens(tl, br Coord) Lens {
	return Lens{Kind: LensSubmatrix, TopLeft: tl, BottomRight: br}
}

// DiagonalLens covers (i, i).
func DiagonalLens() Lens { return Lens{Kind: LensDiagonal} }

// BandLens covers (i, j) with |i-j| <= width.
func BandLens(width int) Lens { return Lens{Kind: LensBand, Width: width} }

// UpperTriangularLens covers (i, j) with i < j.
func UpperTriangularLens() Lens { return Lens{Kind: LensUpperTriangular} }

// LowerTriangularLens covers (i, j) with i > j.
func LowerTriangularLens() Lens { return Lens{Kind: LensLowerTriangular} }

// SparseLens covers the cells that are set at the time of use.
func SparseLens() Lens { return Lens{Kind: LensSparse} }

// String is the stable key of the lens, also used by the tag table.
func (l Lens) String() string {
	switch l.Kind {
	case LensRow:
		return fmt.Sprintf("row(%d)", l.Index)
	case LensColumn:
		return fmt.Sprintf("col(%d)", l.Index)
	case LensSubmatrix:
		return fmt.Sprintf("submatrix(%d,%d:%d,%d)",
			l.TopLeft.Row, l.TopLeft.Col, l.BottomRight.Row, l.BottomRight.Col)
	case LensDiagonal:
		return "diagonal"
	case LensBand:
		return fmt.Sprintf("band(%d)", l.Width)
	case LensUpperTriangular:
		return "upper"
	case LensLowerTriangular:
		return "lower"
	case LensSparse:
		return "sparse"
	default:
		return fmt.Sprintf("lens(%d)", int(l.Kind))
	}
}

// ParseLens parses the form produced by Lens.String.
func ParseLens(s string) (Lens, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "diagonal":
		return DiagonalLens(), nil
	case "upper":
		return UpperTriangularLens(), nil
	case "lower":
		return LowerTriangularLens(), nil
	case "sparse":
		return SparseLens(), nil
	}
	var a, b, c, d int
	switch {
	case strings.HasPrefix(s, "row("):
		if _, err := fmt.Sscanf(s, "row(%d)", &a); err != nil {
			return Lens{}, fmt.Errorf("parse lens %q: %w", s, err)
		}
		return RowLens(a), nil
	case strings.HasPrefix(s, "col("):
		if _, err := fmt.Sscanf(s, "col(%d)", &a); err != nil {
			return Lens{}, fmt.Errorf("parse lens %q: %w", s, err)
		}
		return ColumnLens(a), nil
	case strings.HasPrefix(s, "band("):
		if _, err := fmt.Sscanf(s, "band(%d)", &a); err != nil {
			return Lens{}, fmt.Errorf("parse lens %q: %w", s, err)
		}
		return BandLens(a), nil
	case strings.HasPrefix(s, "submatrix("):
		if _, err := fmt.Sscanf(s, "submatrix(%d,%d:%d,%d)", &a, &b, &c, &d); err != nil {
			return Lens{}, fmt.Errorf("parse lens %q: %w", s, err)
		}
		return SubmatrixLens(Coord{Row: a, Col: b}, Coord{Row: c, Col: d}), nil
	}
	return Lens{}, fmt.Errorf("parse lens %q: unknown form", s)
}

// check validates the lens against a rows×cols target.
func (l Lens) check(rows, cols int) error {
	switch l.Kind {
	case LensRow:
		if l.Index < 0 || l.Index >= rows {
			return &BoundsError{Row: l.Index, Col: 0, Rows: rows, Cols: cols}
		}
	case LensColumn:
		if l.Index < 0 || l.Index >= cols {
			return &BoundsError{Row: 0, Col: l.Index, Rows: rows, Cols: cols}
		}
	case LensSubmatrix:
		for _, c := range []Coord{l.TopLeft, l.BottomRight} {
			if c.Row < 0 || c.Col < 0 || c.Row >= rows || c.Col >= cols {
				return &BoundsError{Row: c.Row, Col: c.Col, Rows: rows, Cols: cols}
			}
		}
		if l.TopLeft.Row > l.BottomRight.Row || l.TopLeft.Col > l.BottomRight.Col {
			return fmt.Errorf("%w: inverted %s", ErrIndexOutOfBounds, l)
		}
	case LensBand:
		if l.Width < 0 {
			return fmt.Errorf("%w: negative band width %d", ErrIndexOutOfBounds, l.Width)
		}
	case LensDiagonal, LensUpperTriangular, LensLowerTriangular, LensSparse:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOp, l)
	}
	return nil
}

// contains reports geometric membership; LensSparse is resolved by the grid.
func (l Lens) contains(c Coord) bool {
	switch l.Kind {
	case LensRow:
		return c.Row == l.Index
	case LensColumn:
		return c.Col == l.Index
	case LensSubmatrix:
		return c.Row >= l.TopLeft.Row && c.Row <= l.BottomRight.Row &&
			c.Col >= l.TopLeft.Col && c.Col <= l.BottomRight.Col
	case LensDiagonal:
		return c.Row == c.Col
	case LensBand:
		d := c.Row - c.Col
		if d < 0 {
			d = -d
		}
		return d <= l.Width
	case LensUpperTriangular:
		return c.Row < c.Col
	case LensLowerTriangular:
		return c.Row > c.Col
	}
	return false
}

// Region returns every coordinate the lens covers on g, row-major. The
// whole lens is validated before any coordinate is produced.
func (g *Grid) Region(l Lens) ([]Coord, error) {
	if err := l.check(g.rows, g.cols); err != nil {
		return nil, err
	}
	var out []Coord
	switch l.Kind {
	case LensRow:
		out = make([]Coord, 0, g.cols)
		for c := 0; c < g.cols; c++ {
			out = append(out, Coord{Row: l.Index, Col: c})
		}
	case LensColumn:
		out = make([]Coord, 0, g.rows)
		for r := 0; r < g.rows; r++ {
			out = append(out, Coord{Row: r, Col: l.Index})
		}
	case LensSubmatrix:
		for r := l.TopLeft.Row; r <= l.BottomRight.Row; r++ {
			for c := l.TopLeft.Col; c <= l.BottomRight.Col; c++ {
				out = append(out, Coord{Row: r, Col: c})
			}
		}
	case LensDiagonal:
		for i := 0; i < min(g.rows, g.cols); i++ {
			out = append(out, Coord{Row: i, Col: i})
		}
	case LensBand:
		for r := 0; r < g.rows; r++ {
			// Width may be close to MaxInt; r+Width is only formed when it fits.
			lo := 0
			if r > l.Width {
				lo = r - l.Width
			}
			hi := g.cols - 1
			if l.Width < hi-r {
				hi = r + l.Width
			}
			for c := lo; c <= hi; c++ {
				out = append(out, Coord{Row: r, Col: c})
			}
		}
	case LensUpperTriangular:
		for r := 0; r < g.rows; r++ {
			for c := r + 1; c < g.cols; c++ {
				out = append(out, Coord{Row: r, Col: c})
			}
		}
	case LensLowerTriangular:
		for r := 0; r < g.rows; r++ {
			for c := 0; c < r && c < g.cols; c++ {
				out = append(out, Coord{Row: r, Col: c})
			}
		}
	case LensSparse:
		for i := range g.cells {
			if g.cells[i].Load() {
				out = append(out, Coord{Row: i / g.cols, Col: i % g.cols})
			}
		}
	}
	return out, nil
}

// View is the read-only projection of the lens: the current value of every
// covered cell.
func (g *Grid) View(l Lens) ([]CellValue, error) {
	coords, err := g.Region(l)
	if err != nil {
		return nil, err
	}
	out := make([]CellValue, len(coords))
	for i, c := range coords {
		out[i] = CellValue{Coord: c, Value: g.cells[c.Row*g.cols+c.Col].Load()}
	}
	return out, nil
}

// ApplyLens runs op (Set, And, Or, Xor or Not) on every cell the lens
// covers. Bounds, operand and validator are all checked before the first
// cell is written, so a failing call leaves the grid unchanged. Each cell
// is then updated independently with the same atomic discipline as Bitwise.
func (g *Grid) ApplyLens(l Lens, op Op, operand *bool) error {
	err := g.applyLens(l, op, operand)
	g.metrics.ObserveOp("lens_"+op.String(), resultLabel(err))
	return err
}

func (g *Grid) applyLens(l Lens, op Op, operand *bool) error {
	coords, err := g.Region(l)
	if err != nil {
		return err
	}
	var fn func(bool) bool
	switch op {
	case OpSet:
		if operand == nil {
			return fmt.Errorf("%w: %s", ErrMissingOperand, op)
		}
		v := *operand
		for _, c := range coords {
			if err := g.accept(c, v); err != nil {
				return err
			}
		}
		for _, c := range coords {
			g.cells[c.Row*g.cols+c.Col].Store(v)
		}
		return nil
	case OpAnd, OpOr, OpXor:
		if fn, err = binaryFunc(op, operand); err != nil {
			return err
		}
	case OpNot:
		fn = not
	default:
		return fmt.Errorf("%w: %s cannot be applied through a lens", ErrUnknownOp, op)
	}
	for _, c := range coords {
		g.modify(c.Row*g.cols+c.Col, fn)
	}
	return nil
}

// Mask is the mutating counterpart of View: it clears every cell the lens
// does not keep. Triangular lenses keep the main diagonal, so masking with
// UpperTriangularLens zeroes exactly the cells strictly below the diagonal.
// A sparse lens keeps every set cell, which makes its mask a no-op.
func (g *Grid) Mask(l Lens) error {
	err := g.mask(l)
	g.metrics.ObserveOp("mask", resultLabel(err))
	return err
}

func (g *Grid) mask(l Lens) error {
	if err := l.check(g.rows, g.cols); err != nil {
		return err
	}
	if l.Kind == LensSparse {
		return nil
	}
	for r := 0; r < g.rows; r++ {
		for c := 0; c < g.cols; c++ {
			if keeps(l, Coord{Row: r, Col: c}) {
				continue
			}
			g.cells[r*g.cols+c].Store(false)
		}
	}
	return nil
}

func keeps(l Lens, c Coord) bool {
	switch l.Kind {
	case LensUpperTriangular:
		return c.Row <= c.Col
	case LensLowerTriangular:
		return c.Row >= c.Col
	}
	return l.contains(c)
}

// ApplyUpperTriangular zeroes every cell strictly below the main diagonal.
func ApplyUpperTriangular(g *Grid) error { return g.Mask(UpperTriangularLens()) }

// ApplyLowerTriangular zeroes every cell strictly above the main diagonal.
func ApplyLowerTriangular(g *Grid) error { return g.Mask(LowerTriangularLens()) }
