package grid

import "fmt"

// Op is the closed set of operations a grid can dispatch. New kinds are
// added here and handled in Execute; the cell storage does not change.
type Op int

const (
	OpGet Op = iota
	OpSet
	OpAnd
	OpOr
	OpXor
	OpNot
	OpView
)

var opNames = [...]string{
	OpGet:  "get",
	OpSet:  "set",
	OpAnd:  "and",
	OpOr:   "or",
	OpXor:  "xor",
	OpNot:  "not",
	OpView: "view",
}

func (o Op) String() string {
	if o < 0 || int(o) >= len(opNames) {
		return fmt.Sprintf("op(%d)", int(o))
	}
	return opNames[o]
}

// ParseOp maps a name produced by Op.String back to its Op.
func ParseOp(name string) (Op, error) {
	for i, n := range opNames {
		if n == name {
			return Op(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOp, name)
}

// MarshalText encodes the op by name.
func (o Op) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText decodes an op name.
func (o *Op) UnmarshalText(b []byte) error {
	op, err := ParseOp(string(b))
	if err != nil {
		return err
	}
	*o = op
	return nil
}

// CellValue is one cell of a view.
type CellValue struct {
	Coord
	Value bool `json:"value"`
}

// Execute runs op against the cell at c and returns the cell's value after
// the operation. operand is required for Set, And, Or and Xor. OpView needs
// a region rather than a cell; use ExecuteView.
func (g *Grid) Execute(op Op, c Coord, operand *bool) (bool, error) {
	v, err := g.execute(op, c, operand)
	g.metrics.ObserveOp(op.String(), resultLabel(err))
	return v, err
}

func (g *Grid) execute(op Op, c Coord, operand *bool) (bool, error) {
	switch op {
	case OpGet:
		return g.Get(c.Row, c.Col)
	case OpSet:
		if _, err := g.index(c.Row, c.Col); err != nil {
			return false, err
		}
		if operand == nil {
			return false, fmt.Errorf("%w: %s", ErrMissingOperand, op)
		}
		if err := g.Set(c.Row, c.Col, *operand); err != nil {
			return false, err
		}
		return *operand, nil
	case OpAnd, OpOr, OpXor:
		i, err := g.index(c.Row, c.Col)
		if err != nil {
			return false, err
		}
		fn, err := binaryFunc(op, operand)
		if err != nil {
			return false, err
		}
		return g.modify(i, fn), nil
	case OpNot:
		i, err := g.index(c.Row, c.Col)
		if err != nil {
			return false, err
		}
		return g.modify(i, not), nil
	case OpView:
		return false, fmt.Errorf("%w: view takes a lens, use ExecuteView", ErrMissingOperand)
	default:
		return false, fmt.Errorf("%w: %s", ErrUnknownOp, op)
	}
}

// ExecuteView dispatches OpView over the region described by l.
func (g *Grid) ExecuteView(l Lens) ([]CellValue, error) {
	vals, err := g.View(l)
	g.metrics.ObserveOp(OpView.String(), resultLabel(err))
	return vals, err
}
