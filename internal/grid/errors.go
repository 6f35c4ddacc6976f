package grid

import (
	"errors"
	"fmt"

	"github.com/banshee-data/flaggrid/internal/queue"
)

var (
	// ErrIndexOutOfBounds is returned when a coordinate or lens falls outside the grid.
	ErrIndexOutOfBounds = errors.New("index out of bounds")
	// ErrMissingOperand is returned when a binary operation is called without its operand.
	ErrMissingOperand = errors.New("missing operand")
	// ErrDimensionMismatch is returned by structural transforms over incompatible shapes.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrConcurrencyFault is returned by a poisoned update queue.
	ErrConcurrencyFault = queue.ErrConcurrencyFault
	// ErrValidationRejected is returned when the configured validator declines a write.
	ErrValidationRejected = errors.New("validation rejected")
	// ErrUnknownOp is returned when an Op outside the closed set is dispatched.
	ErrUnknownOp = errors.New("unknown operation")
	// ErrNoTagStore is returned by Tag/Tags on a grid built without WithTags.
	ErrNoTagStore = errors.New("no tag store configured")
)

// BoundsError describes the offending coordinate of an out-of-range access.
type BoundsError struct {
	Row, Col   int
	Rows, Cols int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("index (%d,%d) out of bounds for %dx%d grid", e.Row, e.Col, e.Rows, e.Cols)
}

func (e *BoundsError) Unwrap() error { return ErrIndexOutOfBounds }

// ShapeError describes the operands of a failed structural transform.
type ShapeError struct {
	Op         string
	LeftRows   int
	LeftCols   int
	RightRows  int
	RightCols  int
	Constraint string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %dx%d and %dx%d: %s",
		e.Op, e.LeftRows, e.LeftCols, e.RightRows, e.RightCols, e.Constraint)
}

func (e *ShapeError) Unwrap() error { return ErrDimensionMismatch }

// resultLabel maps an operation error onto a low-cardinality metrics label.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrIndexOutOfBounds):
		return "out_of_bounds"
	case errors.Is(err, ErrMissingOperand):
		return "missing_operand"
	case errors.Is(err, ErrValidationRejected):
		return "rejected"
	case errors.Is(err, ErrUnknownOp):
		return "unknown_op"
	default:
		return "error"
	}
}
