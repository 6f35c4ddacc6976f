package grid

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/flaggrid/internal/queue"
)

// Update is a deferred mutation of one cell. It is a plain value so a queue
// can be inspected, logged and serialised.
type Update struct {
	ID      string `json:"id"`
	Op      Op     `json:"op"`
	Coord   Coord  `json:"coord"`
	Operand *bool  `json:"operand,omitempty"`
}

// NewUpdate builds an Update with a fresh ID.
func NewUpdate(op Op, c Coord, operand *bool) Update {
	return Update{ID: uuid.NewString(), Op: op, Coord: c, Operand: operand}
}

// SetUpdate is shorthand for an OpSet update.
func SetUpdate(row, col int, value bool) Update {
	return NewUpdate(OpSet, Coord{Row: row, Col: col}, &value)
}

// BitwiseUpdate is shorthand for an And/Or/Xor update.
func BitwiseUpdate(op Op, row, col int, operand bool) Update {
	return NewUpdate(op, Coord{Row: row, Col: col}, &operand)
}

func (u Update) String() string {
	if u.Operand == nil {
		return fmt.Sprintf("%s %s", u.Op, u.Coord)
	}
	return fmt.Sprintf("%s %s %t", u.Op, u.Coord, *u.Operand)
}

// ApplyUpdate runs u against the live grid through Execute.
func (g *Grid) ApplyUpdate(u Update) error {
	if u.Op == OpGet || u.Op == OpView {
		return fmt.Errorf("%w: %s is not a mutation", ErrUnknownOp, u.Op)
	}
	if _, err := g.Execute(u.Op, u.Coord, u.Operand); err != nil {
		return fmt.Errorf("update %s (%s): %w", u.ID, u, err)
	}
	return nil
}

// UpdateQueue defers mutations of one grid.
type UpdateQueue = queue.Queue[Update]

// NewUpdateQueue returns an empty queue bound to g. The queue only orders
// its own items; it gives no exclusivity over g.
func NewUpdateQueue(g *Grid) *UpdateQueue {
	return queue.New(queue.Config[Update]{
		Name:    "grid",
		Apply:   g.ApplyUpdate,
		Metrics: g.metrics,
	})
}
