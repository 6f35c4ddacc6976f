package overlay

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/flaggrid/internal/grid"
	"github.com/banshee-data/flaggrid/internal/queue"
)

// Update is a deferred write of one overlay cell. Routing metadata writes
// through a queue gives them a single FIFO order.
type Update[T any] struct {
	ID       string     `json:"id"`
	Coord    grid.Coord `json:"coord"`
	Value    bool       `json:"value"`
	Priority T          `json:"priority"`
}

// NewUpdate builds an Update with a fresh ID.
func NewUpdate[T any](row, col int, value bool, priority T) Update[T] {
	return Update[T]{
		ID:       uuid.NewString(),
		Coord:    grid.Coord{Row: row, Col: col},
		Value:    value,
		Priority: priority,
	}
}

// ApplyUpdate writes u through Update.
func (o *Overlay[T]) ApplyUpdate(u Update[T]) error {
	if err := o.Update(u.Coord.Row, u.Coord.Col, u.Value, u.Priority); err != nil {
		return fmt.Errorf("overlay update %s at %s: %w", u.ID, u.Coord, err)
	}
	return nil
}

// NewUpdateQueue returns an empty queue bound to o.
func NewUpdateQueue[T any](o *Overlay[T]) *queue.Queue[Update[T]] {
	return queue.New(queue.Config[Update[T]]{
		Name:    "overlay",
		Apply:   o.ApplyUpdate,
		Metrics: o.flags.Metrics(),
	})
}
