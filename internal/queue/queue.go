// Package queue implements the FIFO of deferred mutations used by grids and
// overlays.
//
// Items are plain command values; the queue never looks inside them. The
// queue lock covers only its own list: the item is popped under the lock
// and applied after the lock is released, so a queued update can interleave
// with direct writers on the target.
package queue

import (
	"errors"
	"fmt"
	"sync"

	"github.com/banshee-data/flaggrid/internal/metrics"
	"github.com/banshee-data/flaggrid/internal/monitoring"
)

// ErrConcurrencyFault is returned once the queue has been poisoned by a
// panicking apply function. It stays poisoned until Recover is called.
var ErrConcurrencyFault = errors.New("update queue poisoned")

// ErrNoApply is returned by ApplyNext and DrainAll on a queue built without
// an apply function. Items stay queued.
var ErrNoApply = errors.New("update queue has no apply function")

// ApplyFunc runs one queued item against the live target.
type ApplyFunc[U any] func(U) error

// Config configures a Queue.
type Config[U any] struct {
	// Name labels log lines and metrics (e.g. "grid", "overlay").
	Name string
	// Apply runs an item against the target. Required.
	Apply ApplyFunc[U]
	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Queue is an unbounded, thread-safe FIFO of deferred updates.
type Queue[U any] struct {
	name    string
	apply   ApplyFunc[U]
	metrics *metrics.Metrics

	mu       sync.Mutex
	items    []U
	poisoned bool
}

// New creates an empty queue.
func New[U any](cfg Config[U]) *Queue[U] {
	name := cfg.Name
	if name == "" {
		name = "default"
	}
	return &Queue[U]{
		name:    name,
		apply:   cfg.Apply,
		metrics: cfg.Metrics,
	}
}

// Queue appends u to the tail.
func (q *Queue[U]) Queue(u U) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.poisoned {
		return ErrConcurrencyFault
	}
	q.items = append(q.items, u)
	q.metrics.SetQueueDepth(q.name, len(q.items))
	return nil
}

// ApplyNext pops the head and applies it. It reports whether an item was
// popped; the error is the item's apply error, ErrConcurrencyFault or
// ErrNoApply.
func (q *Queue[U]) ApplyNext() (bool, error) {
	u, ok, err := q.pop()
	if err != nil || !ok {
		return false, err
	}
	return true, q.run(u)
}

// DrainAll applies queued items in FIFO order until the queue is empty.
// Item failures do not stop the drain; they are joined and returned at the
// end. A poisoned queue, or one without an apply function, stops the drain
// immediately and leaves the remaining items queued.
func (q *Queue[U]) DrainAll() error {
	var errs []error
	for {
		applied, err := q.ApplyNext()
		if errors.Is(err, ErrConcurrencyFault) || errors.Is(err, ErrNoApply) {
			errs = append(errs, err)
			return errors.Join(errs...)
		}
		if err != nil {
			errs = append(errs, err)
		}
		if !applied {
			return errors.Join(errs...)
		}
	}
}

// Len returns the number of queued items.
func (q *Queue[U]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Pending returns a copy of the queued items, head first.
func (q *Queue[U]) Pending() []U {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]U, len(q.items))
	copy(out, q.items)
	return out
}

// Poisoned reports whether the queue is refusing work.
func (q *Queue[U]) Poisoned() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.poisoned
}

// Recover clears the poisoned state. Queued items are kept.
func (q *Queue[U]) Recover() {
	q.mu.Lock()
	q.poisoned = false
	q.mu.Unlock()
	monitoring.Logf("[UpdateQueue] %s recovered with %d pending", q.name, q.Len())
}

func (q *Queue[U]) pop() (U, bool, error) {
	var zero U
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.poisoned {
		return zero, false, ErrConcurrencyFault
	}
	if q.apply == nil && len(q.items) > 0 {
		return zero, false, fmt.Errorf("%w: %s", ErrNoApply, q.name)
	}
	if len(q.items) == 0 {
		return zero, false, nil
	}
	u := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	q.metrics.SetQueueDepth(q.name, len(q.items))
	return u, true, nil
}

func (q *Queue[U]) run(u U) (err error) {
	defer func() {
		if r := recover(); r != nil {
			q.poison(u)
			monitoring.Logf("[UpdateQueue] %s poisoned: apply panicked: %v", q.name, r)
			err = fmt.Errorf("%w: apply panicked: %v", ErrConcurrencyFault, r)
		}
	}()
	err = q.apply(u)
	q.metrics.ObserveQueueApply(q.name, err)
	return err
}

// poison puts the in-flight item back at the head and blocks further work.
func (q *Queue[U]) poison(u U) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append([]U{u}, q.items...)
	q.poisoned = true
	q.metrics.SetQueueDepth(q.name, len(q.items))
}
