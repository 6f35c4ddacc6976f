package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/flaggrid/internal/grid"
)

func TestOverlayQueueOrdersMetadataWrites(t *testing.T) {
	t.Parallel()
	o, err := New[string](2, 2)
	require.NoError(t, err)
	q := NewUpdateQueue(o)

	require.NoError(t, q.Queue(NewUpdate(0, 0, true, "first")))
	require.NoError(t, q.Queue(NewUpdate(0, 0, true, "second")))
	require.NoError(t, q.Queue(NewUpdate(3, 3, true, "lost")))

	err = q.DrainAll()
	assert.ErrorIs(t, err, grid.ErrIndexOutOfBounds)

	p, _ := o.Priority(0, 0)
	assert.Equal(t, "second", p, "last queued write wins")
	assert.Equal(t, 0, q.Len())
}

func TestOverlayQueuePoisonKeepsItem(t *testing.T) {
	t.Parallel()
	o, err := New[int](1, 1, grid.WithValidator(grid.ValidatorFunc(func(grid.Coord, bool) bool {
		panic("validator blew up")
	})))
	require.NoError(t, err)
	q := NewUpdateQueue(o)

	u := NewUpdate(0, 0, true, 1)
	require.NoError(t, q.Queue(u))

	_, err = q.ApplyNext()
	assert.ErrorIs(t, err, grid.ErrConcurrencyFault)
	assert.True(t, q.Poisoned())
	assert.Equal(t, []Update[int]{u}, q.Pending())
	assert.ErrorIs(t, q.Queue(NewUpdate(0, 0, false, 2)), grid.ErrConcurrencyFault)

	q.Recover()
	assert.False(t, q.Poisoned())
	assert.Equal(t, 1, q.Len())
}
