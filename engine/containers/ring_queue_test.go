package containers

import (
	"testing"

	"github.com/spaghettifunk/anima/engine/core"
	"github.com/stretchr/testify/require"
)

func TestRingQueue_FIFO(t *testing.T) {
	rq := NewRingQueue[string](2)
	require.True(t, rq.IsEmpty())

	require.NoError(t, rq.Enqueue("a"))
	require.NoError(t, rq.Enqueue("b"))
	require.True(t, rq.IsFull())
	require.ErrorIs(t, rq.Enqueue("c"), core.ErrQueueFull)

	head, err := rq.Peek()
	require.NoError(t, err)
	require.Equal(t, "a", head)

	v, err := rq.Dequeue()
	require.NoError(t, err)
	require.Equal(t, "a", v)

	// wraps around the backing array
	require.NoError(t, rq.Enqueue("c"))
	v, _ = rq.Dequeue()
	require.Equal(t, "b", v)
	v, _ = rq.Dequeue()
	require.Equal(t, "c", v)

	_, err = rq.Dequeue()
	require.ErrorIs(t, err, core.ErrQueueEmpty)
}
