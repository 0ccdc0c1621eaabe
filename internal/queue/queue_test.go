package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueDequeueFIFOOrder(t *testing.T) {
	q := New(2)
	by1 := "user1"
	by2 := "user2"
	require.NoError(t, q.Enqueue(context.Background(), Request{TriggeredBy: &by1}))
	require.NoError(t, q.Enqueue(context.Background(), Request{TriggeredBy: &by2}))

	first, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &by1, first.TriggeredBy)

	second, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &by2, second.TriggeredBy)
}

func TestTryEnqueueFailsFastWhenFull(t *testing.T) {
	q := New(1)
	assert.True(t, q.TryEnqueue(Request{}))
	assert.False(t, q.TryEnqueue(Request{}))
}

func TestDequeueBlocksUntilCancelled(t *testing.T) {
	q := New(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := q.Dequeue(ctx)
	require.Error(t, err)
}

func TestEnqueueAssignsIDWhenUnset(t *testing.T) {
	q := New(1)
	require.NoError(t, q.Enqueue(context.Background(), Request{}))
	req, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, req.ID)
}
