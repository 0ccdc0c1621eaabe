// Package queue provides the bounded scan-request FIFO consumed by the
// orchestrator's worker loop.
package queue

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sentineldb/sentinel/internal/types"
)

// DefaultCapacity is the queue.capacity configuration default.
const DefaultCapacity = 10

// Request is one scan request. A nil TenantID/Environment means "every
// tracked tenant/environment" for a full scan.
type Request struct {
	ID          string
	TenantID    *int
	Environment *types.Environment
	TriggeredBy *string
	ScanAll     bool
}

// Queue is a bounded, thread-safe FIFO of scan Requests backed by a
// buffered channel.
type Queue struct {
	ch chan Request
}

// New creates a Queue with the given capacity (queue.capacity, default 10
// via DefaultCapacity).
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{ch: make(chan Request, capacity)}
}

// Enqueue blocks until the request is accepted or ctx is cancelled. It
// assigns a request ID if the caller left one unset.
func (q *Queue) Enqueue(ctx context.Context, req Request) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	select {
	case q.ch <- req:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: enqueue scan request: %v", types.ErrCancelled, ctx.Err())
	}
}

// TryEnqueue fails fast with false if the queue is full, rather than
// blocking; it never silently drops the request.
func (q *Queue) TryEnqueue(req Request) (accepted bool) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	select {
	case q.ch <- req:
		return true
	default:
		return false
	}
}

// Dequeue blocks until a request arrives or ctx is cancelled.
func (q *Queue) Dequeue(ctx context.Context) (Request, error) {
	select {
	case req := <-q.ch:
		return req, nil
	case <-ctx.Done():
		return Request{}, fmt.Errorf("%w: dequeue scan request: %v", types.ErrCancelled, ctx.Err())
	}
}

// Len reports how many requests are currently buffered.
func (q *Queue) Len() int {
	return len(q.ch)
}
