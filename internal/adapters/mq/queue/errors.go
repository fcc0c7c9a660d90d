package queue

import (
	"context"
	"errors"
	"time"
)

// Sentinel kinds for queue errors.
var (
	ErrClosed = errors.New("queue closed")
)

const retryInterval = time.Millisecond

// EnqueueWait retries Enqueue until the job is accepted, the queue is closed or ctx ends.
func EnqueueWait(ctx context.Context, q Queue, j Job) error {
	for !q.Enqueue(ctx, j) {
		if q.IsClosed() {
			return ErrClosed
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return nil
}
