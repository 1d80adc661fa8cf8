// Package queue carries export task ids from the API to the export workers.
package queue

import (
	"context"
	"errors"
)

// ErrClosed is returned by Dequeue after Close.
var ErrClosed = errors.New("queue: closed")

// Queue is a FIFO of task ids. Delivery is at most once: an id dequeued by a
// worker that then crashes is recovered by re-enqueueing pending tasks on startup.
type Queue interface {
	Enqueue(ctx context.Context, id int64) error

	// Dequeue blocks until an id is available or ctx is done.
	Dequeue(ctx context.Context) (int64, error)

	Close() error
}
