package queue

import (
	"context"
	"sync"
)

// Memory is a buffered in-process queue for single-replica deployments.
type Memory struct {
	ch     chan int64
	once   sync.Once
	closed chan struct{}
}

func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Memory{ch: make(chan int64, capacity), closed: make(chan struct{})}
}

// Enqueue blocks while the buffer is full.
func (q *Memory) Enqueue(ctx context.Context, id int64) error {
	select {
	case <-q.closed:
		return ErrClosed
	default:
	}

	select {
	case q.ch <- id:
		return nil
	case <-q.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Memory) Dequeue(ctx context.Context) (int64, error) {
	select {
	case id := <-q.ch:
		return id, nil
	case <-q.closed:
		return 0, ErrClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (q *Memory) Close() error {
	q.once.Do(func() { close(q.closed) })
	return nil
}
