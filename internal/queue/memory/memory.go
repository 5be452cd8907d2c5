// Package memory is an in-process queue for single-binary deployments and tests.
package memory

import (
	"context"
	"errors"

	"github.com/PoYaSharonLin/Sparko-api/internal/queue"
)

// ErrFull is returned by Publish when the buffer is full.
var ErrFull = errors.New("memory queue is full")

// Queue is a buffered channel shared by publishers and consumers.
type Queue struct {
	ch chan queue.Message
}

// New creates a queue holding up to size pending messages.
func New(size int) *Queue {
	if size <= 0 {
		size = 1024
	}
	return &Queue{ch: make(chan queue.Message, size)}
}

// Publish enqueues msg without blocking.
func (q *Queue) Publish(ctx context.Context, msg queue.Message) error {
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck // context error is returned as-is
	}
	select {
	case q.ch <- msg:
		return nil
	default:
		return ErrFull
	}
}

// Consume calls h for each message until ctx is canceled.
func (q *Queue) Consume(ctx context.Context, h queue.Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-q.ch:
			h(ctx, msg)
		}
	}
}

// Len reports pending messages.
func (q *Queue) Len() int { return len(q.ch) }
