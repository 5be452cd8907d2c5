package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PoYaSharonLin/Sparko-api/internal/queue"
)

func TestPublishConsume(t *testing.T) {
	q := New(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := q.Publish(ctx, queue.Message{Type: queue.TypeEmbedResearchInterest, JobID: "j1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := make(chan queue.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- q.Consume(ctx, func(_ context.Context, m queue.Message) {
			got <- m
			cancel()
		})
	}()

	select {
	case m := <-got:
		if m.JobID != "j1" {
			t.Errorf("unexpected message: %+v", m)
		}
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
	if err := <-done; err != nil {
		t.Errorf("unexpected consume error: %v", err)
	}
}

func TestPublish_Full(t *testing.T) {
	q := New(1)
	ctx := context.Background()
	if err := q.Publish(ctx, queue.Message{JobID: "a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := q.Publish(ctx, queue.Message{JobID: "b"}); !errors.Is(err, ErrFull) {
		t.Fatalf("expected ErrFull, got %v", err)
	}
	if q.Len() != 1 {
		t.Errorf("expected 1 pending, got %d", q.Len())
	}
}

func TestConsume_StopsOnCancel(t *testing.T) {
	q := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Consume(ctx, func(context.Context, queue.Message) {}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
