package queue

import (
	"context"
	"testing"
	"time"

	"github.com/okian/codevoice/internal/domain/model"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, model.Event{ID: "e1", Type: model.EventSessionStarted, SessionID: "s1"}) {
		t.Error("expected enqueue to succeed")
	}

	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	event := <-q.Dequeue(ctx)
	if event.ID != "e1" {
		t.Errorf("expected e1, got %v", event.ID)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, model.Event{ID: "e1"}) || !q.Enqueue(ctx, model.Event{ID: "e2"}) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, model.Event{ID: "e3"}) {
		t.Error("expected enqueue to fail when full")
	}

	// Publish drops silently instead of blocking.
	done := make(chan struct{})
	go func() {
		q.Publish(ctx, model.Event{ID: "e4"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full queue")
	}
}

func TestInMemoryQueue_CloseDrains(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	q.Enqueue(ctx, model.Event{ID: "e1"})
	q.Enqueue(ctx, model.Event{ID: "e2"})
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if q.Enqueue(ctx, model.Event{ID: "e3"}) {
		t.Error("expected enqueue after close to fail")
	}
	if err := q.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}

	var got []string
	for e := range q.Dequeue(ctx) {
		got = append(got, e.ID)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 drained events, got %v", got)
	}
}

func TestInMemoryQueue_OnDrop(t *testing.T) {
	var dropped []string
	q := NewInMemoryQueue(WithCapacity(1), WithOnDrop(func(e Event) {
		dropped = append(dropped, e.SessionID)
	}))
	ctx := context.Background()

	q.Publish(ctx, model.Event{ID: "e1", SessionID: "s1"})
	q.Publish(ctx, model.Event{ID: "e2", SessionID: "s2"})

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_ = q.Close()
	q.Publish(cancelled, model.Event{ID: "e3", SessionID: "s3"})

	if len(dropped) != 2 || dropped[0] != "s2" || dropped[1] != "s3" {
		t.Errorf("expected drops for s2 and s3, got %v", dropped)
	}
}
