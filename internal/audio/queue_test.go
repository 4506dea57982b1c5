package audio

import (
	"context"
	"testing"
	"time"
)

func chunk(role Role, n int) Chunk {
	return Chunk{Role: role, Samples: make([]float32, n), SampleRate: 16000, Captured: time.Now()}
}

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(4, nil)
	q.Put(chunk(RoleUser, 1))
	q.Put(chunk(RoleAssistant, 2))
	q.Put(chunk(RoleUser, 3))

	ctx := context.Background()
	for i, want := range []int{1, 2, 3} {
		c, ok := q.Next(ctx)
		if !ok {
			t.Fatalf("chunk %d missing", i)
		}
		if len(c.Samples) != want {
			t.Errorf("chunk %d: expected %d samples, got %d", i, want, len(c.Samples))
		}
	}
	if q.Len() != 0 {
		t.Errorf("queue not empty: %d", q.Len())
	}
}

func TestQueueDropsOldestWhenFull(t *testing.T) {
	var dropped []Chunk
	q := NewQueue(2, func(c Chunk) { dropped = append(dropped, c) })

	q.Put(chunk(RoleUser, 1))
	q.Put(chunk(RoleUser, 2))
	q.Put(chunk(RoleUser, 3)) // evicts the first

	if q.Dropped() != 1 {
		t.Fatalf("expected 1 drop, got %d", q.Dropped())
	}
	if len(dropped) != 1 || len(dropped[0].Samples) != 1 {
		t.Fatalf("wrong chunk evicted: %+v", dropped)
	}

	c, _ := q.TryNext()
	if len(c.Samples) != 2 {
		t.Errorf("expected oldest surviving chunk first, got %d samples", len(c.Samples))
	}
	c, _ = q.TryNext()
	if len(c.Samples) != 3 {
		t.Errorf("expected newest chunk last, got %d samples", len(c.Samples))
	}
}

func TestQueueNextReturnsOnCancel(t *testing.T) {
	q := NewQueue(2, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool)
	go func() {
		_, ok := q.Next(ctx)
		done <- ok
	}()

	cancel()
	select {
	case ok := <-done:
		if ok {
			t.Error("Next returned a chunk from an empty queue")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not return on cancel")
	}
}

func TestQueueTryNextEmpty(t *testing.T) {
	q := NewQueue(1, nil)
	if _, ok := q.TryNext(); ok {
		t.Error("TryNext returned a chunk from an empty queue")
	}
}

func TestChunkDuration(t *testing.T) {
	c := Chunk{Samples: make([]float32, 8000), SampleRate: 16000}
	if got := c.Duration(); got != 500*time.Millisecond {
		t.Errorf("expected 500ms, got %v", got)
	}
	if got := (Chunk{}).Duration(); got != 0 {
		t.Errorf("zero chunk should have zero duration, got %v", got)
	}
}
