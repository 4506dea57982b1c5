package audio

import (
	"context"
	"sync/atomic"
)

// Queue is the bounded chunk queue between the capture streams and the
// transcription worker. When full, the oldest chunk is dropped so capture
// never blocks.
type Queue struct {
	ch      chan Chunk
	dropped atomic.Uint64
	onDrop  func(Chunk)
}

// NewQueue creates a queue holding at most capacity chunks. onDrop, if
// non-nil, is called for every chunk evicted by the drop-oldest policy.
func NewQueue(capacity int, onDrop func(Chunk)) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		ch:     make(chan Chunk, capacity),
		onDrop: onDrop,
	}
}

// Put enqueues a chunk, evicting the oldest one if the queue is full.
// Never blocks.
func (q *Queue) Put(c Chunk) {
	for {
		select {
		case q.ch <- c:
			return
		default:
		}
		select {
		case old := <-q.ch:
			q.dropped.Add(1)
			if q.onDrop != nil {
				q.onDrop(old)
			}
		default:
			// another consumer got there first, retry the send
		}
	}
}

// Next blocks until a chunk is available or ctx is done.
func (q *Queue) Next(ctx context.Context) (Chunk, bool) {
	select {
	case c := <-q.ch:
		return c, true
	case <-ctx.Done():
		// one last non-blocking look so a cancel racing an enqueue
		// does not lose the chunk
		select {
		case c := <-q.ch:
			return c, true
		default:
			return Chunk{}, false
		}
	}
}

// TryNext returns a queued chunk without blocking. Used by the shutdown
// drain.
func (q *Queue) TryNext() (Chunk, bool) {
	select {
	case c := <-q.ch:
		return c, true
	default:
		return Chunk{}, false
	}
}

// Len returns the number of queued chunks.
func (q *Queue) Len() int { return len(q.ch) }

// Dropped returns how many chunks were evicted so far.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }
