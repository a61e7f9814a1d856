package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// MemoryQueue implements an in-memory audit event queue
type MemoryQueue struct {
	events chan *Event
	mu     sync.Mutex
	closed bool
}

// NewMemoryQueue creates a new in-memory queue
func NewMemoryQueue(bufferSize int) *MemoryQueue {
	if bufferSize <= 0 {
		bufferSize = 256
	}

	q := &MemoryQueue{
		events: make(chan *Event, bufferSize),
	}

	slog.Info("Initialized in-memory audit queue", "buffer_size", bufferSize)
	return q
}

// Enqueue adds an event to the queue
func (q *MemoryQueue) Enqueue(ctx context.Context, event *Event) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.mu.Unlock()

	select {
	case q.events <- event:
		slog.Debug("Audit event enqueued", "event_type", event.EventType)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("queue is full, dropped %s event", event.EventType)
	}
}

// Dequeue retrieves the next event from the queue
func (q *MemoryQueue) Dequeue(ctx context.Context) (*Event, error) {
	select {
	case event, ok := <-q.events:
		if !ok {
			return nil, ErrQueueClosed
		}
		return event, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close closes the queue and releases resources
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.events)
	slog.Info("Memory queue closed")
	return nil
}
