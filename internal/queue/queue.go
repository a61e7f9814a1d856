// Package queue provides the transport for audit events between the request
// path and the recorder that persists them. Two backends exist: an in-memory
// channel for single-process deployments and a Valkey list for distributed
// ones.
package queue

import (
	"context"
	"errors"
	"time"
)

// ErrQueueClosed is returned when operating on a closed queue.
var ErrQueueClosed = errors.New("queue closed")

// Event is a single audit event in flight. The recorder turns these into
// audit log rows; until then they live only in the queue.
type Event struct {
	UserID      *uint                  `json:"user_id,omitempty"`
	Username    string                 `json:"username,omitempty"`
	EventType   string                 `json:"event_type"`
	Description string                 `json:"description,omitempty"`
	IPAddress   string                 `json:"ip_address,omitempty"`
	UserAgent   string                 `json:"user_agent,omitempty"`
	Success     bool                   `json:"success"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

// Queue is the audit event transport.
type Queue interface {
	// Enqueue adds an event to the queue
	Enqueue(ctx context.Context, event *Event) error

	// Dequeue blocks until the next event is available or the context is
	// done. An empty queue surfaces as context.DeadlineExceeded so callers
	// can poll.
	Dequeue(ctx context.Context) (*Event, error)

	// Close closes the queue and releases resources
	Close() error
}
