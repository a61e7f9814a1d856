package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ValkeyQueue implements a distributed audit event queue using Valkey.
// Events are serialized whole onto a list so any instance can run the
// recorder that drains them into the database.
type ValkeyQueue struct {
	client valkey.Client
	key    string
}

// NewValkeyQueue creates a new Valkey-backed queue
func NewValkeyQueue(addr string) (*ValkeyQueue, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pingCmd := client.B().Ping().Build()
	if err := client.Do(ctx, pingCmd).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Valkey: %w", err)
	}

	q := &ValkeyQueue{
		client: client,
		key:    "routecraft:audit",
	}

	slog.Info("Initialized Valkey audit queue", "address", addr, "queue_key", q.key)
	return q, nil
}

// Enqueue pushes an event onto the Valkey list (RPUSH for FIFO)
func (q *ValkeyQueue) Enqueue(ctx context.Context, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	cmd := q.client.B().Rpush().Key(q.key).Element(string(data)).Build()
	if err := q.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to push event to Valkey: %w", err)
	}

	slog.Debug("Audit event enqueued", "event_type", event.EventType, "queue_key", q.key)
	return nil
}

// Dequeue blocks on BLPOP for the next event
func (q *ValkeyQueue) Dequeue(ctx context.Context) (*Event, error) {
	cmd := q.client.B().Blpop().Key(q.key).Timeout(5).Build()
	result := q.client.Do(ctx, cmd)

	values, err := result.AsStrSlice()
	if err != nil {
		// BLPOP timed out with no events available, callers poll again
		return nil, context.DeadlineExceeded
	}
	if len(values) < 2 {
		return nil, fmt.Errorf("invalid BLPOP result: expected 2 values, got %d", len(values))
	}

	var event Event
	if err := json.Unmarshal([]byte(values[1]), &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal audit event: %w", err)
	}
	return &event, nil
}

// Close closes the Valkey connection
func (q *ValkeyQueue) Close() error {
	q.client.Close()
	slog.Info("Valkey queue closed")
	return nil
}
