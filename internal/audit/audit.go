// Package audit records security-relevant events. Events are emitted onto a
// queue on the request path and drained into the audit_logs table by a
// background recorder, so a slow database never blocks a login.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/mesfabric/routecraft/internal/models"
	"github.com/mesfabric/routecraft/internal/queue"
)

// Audit event type constants
const (
	EventLogin              = "login"
	EventLoginFailed        = "login_failed"
	EventLogout             = "logout"
	EventPasswordChanged    = "password_changed"
	EventTwoFactorEnabled   = "2fa_enabled"
	EventTwoFactorDisabled  = "2fa_disabled"
	EventUserRegistered     = "user_registered"
	EventUserCreated        = "user_created"
	EventUserUpdated        = "user_updated"
	EventUserDeleted        = "user_deleted"
	EventUserActivated      = "user_activated"
	EventUserDeactivated    = "user_deactivated"
	EventUserUnlocked       = "user_unlocked"
	EventRoleCreated        = "role_created"
	EventRoleUpdated        = "role_updated"
	EventRoleDeleted        = "role_deleted"
	EventRoleAssigned       = "role_assigned"
	EventRoleRevoked        = "role_revoked"
	EventPermissionGranted  = "permission_granted"
	EventPermissionRevoked  = "permission_revoked"
	EventRouteCreated       = "route_created"
	EventRouteUpdated       = "route_updated"
	EventRouteForceSaved    = "route_force_saved"
	EventRouteDeleted       = "route_deleted"
	EventRouteRestored      = "route_restored"
	EventVersionCreated     = "route_version_created"
	EventRouteExported      = "route_exported"
	EventOperationCreated   = "operation_created"
	EventOperationUpdated   = "operation_updated"
	EventOperationDeleted   = "operation_deleted"
)

// Recorder drains audit events from the queue into the database.
type Recorder struct {
	db    *gorm.DB
	queue queue.Queue
	done  chan struct{}
}

// NewRecorder creates a recorder over the given queue.
func NewRecorder(db *gorm.DB, q queue.Queue) *Recorder {
	return &Recorder{db: db, queue: q, done: make(chan struct{})}
}

// Start runs the drain loop until the context is cancelled.
func (r *Recorder) Start(ctx context.Context) {
	go func() {
		defer close(r.done)
		for {
			event, err := r.queue.Dequeue(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, queue.ErrQueueClosed) {
					return
				}
				if errors.Is(err, context.DeadlineExceeded) {
					continue
				}
				slog.Error("Failed to dequeue audit event", "error", err)
				continue
			}
			if err := r.persist(event); err != nil {
				slog.Error("Failed to persist audit event", "event_type", event.EventType, "error", err)
			}
		}
	}()
}

// Wait blocks until the drain loop has exited.
func (r *Recorder) Wait() {
	<-r.done
}

func (r *Recorder) persist(event *queue.Event) error {
	metadata := ""
	if len(event.Metadata) > 0 {
		if data, err := json.Marshal(event.Metadata); err == nil {
			metadata = string(data)
		}
	}

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	log := models.AuditLog{
		UserID:      event.UserID,
		Username:    event.Username,
		EventType:   event.EventType,
		Description: event.Description,
		IPAddress:   event.IPAddress,
		UserAgent:   event.UserAgent,
		Success:     event.Success,
		Metadata:    metadata,
		Timestamp:   ts,
	}
	return r.db.Create(&log).Error
}

// Emitter publishes audit events. Enqueue failures are logged but never
// surfaced to the caller.
type Emitter struct {
	queue queue.Queue
}

// NewEmitter creates an emitter over the given queue.
func NewEmitter(q queue.Queue) *Emitter {
	return &Emitter{queue: q}
}

// Emit publishes an event, stamping the timestamp if unset.
func (e *Emitter) Emit(ctx context.Context, event queue.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := e.queue.Enqueue(ctx, &event); err != nil {
		slog.Error("Failed to enqueue audit event", "event_type", event.EventType, "error", err)
	}
}
