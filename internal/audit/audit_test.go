package audit

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mesfabric/routecraft/internal/models"
	"github.com/mesfabric/routecraft/internal/queue"
)

func TestRecorder_PersistsEmittedEvents(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.AuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	q := queue.NewMemoryQueue(8)
	recorder := NewRecorder(db, q)
	ctx, cancel := context.WithCancel(context.Background())
	recorder.Start(ctx)

	emitter := NewEmitter(q)
	userID := uint(7)
	emitter.Emit(ctx, queue.Event{
		UserID:      &userID,
		Username:    "petrov",
		EventType:   EventLogin,
		Description: "User logged in",
		IPAddress:   "10.0.0.1",
		Success:     true,
		Metadata:    map[string]interface{}{"method": "password"},
	})
	emitter.Emit(ctx, queue.Event{
		Username:  "ghost",
		EventType: EventLoginFailed,
	})

	// The recorder drains asynchronously; poll until both rows land.
	deadline := time.Now().Add(2 * time.Second)
	var count int64
	for time.Now().Before(deadline) {
		db.Model(&models.AuditLog{}).Count(&count)
		if count == 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if count != 2 {
		t.Fatalf("persisted %d events, want 2", count)
	}

	var logged models.AuditLog
	if err := db.Where("event_type = ?", EventLogin).First(&logged).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	if logged.Username != "petrov" || !logged.Success {
		t.Errorf("row = %s/success=%v, want petrov/true", logged.Username, logged.Success)
	}
	if logged.UserID == nil || *logged.UserID != 7 {
		t.Errorf("user id = %v, want 7", logged.UserID)
	}
	if logged.Metadata == "" {
		t.Error("metadata should be serialized")
	}
	if logged.Timestamp.IsZero() {
		t.Error("timestamp should be stamped")
	}

	cancel()
	recorder.Wait()
}

func TestRecorder_StopsOnQueueClose(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.AuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	q := queue.NewMemoryQueue(8)
	recorder := NewRecorder(db, q)
	recorder.Start(context.Background())

	q.Close()
	done := make(chan struct{})
	go func() {
		recorder.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("recorder did not stop after the queue closed")
	}
}
