package models

import (
	"encoding/json"
	"time"
)

// AuditLog records authentication, authorization and data-change events.
// Username is denormalized so entries survive user deletion.
type AuditLog struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	UserID      *uint  `gorm:"index" json:"user_id,omitempty"`
	Username    string `json:"username,omitempty"`
	EventType   string `gorm:"not null;index" json:"event_type"`
	Description string `gorm:"not null" json:"event_description"`
	IPAddress   string `json:"ip_address,omitempty"`
	UserAgent   string `json:"-"`
	Success     bool   `gorm:"not null;index" json:"success"`
	Metadata    string `gorm:"type:text" json:"-"` // JSON object

	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
}

// MetadataMap decodes the metadata JSON, returning nil when absent.
func (l *AuditLog) MetadataMap() map[string]interface{} {
	if l.Metadata == "" {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(l.Metadata), &out); err != nil {
		return nil
	}
	return out
}
