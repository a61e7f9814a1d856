package models

import "time"

// Archive reasons.
const (
	ArchiveReasonDeleted  = "deleted"
	ArchiveReasonReplaced = "replaced"
	ArchiveReasonObsolete = "obsolete"
)

// Archive keeps a full JSON snapshot of deleted entities so destructive
// operations stay recoverable.
type Archive struct {
	ID         uint   `gorm:"primarykey" json:"id"`
	EntityType string `gorm:"not null;index" json:"entity_type"` // "route" or "operation"
	EntityID   uint   `gorm:"not null;index" json:"entity_id"`
	EntityData string `gorm:"type:text;not null" json:"-"` // full JSON snapshot

	Reason string `gorm:"not null;default:deleted" json:"reason"`
	Notes  string `json:"notes,omitempty"`

	ArchivedByID uint      `gorm:"not null" json:"-"`
	ArchivedBy   *User     `gorm:"foreignKey:ArchivedByID" json:"-"`
	ArchivedAt   time.Time `gorm:"autoCreateTime" json:"archived_at"`
}
