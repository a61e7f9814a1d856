package models

import "time"

// Permission represents a grantable capability, conventionally referenced
// as "resource:action". The wildcard forms "resource:*" and "*:*" subsume
// narrower permissions at check time.
type Permission struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Description string    `json:"description"`
	Resource    string    `gorm:"not null;index" json:"resource"`
	Action      string    `gorm:"not null" json:"action"`
	CreatedAt   time.Time `json:"created_at"`

	Roles []Role `gorm:"many2many:role_permissions" json:"-"`
}
