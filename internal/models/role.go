package models

import (
	"time"

	"gorm.io/gorm"
)

// Role represents an RBAC role. System roles cannot be renamed or deleted.
type Role struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	Name         string         `gorm:"uniqueIndex;not null" json:"name"`
	Description  string         `json:"description"`
	IsSystemRole bool           `gorm:"not null;default:false" json:"is_system_role"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	Permissions []Permission `gorm:"many2many:role_permissions" json:"-"`
	Users       []User       `gorm:"many2many:user_roles" json:"-"`
}

// RoleInfo is the API payload for a role.
type RoleInfo struct {
	ID           uint     `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	IsSystemRole bool     `json:"is_system_role"`
	Permissions  []string `json:"permissions"`
	UserCount    int      `json:"user_count"`
}

// Info builds the API payload, flattening permissions to names.
func (r *Role) Info() RoleInfo {
	perms := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, p.Name)
	}
	return RoleInfo{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		IsSystemRole: r.IsSystemRole,
		Permissions:  perms,
		UserCount:    len(r.Users),
	}
}
