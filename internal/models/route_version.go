package models

import (
	"time"

	"gorm.io/gorm"
)

// Change types recorded on route versions.
const (
	ChangeTypeInitial   = "initial"
	ChangeTypeUpdate    = "update"
	ChangeTypeForced    = "forced_overwrite"
	ChangeTypeRestore   = "restore"
	ChangeTypeManual    = "manual"
	ChangeTypeDuplicate = "duplicate"
)

// RouteVersion is an append-only snapshot of a route at a point in time.
// Restoring a version creates a new version rather than mutating history.
type RouteVersion struct {
	ID      uint                `gorm:"primarykey" json:"id"`
	RouteID uint                `gorm:"not null;index:idx_route_version" json:"route_id"`
	Route   *TechnologicalRoute `gorm:"foreignKey:RouteID" json:"-"`

	VersionNumber int `gorm:"not null;index:idx_route_version" json:"version_number"`

	Description   string `json:"description,omitempty"`
	ChangeType    string `gorm:"not null;default:update" json:"change_type"`
	ChangeSummary string `json:"change_summary,omitempty"`

	// Snapshot of the route (name, status, metadata, graph payload) as JSON
	RouteData string `gorm:"type:text;not null" json:"-"`

	CreatedByID uint      `gorm:"not null" json:"-"`
	CreatedBy   *User     `gorm:"foreignKey:CreatedByID" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// BeforeCreate assigns the next version number for the route when one was
// not set explicitly.
func (v *RouteVersion) BeforeCreate(tx *gorm.DB) error {
	if v.VersionNumber != 0 {
		return nil
	}
	var max struct {
		MaxVersion *int
	}
	tx.Model(&RouteVersion{}).
		Select("MAX(version_number) as max_version").
		Where("route_id = ?", v.RouteID).
		Scan(&max)
	if max.MaxVersion == nil {
		v.VersionNumber = 1
	} else {
		v.VersionNumber = *max.MaxVersion + 1
	}
	return nil
}

// VersionInfo is the API payload for a route version.
type VersionInfo struct {
	ID            uint        `json:"id"`
	RouteID       uint        `json:"route_id"`
	VersionNumber int         `json:"version_number"`
	Description   string      `json:"description,omitempty"`
	ChangeType    string      `json:"change_type"`
	ChangeSummary string      `json:"change_summary,omitempty"`
	RouteData     interface{} `json:"route_data,omitempty"`
	CreatedBy     string      `json:"created_by,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}
