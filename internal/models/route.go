package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/mesfabric/routecraft/internal/graph"
)

// RouteStatus is the lifecycle state of a technological route.
type RouteStatus string

const (
	RouteStatusDraft    RouteStatus = "draft"
	RouteStatusActive   RouteStatus = "active"
	RouteStatusArchived RouteStatus = "archived"
)

// ValidRouteStatus reports whether s is a known lifecycle state.
func ValidRouteStatus(s RouteStatus) bool {
	switch s {
	case RouteStatusDraft, RouteStatusActive, RouteStatusArchived:
		return true
	}
	return false
}

// Complexity levels for routes.
const (
	ComplexityLow    = "low"
	ComplexityMedium = "medium"
	ComplexityHigh   = "high"
)

// TechnologicalRoute is a directed graph of manufacturing operations for a
// product. VersionNumber backs the optimistic concurrency check: an update
// is accepted only when the submitted version matches the stored one.
type TechnologicalRoute struct {
	ID          uint        `gorm:"primarykey" json:"id"`
	Name        string      `gorm:"not null;index" json:"name"`
	Description string      `json:"description,omitempty"`
	RouteCode   string      `gorm:"uniqueIndex;not null" json:"route_code"`
	Status      RouteStatus `gorm:"not null;default:draft" json:"status"`

	// Graph payload (JSON, shape in internal/graph)
	RouteData string `gorm:"type:text" json:"-"`

	VersionNumber int `gorm:"not null;default:1" json:"version_number"`

	EstimatedTime   float64 `json:"estimated_time,omitempty"` // hours
	ProductType     string  `json:"product_type,omitempty"`
	ComplexityLevel string  `gorm:"not null;default:medium" json:"complexity_level"`

	CreatedByID uint           `gorm:"not null" json:"-"`
	CreatedBy   *User          `gorm:"foreignKey:CreatedByID" json:"-"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Operations []Operation    `gorm:"many2many:route_operations" json:"-"`
	Versions   []RouteVersion `gorm:"foreignKey:RouteID" json:"-"`
}

// Graph decodes the stored route_data payload.
func (r *TechnologicalRoute) Graph() (*graph.Document, error) {
	return graph.Parse(r.RouteData)
}

// SetGraph encodes and stores a graph payload.
func (r *TechnologicalRoute) SetGraph(d *graph.Document) error {
	if d == nil {
		r.RouteData = ""
		return nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	r.RouteData = string(raw)
	return nil
}

// RouteInfo is the API payload for a route.
type RouteInfo struct {
	ID              uint            `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	RouteCode       string          `json:"route_code"`
	Status          RouteStatus     `json:"status"`
	RouteData       *graph.Document `json:"route_data"`
	VersionNumber   int             `json:"version_number"`
	EstimatedTime   float64         `json:"estimated_time,omitempty"`
	ProductType     string          `json:"product_type,omitempty"`
	ComplexityLevel string          `json:"complexity_level"`
	TotalOperations int             `json:"total_operations"`
	CreatedBy       string          `json:"created_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Operations      []OperationInfo `json:"operations,omitempty"`
}

// Info builds the API payload for the route. Graph decode failures yield a
// nil payload rather than an error: a corrupt graph must not make the route
// itself unreadable.
func (r *TechnologicalRoute) Info() RouteInfo {
	doc, err := r.Graph()
	if err != nil {
		doc = nil
	}
	info := RouteInfo{
		ID:              r.ID,
		Name:            r.Name,
		Description:     r.Description,
		RouteCode:       r.RouteCode,
		Status:          r.Status,
		RouteData:       doc,
		VersionNumber:   r.VersionNumber,
		EstimatedTime:   r.EstimatedTime,
		ProductType:     r.ProductType,
		ComplexityLevel: r.ComplexityLevel,
		TotalOperations: len(r.Operations),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.CreatedBy != nil {
		info.CreatedBy = r.CreatedBy.Username
	}
	for _, op := range r.Operations {
		info.Operations = append(info.Operations, op.Info())
	}
	return info
}
