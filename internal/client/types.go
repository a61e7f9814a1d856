package client

import (
	"encoding/json"
	"time"

	"github.com/mesfabric/routecraft/internal/graph"
)

// Route is the wire representation of a technological route.
type Route struct {
	ID              uint            `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	RouteCode       string          `json:"route_code"`
	Status          string          `json:"status"`
	RouteData       *graph.Document `json:"route_data,omitempty"`
	EstimatedTime   float64         `json:"estimated_time"`
	ProductType     string          `json:"product_type"`
	ComplexityLevel string          `json:"complexity_level"`
	VersionNumber   int             `json:"version_number"`
	TotalOperations int             `json:"total_operations"`
	CreatedBy       string          `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Version is a historical snapshot entry of a route. RouteData is only
// populated when fetching a single version.
type Version struct {
	ID            uint            `json:"id"`
	RouteID       uint            `json:"route_id"`
	VersionNumber int             `json:"version_number"`
	Description   string          `json:"description"`
	ChangeType    string          `json:"change_type"`
	ChangeSummary string          `json:"change_summary"`
	RouteData     json.RawMessage `json:"route_data,omitempty"`
	CreatedBy     string          `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Operation is the wire representation of a catalog operation.
type Operation struct {
	ID            uint    `json:"id"`
	Name          string  `json:"name"`
	OperationCode string  `json:"operation_code"`
	Description   string  `json:"description"`
	OperationType string  `json:"operation_type"`
	SetupTime     float64 `json:"setup_time"`
	OperationTime float64 `json:"operation_time"`
}

// Permission is the wire representation of a permission.
type Permission struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description"`
}

// Role is the wire representation of a role. Permissions are the granted
// permission names, "resource:action".
type Role struct {
	ID           uint     `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	IsSystemRole bool     `json:"is_system_role"`
	Permissions  []string `json:"permissions"`
	UserCount    int      `json:"user_count"`
}

// User is the wire representation of a user account. Roles and Permissions
// are flattened to names; Permissions is the union across roles.
type User struct {
	ID           uint     `json:"id"`
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	PhoneNumber  string   `json:"phone_number,omitempty"`
	Is2FAEnabled bool     `json:"is_2fa_enabled"`
	IsActive     bool     `json:"is_active"`
	IsLocked     bool     `json:"is_locked"`
	LastLogin    *string  `json:"last_login"`
	Roles        []string `json:"roles"`
	Permissions  []string `json:"permissions"`
}

// Pagination mirrors the server's list pagination block.
type Pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// AuditLog is the wire representation of an audit log entry.
type AuditLog struct {
	ID          uint      `json:"id"`
	UserID      *uint     `json:"user_id"`
	Username    string    `json:"username"`
	EventType   string    `json:"event_type"`
	Description string    `json:"event_description"`
	IPAddress   string    `json:"ip_address"`
	Success     bool      `json:"success"`
	Timestamp   time.Time `json:"timestamp"`
}

// conflictPayload is the 409 body returned when a save loses a version race.
type conflictPayload struct {
	Error           string                 `json:"error"`
	CurrentVersion  int                    `json:"current_version"`
	ProvidedVersion int                    `json:"provided_version"`
	Details         *graph.ConflictDetails `json:"details,omitempty"`
}
