package service

import "github.com/mesfabric/routecraft/internal/graph"

// ListOptions controls pagination and filtering of route listings.
type ListOptions struct {
	Page     int    `form:"page"`
	PerPage  int    `form:"per_page"`
	Status   string `form:"status"`
	Search   string `form:"search"`
	Product  string `form:"product_type"`
	SortBy   string `form:"sort_by"`
	SortDesc bool   `form:"sort_desc"`
}

// Normalize clamps pagination to sane bounds.
func (o *ListOptions) Normalize() {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.PerPage < 1 {
		o.PerPage = 20
	}
	if o.PerPage > 100 {
		o.PerPage = 100
	}
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// CreateRouteRequest is the payload for creating a route.
type CreateRouteRequest struct {
	Name            string          `json:"name" binding:"required"`
	Description     string          `json:"description"`
	RouteCode       string          `json:"route_code" binding:"required"`
	Status          string          `json:"status"`
	RouteData       *graph.Document `json:"route_data"`
	EstimatedTime   float64         `json:"estimated_time"`
	ProductType     string          `json:"product_type"`
	ComplexityLevel string          `json:"complexity_level"`
}

// UpdateRouteRequest is the payload for updating a route. VersionNumber is
// the version the caller based its edits on; ForceUpdate skips the version
// check for deliberate overwrites.
type UpdateRouteRequest struct {
	Name            *string         `json:"name"`
	Description     *string         `json:"description"`
	Status          *string         `json:"status"`
	RouteData       *graph.Document `json:"route_data"`
	EstimatedTime   *float64        `json:"estimated_time"`
	ProductType     *string         `json:"product_type"`
	ComplexityLevel *string         `json:"complexity_level"`
	VersionNumber   int             `json:"version_number"`
	ForceUpdate     bool            `json:"force_update"`
	ChangeSummary   string          `json:"change_summary"`
}

// CreateVersionRequest carries the optional description for a manual
// version snapshot.
type CreateVersionRequest struct {
	Description string `json:"description"`
}

// RestoreRequest names the version to restore.
type RestoreRequest struct {
	VersionNumber int `json:"version_number" binding:"required"`
}

// DuplicateRequest optionally overrides the copy's identity.
type DuplicateRequest struct {
	Name      string `json:"name"`
	RouteCode string `json:"route_code"`
}

// ValidationResult reports graph validation findings.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// RouteStatistics aggregates timing and structure facts about one route.
type RouteStatistics struct {
	RouteID          uint               `json:"route_id"`
	RouteCode        string             `json:"route_code"`
	NodeCount        int                `json:"node_count"`
	EdgeCount        int                `json:"edge_count"`
	OperationCount   int                `json:"operation_count"`
	TotalSetupTime   float64            `json:"total_setup_time"`
	TotalWorkTime    float64            `json:"total_work_time"`
	TotalTime        float64            `json:"total_time"`
	OperationsByType map[string]int     `json:"operations_by_type"`
	TimeByType       map[string]float64 `json:"time_by_type"`
}

// RouteDependencies is the adjacency projection of a route graph.
type RouteDependencies struct {
	RouteID    uint                `json:"route_id"`
	Nodes      []DependencyNode    `json:"nodes"`
	Edges      [][2]string         `json:"edges"`
	Successors map[string][]string `json:"successors"`
}

// DependencyNode is one node in the dependency projection.
type DependencyNode struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Label string `json:"label"`
}

// OptimizeSuggestion is a single advisory finding from route analysis.
type OptimizeSuggestion struct {
	Kind    string  `json:"kind"`
	NodeID  string  `json:"node_id,omitempty"`
	Message string  `json:"message"`
	Minutes float64 `json:"minutes,omitempty"`
}

// CreateOperationRequest is the payload for creating a catalog operation.
type CreateOperationRequest struct {
	Name                string                 `json:"name" binding:"required"`
	Description         string                 `json:"description"`
	OperationCode       string                 `json:"operation_code" binding:"required"`
	OperationType       string                 `json:"operation_type" binding:"required"`
	SetupTime           float64                `json:"setup_time"`
	OperationTime       float64                `json:"operation_time"`
	RequiredEquipment   []string               `json:"required_equipment"`
	RequiredSkills      []string               `json:"required_skills"`
	QualityRequirements map[string]interface{} `json:"quality_requirements"`
}

// UpdateOperationRequest is the payload for updating a catalog operation.
type UpdateOperationRequest struct {
	Name                *string                `json:"name"`
	Description         *string                `json:"description"`
	OperationType       *string                `json:"operation_type"`
	SetupTime           *float64               `json:"setup_time"`
	OperationTime       *float64               `json:"operation_time"`
	RequiredEquipment   []string               `json:"required_equipment"`
	RequiredSkills      []string               `json:"required_skills"`
	QualityRequirements map[string]interface{} `json:"quality_requirements"`
}

// RegisterRequest is the self-service signup payload.
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateUserRequest is the admin payload for provisioning a user.
type CreateUserRequest struct {
	Username    string   `json:"username" binding:"required"`
	Email       string   `json:"email" binding:"required"`
	Password    string   `json:"password" binding:"required"`
	PhoneNumber string   `json:"phone_number"`
	Roles       []string `json:"roles"`
}

// UpdateUserRequest is the admin payload for editing a user.
type UpdateUserRequest struct {
	Email       *string `json:"email"`
	PhoneNumber *string `json:"phone_number"`
	IsActive    *bool   `json:"is_active"`
}

// CreateRoleRequest is the payload for creating a role.
type CreateRoleRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

// UpdateRoleRequest is the payload for editing a role.
type UpdateRoleRequest struct {
	Description *string  `json:"description"`
	Permissions []string `json:"permissions"`
}

// CreatePermissionRequest is the payload for creating a permission.
type CreatePermissionRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Resource    string `json:"resource" binding:"required"`
	Action      string `json:"action" binding:"required"`
}

// AuditLogOptions filters audit log listings.
type AuditLogOptions struct {
	Page      int    `form:"page"`
	PerPage   int    `form:"per_page"`
	EventType string `form:"event_type"`
	Username  string `form:"username"`
}
