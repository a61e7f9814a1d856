package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mesfabric/routecraft/internal/models"
	"github.com/mesfabric/routecraft/internal/service"
)

// AdminHandler serves the user, role, permission and audit log endpoints.
type AdminHandler struct {
	svc *service.AdminService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(svc *service.AdminService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// ListUsers godoc
// @Summary List users
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.UserProfile
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.svc.ListUsers()
	if err != nil {
		handleServiceError(c, err)
		return
	}

	out := make([]models.UserProfile, 0, len(users))
	for i := range users {
		out = append(out, users[i].Profile())
	}
	c.JSON(http.StatusOK, out)
}

// GetUser godoc
// @Summary Get a user
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.UserProfile
// @Failure 404 {object} ErrorResponse
// @Router /admin/users/{id} [get]
func (h *AdminHandler) GetUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := h.svc.GetUser(id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user.Profile())
}

// CreateUser godoc
// @Summary Create a user
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param user body service.CreateUserRequest true "User"
// @Success 201 {object} models.UserProfile
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /admin/users [post]
func (h *AdminHandler) CreateUser(c *gin.Context) {
	actor, ok := mustUser(c)
	if !ok {
		return
	}
	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	user, err := h.svc.CreateUser(c.Request.Context(), req, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user.Profile())
}

// UpdateUser godoc
// @Summary Update a user
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param user body service.UpdateUserRequest true "Changes"
// @Success 200 {object} models.UserProfile
// @Failure 404 {object} ErrorResponse
// @Router /admin/users/{id} [put]
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	actor, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	user, err := h.svc.UpdateUser(c.Request.Context(), id, req, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user.Profile())
}

// UnlockUser godoc
// @Summary Clear a user's lockout
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /admin/users/{id}/unlock [post]
func (h *AdminHandler) UnlockUser(c *gin.Context) {
	actor, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.UnlockUser(c.Request.Context(), id, actor); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user unlocked"})
}

// DeleteUser godoc
// @Summary Delete a user
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	actor, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteUser(c.Request.Context(), id, actor); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

type roleMembershipRequest struct {
	Role string `json:"role" binding:"required"`
}

// AssignRole godoc
// @Summary Assign a role to a user
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body roleMembershipRequest true "Role name"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Router /admin/users/{id}/roles [post]
func (h *AdminHandler) AssignRole(c *gin.Context) {
	actor, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req roleMembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if err := h.svc.AssignRole(c.Request.Context(), id, req.Role, actor); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "role assigned"})
}

// RevokeRole godoc
// @Summary Revoke a role from a user
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path int true "User ID"
// @Param role path string true "Role name"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Router /admin/users/{id}/roles/{role} [delete]
func (h *AdminHandler) RevokeRole(c *gin.Context) {
	actor, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	roleName := c.Param("role")
	if err := h.svc.RevokeRole(c.Request.Context(), id, roleName, actor); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "role revoked"})
}

// ListRoles godoc
// @Summary List roles
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.RoleInfo
// @Router /admin/roles [get]
func (h *AdminHandler) ListRoles(c *gin.Context) {
	roles, err := h.svc.ListRoles()
	if err != nil {
		handleServiceError(c, err)
		return
	}

	out := make([]models.RoleInfo, 0, len(roles))
	for i := range roles {
		out = append(out, roles[i].Info())
	}
	c.JSON(http.StatusOK, out)
}

// CreateRole godoc
// @Summary Create a role
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param role body service.CreateRoleRequest true "Role"
// @Success 201 {object} models.RoleInfo
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /admin/roles [post]
func (h *AdminHandler) CreateRole(c *gin.Context) {
	actor, ok := mustUser(c)
	if !ok {
		return
	}
	var req service.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	role, err := h.svc.CreateRole(c.Request.Context(), req, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, role.Info())
}

// UpdateRole godoc
// @Summary Update a role
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Role ID"
// @Param role body service.UpdateRoleRequest true "Changes"
// @Success 200 {object} models.RoleInfo
// @Failure 404 {object} ErrorResponse
// @Router /admin/roles/{id} [put]
func (h *AdminHandler) UpdateRole(c *gin.Context) {
	actor, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	role, err := h.svc.UpdateRole(c.Request.Context(), id, req, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, role.Info())
}

// DeleteRole godoc
// @Summary Delete a role
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path int true "Role ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /admin/roles/{id} [delete]
func (h *AdminHandler) DeleteRole(c *gin.Context) {
	actor, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteRole(c.Request.Context(), id, actor); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "role deleted"})
}

// ListPermissions godoc
// @Summary List the permission catalog
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Permission
// @Router /admin/permissions [get]
func (h *AdminHandler) ListPermissions(c *gin.Context) {
	perms, err := h.svc.ListPermissions()
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, perms)
}

// CreatePermission godoc
// @Summary Create a permission
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param permission body service.CreatePermissionRequest true "Permission"
// @Success 201 {object} models.Permission
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /admin/permissions [post]
func (h *AdminHandler) CreatePermission(c *gin.Context) {
	actor, ok := mustUser(c)
	if !ok {
		return
	}
	var req service.CreatePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	perm, err := h.svc.CreatePermission(c.Request.Context(), req, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, perm)
}

type rolePermissionRequest struct {
	Permission string `json:"permission" binding:"required"`
}

// GrantPermission godoc
// @Summary Grant a permission to a role
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Role ID"
// @Param request body rolePermissionRequest true "Permission name"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Router /admin/roles/{id}/permissions [post]
func (h *AdminHandler) GrantPermission(c *gin.Context) {
	actor, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req rolePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if err := h.svc.GrantPermission(c.Request.Context(), id, req.Permission, actor); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "permission granted"})
}

// RevokePermission godoc
// @Summary Revoke a permission from a role
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path int true "Role ID"
// @Param permission path string true "Permission name"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Router /admin/roles/{id}/permissions/{permission} [delete]
func (h *AdminHandler) RevokePermission(c *gin.Context) {
	actor, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	permName := c.Param("permission")
	if err := h.svc.RevokePermission(c.Request.Context(), id, permName, actor); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "permission revoked"})
}

// ListAuditLogs godoc
// @Summary List audit log entries
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param page query int false "Page number"
// @Param per_page query int false "Page size"
// @Param event_type query string false "Filter by event type"
// @Param username query string false "Filter by username"
// @Success 200 {object} map[string]interface{}
// @Router /admin/audit-logs [get]
func (h *AdminHandler) ListAuditLogs(c *gin.Context) {
	var opts service.AuditLogOptions
	if err := c.ShouldBindQuery(&opts); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid query parameters"})
		return
	}

	logs, pagination, err := h.svc.ListAuditLogs(opts)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audit_logs": logs, "pagination": pagination})
}
