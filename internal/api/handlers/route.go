package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mesfabric/routecraft/internal/audit"
	"github.com/mesfabric/routecraft/internal/export"
	"github.com/mesfabric/routecraft/internal/models"
	"github.com/mesfabric/routecraft/internal/queue"
	"github.com/mesfabric/routecraft/internal/service"
)

// RouteHandler serves the technological route endpoints.
type RouteHandler struct {
	svc      *service.RouteService
	exporter *export.Exporter
	emitter  *audit.Emitter
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(svc *service.RouteService, exporter *export.Exporter, emitter *audit.Emitter) *RouteHandler {
	return &RouteHandler{svc: svc, exporter: exporter, emitter: emitter}
}

func routeInfos(routes []models.TechnologicalRoute) []models.RouteInfo {
	out := make([]models.RouteInfo, 0, len(routes))
	for i := range routes {
		out = append(out, routes[i].Info())
	}
	return out
}

// ListRoutes godoc
// @Summary List routes
// @Tags routes
// @Security BearerAuth
// @Produce json
// @Param page query int false "Page number"
// @Param per_page query int false "Page size"
// @Param status query string false "Filter by status"
// @Param search query string false "Search in name, code and description"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} ErrorResponse
// @Router /routes [get]
func (h *RouteHandler) ListRoutes(c *gin.Context) {
	var opts service.ListOptions
	if err := c.ShouldBindQuery(&opts); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid query parameters"})
		return
	}

	routes, pagination, err := h.svc.List(opts)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"routes": routeInfos(routes), "pagination": pagination})
}

// GetRoute godoc
// @Summary Get a route
// @Tags routes
// @Security BearerAuth
// @Produce json
// @Param id path int true "Route ID"
// @Success 200 {object} models.RouteInfo
// @Failure 404 {object} ErrorResponse
// @Router /routes/{id} [get]
func (h *RouteHandler) GetRoute(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	route, err := h.svc.Get(id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, route.Info())
}

// CreateRoute godoc
// @Summary Create a route
// @Tags routes
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param route body service.CreateRouteRequest true "Route"
// @Success 201 {object} models.RouteInfo
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /routes [post]
func (h *RouteHandler) CreateRoute(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	var req service.CreateRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	route, err := h.svc.Create(c.Request.Context(), req, user)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, route.Info())
}

// UpdateRoute godoc
// @Summary Update a route
// @Description Updates under optimistic concurrency. A stale version_number
// @Description yields 409 with the conflict payload unless force_update is set.
// @Tags routes
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Route ID"
// @Param route body service.UpdateRouteRequest true "Changes"
// @Success 200 {object} models.RouteInfo
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ConflictResponse
// @Router /routes/{id} [put]
func (h *RouteHandler) UpdateRoute(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	route, err := h.svc.Update(c.Request.Context(), id, req, user)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, route.Info())
}

// DeleteRoute godoc
// @Summary Delete a route
// @Description The route is archived in full before the soft delete.
// @Tags routes
// @Security BearerAuth
// @Produce json
// @Param id path int true "Route ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /routes/{id} [delete]
func (h *RouteHandler) DeleteRoute(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id, user); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "route deleted"})
}

// ListVersions godoc
// @Summary List route versions
// @Tags routes
// @Security BearerAuth
// @Produce json
// @Param id path int true "Route ID"
// @Success 200 {array} models.VersionInfo
// @Failure 404 {object} ErrorResponse
// @Router /routes/{id}/versions [get]
func (h *RouteHandler) ListVersions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	versions, err := h.svc.ListVersions(id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	out := make([]models.VersionInfo, 0, len(versions))
	for i := range versions {
		v := versions[i]
		info := models.VersionInfo{
			ID:            v.ID,
			RouteID:       v.RouteID,
			VersionNumber: v.VersionNumber,
			Description:   v.Description,
			ChangeType:    v.ChangeType,
			ChangeSummary: v.ChangeSummary,
			CreatedAt:     v.CreatedAt,
		}
		if v.CreatedBy != nil {
			info.CreatedBy = v.CreatedBy.Username
		}
		out = append(out, info)
	}
	c.JSON(http.StatusOK, out)
}

// GetVersion godoc
// @Summary Get one route version with its snapshot
// @Tags routes
// @Security BearerAuth
// @Produce json
// @Param id path int true "Route ID"
// @Param version path int true "Version number"
// @Success 200 {object} models.VersionInfo
// @Failure 404 {object} ErrorResponse
// @Router /routes/{id}/versions/{version} [get]
func (h *RouteHandler) GetVersion(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	versionNumber, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid version number"})
		return
	}

	version, err := h.svc.GetVersion(id, versionNumber)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	info := models.VersionInfo{
		ID:            version.ID,
		RouteID:       version.RouteID,
		VersionNumber: version.VersionNumber,
		Description:   version.Description,
		ChangeType:    version.ChangeType,
		ChangeSummary: version.ChangeSummary,
		RouteData:     json.RawMessage(version.RouteData),
		CreatedAt:     version.CreatedAt,
	}
	if version.CreatedBy != nil {
		info.CreatedBy = version.CreatedBy.Username
	}
	c.JSON(http.StatusOK, info)
}

// CreateVersion godoc
// @Summary Snapshot the current route state as a new version
// @Tags routes
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Route ID"
// @Param request body service.CreateVersionRequest false "Optional description"
// @Success 201 {object} models.VersionInfo
// @Failure 404 {object} ErrorResponse
// @Router /routes/{id}/versions [post]
func (h *RouteHandler) CreateVersion(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.CreateVersionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
			return
		}
	}

	version, err := h.svc.CreateVersion(c.Request.Context(), id, req.Description, user)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	info := models.VersionInfo{
		ID:            version.ID,
		RouteID:       version.RouteID,
		VersionNumber: version.VersionNumber,
		Description:   version.Description,
		ChangeType:    version.ChangeType,
		ChangeSummary: version.ChangeSummary,
		CreatedAt:     version.CreatedAt,
	}
	if version.CreatedBy != nil {
		info.CreatedBy = version.CreatedBy.Username
	}
	c.JSON(http.StatusCreated, info)
}

// RestoreVersion godoc
// @Summary Restore a route version
// @Tags routes
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Route ID"
// @Param request body service.RestoreRequest true "Version to restore"
// @Success 200 {object} models.RouteInfo
// @Failure 404 {object} ErrorResponse
// @Router /routes/{id}/restore [post]
func (h *RouteHandler) RestoreVersion(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.RestoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	route, err := h.svc.Restore(c.Request.Context(), id, req.VersionNumber, user)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, route.Info())
}

// DiffVersions godoc
// @Summary Diff two route versions
// @Tags routes
// @Security BearerAuth
// @Produce json
// @Param id path int true "Route ID"
// @Param from query int true "From version"
// @Param to query int true "To version"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /routes/{id}/versions/diff [get]
func (h *RouteHandler) DiffVersions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	from, err1 := strconv.Atoi(c.Query("from"))
	to, err2 := strconv.Atoi(c.Query("to"))
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "from and to version numbers are required"})
		return
	}

	changes, err := h.svc.DiffVersions(id, from, to)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"from": from, "to": to, "changes": changes})
}

// DuplicateRoute godoc
// @Summary Duplicate a route
// @Tags routes
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Route ID"
// @Param request body service.DuplicateRequest false "Overrides for the copy"
// @Success 201 {object} models.RouteInfo
// @Failure 404 {object} ErrorResponse
// @Router /routes/{id}/duplicate [post]
func (h *RouteHandler) DuplicateRoute(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.DuplicateRequest
	// Body is optional for duplication
	_ = c.ShouldBindJSON(&req)

	route, err := h.svc.Duplicate(c.Request.Context(), id, req, user)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, route.Info())
}

// ValidateRoute godoc
// @Summary Validate a route graph
// @Tags routes
// @Security BearerAuth
// @Produce json
// @Param id path int true "Route ID"
// @Success 200 {object} service.ValidationResult
// @Failure 404 {object} ErrorResponse
// @Router /routes/{id}/validate [post]
func (h *RouteHandler) ValidateRoute(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.svc.Validate(id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RouteStatistics godoc
// @Summary Route statistics
// @Tags routes
// @Security BearerAuth
// @Produce json
// @Param id path int true "Route ID"
// @Success 200 {object} service.RouteStatistics
// @Failure 404 {object} ErrorResponse
// @Router /routes/{id}/statistics [get]
func (h *RouteHandler) RouteStatistics(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	stats, err := h.svc.Statistics(id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// RouteDependencies godoc
// @Summary Route dependency projection
// @Tags routes
// @Security BearerAuth
// @Produce json
// @Param id path int true "Route ID"
// @Success 200 {object} service.RouteDependencies
// @Failure 404 {object} ErrorResponse
// @Router /routes/{id}/dependencies [get]
func (h *RouteHandler) RouteDependencies(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	deps, err := h.svc.Dependencies(id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, deps)
}

// OptimizeRoute godoc
// @Summary Advisory route optimization suggestions
// @Tags routes
// @Security BearerAuth
// @Produce json
// @Param id path int true "Route ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /routes/{id}/optimize [post]
func (h *RouteHandler) OptimizeRoute(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	suggestions, err := h.svc.Optimize(id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

// ExportRoute godoc
// @Summary Export a route
// @Tags routes
// @Security BearerAuth
// @Produce json
// @Param id path int true "Route ID"
// @Param format query string true "json, pdf or excel"
// @Success 200 {file} binary
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /routes/{id}/export [get]
func (h *RouteHandler) ExportRoute(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	format := c.DefaultQuery("format", export.FormatJSON)
	if !export.ValidFormat(format) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("unsupported export format: %s", format)})
		return
	}

	route, err := h.svc.Get(id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	doc, err := h.exporter.Export(c.Request.Context(), route, format)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: fmt.Sprintf("export failed: %v", err)})
		return
	}

	h.emitter.Emit(c.Request.Context(), queue.Event{
		UserID:      &user.ID,
		Username:    user.Username,
		EventType:   audit.EventRouteExported,
		Description: fmt.Sprintf("Exported route %s as %s", route.RouteCode, format),
		Success:     true,
		Metadata:    map[string]interface{}{"route_id": route.ID, "format": format},
	})

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}

// ExportVersion godoc
// @Summary Export one historical version of a route
// @Tags routes
// @Security BearerAuth
// @Produce json
// @Param id path int true "Route ID"
// @Param version path int true "Version number"
// @Param format query string true "json, pdf or excel"
// @Success 200 {file} binary
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /routes/{id}/versions/{version}/export [get]
func (h *RouteHandler) ExportVersion(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	versionNumber, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid version number"})
		return
	}
	format := c.DefaultQuery("format", export.FormatJSON)
	if !export.ValidFormat(format) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("unsupported export format: %s", format)})
		return
	}

	route, err := h.svc.MaterializeVersion(id, versionNumber)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	doc, err := h.exporter.Export(c.Request.Context(), route, format)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: fmt.Sprintf("export failed: %v", err)})
		return
	}

	h.emitter.Emit(c.Request.Context(), queue.Event{
		UserID:      &user.ID,
		Username:    user.Username,
		EventType:   audit.EventRouteExported,
		Description: fmt.Sprintf("Exported route %s version %d as %s", route.RouteCode, versionNumber, format),
		Success:     true,
		Metadata:    map[string]interface{}{"route_id": route.ID, "version": versionNumber, "format": format},
	})

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}
