package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mesfabric/routecraft/internal/models"
	"github.com/mesfabric/routecraft/internal/service"
)

// OperationHandler serves the operations catalog endpoints.
type OperationHandler struct {
	svc *service.OperationService
}

// NewOperationHandler creates a new OperationHandler.
func NewOperationHandler(svc *service.OperationService) *OperationHandler {
	return &OperationHandler{svc: svc}
}

// ListOperations godoc
// @Summary List catalog operations
// @Tags operations
// @Security BearerAuth
// @Produce json
// @Param page query int false "Page number"
// @Param per_page query int false "Page size"
// @Param status query string false "Filter by operation type"
// @Param search query string false "Search in name and code"
// @Success 200 {object} map[string]interface{}
// @Router /operations [get]
func (h *OperationHandler) ListOperations(c *gin.Context) {
	var opts service.ListOptions
	if err := c.ShouldBindQuery(&opts); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid query parameters"})
		return
	}

	ops, pagination, err := h.svc.List(opts)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	out := make([]models.OperationInfo, 0, len(ops))
	for i := range ops {
		out = append(out, ops[i].Info())
	}
	c.JSON(http.StatusOK, gin.H{"operations": out, "pagination": pagination})
}

// GetOperation godoc
// @Summary Get a catalog operation
// @Tags operations
// @Security BearerAuth
// @Produce json
// @Param id path int true "Operation ID"
// @Success 200 {object} models.OperationInfo
// @Failure 404 {object} ErrorResponse
// @Router /operations/{id} [get]
func (h *OperationHandler) GetOperation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	op, err := h.svc.Get(id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, op.Info())
}

// CreateOperation godoc
// @Summary Create a catalog operation
// @Tags operations
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param operation body service.CreateOperationRequest true "Operation"
// @Success 201 {object} models.OperationInfo
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /operations [post]
func (h *OperationHandler) CreateOperation(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	var req service.CreateOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	op, err := h.svc.Create(c.Request.Context(), req, user)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, op.Info())
}

// UpdateOperation godoc
// @Summary Update a catalog operation
// @Tags operations
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Operation ID"
// @Param operation body service.UpdateOperationRequest true "Changes"
// @Success 200 {object} models.OperationInfo
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /operations/{id} [put]
func (h *OperationHandler) UpdateOperation(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	op, err := h.svc.Update(c.Request.Context(), id, req, user)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, op.Info())
}

// DeleteOperation godoc
// @Summary Delete a catalog operation
// @Description Refused with 409 while any route still references the
// @Description operation; the error names the blocking routes.
// @Tags operations
// @Security BearerAuth
// @Produce json
// @Param id path int true "Operation ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /operations/{id} [delete]
func (h *OperationHandler) DeleteOperation(c *gin.Context) {
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
	c.JSON(http.StatusOK, gin.H{"message": "operation deleted"})
}
