package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mesfabric/routecraft/internal/models"
	"github.com/mesfabric/routecraft/internal/service"
)

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ConflictResponse is the 409 payload for optimistic-concurrency failures.
// The shape is load-bearing: the editor's conflict dialog is built from it.
type ConflictResponse struct {
	Error           string      `json:"error"`
	CurrentVersion  int         `json:"current_version"`
	ProvidedVersion int         `json:"provided_version"`
	Details         interface{} `json:"details,omitempty"`
}

// HealthCheck godoc
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// mustUser returns the authenticated user or aborts with 401.
func mustUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		c.Abort()
		return nil, false
	}
	user, ok := value.(*models.User)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		c.Abort()
		return nil, false
	}
	return user, true
}

// pathID parses a numeric :id-style path parameter.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// handleServiceError maps service-layer errors to HTTP status codes.
func handleServiceError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Not found"})
		return
	}
	var versionErr *service.VersionConflictError
	if errors.As(err, &versionErr) {
		c.JSON(http.StatusConflict, ConflictResponse{
			Error:           "version_conflict",
			CurrentVersion:  versionErr.CurrentVersion,
			ProvidedVersion: versionErr.ProvidedVersion,
			Details:         versionErr.Details,
		})
		return
	}
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: validationErr.Message})
		return
	}
	var conflictErr *service.ConflictError
	if errors.As(err, &conflictErr) {
		c.JSON(http.StatusConflict, ErrorResponse{Error: conflictErr.Message})
		return
	}
	slog.Error("unhandled service error", "error", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
}
