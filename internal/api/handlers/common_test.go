package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mesfabric/routecraft/internal/graph"
	"github.com/mesfabric/routecraft/internal/service"
)

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/health", nil)

	HealthCheck(c)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %q, want ok", resp["status"])
	}
}

func TestHandleServiceError_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", service.ErrNotFound, http.StatusNotFound},
		{"validation", &service.ValidationError{Message: "name is required"}, http.StatusBadRequest},
		{"conflict", &service.ConflictError{Message: "route code already exists"}, http.StatusConflict},
		{"version conflict", &service.VersionConflictError{CurrentVersion: 3, ProvidedVersion: 1}, http.StatusConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			handleServiceError(c, tt.err)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

func TestHandleServiceError_ConflictPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	handleServiceError(c, &service.VersionConflictError{
		CurrentVersion:  5,
		ProvidedVersion: 3,
		Details: graph.ConflictDetails{
			LastModifiedBy: "bob",
			Changes:        []string{"nodes", "edges"},
		},
	})

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	var resp ConflictResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Error != "version_conflict" {
		t.Errorf("error = %q, want version_conflict", resp.Error)
	}
	if resp.CurrentVersion != 5 || resp.ProvidedVersion != 3 {
		t.Errorf("versions = %d/%d, want 5/3", resp.CurrentVersion, resp.ProvidedVersion)
	}
	details, ok := resp.Details.(map[string]interface{})
	if !ok {
		t.Fatalf("details = %T", resp.Details)
	}
	if details["last_modified_by"] != "bob" {
		t.Errorf("details = %v", details)
	}
}

func TestPathID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	id, ok := pathID(c, "id")
	if !ok || id != 42 {
		t.Errorf("pathID = %d, %v, want 42, true", id, ok)
	}

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "not-a-number"}}
	if _, ok := pathID(c, "id"); ok {
		t.Error("non-numeric id should be rejected")
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
