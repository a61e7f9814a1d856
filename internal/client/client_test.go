package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_SendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/api/health" {
			t.Errorf("path = %s, want /api/health", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok-123")
	var result map[string]string
	if _, err := c.Get(context.Background(), "/health", &result); err != nil {
		t.Fatalf("get: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want Bearer tok-123", gotAuth)
	}
	if result["status"] != "ok" {
		t.Errorf("result = %v", result)
	}
}

func TestClient_UnauthorizedDropsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid or expired token"})
	}))
	defer srv.Close()

	c := New(srv.URL, "stale-token")
	var called int
	c.OnUnauthorized = func() { called++ }

	_, err := c.Get(context.Background(), "/auth/me", nil)
	if !IsUnauthorized(err) {
		t.Fatalf("err = %v, want a 401 APIError", err)
	}
	if c.Token() != "" {
		t.Error("token should be dropped after a 401")
	}
	if called != 1 {
		t.Errorf("OnUnauthorized called %d times, want 1", called)
	}
}

func TestAPIError_ParsesMessageAndStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "route not found"})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.Get(context.Background(), "/routes/999", nil)
	if err == nil {
		t.Fatal("expected an error")
	}

	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("err is %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", apiErr.StatusCode)
	}
	if apiErr.Message != "route not found" {
		t.Errorf("message = %q, want %q", apiErr.Message, "route not found")
	}

	if !IsNotFound(err) {
		t.Error("IsNotFound should match")
	}
	if IsForbidden(err) || IsUnauthorized(err) || IsConflict(err) {
		t.Error("only IsNotFound should match a 404")
	}
	if IsNotFound(nil) {
		t.Error("nil error must not match")
	}
}

func TestStatusHelpers(t *testing.T) {
	tests := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusUnauthorized, IsUnauthorized},
		{http.StatusForbidden, IsForbidden},
		{http.StatusNotFound, IsNotFound},
		{http.StatusConflict, IsConflict},
	}
	for _, tt := range tests {
		err := newAPIError(tt.status, []byte(`{"error":"nope"}`))
		if !tt.check(err) {
			t.Errorf("helper for %d did not match", tt.status)
		}
	}
}

func TestClient_GetRaw(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("id,name\n1,Milling\n"))
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	body, contentType, err := c.GetRaw(context.Background(), "/routes/1/export?format=csv")
	if err != nil {
		t.Fatalf("get raw: %v", err)
	}
	if contentType != "text/csv" {
		t.Errorf("content type = %q, want text/csv", contentType)
	}
	if string(body) != "id,name\n1,Milling\n" {
		t.Errorf("body = %q", body)
	}
}
