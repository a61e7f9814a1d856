package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestSession(t *testing.T, handler http.Handler) (*Session, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewSession(New(srv.URL, "")), srv
}

func loginHandler(t *testing.T, user User) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["password"] != "good-pass" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid credentials"})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"token": "tok-1", "user": user})
	})
	return mux
}

func TestSession_LoginSuccess(t *testing.T) {
	user := User{ID: 1, Username: "petrov", Roles: []string{"engineer"}, Permissions: []string{"routes:read"}}
	s, _ := newTestSession(t, loginHandler(t, user))

	if s.State() != SessionLoading {
		t.Fatalf("initial state = %v, want loading", s.State())
	}

	result, err := s.Login(context.Background(), "petrov", "good-pass", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.Requires2FA {
		t.Error("2FA should not be requested")
	}
	if s.State() != SessionAuthenticated {
		t.Errorf("state = %v, want authenticated", s.State())
	}
	if s.Client().Token() != "tok-1" {
		t.Errorf("token = %q, want tok-1", s.Client().Token())
	}
	if got := s.User(); got == nil || got.Username != "petrov" {
		t.Errorf("user = %+v", got)
	}
}

func TestSession_LoginBadPassword(t *testing.T) {
	s, _ := newTestSession(t, loginHandler(t, User{}))

	_, err := s.Login(context.Background(), "petrov", "bad-pass", "")
	if !IsUnauthorized(err) {
		t.Fatalf("err = %v, want 401 APIError", err)
	}
	if s.State() != SessionUnauthenticated {
		t.Errorf("state = %v, want unauthenticated after failed login", s.State())
	}
}

func TestSession_LoginRequires2FA(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["totp_code"] == "" {
			json.NewEncoder(w).Encode(map[string]bool{"requires_2fa": true})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"token": "tok-2fa",
			"user":  User{Username: "ivanova"},
		})
	})
	s, _ := newTestSession(t, mux)

	result, err := s.Login(context.Background(), "ivanova", "good-pass", "")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	if !result.Requires2FA {
		t.Fatal("expected requires_2fa on the first attempt")
	}
	if s.State() == SessionAuthenticated {
		t.Error("session must not authenticate before the code is checked")
	}

	result, err = s.Login(context.Background(), "ivanova", "good-pass", "123456")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if result.Requires2FA {
		t.Error("code supplied, 2FA should be satisfied")
	}
	if s.State() != SessionAuthenticated {
		t.Errorf("state = %v, want authenticated", s.State())
	}
}

func TestSession_BootstrapWithoutToken(t *testing.T) {
	s, _ := newTestSession(t, http.NewServeMux())
	if err := s.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if s.State() != SessionUnauthenticated {
		t.Errorf("state = %v, want unauthenticated with no stored token", s.State())
	}
}

func TestSession_BootstrapStaleToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid or expired token"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	s := NewSession(New(srv.URL, "stale"))

	// An expired token is an expected condition, not an error.
	if err := s.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if s.State() != SessionUnauthenticated {
		t.Errorf("state = %v, want unauthenticated", s.State())
	}
	if s.Client().Token() != "" {
		t.Error("stale token should be dropped")
	}
}

func TestSession_BootstrapValidToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(User{ID: 3, Username: "sidorov", Roles: []string{"manager"}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	s := NewSession(New(srv.URL, "tok-3"))

	if err := s.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if s.State() != SessionAuthenticated {
		t.Errorf("state = %v, want authenticated", s.State())
	}
	if !s.HasRole("manager") {
		t.Error("restored user should hold the manager role")
	}
}

func TestSession_Logout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	s := NewSession(New(srv.URL, "tok-4"))

	if err := s.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if s.State() != SessionUnauthenticated || s.User() != nil || s.Client().Token() != "" {
		t.Error("logout should clear the session entirely")
	}
}

func TestSession_PermissionChecks(t *testing.T) {
	s := NewSession(New("http://example.invalid", ""))
	s.mu.Lock()
	s.state = SessionAuthenticated
	s.user = &User{
		Username:    "petrov",
		Roles:       []string{"engineer"},
		Permissions: []string{"routes:read", "routes:update", "operations:*"},
	}
	s.mu.Unlock()

	tests := []struct {
		resource, action string
		want             bool
	}{
		{"routes", "read", true},
		{"routes", "update", true},
		{"routes", "delete", false},
		{"operations", "create", true},
		{"operations", "delete", true},
		{"users", "read", false},
	}
	for _, tt := range tests {
		if got := s.HasPermission(tt.resource, tt.action); got != tt.want {
			t.Errorf("HasPermission(%s, %s) = %v, want %v", tt.resource, tt.action, got, tt.want)
		}
	}

	if !s.CheckPermission("routes:read") {
		t.Error("CheckPermission should accept resource:action strings")
	}
	if s.CheckPermission("routes") {
		t.Error("a name with no colon never matches")
	}
	if !s.HasRole("engineer") || s.HasRole("admin") {
		t.Error("role membership check failed")
	}
}

func TestSession_WildcardPermission(t *testing.T) {
	s := NewSession(New("http://example.invalid", ""))
	s.mu.Lock()
	s.state = SessionAuthenticated
	s.user = &User{Username: "root", Roles: []string{"admin"}, Permissions: []string{"*:*"}}
	s.mu.Unlock()

	for _, name := range []string{"routes:delete", "users:create", "system:admin"} {
		if !s.CheckPermission(name) {
			t.Errorf("admin wildcard should grant %s", name)
		}
	}
}

func TestSession_ChecksFailWithoutUser(t *testing.T) {
	s := NewSession(New("http://example.invalid", ""))
	if s.HasRole("admin") || s.HasPermission("routes", "read") {
		t.Error("no user means no grants")
	}
}
