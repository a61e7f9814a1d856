package client

import (
	"net/url"
	"testing"
)

func guardWith(state SessionState, user *User) *Guard {
	s := NewSession(New("http://example.invalid", ""))
	s.mu.Lock()
	s.state = state
	s.user = user
	s.mu.Unlock()
	return NewGuard(s)
}

func TestGuard_PublicRouteAlwaysAllowed(t *testing.T) {
	g := guardWith(SessionUnauthenticated, nil)
	d := g.Check("/login", GuardRequirement{})
	if !d.Allowed || d.Pending || d.RedirectTo != "" {
		t.Errorf("decision = %+v, want plain allow", d)
	}
}

func TestGuard_PendingWhileLoading(t *testing.T) {
	g := guardWith(SessionLoading, nil)
	d := g.Check("/routes", GuardRequirement{RequireAuth: true})
	if d.Allowed || !d.Pending {
		t.Errorf("decision = %+v, want pending", d)
	}
	if d.RedirectTo != "" {
		t.Error("a loading session must not redirect yet")
	}
}

func TestGuard_RedirectsToLoginPreservingPath(t *testing.T) {
	g := guardWith(SessionUnauthenticated, nil)

	d := g.Check("/routes/42/edit", GuardRequirement{RequireAuth: true})
	if d.RedirectTo != "/login?redirect="+url.QueryEscape("/routes/42/edit") {
		t.Errorf("redirect = %q", d.RedirectTo)
	}

	// The preserved path is a query value: metacharacters in it must not
	// leak into the redirect URL's own structure.
	d = g.Check("/routes?status=draft&page=2", GuardRequirement{RequireAuth: true})
	if d.RedirectTo != "/login?redirect="+url.QueryEscape("/routes?status=draft&page=2") {
		t.Errorf("redirect = %q", d.RedirectTo)
	}
	parsed, err := url.Parse(d.RedirectTo)
	if err != nil {
		t.Fatalf("parse redirect: %v", err)
	}
	if got := parsed.Query().Get("redirect"); got != "/routes?status=draft&page=2" {
		t.Errorf("round-tripped redirect = %q", got)
	}

	// The root and the login page itself get a bare /login.
	for _, path := range []string{"", "/", "/login"} {
		d := g.Check(path, GuardRequirement{RequireAuth: true})
		if d.RedirectTo != "/login" {
			t.Errorf("redirect for %q = %q, want /login", path, d.RedirectTo)
		}
	}
}

func TestGuard_RoleAndPermissionRequirements(t *testing.T) {
	user := &User{
		Username:    "petrov",
		Roles:       []string{"engineer"},
		Permissions: []string{"routes:read", "routes:update"},
	}
	g := guardWith(SessionAuthenticated, user)

	tests := []struct {
		name     string
		req      GuardRequirement
		allowed  bool
		redirect string
	}{
		{"auth only", GuardRequirement{RequireAuth: true}, true, ""},
		{"held role", GuardRequirement{Roles: []string{"engineer"}}, true, ""},
		{"missing role", GuardRequirement{Roles: []string{"admin"}}, false, "/unauthorized"},
		{"held permission", GuardRequirement{Permissions: []string{"routes:update"}}, true, ""},
		{"missing permission", GuardRequirement{Permissions: []string{"routes:delete"}}, false, "/unauthorized"},
		{"all of several", GuardRequirement{
			Roles:       []string{"engineer"},
			Permissions: []string{"routes:read", "routes:update"},
		}, true, ""},
		{"one of several missing", GuardRequirement{
			Roles: []string{"engineer", "manager"},
		}, false, "/unauthorized"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := g.Check("/admin", tt.req)
			if d.Allowed != tt.allowed {
				t.Errorf("allowed = %v, want %v", d.Allowed, tt.allowed)
			}
			if d.RedirectTo != tt.redirect {
				t.Errorf("redirect = %q, want %q", d.RedirectTo, tt.redirect)
			}
		})
	}
}
