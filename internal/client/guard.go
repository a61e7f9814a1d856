package client

import "net/url"

// GuardRequirement declares what a protected view needs. Role and permission
// requirements are combined with AND: every listed role and every listed
// permission must be held.
type GuardRequirement struct {
	RequireAuth bool
	Roles       []string
	Permissions []string // "resource:action" strings
}

// GuardDecision is the outcome of evaluating a requirement against the
// session.
type GuardDecision struct {
	Allowed bool
	// Pending is set while the session is still loading; the caller should
	// hold rendering rather than redirect.
	Pending bool
	// RedirectTo is the path to send the user to when not allowed.
	RedirectTo string
}

// Guard evaluates navigation requirements against a session.
type Guard struct {
	session *Session
}

// NewGuard creates a guard over a session.
func NewGuard(s *Session) *Guard {
	return &Guard{session: s}
}

// Check evaluates a requirement for a navigation to path. An unauthenticated
// user is sent to the login page with the original path preserved so the
// login flow can return there; an authenticated user missing a role or
// permission is sent to the unauthorized page.
func (g *Guard) Check(path string, req GuardRequirement) GuardDecision {
	if !req.RequireAuth && len(req.Roles) == 0 && len(req.Permissions) == 0 {
		return GuardDecision{Allowed: true}
	}

	switch g.session.State() {
	case SessionLoading:
		return GuardDecision{Pending: true}
	case SessionUnauthenticated:
		return GuardDecision{RedirectTo: loginRedirect(path)}
	}

	for _, role := range req.Roles {
		if !g.session.HasRole(role) {
			return GuardDecision{RedirectTo: "/unauthorized"}
		}
	}
	for _, perm := range req.Permissions {
		if !g.session.CheckPermission(perm) {
			return GuardDecision{RedirectTo: "/unauthorized"}
		}
	}
	return GuardDecision{Allowed: true}
}

func loginRedirect(path string) string {
	if path == "" || path == "/" || path == "/login" {
		return "/login"
	}
	return "/login?redirect=" + url.QueryEscape(path)
}
