package client

import (
	"context"
	"strings"
	"sync"
)

// SessionState mirrors the three-way guard state: a session is loading until
// the first bootstrap completes, then either authenticated or not.
type SessionState int

const (
	SessionLoading SessionState = iota
	SessionAuthenticated
	SessionUnauthenticated
)

func (s SessionState) String() string {
	switch s {
	case SessionLoading:
		return "loading"
	case SessionAuthenticated:
		return "authenticated"
	case SessionUnauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}

// Session tracks the logged-in user and answers role and permission checks.
// It is safe for concurrent use.
type Session struct {
	client *Client

	mu    sync.RWMutex
	state SessionState
	user  *User
}

// NewSession creates a session around an API client. The session starts in
// the loading state until Bootstrap or Login resolves it; any 401 from the
// client flips it to unauthenticated.
func NewSession(c *Client) *Session {
	s := &Session{client: c, state: SessionLoading}
	c.OnUnauthorized = func() {
		s.mu.Lock()
		s.state = SessionUnauthenticated
		s.user = nil
		s.mu.Unlock()
	}
	return s
}

// Client returns the underlying API client.
func (s *Session) Client() *Client { return s.client }

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// User returns the current user, or nil when not authenticated.
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// LoginResult reports the outcome of a login attempt. When the account has
// two-factor auth enabled and no code was supplied, Requires2FA is set and
// the caller must retry with a TOTP or backup code.
type LoginResult struct {
	Requires2FA bool
	User        *User
}

type loginResponse struct {
	Token       string `json:"token,omitempty"`
	Requires2FA bool   `json:"requires_2fa,omitempty"`
	User        *User  `json:"user,omitempty"`
}

// Login authenticates against the server and stores the issued token.
func (s *Session) Login(ctx context.Context, username, password, totpCode string) (*LoginResult, error) {
	body := map[string]string{
		"username": username,
		"password": password,
	}
	if totpCode != "" {
		body["totp_code"] = totpCode
	}

	var resp loginResponse
	if _, err := s.client.Post(ctx, "/auth/login", body, &resp); err != nil {
		return nil, err
	}
	if resp.Requires2FA {
		return &LoginResult{Requires2FA: true}, nil
	}

	s.client.SetToken(resp.Token)
	s.mu.Lock()
	s.state = SessionAuthenticated
	s.user = resp.User
	s.mu.Unlock()
	return &LoginResult{User: resp.User}, nil
}

// Logout tells the server and drops the local session.
func (s *Session) Logout(ctx context.Context) error {
	_, err := s.client.Post(ctx, "/auth/logout", nil, nil)
	s.client.SetToken("")
	s.mu.Lock()
	s.state = SessionUnauthenticated
	s.user = nil
	s.mu.Unlock()
	return err
}

// Bootstrap resolves a stored token into a live session by fetching the
// current user. A failed bootstrap leaves the session unauthenticated.
func (s *Session) Bootstrap(ctx context.Context) error {
	if s.client.Token() == "" {
		s.mu.Lock()
		s.state = SessionUnauthenticated
		s.mu.Unlock()
		return nil
	}

	var user User
	if _, err := s.client.Get(ctx, "/auth/me", &user); err != nil {
		s.mu.Lock()
		s.state = SessionUnauthenticated
		s.user = nil
		s.mu.Unlock()
		if IsUnauthorized(err) {
			return nil
		}
		return err
	}

	s.mu.Lock()
	s.state = SessionAuthenticated
	s.user = &user
	s.mu.Unlock()
	return nil
}

// HasRole reports whether the current user holds the named role.
func (s *Session) HasRole(roleName string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return false
	}
	for _, name := range s.user.Roles {
		if name == roleName {
			return true
		}
	}
	return false
}

// HasPermission reports whether the current user holds a permission matching
// the given resource and action, honoring "*" wildcards in granted
// permissions.
func (s *Session) HasPermission(resource, action string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return false
	}
	for _, name := range s.user.Permissions {
		grantedResource, grantedAction, ok := strings.Cut(name, ":")
		if !ok {
			continue
		}
		if matchPermission(grantedResource, resource) && matchPermission(grantedAction, action) {
			return true
		}
	}
	return false
}

// CheckPermission accepts a "resource:action" string.
func (s *Session) CheckPermission(name string) bool {
	resource, action, ok := strings.Cut(name, ":")
	if !ok {
		return false
	}
	return s.HasPermission(resource, action)
}

func matchPermission(granted, wanted string) bool {
	return granted == "*" || granted == wanted
}
