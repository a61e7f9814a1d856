package client

import (
	"context"
	"fmt"
	"net/url"
)

// ListUsers fetches all user accounts.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var out []User
	if _, err := c.Get(ctx, "/admin/users", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetUser fetches a single user account.
func (c *Client) GetUser(ctx context.Context, id uint) (*User, error) {
	var out User
	if _, err := c.Get(ctx, fmt.Sprintf("/admin/users/%d", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateUserRequest is the payload for creating a user account.
type CreateUserRequest struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Roles    []string `json:"roles,omitempty"`
}

// CreateUser creates a new user account.
func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	var out User
	if _, err := c.Post(ctx, "/admin/users", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUserRequest carries the mutable fields of an account. Nil pointers
// leave the field untouched.
type UpdateUserRequest struct {
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// UpdateUser updates a user account.
func (c *Client) UpdateUser(ctx context.Context, id uint, req UpdateUserRequest) (*User, error) {
	var out User
	if _, err := c.Put(ctx, fmt.Sprintf("/admin/users/%d", id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteUser removes a user account.
func (c *Client) DeleteUser(ctx context.Context, id uint) error {
	_, err := c.Delete(ctx, fmt.Sprintf("/admin/users/%d", id))
	return err
}

// UnlockUser clears a login lockout.
func (c *Client) UnlockUser(ctx context.Context, id uint) error {
	_, err := c.Post(ctx, fmt.Sprintf("/admin/users/%d/unlock", id), nil, nil)
	return err
}

// AssignRole grants a role to a user.
func (c *Client) AssignRole(ctx context.Context, userID uint, role string) error {
	body := map[string]string{"role": role}
	_, err := c.Post(ctx, fmt.Sprintf("/admin/users/%d/roles", userID), body, nil)
	return err
}

// RevokeRole removes a role from a user.
func (c *Client) RevokeRole(ctx context.Context, userID uint, role string) error {
	_, err := c.Delete(ctx, fmt.Sprintf("/admin/users/%d/roles/%s", userID, url.PathEscape(role)))
	return err
}

// ListRoles fetches all roles with their permission names.
func (c *Client) ListRoles(ctx context.Context) ([]Role, error) {
	var out []Role
	if _, err := c.Get(ctx, "/admin/roles", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateRoleRequest is the payload for creating a role.
type CreateRoleRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// CreateRole creates a new role.
func (c *Client) CreateRole(ctx context.Context, req CreateRoleRequest) (*Role, error) {
	var out Role
	if _, err := c.Post(ctx, "/admin/roles", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteRole removes a role. System roles and roles still assigned to users
// are rejected by the server.
func (c *Client) DeleteRole(ctx context.Context, id uint) error {
	_, err := c.Delete(ctx, fmt.Sprintf("/admin/roles/%d", id))
	return err
}

// ListPermissions fetches the permission catalog.
func (c *Client) ListPermissions(ctx context.Context) ([]Permission, error) {
	var out []Permission
	if _, err := c.Get(ctx, "/admin/permissions", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AuditLogList is a page of audit log entries.
type AuditLogList struct {
	AuditLogs  []AuditLog `json:"audit_logs"`
	Pagination Pagination `json:"pagination"`
}

// ListAuditLogs fetches recent audit log entries, newest first.
func (c *Client) ListAuditLogs(ctx context.Context, page int, eventType, username string) (*AuditLogList, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", fmt.Sprintf("%d", page))
	}
	if eventType != "" {
		q.Set("event_type", eventType)
	}
	if username != "" {
		q.Set("username", username)
	}
	path := "/admin/audit-logs"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out AuditLogList
	if _, err := c.Get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
