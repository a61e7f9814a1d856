package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// RouteListOptions filters and paginates route listings.
type RouteListOptions struct {
	Page     int
	PerPage  int
	Status   string
	Search   string
	Product  string
	SortBy   string
	SortDesc bool
}

func (o RouteListOptions) query() string {
	q := url.Values{}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(o.PerPage))
	}
	if o.Status != "" {
		q.Set("status", o.Status)
	}
	if o.Search != "" {
		q.Set("search", o.Search)
	}
	if o.Product != "" {
		q.Set("product", o.Product)
	}
	if o.SortBy != "" {
		q.Set("sort_by", o.SortBy)
	}
	if o.SortDesc {
		q.Set("sort_desc", "true")
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// RouteList is a page of routes.
type RouteList struct {
	Routes     []Route    `json:"routes"`
	Pagination Pagination `json:"pagination"`
}

// ListRoutes fetches a page of routes.
func (c *Client) ListRoutes(ctx context.Context, opts RouteListOptions) (*RouteList, error) {
	var out RouteList
	if _, err := c.Get(ctx, "/routes"+opts.query(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRoute fetches a single route with its graph.
func (c *Client) GetRoute(ctx context.Context, id uint) (*Route, error) {
	var out Route
	if _, err := c.Get(ctx, fmt.Sprintf("/routes/%d", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateRoute creates a new route.
func (c *Client) CreateRoute(ctx context.Context, req interface{}) (*Route, error) {
	var out Route
	if _, err := c.Post(ctx, "/routes", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PublishRoute activates a route. The route's current version is sent for
// the optimistic check, so a concurrent save surfaces as a 409.
func (c *Client) PublishRoute(ctx context.Context, id uint) (*Route, error) {
	route, err := c.GetRoute(ctx, id)
	if err != nil {
		return nil, err
	}
	body := map[string]interface{}{
		"status":         "active",
		"version_number": route.VersionNumber,
	}
	var out Route
	if _, err := c.Put(ctx, fmt.Sprintf("/routes/%d", id), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteRoute archives and deletes a route.
func (c *Client) DeleteRoute(ctx context.Context, id uint) error {
	_, err := c.Delete(ctx, fmt.Sprintf("/routes/%d", id))
	return err
}

// ListRouteVersions fetches the version history of a route, newest first.
func (c *Client) ListRouteVersions(ctx context.Context, id uint) ([]Version, error) {
	var out []Version
	if _, err := c.Get(ctx, fmt.Sprintf("/routes/%d/versions", id), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateRouteVersion snapshots the route's current state as a new history
// entry with an optional description.
func (c *Client) CreateRouteVersion(ctx context.Context, id uint, description string) (*Version, error) {
	body := map[string]string{}
	if description != "" {
		body["description"] = description
	}
	var out Version
	if _, err := c.Post(ctx, fmt.Sprintf("/routes/%d/versions", id), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRouteVersion fetches one version including its graph snapshot.
func (c *Client) GetRouteVersion(ctx context.Context, id uint, versionNumber int) (*Version, error) {
	var out Version
	if _, err := c.Get(ctx, fmt.Sprintf("/routes/%d/versions/%d", id, versionNumber), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VersionDiff lists the fields that changed between two versions of a route.
type VersionDiff struct {
	From    int      `json:"from"`
	To      int      `json:"to"`
	Changes []string `json:"changes"`
}

// DiffRouteVersions compares two versions of a route.
func (c *Client) DiffRouteVersions(ctx context.Context, id uint, from, to int) (*VersionDiff, error) {
	var out VersionDiff
	path := fmt.Sprintf("/routes/%d/versions/diff?from=%d&to=%d", id, from, to)
	if _, err := c.Get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RestoreRouteVersion rolls a route back to an earlier version. The restore
// itself is recorded as a new version.
func (c *Client) RestoreRouteVersion(ctx context.Context, id uint, versionNumber int) (*Route, error) {
	body := map[string]int{"version_number": versionNumber}
	var out Route
	if _, err := c.Post(ctx, fmt.Sprintf("/routes/%d/restore", id), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DuplicateRoute copies a route into a new draft.
func (c *Client) DuplicateRoute(ctx context.Context, id uint, name, routeCode string) (*Route, error) {
	body := map[string]string{}
	if name != "" {
		body["name"] = name
	}
	if routeCode != "" {
		body["route_code"] = routeCode
	}
	var out Route
	if _, err := c.Post(ctx, fmt.Sprintf("/routes/%d/duplicate", id), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidationResult reports graph validation findings.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// ValidateRoute runs server-side graph validation.
func (c *Client) ValidateRoute(ctx context.Context, id uint) (*ValidationResult, error) {
	var out ValidationResult
	if _, err := c.Post(ctx, fmt.Sprintf("/routes/%d/validate", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportRoute downloads a route in the given format ("json", "pdf" or
// "excel") and returns the body with its content type.
func (c *Client) ExportRoute(ctx context.Context, id uint, format string) ([]byte, string, error) {
	return c.GetRaw(ctx, fmt.Sprintf("/routes/%d/export?format=%s", id, url.QueryEscape(format)))
}

// ExportRouteVersion downloads one historical version of a route in the
// given format.
func (c *Client) ExportRouteVersion(ctx context.Context, id uint, versionNumber int, format string) ([]byte, string, error) {
	path := fmt.Sprintf("/routes/%d/versions/%d/export?format=%s", id, versionNumber, url.QueryEscape(format))
	return c.GetRaw(ctx, path)
}
