package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mesfabric/routecraft/internal/graph"
)

// ErrNoConflict is returned when a conflict-only action is attempted outside
// conflict state.
var ErrNoConflict = errors.New("no conflict to resolve")

// ErrUnsavedChanges is returned when an action requires the editor to hold
// no pending edits.
var ErrUnsavedChanges = errors.New("route has unsaved changes")

// RouteEditor binds a loaded route, an editable canvas and the save state
// machine together. All 409 handling lives here: a lost version race moves
// the editor to conflict state with the server's details, from where the
// user either refreshes or force-saves.
type RouteEditor struct {
	client *Client

	route    *Route
	canvas   *graph.Canvas
	state    graph.SaveState
	conflict *graph.Conflict
}

// NewRouteEditor creates an editor over an API client. Call Open before
// editing.
func NewRouteEditor(c *Client) *RouteEditor {
	return &RouteEditor{client: c, state: graph.StateClean}
}

// Open loads a route and resets the editor to a clean state.
func (e *RouteEditor) Open(ctx context.Context, routeID uint) error {
	var route Route
	if _, err := e.client.Get(ctx, fmt.Sprintf("/routes/%d", routeID), &route); err != nil {
		return err
	}
	e.route = &route
	e.canvas = graph.NewCanvas(route.RouteData, false)
	e.state = graph.StateClean
	e.conflict = nil
	return nil
}

// Route returns the loaded route, or nil before Open.
func (e *RouteEditor) Route() *Route { return e.route }

// Canvas returns the editable canvas, or nil before Open.
func (e *RouteEditor) Canvas() *graph.Canvas { return e.canvas }

// State returns the current save state.
func (e *RouteEditor) State() graph.SaveState { return e.state }

// Conflict returns the pending version conflict, or nil.
func (e *RouteEditor) Conflict() *graph.Conflict { return e.conflict }

// NoteEdit records a canvas mutation in the save state machine. Call it
// after every canvas edit; it is a no-op failure while a save is in flight.
func (e *RouteEditor) NoteEdit() error {
	next, err := graph.Transition(e.state, graph.EventEdit)
	if err != nil {
		return err
	}
	e.state = next
	return nil
}

// CanNavigateAway reports whether leaving the editor loses nothing.
func (e *RouteEditor) CanNavigateAway() bool {
	return e.state == graph.StateClean
}

// Save persists the current canvas with the version the route was loaded at.
// A version conflict does not return an error: the editor moves to conflict
// state and the caller inspects Conflict().
func (e *RouteEditor) Save(ctx context.Context, changeSummary string) error {
	return e.save(ctx, changeSummary, false)
}

// ForceSave resolves a pending conflict by overwriting the server state.
func (e *RouteEditor) ForceSave(ctx context.Context, changeSummary string) error {
	if e.state != graph.StateConflict {
		return ErrNoConflict
	}
	return e.save(ctx, changeSummary, true)
}

func (e *RouteEditor) save(ctx context.Context, changeSummary string, force bool) error {
	if e.route == nil {
		return errors.New("no route loaded")
	}
	next, err := graph.Transition(e.state, graph.EventSaveStarted)
	if err != nil {
		return err
	}
	e.state = next

	body := map[string]interface{}{
		"route_data":     e.canvas.Document(),
		"version_number": e.route.VersionNumber,
	}
	if changeSummary != "" {
		body["change_summary"] = changeSummary
	}
	if force {
		body["force_update"] = true
	}

	var updated Route
	_, err = e.client.Put(ctx, fmt.Sprintf("/routes/%d", e.route.ID), body, &updated)
	if err != nil {
		if conflict := parseConflict(err, e.route.VersionNumber); conflict != nil {
			e.state, _ = graph.Transition(e.state, graph.EventSaveConflicted)
			e.conflict = conflict
			return nil
		}
		e.state, _ = graph.Transition(e.state, graph.EventSaveFailed)
		return err
	}

	e.route = &updated
	e.canvas.MarkSaved()
	e.state, _ = graph.Transition(e.state, graph.EventSaveSucceeded)
	e.conflict = nil
	return nil
}

// Publish activates the loaded route. It refuses while edits are pending so
// the activated revision is exactly what the server holds; save first. The
// version check still applies, so a rival save since Open surfaces as a 409.
func (e *RouteEditor) Publish(ctx context.Context) error {
	if e.route == nil {
		return errors.New("no route loaded")
	}
	if e.state != graph.StateClean {
		return ErrUnsavedChanges
	}

	body := map[string]interface{}{
		"status":         "active",
		"version_number": e.route.VersionNumber,
	}
	var updated Route
	if _, err := e.client.Put(ctx, fmt.Sprintf("/routes/%d", e.route.ID), body, &updated); err != nil {
		return err
	}
	e.route = &updated
	return nil
}

// Refresh discards local edits and reloads the server's current state. This
// is the "take theirs" conflict resolution.
func (e *RouteEditor) Refresh(ctx context.Context) error {
	if e.route == nil {
		return errors.New("no route loaded")
	}
	var route Route
	if _, err := e.client.Get(ctx, fmt.Sprintf("/routes/%d", e.route.ID), &route); err != nil {
		return err
	}
	e.route = &route
	e.canvas = graph.NewCanvas(route.RouteData, false)
	e.state, _ = graph.Transition(e.state, graph.EventRefreshed)
	e.conflict = nil
	return nil
}

// parseConflict extracts a version conflict from a 409 response, or returns
// nil when the error is anything else.
func parseConflict(err error, baseVersion int) *graph.Conflict {
	apiErr, ok := err.(*APIError)
	if !ok || apiErr.StatusCode != 409 {
		return nil
	}
	var payload conflictPayload
	if json.Unmarshal([]byte(apiErr.Body), &payload) != nil {
		return nil
	}
	if payload.Error != "version_conflict" {
		return nil
	}
	return &graph.Conflict{
		HasConflict:    true,
		CurrentVersion: baseVersion,
		ServerVersion:  payload.CurrentVersion,
		Details:        payload.Details,
	}
}
