package graph

import "fmt"

// SaveState is the save lifecycle of an edited route. Transitions happen
// only on explicit user or network events; there is no implicit movement.
type SaveState int

const (
	StateClean SaveState = iota
	StateDirty
	StateSaving
	StateConflict
)

func (s SaveState) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateDirty:
		return "dirty"
	case StateSaving:
		return "saving"
	case StateConflict:
		return "conflict"
	}
	return fmt.Sprintf("SaveState(%d)", int(s))
}

// SaveEvent tags the events that drive the save state machine.
type SaveEvent int

const (
	EventEdit SaveEvent = iota
	EventSaveStarted
	EventSaveSucceeded
	EventSaveConflicted
	EventSaveFailed
	EventRefreshed
)

func (e SaveEvent) String() string {
	switch e {
	case EventEdit:
		return "edit"
	case EventSaveStarted:
		return "save_started"
	case EventSaveSucceeded:
		return "save_succeeded"
	case EventSaveConflicted:
		return "save_conflicted"
	case EventSaveFailed:
		return "save_failed"
	case EventRefreshed:
		return "refreshed"
	}
	return fmt.Sprintf("SaveEvent(%d)", int(e))
}

// Transition is the pure reducer over save states. Invalid transitions
// return an error and leave the caller's state untouched.
func Transition(s SaveState, e SaveEvent) (SaveState, error) {
	switch e {
	case EventEdit:
		// Editing in conflict keeps the conflict pending; saving blocks edits.
		switch s {
		case StateClean, StateDirty:
			return StateDirty, nil
		case StateConflict:
			return StateConflict, nil
		}
	case EventSaveStarted:
		// A force save may be started from conflict state.
		if s == StateDirty || s == StateConflict {
			return StateSaving, nil
		}
	case EventSaveSucceeded:
		if s == StateSaving {
			return StateClean, nil
		}
	case EventSaveConflicted:
		if s == StateSaving {
			return StateConflict, nil
		}
	case EventSaveFailed:
		// Plain failure returns to dirty for manual retry.
		if s == StateSaving {
			return StateDirty, nil
		}
	case EventRefreshed:
		// Refresh discards local edits from any state.
		return StateClean, nil
	}
	return s, fmt.Errorf("invalid transition: %s on %s", e, s)
}

// ConflictDetails describes who made the conflicting change and what it
// touched, as reported by the server.
type ConflictDetails struct {
	LastModifiedBy string   `json:"last_modified_by,omitempty"`
	LastModifiedAt string   `json:"last_modified_at,omitempty"`
	Changes        []string `json:"changes,omitempty"`
}

// Conflict is the client-side version conflict state surfaced to the user.
// CurrentVersion is the version the client believed it had; ServerVersion is
// the server's stored version.
type Conflict struct {
	HasConflict    bool             `json:"hasConflict"`
	CurrentVersion int              `json:"currentVersion"`
	ServerVersion  int              `json:"serverVersion"`
	Details        *ConflictDetails `json:"conflictDetails,omitempty"`
}
