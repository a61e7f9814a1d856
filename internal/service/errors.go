package service

import (
	"errors"
	"fmt"

	"github.com/mesfabric/routecraft/internal/graph"
)

// ErrNotFound indicates the requested resource was not found.
var ErrNotFound = errors.New("not found")

// ValidationError represents a bad-request condition (HTTP 400).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError represents a conflict condition (HTTP 409).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// VersionConflictError is returned when an optimistic-concurrency check
// fails: someone saved the route after the caller loaded it. It carries
// everything the caller needs to render a conflict dialog.
type VersionConflictError struct {
	CurrentVersion  int
	ProvidedVersion int
	Details         graph.ConflictDetails
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict: route is at version %d, update was based on version %d",
		e.CurrentVersion, e.ProvidedVersion)
}
