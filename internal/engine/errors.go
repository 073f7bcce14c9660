package engine

import "errors"

// Common errors returned by engine mutations.
//
// These can be checked with errors.Is():
//
//	if errors.Is(err, engine.ErrValidation) {
//	    // bad input; the workspace is unchanged
//	}
var (
	// ErrValidation is returned when a mutation's input is rejected.
	// The mutation is a full no-op and the caller is told why.
	ErrValidation = errors.New("invalid input")

	// ErrNotFound is returned when a mutation targets a task that is not
	// in the workspace.
	ErrNotFound = errors.New("task not found")
)
