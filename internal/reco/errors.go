package reco

import (
	"errors"
	"fmt"
)

// Error kinds. All of them are fatal for the event being processed.
var (
	// ErrUnknownRole is returned when a role was never registered or was
	// not declared by the stage reading it.
	ErrUnknownRole = errors.New("unknown role")
	// ErrMissingInput is returned when a required input is absent.
	// An empty collection is not missing.
	ErrMissingInput = errors.New("missing input")
	// ErrInvalidConfiguration is returned for out-of-range parameters.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// StageError attributes a failure to the stage that raised it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
