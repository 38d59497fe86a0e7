package goals

import "errors"

// Sentinel kinds for goal lifecycle errors.
var (
	// ErrConflict marks a second active goal of a uniquely-constrained
	// type. Resolved by user action, never retried.
	ErrConflict = errors.New("conflicting active goal")

	// ErrInvalidGoal marks a goal with an unknown type or direction.
	ErrInvalidGoal = errors.New("invalid goal")

	// ErrInvalidTransition marks a lifecycle change the state machine
	// does not allow.
	ErrInvalidTransition = errors.New("invalid goal transition")
)
