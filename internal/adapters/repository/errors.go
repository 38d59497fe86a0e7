package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound    = errors.New("measurement not found")
	ErrDuplicateID = errors.New("duplicate measurement id")
)
