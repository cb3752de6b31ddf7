package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound  = errors.New("event not found")
	ErrDuplicate = errors.New("duplicate record")
)
