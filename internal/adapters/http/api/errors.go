package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrEventID    = errors.New("eventID must be a UUID")
	ErrInternal   = errors.New("priority could not be computed")
)
