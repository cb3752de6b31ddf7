package ranking

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel kinds. Use errors.Is against these.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("event not found")
	ErrInvalidDate    = errors.New("event date cannot be determined")
	ErrDataSource     = errors.New("data source failure")
)

// Stage names the pipeline step that failed.
type Stage string

// Pipeline stages.
const (
	StageEvent  Stage = "event"
	StagePool   Stage = "pool"
	StageWindow Stage = "window"
	StageLast   Stage = "last"
)

// Error carries the failing stage and event alongside the kind and cause.
type Error struct {
	Kind    error
	Stage   Stage
	EventID uuid.UUID
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: event %s at %s", e.Kind, e.EventID, e.Stage)
	}
	return fmt.Sprintf("%s: event %s at %s: %v", e.Kind, e.EventID, e.Stage, e.Err)
}

// Unwrap exposes both the kind and the cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, stage Stage, eventID uuid.UUID, err error) *Error {
	return &Error{Kind: kind, Stage: stage, EventID: eventID, Err: err}
}

// StageOf returns the stage recorded on err, or "" if none.
func StageOf(err error) Stage {
	var re *Error
	if errors.As(err, &re) {
		return re.Stage
	}
	return ""
}
