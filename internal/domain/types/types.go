// Package types contains the ranking output shared across layers
package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/okian/rota/internal/domain/model"
)

// DateLayout formats calendar days on the wire.
const DateLayout = "2006-01-02"

// RankedCandidate is one row of a role's priority list.
type RankedCandidate struct {
	Username  string     `json:"username"`
	Role      model.Role `json:"role"`
	AppliedAt time.Time  `json:"applied_at"`
	// Times is the window total across roles, kept under its legacy name.
	Times     int     `json:"times"`
	RoleCount int     `json:"roleCount"`
	GapDays   int     `json:"gapDays"`
	Score     float64 `json:"score"`
	Rank      int     `json:"rank"`
	// LastAt is nil when the candidate has no prior participation.
	LastAt *string `json:"last_at"`
}

// Result holds both priority lists for one event.
type Result struct {
	EventID    uuid.UUID         `json:"event_id"`
	EventDate  string            `json:"event_date"`
	WindowDays int               `json:"window_days"`
	Driver     []RankedCandidate `json:"driver"`
	Attendant  []RankedCandidate `json:"attendant"`
}

// NewResult returns a Result with empty, non-nil lists.
func NewResult(eventID uuid.UUID, eventDate time.Time, windowDays int) *Result {
	return &Result{
		EventID:    eventID,
		EventDate:  eventDate.Format(DateLayout),
		WindowDays: windowDays,
		Driver:     []RankedCandidate{},
		Attendant:  []RankedCandidate{},
	}
}

// List returns the list for role.
func (r *Result) List(role model.Role) []RankedCandidate {
	if role == model.RoleAttendant {
		return r.Attendant
	}
	return r.Driver
}

// TraceRow is one line of the intermediate candidate/score table.
type TraceRow struct {
	Username   string
	Role       model.Role
	Confirmed  bool
	TotalCount int
	RoleCount  int
	GapDays    int
	LastAt     string
	Score      float64
	Rank       int
}
