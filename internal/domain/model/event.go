// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the part a volunteer plays at an event.
type Role string

// Known roles.
const (
	RoleDriver    Role = "driver"
	RoleAttendant Role = "attendant"
)

// Roles returns every role in output order.
func Roles() []Role { return []Role{RoleDriver, RoleAttendant} }

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r == RoleDriver || r == RoleAttendant }

// ParseRole normalizes and validates a role name.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Event is a recurring-activity occurrence volunteers apply to.
// Only the effective date matters for ranking.
type Event struct {
	ID    uuid.UUID
	Title string
	// Date is the structured calendar date; nil for legacy rows.
	Date *time.Time
	// LegacyDate is the free-text date older rows carry instead.
	LegacyDate        string
	DriverCapacity    *int
	AttendantCapacity *int
	CreatedAt         time.Time
}

// Application is a request to take a role at an event.
type Application struct {
	EventID   uuid.UUID
	Username  string
	Role      Role
	AppliedAt time.Time
}

// Confirmation is a decided assignment ("selection") and the ground
// truth for participation. DecidedAt is nil for rows written before
// decision times were recorded.
type Confirmation struct {
	EventID   uuid.UUID
	Username  string
	Role      Role
	DecidedAt *time.Time
}

// HistoryRecord is a Confirmation joined with its owning event's dates.
type HistoryRecord struct {
	Confirmation
	EventDate       *time.Time
	EventLegacyDate string
	EventCreatedAt  time.Time
}

// OwningEvent rebuilds the date-bearing part of the owning event.
func (h HistoryRecord) OwningEvent() Event {
	return Event{
		ID:         h.EventID,
		Date:       h.EventDate,
		LegacyDate: h.EventLegacyDate,
		CreatedAt:  h.EventCreatedAt,
	}
}
