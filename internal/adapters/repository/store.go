// Package repository defines the read contracts the ranking engine
// consumes and an in-memory implementation of them.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/okian/rota/internal/domain/model"
)

// Store provides read access to events, applications and confirmations.
type Store interface {
	// GetEvent returns the event or ErrNotFound.
	GetEvent(ctx context.Context, eventID uuid.UUID) (model.Event, error)

	// ListApplications returns every application for the event.
	ListApplications(ctx context.Context, eventID uuid.UUID) ([]model.Application, error)

	// ListConfirmations returns every confirmation for the event.
	ListConfirmations(ctx context.Context, eventID uuid.UUID) ([]model.Confirmation, error)

	// ListConfirmationsForUsers returns, in one read, the confirmations of
	// all given users joined with their owning event's dates. Records whose
	// event has a structured date on or after before (or earlier than
	// since, when set) are dropped; undated events are always returned so
	// the caller can resolve them.
	ListConfirmationsForUsers(ctx context.Context, usernames []string, before time.Time, since *time.Time) ([]model.HistoryRecord, error)
}

// Writer persists records. Used by seeding and tests.
type Writer interface {
	PutEvent(ctx context.Context, e model.Event) error
	PutApplication(ctx context.Context, a model.Application) error
	PutConfirmation(ctx context.Context, c model.Confirmation) error
}

// InDateRange reports whether a structured event date passes the coarse
// pre-filter of ListConfirmationsForUsers.
func InDateRange(date *time.Time, before time.Time, since *time.Time) bool {
	if date == nil || date.IsZero() {
		return true
	}
	d := model.CivilDate(*date)
	if !d.Before(model.CivilDate(before)) {
		return false
	}
	if since != nil && d.Before(model.CivilDate(*since)) {
		return false
	}
	return true
}
