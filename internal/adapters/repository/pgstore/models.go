package pgstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/okian/rota/internal/domain/model"
	"github.com/uptrace/bun"
)

// Event is the events table row.
type Event struct {
	bun.BaseModel     `bun:"table:events,alias:e"`
	ID                uuid.UUID  `bun:"id,pk,type:uuid"`
	Title             string     `bun:"title,notnull"`
	Date              *time.Time `bun:"date,type:date"`
	LegacyDate        string     `bun:"legacy_date,nullzero"`
	DriverCapacity    *int       `bun:"driver_capacity"`
	AttendantCapacity *int       `bun:"attendant_capacity"`
	CreatedAt         time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// Application is the applications table row.
type Application struct {
	bun.BaseModel `bun:"table:applications,alias:a"`
	ID            int64     `bun:"id,pk,autoincrement"`
	EventID       uuid.UUID `bun:"event_id,type:uuid,notnull"`
	Username      string    `bun:"username,notnull"`
	Role          string    `bun:"role,notnull"`
	AppliedAt     time.Time `bun:"applied_at,nullzero,notnull,default:current_timestamp"`
}

// Confirmation is the confirmations table row.
type Confirmation struct {
	bun.BaseModel `bun:"table:confirmations,alias:c"`
	ID            int64      `bun:"id,pk,autoincrement"`
	EventID       uuid.UUID  `bun:"event_id,type:uuid,notnull"`
	Username      string     `bun:"username,notnull"`
	Role          string     `bun:"role,notnull"`
	DecidedAt     *time.Time `bun:"decided_at"`
}

// historyRow is one row of the confirmations/events join.
type historyRow struct {
	EventID         uuid.UUID  `bun:"event_id"`
	Username        string     `bun:"username"`
	Role            string     `bun:"role"`
	DecidedAt       *time.Time `bun:"decided_at"`
	EventDate       *time.Time `bun:"event_date"`
	EventLegacyDate string     `bun:"event_legacy_date"`
	EventCreatedAt  time.Time  `bun:"event_created_at"`
}

func eventFromModel(e model.Event) *Event {
	return &Event{
		ID:                e.ID,
		Title:             e.Title,
		Date:              e.Date,
		LegacyDate:        e.LegacyDate,
		DriverCapacity:    e.DriverCapacity,
		AttendantCapacity: e.AttendantCapacity,
		CreatedAt:         e.CreatedAt,
	}
}

func (e *Event) toModel() model.Event {
	return model.Event{
		ID:                e.ID,
		Title:             e.Title,
		Date:              e.Date,
		LegacyDate:        e.LegacyDate,
		DriverCapacity:    e.DriverCapacity,
		AttendantCapacity: e.AttendantCapacity,
		CreatedAt:         e.CreatedAt,
	}
}

func applicationFromModel(a model.Application) *Application {
	return &Application{EventID: a.EventID, Username: a.Username, Role: string(a.Role), AppliedAt: a.AppliedAt}
}

func (a *Application) toModel() model.Application {
	return model.Application{EventID: a.EventID, Username: a.Username, Role: model.Role(a.Role), AppliedAt: a.AppliedAt}
}

func confirmationFromModel(c model.Confirmation) *Confirmation {
	return &Confirmation{EventID: c.EventID, Username: c.Username, Role: string(c.Role), DecidedAt: c.DecidedAt}
}

func (c *Confirmation) toModel() model.Confirmation {
	return model.Confirmation{EventID: c.EventID, Username: c.Username, Role: model.Role(c.Role), DecidedAt: c.DecidedAt}
}

func (h *historyRow) toModel() model.HistoryRecord {
	return model.HistoryRecord{
		Confirmation: model.Confirmation{
			EventID:   h.EventID,
			Username:  h.Username,
			Role:      model.Role(h.Role),
			DecidedAt: h.DecidedAt,
		},
		EventDate:       h.EventDate,
		EventLegacyDate: h.EventLegacyDate,
		EventCreatedAt:  h.EventCreatedAt,
	}
}
