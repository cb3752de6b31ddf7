package ranking

import (
	"time"

	"github.com/google/uuid"
	"github.com/okian/rota/internal/domain/model"
	"github.com/okian/rota/internal/domain/scoring"
)

// WindowCounts are one user's confirmed participations inside the window.
type WindowCounts struct {
	Driver    int
	Attendant int
	Total     int
}

// Role returns the count for r.
func (w WindowCounts) Role(r model.Role) int {
	if r == model.RoleAttendant {
		return w.Attendant
	}
	return w.Driver
}

// WindowStart returns the earliest calendar day a record may fall on and
// still be counted by AggregateWindow.
func WindowStart(eventDate time.Time, windowDays int) time.Time {
	return eventDate.AddDate(0, 0, -(windowDays - 1))
}

// AggregateWindow counts records whose participation date lies strictly
// between eventDate-windowDays and eventDate. The target event never counts.
func AggregateWindow(records []model.HistoryRecord, eventID uuid.UUID, eventDate time.Time, windowDays int, resolver *model.DateResolver) map[string]WindowCounts {
	out := make(map[string]WindowCounts)
	for _, r := range records {
		if r.EventID == eventID || !r.Role.Valid() {
			continue
		}
		d, ok := resolver.ParticipationDate(r)
		if !ok {
			continue
		}
		ago := model.DaysBetween(d, eventDate)
		if ago <= 0 || ago >= windowDays {
			continue
		}
		wc := out[r.Username]
		switch r.Role {
		case model.RoleDriver:
			wc.Driver++
		case model.RoleAttendant:
			wc.Attendant++
		}
		wc.Total++
		out[r.Username] = wc
	}
	return out
}

// ResolveLast finds each user's latest participation date strictly before
// eventDate, across roles and without a window. The target event never counts.
func ResolveLast(records []model.HistoryRecord, eventID uuid.UUID, eventDate time.Time, resolver *model.DateResolver) map[string]time.Time {
	out := make(map[string]time.Time)
	for _, r := range records {
		if r.EventID == eventID || !r.Role.Valid() {
			continue
		}
		d, ok := resolver.ParticipationDate(r)
		if !ok || !d.Before(eventDate) {
			continue
		}
		if cur, ok := out[r.Username]; !ok || d.After(cur) {
			out[r.Username] = d
		}
	}
	return out
}

// GapDays returns whole days since last, or the no-history sentinel.
func GapDays(last time.Time, found bool, eventDate time.Time) int {
	if !found {
		return scoring.NoHistoryGapDays
	}
	return max(0, model.DaysBetween(last, eventDate))
}
