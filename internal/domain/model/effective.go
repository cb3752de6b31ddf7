package model

import (
	"math"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/en"
)

// legacyLayouts are tried in order against free-text event dates.
var legacyLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",
	"2006年1月2日",
	"2006-1-2 15:04",
	"2006/1/2 15:04",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"Monday, January 2, 2006",
	"Mon, Jan 2, 2006",
	time.RFC3339,
}

// numericDate matches input built only from digits and date separators.
// Those are left to legacyLayouts; a partial natural-language match on
// them ("2024-02-30" -> "30") would invent a date.
var numericDate = regexp.MustCompile(`^[0-9\s\-/.:年月日]+$`)

// clockOnly matches a bare time of day ("5pm", "17:30"), which names no day.
var clockOnly = regexp.MustCompile(`(?i)^\d{1,2}(:\d{2})?\s*(am|pm|a\.m\.|p\.m\.)?$`)

// weekdaySuffix matches a trailing "(Sun)" or "（日）" annotation.
var weekdaySuffix = regexp.MustCompile(`\s*[(（][^)）]*[)）]\s*$`)

// DateResolver turns the various date representations into calendar days.
// A calendar day is a time.Time at midnight UTC carrying the civil date.
type DateResolver struct {
	loc *time.Location

	mu     sync.Mutex
	parser *when.Parser
}

// NewDateResolver returns a resolver that maps instants to days in loc.
func NewDateResolver(loc *time.Location) *DateResolver {
	if loc == nil {
		loc = time.UTC
	}
	w := when.New(nil)
	w.Add(en.All...)
	return &DateResolver{loc: loc, parser: w}
}

// Location returns the zone used for instants.
func (r *DateResolver) Location() *time.Location { return r.loc }

// CivilDate keeps the y/m/d of t as written, ignoring its zone.
func CivilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Day maps an instant to its calendar day in the resolver's zone.
func (r *DateResolver) Day(t time.Time) time.Time {
	return CivilDate(t.In(r.loc))
}

// DaysBetween returns whole days from a to b (both calendar days).
func DaysBetween(a, b time.Time) int {
	return int(math.Round(b.Sub(a).Hours() / 24))
}

// EventDate resolves an event's effective date: the structured date
// first, then the legacy text. The bool is false when neither yields a date.
func (r *DateResolver) EventDate(e Event) (time.Time, bool) {
	if e.Date != nil && !e.Date.IsZero() {
		return CivilDate(*e.Date), true
	}
	return r.parseLegacy(e.LegacyDate, e.CreatedAt)
}

// ParticipationDate resolves the day a confirmation counts for: the
// owning event's effective date, else the decision day.
func (r *DateResolver) ParticipationDate(h HistoryRecord) (time.Time, bool) {
	if d, ok := r.EventDate(h.OwningEvent()); ok {
		return d, true
	}
	if h.DecidedAt != nil && !h.DecidedAt.IsZero() {
		return r.Day(*h.DecidedAt), true
	}
	return time.Time{}, false
}

func (r *DateResolver) parseLegacy(text string, anchor time.Time) (time.Time, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return time.Time{}, false
	}
	s = strings.TrimSpace(weekdaySuffix.ReplaceAllString(s, ""))

	for _, layout := range legacyLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if layout == time.RFC3339 {
				return r.Day(t), true
			}
			return CivilDate(t), true
		}
	}

	// Relative phrases ("next friday") only make sense against the
	// creation time; without it the result would drift with the clock.
	if anchor.IsZero() || numericDate.MatchString(s) || clockOnly.MatchString(s) {
		return time.Time{}, false
	}
	r.mu.Lock()
	res, err := r.parser.Parse(s, anchor.In(r.loc))
	r.mu.Unlock()
	if err != nil || res == nil {
		return time.Time{}, false
	}
	// the phrase must account for the whole input, not a fragment of it
	if res.Index != 0 || len(strings.TrimSpace(res.Text)) != len(s) {
		return time.Time{}, false
	}
	return r.Day(res.Time), true
}
