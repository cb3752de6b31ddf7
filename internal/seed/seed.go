// Package seed generates synthetic rota history: events with a mix of
// structured and legacy dates, applications and confirmations.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/okian/rota/internal/adapters/repository"
	"github.com/okian/rota/internal/domain/model"
	"github.com/okian/rota/pkg/logger"
)

// Generation defaults.
const (
	defaultEvents   = 20
	defaultUsers    = 30
	defaultUpcoming = 2
	eventSpacing    = 7 // days between consecutive events
	maxApplicants   = 10
	minApplicants   = 3
	capacityMin     = 1
	capacityMax     = 3
)

// Share of records generated with each irregularity, in percent.
const (
	legacyDatePercent      = 25
	unparseableDatePercent = 5
	missingDecidedPercent  = 20
	walkInPercent          = 15
)

var jpWeekdays = [...]string{"日", "月", "火", "水", "木", "金", "土"}

// Config controls generation.
type Config struct {
	Events int
	Users  int
	// Upcoming events are dated after Now and get applications only.
	// Zero means the default of two.
	Upcoming int
	Seed     uint64
	Now      time.Time
}

// Dataset is one generated history.
type Dataset struct {
	Events        []model.Event
	Applications  []model.Application
	Confirmations []model.Confirmation
	// Upcoming lists the events that are worth ranking.
	Upcoming []uuid.UUID
}

// Generate builds a deterministic dataset for cfg.
func Generate(cfg Config) Dataset {
	if cfg.Events <= 0 {
		cfg.Events = defaultEvents
	}
	if cfg.Users <= 0 {
		cfg.Users = defaultUsers
	}
	if cfg.Upcoming <= 0 {
		cfg.Upcoming = defaultUpcoming
	}
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}

	g := &generator{faker: gofakeit.New(cfg.Seed), now: model.CivilDate(cfg.Now)}
	g.users = g.usernames(cfg.Users)

	var ds Dataset
	total := cfg.Events + cfg.Upcoming
	for i := 0; i < total; i++ {
		// oldest first; the last cfg.Upcoming events are in the future
		offset := (i - cfg.Events + 1) * eventSpacing
		date := g.now.AddDate(0, 0, offset)
		ev := g.event(date, i >= cfg.Events)
		ds.Events = append(ds.Events, ev)

		apps := g.applications(ev, date)
		ds.Applications = append(ds.Applications, apps...)
		if i >= cfg.Events {
			ds.Upcoming = append(ds.Upcoming, ev.ID)
			continue
		}
		ds.Confirmations = append(ds.Confirmations, g.confirmations(ev, date, apps)...)
	}
	return ds
}

type generator struct {
	faker *gofakeit.Faker
	now   time.Time
	users []string
}

func (g *generator) usernames(n int) []string {
	seen := make(map[string]struct{}, n)
	out := make([]string, 0, n)
	for len(out) < n {
		u := g.faker.Username()
		if _, ok := seen[u]; ok {
			u = fmt.Sprintf("%s%d", u, len(out))
			if _, ok := seen[u]; ok {
				continue
			}
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func (g *generator) event(date time.Time, upcoming bool) model.Event {
	driverCap := g.faker.Number(capacityMin, capacityMax)
	attendantCap := g.faker.Number(capacityMin, capacityMax)
	ev := model.Event{
		ID:                uuid.MustParse(g.faker.UUID()),
		Title:             g.faker.Sentence(3),
		DriverCapacity:    &driverCap,
		AttendantCapacity: &attendantCap,
		CreatedAt:         date.AddDate(0, 0, -g.faker.Number(3, 14)).Add(time.Duration(g.faker.Number(8, 20)) * time.Hour),
	}

	roll := g.faker.Number(1, 100)
	switch {
	case upcoming || roll > legacyDatePercent+unparseableDatePercent:
		d := date
		ev.Date = &d
	case roll > unparseableDatePercent:
		ev.LegacyDate = g.legacyDate(date)
	default:
		ev.LegacyDate = g.faker.RandomString([]string{"TBD", "未定", "see notes"})
	}
	return ev
}

func (g *generator) legacyDate(d time.Time) string {
	switch g.faker.Number(0, 4) {
	case 0:
		return d.Format("2006/1/2")
	case 1:
		return fmt.Sprintf("%s（%s）", d.Format("2006年1月2日"), jpWeekdays[d.Weekday()])
	case 2:
		return d.Format("January 2, 2006")
	case 3:
		return fmt.Sprintf("%s (%s)", d.Format("2006-01-02"), d.Format("Mon"))
	default:
		return d.Format("01/02/2006")
	}
}

func (g *generator) applications(ev model.Event, date time.Time) []model.Application {
	hi := min(maxApplicants, len(g.users))
	n := g.faker.Number(min(minApplicants, hi), hi)
	picked := g.pick(n)
	apps := make([]model.Application, 0, len(picked))
	for _, u := range picked {
		roles := model.Roles()
		g.faker.ShuffleAnySlice(roles)
		for _, r := range roles[:g.faker.Number(1, len(roles))] {
			apps = append(apps, model.Application{
				EventID:   ev.ID,
				Username:  u,
				Role:      r,
				AppliedAt: g.faker.DateRange(ev.CreatedAt, date),
			})
		}
	}
	return apps
}

func (g *generator) confirmations(ev model.Event, date time.Time, apps []model.Application) []model.Confirmation {
	capacity := map[model.Role]int{
		model.RoleDriver:    *ev.DriverCapacity,
		model.RoleAttendant: *ev.AttendantCapacity,
	}
	taken := make(map[string]struct{})
	var out []model.Confirmation

	shuffled := append([]model.Application(nil), apps...)
	g.faker.ShuffleAnySlice(shuffled)
	for _, a := range shuffled {
		if capacity[a.Role] == 0 {
			continue
		}
		if _, ok := taken[a.Username]; ok {
			continue
		}
		taken[a.Username] = struct{}{}
		capacity[a.Role]--
		out = append(out, g.confirmation(ev.ID, a.Username, a.Role, date))
	}

	// someone assigned on the day without applying
	if g.faker.Number(1, 100) <= walkInPercent {
		u := g.users[g.faker.Number(0, len(g.users)-1)]
		if _, ok := taken[u]; !ok {
			role := model.Roles()[g.faker.Number(0, 1)]
			out = append(out, g.confirmation(ev.ID, u, role, date))
		}
	}
	return out
}

func (g *generator) confirmation(eventID uuid.UUID, username string, role model.Role, date time.Time) model.Confirmation {
	c := model.Confirmation{EventID: eventID, Username: username, Role: role}
	if g.faker.Number(1, 100) > missingDecidedPercent {
		at := date.AddDate(0, 0, -g.faker.Number(0, 2)).Add(time.Duration(g.faker.Number(9, 21)) * time.Hour)
		c.DecidedAt = &at
	}
	return c
}

func (g *generator) pick(n int) []string {
	users := append([]string(nil), g.users...)
	g.faker.ShuffleAnySlice(users)
	return users[:n]
}

// BulkWriter inserts whole batches in one round trip.
type BulkWriter interface {
	InsertEvents(ctx context.Context, events []model.Event) error
	InsertApplications(ctx context.Context, apps []model.Application) error
	InsertConfirmations(ctx context.Context, confs []model.Confirmation) error
}

// Write stores ds through w, using batch inserts when w supports them.
func Write(ctx context.Context, w repository.Writer, ds Dataset, log logger.Logger) error {
	if bw, ok := w.(BulkWriter); ok {
		if err := bw.InsertEvents(ctx, ds.Events); err != nil {
			return fmt.Errorf("seed events: %w", err)
		}
		if err := bw.InsertApplications(ctx, ds.Applications); err != nil {
			return fmt.Errorf("seed applications: %w", err)
		}
		if err := bw.InsertConfirmations(ctx, ds.Confirmations); err != nil {
			return fmt.Errorf("seed confirmations: %w", err)
		}
	} else {
		for _, e := range ds.Events {
			if err := w.PutEvent(ctx, e); err != nil {
				return fmt.Errorf("seed event %s: %w", e.ID, err)
			}
		}
		for _, a := range ds.Applications {
			if err := w.PutApplication(ctx, a); err != nil {
				return fmt.Errorf("seed application %s/%s: %w", a.EventID, a.Username, err)
			}
		}
		for _, c := range ds.Confirmations {
			if err := w.PutConfirmation(ctx, c); err != nil {
				return fmt.Errorf("seed confirmation %s/%s: %w", c.EventID, c.Username, err)
			}
		}
	}

	if log != nil {
		log.Info(ctx, "seeded history",
			logger.Int("events", len(ds.Events)),
			logger.Int("applications", len(ds.Applications)),
			logger.Int("confirmations", len(ds.Confirmations)),
			logger.Int("upcoming", len(ds.Upcoming)),
		)
	}
	return nil
}
