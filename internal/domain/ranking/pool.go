package ranking

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/okian/rota/internal/adapters/repository"
	"github.com/okian/rota/internal/domain/model"
)

// Candidate is a (username, role) pair eligible for one event.
type Candidate struct {
	Username  string
	Role      model.Role
	AppliedAt time.Time
	// Applied is false for candidates who were confirmed without applying.
	Applied   bool
	Confirmed bool
}

// Pool is the resolved event and its candidates.
type Pool struct {
	Event      model.Event
	EventDate  time.Time
	Candidates []Candidate
}

// Usernames returns the distinct candidate usernames in sorted order.
func (p Pool) Usernames() []string {
	seen := make(map[string]struct{}, len(p.Candidates))
	out := make([]string, 0, len(p.Candidates))
	for _, c := range p.Candidates {
		if _, ok := seen[c.Username]; ok {
			continue
		}
		seen[c.Username] = struct{}{}
		out = append(out, c.Username)
	}
	sort.Strings(out)
	return out
}

type candidateKey struct {
	username string
	role     model.Role
}

// LoadPool fetches the event and merges applicants with confirmed
// non-applicants into one candidate per (username, role).
func LoadPool(ctx context.Context, src repository.Store, resolver *model.DateResolver, now func() time.Time, eventID uuid.UUID) (Pool, error) {
	ev, err := src.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Pool{}, newError(ErrNotFound, StageEvent, eventID, err)
		}
		return Pool{}, newError(ErrDataSource, StageEvent, eventID, err)
	}

	eventDate, ok := resolver.EventDate(ev)
	if !ok {
		return Pool{}, newError(ErrInvalidDate, StageEvent, eventID, nil)
	}

	apps, err := src.ListApplications(ctx, eventID)
	if err != nil {
		return Pool{}, newError(ErrDataSource, StagePool, eventID, err)
	}
	confs, err := src.ListConfirmations(ctx, eventID)
	if err != nil {
		return Pool{}, newError(ErrDataSource, StagePool, eventID, err)
	}

	return Pool{
		Event:      ev,
		EventDate:  eventDate,
		Candidates: mergeCandidates(apps, confs, eventDate, now),
	}, nil
}

func mergeCandidates(apps []model.Application, confs []model.Confirmation, eventDate time.Time, now func() time.Time) []Candidate {
	byKey := make(map[candidateKey]*Candidate, len(apps)+len(confs))

	for _, a := range apps {
		if !a.Role.Valid() {
			continue
		}
		k := candidateKey{a.Username, a.Role}
		if c, ok := byKey[k]; ok {
			if a.AppliedAt.Before(c.AppliedAt) {
				c.AppliedAt = a.AppliedAt
			}
			continue
		}
		byKey[k] = &Candidate{Username: a.Username, Role: a.Role, AppliedAt: a.AppliedAt, Applied: true}
	}

	for _, cf := range confs {
		if !cf.Role.Valid() {
			continue
		}
		k := candidateKey{cf.Username, cf.Role}
		if c, ok := byKey[k]; ok {
			c.Confirmed = true
			continue
		}
		byKey[k] = &Candidate{
			Username:  cf.Username,
			Role:      cf.Role,
			AppliedAt: syntheticAppliedAt(cf, eventDate, now),
			Confirmed: true,
		}
	}

	out := make([]Candidate, 0, len(byKey))
	for _, c := range byKey {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Role != out[j].Role {
			return out[i].Role < out[j].Role
		}
		return out[i].Username < out[j].Username
	})
	return out
}

// syntheticAppliedAt backfills applied_at for a confirmation that has no
// application: decision time, else the event date, else now.
func syntheticAppliedAt(cf model.Confirmation, eventDate time.Time, now func() time.Time) time.Time {
	switch {
	case cf.DecidedAt != nil && !cf.DecidedAt.IsZero():
		return *cf.DecidedAt
	case !eventDate.IsZero():
		return eventDate
	default:
		return now()
	}
}
