package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/rota/internal/domain/model"
	"github.com/okian/rota/pkg/metrics"
)

type appKey struct {
	eventID  uuid.UUID
	username string
	role     model.Role
}

// InMemoryStore keeps everything in maps guarded by a single RWMutex.
type InMemoryStore struct {
	mu            sync.RWMutex
	events        map[uuid.UUID]model.Event
	applications  map[uuid.UUID][]model.Application
	appIndex      map[appKey]struct{}
	confirmations map[uuid.UUID][]model.Confirmation
	byUser        map[string][]model.Confirmation
}

var (
	_ Store  = (*InMemoryStore)(nil)
	_ Writer = (*InMemoryStore)(nil)
)

// NewInMemoryStore returns an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		events:        make(map[uuid.UUID]model.Event),
		applications:  make(map[uuid.UUID][]model.Application),
		appIndex:      make(map[appKey]struct{}),
		confirmations: make(map[uuid.UUID][]model.Confirmation),
		byUser:        make(map[string][]model.Confirmation),
	}
}

// PutEvent inserts or replaces an event.
func (s *InMemoryStore) PutEvent(ctx context.Context, e model.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = e
	return nil
}

// PutApplication adds an application. (event, username, role) is unique.
func (s *InMemoryStore) PutApplication(ctx context.Context, a model.Application) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k := appKey{a.EventID, a.Username, a.Role}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appIndex[k]; ok {
		return fmt.Errorf("%w: application %s/%s/%s", ErrDuplicate, a.EventID, a.Username, a.Role)
	}
	s.appIndex[k] = struct{}{}
	s.applications[a.EventID] = append(s.applications[a.EventID], a)
	return nil
}

// PutConfirmation adds a confirmation.
func (s *InMemoryStore) PutConfirmation(ctx context.Context, c model.Confirmation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmations[c.EventID] = append(s.confirmations[c.EventID], c)
	s.byUser[c.Username] = append(s.byUser[c.Username], c)
	return nil
}

// GetEvent implements Store.
func (s *InMemoryStore) GetEvent(ctx context.Context, eventID uuid.UUID) (model.Event, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		metrics.RecordStoreQuery("get_event", metrics.Since(start), err)
		return model.Event{}, err
	}
	s.mu.RLock()
	e, ok := s.events[eventID]
	s.mu.RUnlock()
	metrics.RecordStoreQuery("get_event", metrics.Since(start), nil)
	if !ok {
		return model.Event{}, ErrNotFound
	}
	return e, nil
}

// ListApplications implements Store.
func (s *InMemoryStore) ListApplications(ctx context.Context, eventID uuid.UUID) ([]model.Application, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		metrics.RecordStoreQuery("list_applications", metrics.Since(start), err)
		return nil, err
	}
	s.mu.RLock()
	out := append([]model.Application(nil), s.applications[eventID]...)
	s.mu.RUnlock()
	metrics.RecordStoreQuery("list_applications", metrics.Since(start), nil)
	return out, nil
}

// ListConfirmations implements Store.
func (s *InMemoryStore) ListConfirmations(ctx context.Context, eventID uuid.UUID) ([]model.Confirmation, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		metrics.RecordStoreQuery("list_confirmations", metrics.Since(start), err)
		return nil, err
	}
	s.mu.RLock()
	out := append([]model.Confirmation(nil), s.confirmations[eventID]...)
	s.mu.RUnlock()
	metrics.RecordStoreQuery("list_confirmations", metrics.Since(start), nil)
	return out, nil
}

// ListConfirmationsForUsers implements Store.
func (s *InMemoryStore) ListConfirmationsForUsers(ctx context.Context, usernames []string, before time.Time, since *time.Time) ([]model.HistoryRecord, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		metrics.RecordStoreQuery("list_confirmations_for_users", metrics.Since(start), err)
		return nil, err
	}

	s.mu.RLock()
	var out []model.HistoryRecord
	for _, u := range usernames {
		for _, c := range s.byUser[u] {
			e, ok := s.events[c.EventID]
			if !ok {
				continue
			}
			if !InDateRange(e.Date, before, since) {
				continue
			}
			out = append(out, model.HistoryRecord{
				Confirmation:    c,
				EventDate:       e.Date,
				EventLegacyDate: e.LegacyDate,
				EventCreatedAt:  e.CreatedAt,
			})
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	metrics.RecordStoreQuery("list_confirmations_for_users", metrics.Since(start), nil)
	return out, nil
}

// Count returns the number of events, applications and confirmations held.
func (s *InMemoryStore) Count() (events, applications, confirmations int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.applications {
		applications += len(a)
	}
	for _, c := range s.confirmations {
		confirmations += len(c)
	}
	return len(s.events), applications, confirmations
}
