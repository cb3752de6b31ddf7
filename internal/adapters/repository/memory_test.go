package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/rota/internal/domain/model"
)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestInMemoryStore_Basics(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	ev := model.Event{ID: uuid.New(), Title: "Saturday run", Date: datePtr(2024, 3, 10)}
	if err := store.PutEvent(ctx, ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := store.GetEvent(ctx, ev.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != ev.Title {
		t.Errorf("expected title %q, got %q", ev.Title, got.Title)
	}

	if _, err := store.GetEvent(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	app := model.Application{EventID: ev.ID, Username: "alice", Role: model.RoleDriver, AppliedAt: time.Now()}
	if err := store.PutApplication(ctx, app); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.PutApplication(ctx, app); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	// same user, other role is fine
	app.Role = model.RoleAttendant
	if err := store.PutApplication(ctx, app); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	apps, err := store.ListApplications(ctx, ev.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(apps) != 2 {
		t.Errorf("expected 2 applications, got %d", len(apps))
	}

	if err := store.PutConfirmation(ctx, model.Confirmation{EventID: ev.ID, Username: "bob", Role: model.RoleDriver}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	confs, err := store.ListConfirmations(ctx, ev.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(confs) != 1 || confs[0].Username != "bob" {
		t.Errorf("unexpected confirmations: %+v", confs)
	}

	events, applications, confirmations := store.Count()
	if events != 1 || applications != 2 || confirmations != 1 {
		t.Errorf("unexpected counts %d/%d/%d", events, applications, confirmations)
	}
}

func TestInMemoryStore_ListConfirmationsForUsers(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	early := model.Event{ID: uuid.New(), Date: datePtr(2024, 1, 5)}
	recent := model.Event{ID: uuid.New(), Date: datePtr(2024, 3, 1)}
	target := model.Event{ID: uuid.New(), Date: datePtr(2024, 3, 10)}
	later := model.Event{ID: uuid.New(), Date: datePtr(2024, 4, 1)}
	legacy := model.Event{ID: uuid.New(), LegacyDate: "2024/2/20"}

	for _, e := range []model.Event{early, recent, target, later, legacy} {
		if err := store.PutEvent(ctx, e); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	for _, e := range []model.Event{early, recent, target, later, legacy} {
		for _, u := range []string{"alice", "bob", "carol"} {
			c := model.Confirmation{EventID: e.ID, Username: u, Role: model.RoleDriver}
			if err := store.PutConfirmation(ctx, c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
	}

	before := *target.Date

	all, err := store.ListConfirmationsForUsers(ctx, []string{"alice", "bob"}, before, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// early, recent and legacy for each of the two users
	if len(all) != 6 {
		t.Fatalf("expected 6 records, got %d", len(all))
	}
	for _, r := range all {
		if r.Username == "carol" {
			t.Errorf("unexpected user %q in result", r.Username)
		}
		if r.EventID == target.ID || r.EventID == later.ID {
			t.Errorf("record for event on/after cutoff returned: %+v", r)
		}
	}

	since := before.AddDate(0, 0, -30)
	windowed, err := store.ListConfirmationsForUsers(ctx, []string{"alice"}, before, &since)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// recent plus the undated legacy event
	if len(windowed) != 2 {
		t.Fatalf("expected 2 records, got %d", len(windowed))
	}
	for _, r := range windowed {
		if r.EventID == legacy.ID && r.EventLegacyDate != "2024/2/20" {
			t.Errorf("legacy date not joined: %+v", r)
		}
	}

	none, err := store.ListConfirmationsForUsers(ctx, nil, before, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no records, got %d", len(none))
	}
}

func TestInMemoryStore_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewInMemoryStore()

	if _, err := store.GetEvent(ctx, uuid.New()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if _, err := store.ListConfirmationsForUsers(ctx, []string{"alice"}, time.Now(), nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestInDateRange(t *testing.T) {
	before := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	since := before.AddDate(0, 0, -30)

	cases := []struct {
		name string
		date *time.Time
		want bool
	}{
		{"undated", nil, true},
		{"same day", datePtr(2024, 3, 10), false},
		{"day before", datePtr(2024, 3, 9), true},
		{"at since", datePtr(2024, 2, 9), true},
		{"before since", datePtr(2024, 2, 8), false},
	}
	for _, tc := range cases {
		if got := InDateRange(tc.date, before, &since); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
