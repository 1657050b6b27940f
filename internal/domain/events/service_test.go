package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"social-coordination/internal/adapters/storage/memory"
	"social-coordination/internal/domain/apperr"
	"social-coordination/internal/domain/events"
)

type fakeGroups map[string][]string

func (f fakeGroups) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	members, ok := f[groupID]
	if !ok {
		return false, apperr.ErrNotFound
	}
	for _, m := range members {
		if m == userID {
			return true, nil
		}
	}
	return false, nil
}

func newService() (*events.Service, events.Repository) {
	repo := memory.NewEventRepo()
	return events.NewService(repo, fakeGroups{"g1": {"host", "guest"}}, nil), repo
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	start := time.Now().Add(time.Hour)

	cases := []struct {
		name string
		host string
		in   events.CreateInput
		want error
	}{
		{"blank name", "host", events.CreateInput{GroupID: "g1", Capacity: 2, Start: start, End: start.Add(time.Hour)}, apperr.ErrInvalidInput},
		{"zero capacity", "host", events.CreateInput{Name: "x", GroupID: "g1", Start: start, End: start.Add(time.Hour)}, apperr.ErrInvalidInput},
		{"end before start", "host", events.CreateInput{Name: "x", GroupID: "g1", Capacity: 2, Start: start, End: start.Add(-time.Minute)}, apperr.ErrInvalidInput},
		{"already over", "host", events.CreateInput{Name: "x", GroupID: "g1", Capacity: 2, Start: time.Now().Add(-2 * time.Hour), End: time.Now().Add(-time.Hour)}, apperr.ErrInvalidInput},
		{"not a member", "stranger", events.CreateInput{Name: "x", GroupID: "g1", Capacity: 2, Start: start, End: start.Add(time.Hour)}, apperr.ErrForbidden},
		{"unknown group", "host", events.CreateInput{Name: "x", GroupID: "nope", Capacity: 2, Start: start, End: start.Add(time.Hour)}, apperr.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tc.host, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestListActive_FiltersEndedAndName(t *testing.T) {
	svc, repo := newService()
	ctx := context.Background()
	start := time.Now().Add(time.Hour)

	if _, err := svc.Create(ctx, "host", events.CreateInput{Name: "Board Games Night", GroupID: "g1", Capacity: 4, Start: start, End: start.Add(time.Hour)}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := svc.Create(ctx, "guest", events.CreateInput{Name: "Morning Run", GroupID: "g1", Capacity: 4, Start: start, End: start.Add(time.Hour)}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	past := time.Now().Add(-3 * time.Hour)
	_ = repo.Create(ctx, events.Event{ID: "old", Name: "Old Games", GroupID: "g1", HostID: "host", Capacity: 2, Start: past, End: past.Add(time.Hour)})

	all, _ := svc.ListActive(ctx, "", 0)
	if len(all) != 2 {
		t.Fatalf("expected 2 active events, got %d", len(all))
	}
	games, _ := svc.ListActive(ctx, "games", 0)
	if len(games) != 1 || games[0].Name != "Board Games Night" {
		t.Fatalf("expected only the active games event, got %+v", games)
	}
}

func TestCancel_OnlyHost(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	start := time.Now().Add(time.Hour)
	e, _ := svc.Create(ctx, "host", events.CreateInput{Name: "x", GroupID: "g1", Capacity: 2, Start: start, End: start.Add(time.Hour)})

	if _, err := svc.Cancel(ctx, e.ID, "guest"); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Cancel(ctx, e.ID, "host"); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
}
