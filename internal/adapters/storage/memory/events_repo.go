package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"social-coordination/internal/domain/apperr"
	"social-coordination/internal/domain/events"
)

type eventRepo struct {
	mu   sync.RWMutex
	byID map[string]events.Event
}

func NewEventRepo() events.Repository {
	return &eventRepo{
		byID: make(map[string]events.Event),
	}
}

func cloneEvent(e events.Event) events.Event {
	e.Attendees = append([]string(nil), e.Attendees...)
	return e
}

func (r *eventRepo) Create(ctx context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.ID == "" {
		return apperr.New(apperr.ErrInvalidInput, "event id required")
	}
	if _, exists := r.byID[e.ID]; exists {
		return apperr.New(apperr.ErrConflict, "event %s already exists", e.ID)
	}
	r.byID[e.ID] = cloneEvent(e)
	return nil
}

func (r *eventRepo) GetByID(ctx context.Context, id string) (events.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byID[id]
	if !ok {
		return events.Event{}, apperr.New(apperr.ErrNotFound, "event %s not found", id)
	}
	return cloneEvent(e), nil
}

func (r *eventRepo) List(ctx context.Context, filter events.ListFilter) ([]events.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = events.DefaultLimit
	}
	q := strings.ToLower(strings.TrimSpace(filter.Query))

	out := make([]events.Event, 0)
	for _, e := range r.byID {
		if filter.GroupID != "" && e.GroupID != filter.GroupID {
			continue
		}
		if filter.Attendee != "" && !e.HasAttendee(filter.Attendee) {
			continue
		}
		if filter.ActiveAt != nil && !e.IsActive(*filter.ActiveAt) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(e.Name), q) {
			continue
		}
		out = append(out, cloneEvent(e))
	}

	// Próximos primero
	sort.Slice(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	if !filter.Unbounded && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *eventRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return apperr.New(apperr.ErrNotFound, "event %s not found", id)
	}
	delete(r.byID, id)
	return nil
}

func (r *eventRepo) Admit(ctx context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return apperr.New(apperr.ErrNotFound, "event %s not found", id)
	}
	if e.HasAttendee(userID) {
		return apperr.New(apperr.ErrConflict, "%s is already attending event %s", userID, id)
	}
	if len(e.Attendees) >= e.Capacity {
		return apperr.New(apperr.ErrConflict, "event %s is at capacity (%d/%d)", id, len(e.Attendees), e.Capacity)
	}
	e.Attendees = append(append([]string(nil), e.Attendees...), userID)
	r.byID[id] = e
	return nil
}

func (r *eventRepo) Evict(ctx context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return apperr.New(apperr.ErrNotFound, "event %s not found", id)
	}
	e.Attendees = without(e.Attendees, userID)
	r.byID[id] = e
	return nil
}
