package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"social-coordination/internal/domain/apperr"
	"social-coordination/internal/domain/timers"
)

type timerRepo struct {
	mu    sync.Mutex
	byRef map[string]timers.TimedResource
}

func NewTimerRepo() timers.Repository {
	return &timerRepo{
		byRef: make(map[string]timers.TimedResource),
	}
}

func (r *timerRepo) Create(ctx context.Context, t timers.TimedResource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byRef[t.ResourceRef]; exists {
		return apperr.New(apperr.ErrConflict, "%s already has an active timer", t.ResourceRef)
	}
	r.byRef[t.ResourceRef] = t
	return nil
}

func (r *timerRepo) GetByRef(ctx context.Context, ref string) (timers.TimedResource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byRef[ref]
	if !ok {
		return timers.TimedResource{}, apperr.New(apperr.ErrNotFound, "no timer for %s", ref)
	}
	return t, nil
}

// DeleteByRef es el claim: solo el primero lo obtiene.
func (r *timerRepo) DeleteByRef(ctx context.Context, ref string) (timers.TimedResource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byRef[ref]
	if !ok {
		return timers.TimedResource{}, apperr.New(apperr.ErrNotFound, "no timer for %s", ref)
	}
	delete(r.byRef, ref)
	return t, nil
}

func (r *timerRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]timers.TimedResource, error) {
	return r.list(func(t timers.TimedResource) bool { return !t.Expiry.After(now) }, limit), nil
}

func (r *timerRepo) ListBefore(ctx context.Context, until time.Time, limit int) ([]timers.TimedResource, error) {
	return r.list(func(t timers.TimedResource) bool { return t.Expiry.Before(until) }, limit), nil
}

func (r *timerRepo) list(keep func(timers.TimedResource) bool, limit int) []timers.TimedResource {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]timers.TimedResource, 0)
	for _, t := range r.byRef {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Expiry.Before(out[j].Expiry) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
