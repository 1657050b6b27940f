package timers

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"social-coordination/internal/domain/apperr"
)

type testRepo struct {
	mu    sync.Mutex
	byRef map[string]TimedResource
}

func newTestRepo() *testRepo {
	return &testRepo{byRef: map[string]TimedResource{}}
}

func (r *testRepo) Create(ctx context.Context, t TimedResource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byRef[t.ResourceRef]; ok {
		return apperr.ErrConflict
	}
	r.byRef[t.ResourceRef] = t
	return nil
}

func (r *testRepo) GetByRef(ctx context.Context, ref string) (TimedResource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byRef[ref]
	if !ok {
		return TimedResource{}, apperr.ErrNotFound
	}
	return t, nil
}

func (r *testRepo) DeleteByRef(ctx context.Context, ref string) (TimedResource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byRef[ref]
	if !ok {
		return TimedResource{}, apperr.ErrNotFound
	}
	delete(r.byRef, ref)
	return t, nil
}

func (r *testRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]TimedResource, error) {
	return r.list(func(t TimedResource) bool { return !t.Expiry.After(now) }), nil
}

func (r *testRepo) ListBefore(ctx context.Context, until time.Time, limit int) ([]TimedResource, error) {
	return r.list(func(t TimedResource) bool { return t.Expiry.Before(until) }), nil
}

func (r *testRepo) list(keep func(TimedResource) bool) []TimedResource {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TimedResource, 0)
	for _, t := range r.byRef {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Expiry.Before(out[j].Expiry) })
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestScheduler() (*Scheduler, *testRepo, *fakeClock) {
	repo := newTestRepo()
	clock := &fakeClock{now: time.Date(2025, 12, 22, 10, 0, 0, 0, time.UTC)}
	s := NewScheduler(repo, Options{PollInterval: time.Minute, Workers: 2})
	s.now = clock.Now
	return s, repo, clock
}

func TestScheduler_Allocate_DuplicateRefConflicts(t *testing.T) {
	s, _, clock := newTestScheduler()
	ctx := context.Background()

	if _, err := s.Allocate(ctx, "req-1", KindRequest, clock.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Allocate error: %v", err)
	}
	_, err := s.Allocate(ctx, "req-1", KindRequest, clock.Now().Add(2*time.Hour))
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestScheduler_Allocate_RejectsInvalidInput(t *testing.T) {
	s, _, clock := newTestScheduler()
	ctx := context.Background()

	if _, err := s.Allocate(ctx, " ", KindRequest, clock.Now()); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank ref, got %v", err)
	}
	if _, err := s.Allocate(ctx, "x", KindRequest, time.Time{}); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero expiry, got %v", err)
	}
	if _, err := s.Allocate(ctx, "x", Kind("post"), clock.Now()); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown kind, got %v", err)
	}
}

func TestScheduler_Deallocate_IsIdempotent(t *testing.T) {
	s, repo, clock := newTestScheduler()
	ctx := context.Background()

	if err := s.Deallocate(ctx, "never-allocated"); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}

	_, _ = s.Allocate(ctx, "req-1", KindRequest, clock.Now().Add(time.Hour))
	if err := s.Deallocate(ctx, "req-1"); err != nil {
		t.Fatalf("Deallocate error: %v", err)
	}
	if err := s.Deallocate(ctx, "req-1"); err != nil {
		t.Fatalf("second Deallocate should be a no-op, got %v", err)
	}
	if len(repo.byRef) != 0 {
		t.Fatalf("expected no timers left")
	}
}

func TestScheduler_Tick_FiresDueExactlyOnce(t *testing.T) {
	s, repo, clock := newTestScheduler()
	ctx := context.Background()

	var calls int32
	s.Handle(KindRequest, func(ctx context.Context, tr TimedResource) error {
		atomic.AddInt32(&calls, 1)
		if tr.ResourceRef != "req-1" {
			t.Errorf("unexpected ref %s", tr.ResourceRef)
		}
		return nil
	})

	_, _ = s.Allocate(ctx, "req-1", KindRequest, clock.Now().Add(time.Hour))

	if n, _ := s.Tick(ctx); n != 0 {
		t.Fatalf("expected nothing due yet, fired %d", n)
	}

	clock.Advance(time.Hour)
	n, err := s.Tick(ctx)
	if err != nil {
		t.Fatalf("Tick error: %v", err)
	}
	if n != 1 || atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected exactly one firing, got n=%d calls=%d", n, calls)
	}
	if len(repo.byRef) != 0 {
		t.Fatalf("expected timer deleted after firing")
	}

	clock.Advance(time.Hour)
	if n, _ := s.Tick(ctx); n != 0 {
		t.Fatalf("expected no second firing, got %d", n)
	}
}

func TestScheduler_DeallocateBeforeDeadline_NeverFires(t *testing.T) {
	s, _, clock := newTestScheduler()
	ctx := context.Background()

	var calls int32
	s.Handle(KindRequest, func(ctx context.Context, tr TimedResource) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	_, _ = s.Allocate(ctx, "req-1", KindRequest, clock.Now().Add(time.Minute))
	_ = s.Deallocate(ctx, "req-1")

	clock.Advance(time.Hour)
	if _, err := s.Tick(ctx); err != nil {
		t.Fatalf("Tick error: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no callback after deallocate, got %d", calls)
	}
}

func TestScheduler_ConcurrentTicks_ClaimOnce(t *testing.T) {
	s, _, clock := newTestScheduler()
	ctx := context.Background()

	var calls int32
	s.Handle(KindEvent, func(ctx context.Context, tr TimedResource) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	for _, ref := range []string{"e1", "e2", "e3", "e4", "e5"} {
		if _, err := s.Allocate(ctx, ref, KindEvent, clock.Now().Add(time.Second)); err != nil {
			t.Fatalf("Allocate error: %v", err)
		}
	}
	clock.Advance(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Tick(ctx)
		}()
	}
	wg.Wait()

	if calls != 5 {
		t.Fatalf("expected 5 callbacks across concurrent ticks, got %d", calls)
	}
}

func TestScheduler_CallbackErrorStillConsumesTimer(t *testing.T) {
	s, repo, clock := newTestScheduler()
	ctx := context.Background()

	s.Handle(KindRequest, func(ctx context.Context, tr TimedResource) error {
		return errors.New("ledger unavailable")
	})
	_, _ = s.Allocate(ctx, "req-1", KindRequest, clock.Now())

	n, err := s.Tick(ctx)
	if err != nil {
		t.Fatalf("Tick error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected the firing to be counted, got %d", n)
	}
	if len(repo.byRef) != 0 {
		t.Fatalf("expected timer consumed even when callback fails")
	}
}

func TestScheduler_Run_FiresFromHeap(t *testing.T) {
	repo := newTestRepo()
	s := NewScheduler(repo, Options{PollInterval: time.Hour})

	fired := make(chan string, 1)
	s.Handle(KindRequest, func(ctx context.Context, tr TimedResource) error {
		fired <- tr.ResourceRef
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	if _, err := s.Allocate(ctx, "req-run", KindRequest, time.Now().Add(20*time.Millisecond)); err != nil {
		t.Fatalf("Allocate error: %v", err)
	}

	select {
	case ref := <-fired:
		if ref != "req-run" {
			t.Fatalf("unexpected ref %s", ref)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timer did not fire")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled from Run, got %v", err)
	}
}

func (s *Scheduler) queued() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := make([]string, 0, s.queue.Len())
	for _, d := range s.queue {
		refs = append(refs, d.ref)
	}
	sort.Strings(refs)
	return refs
}

func TestScheduler_QueueHoldsOnlyLiveDeadlinesInWindow(t *testing.T) {
	s, repo, clock := newTestScheduler()
	ctx := context.Background()

	// PollInterval es 1m: la ventana del heap es 2m.
	_, _ = s.Allocate(ctx, "soon-1", KindRequest, clock.Now().Add(30*time.Second))
	_, _ = s.Allocate(ctx, "soon-2", KindRequest, clock.Now().Add(90*time.Second))
	_, _ = s.Allocate(ctx, "week", KindRequest, clock.Now().Add(168*time.Hour))

	if got := s.queued(); len(got) != 2 || got[0] != "soon-1" || got[1] != "soon-2" {
		t.Fatalf("expected only deadlines inside the window queued, got %v", got)
	}
	if _, ok := repo.byRef["week"]; !ok {
		t.Fatalf("far deadline must still be persisted")
	}

	_ = s.Deallocate(ctx, "soon-1")
	if got := s.queued(); len(got) != 1 || got[0] != "soon-2" {
		t.Fatalf("expected deallocated deadline dropped from queue, got %v", got)
	}

	clock.Advance(168*time.Hour - time.Minute)
	if err := s.reload(ctx); err != nil {
		t.Fatalf("reload error: %v", err)
	}
	found := false
	for _, ref := range s.queued() {
		if ref == "week" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected far deadline loaded once it enters the window")
	}
}

func TestScheduler_Cancel_ReportsWhetherItWonTheClaim(t *testing.T) {
	s, repo, clock := newTestScheduler()
	ctx := context.Background()

	_, _ = s.Allocate(ctx, "req-1", KindRequest, clock.Now().Add(time.Hour))
	if ok, err := s.Cancel(ctx, "req-1"); err != nil || !ok {
		t.Fatalf("expected first cancel to remove the timer, got ok=%v err=%v", ok, err)
	}
	if ok, err := s.Cancel(ctx, "req-1"); err != nil || ok {
		t.Fatalf("expected second cancel to report nothing removed, got ok=%v err=%v", ok, err)
	}

	// Un tick que ya reclamó el timer gana: Cancel no lo puede sacar.
	_, _ = s.Allocate(ctx, "req-2", KindRequest, clock.Now().Add(time.Hour))
	if _, err := repo.DeleteByRef(ctx, "req-2"); err != nil {
		t.Fatalf("claim error: %v", err)
	}
	if ok, _ := s.Cancel(ctx, "req-2"); ok {
		t.Fatalf("expected cancel after claim to report false")
	}
}
