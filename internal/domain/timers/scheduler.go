package timers

import (
	"container/heap"
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"social-coordination/internal/domain/apperr"
	"social-coordination/internal/platform/logger"
	"social-coordination/internal/platform/metrics"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Callback recibe el timer ya reclamado. Se invoca exactamente una vez por allocate.
type Callback func(ctx context.Context, t TimedResource) error

type Options struct {
	// PollInterval: cada cuánto se barre el store además del heap local
	// (timers creados por otra instancia o antes de un restart).
	PollInterval time.Duration
	// Workers: callbacks en paralelo por tick.
	Workers int
	Logger  logger.Logger
	// Now reemplaza time.Now (tests).
	Now func() time.Time
}

// Scheduler es el ExpiryScheduler: único dueño de la existencia de los TimedResource.
// No sabe qué significa "expirar"; delega en el callback registrado por kind.
type Scheduler struct {
	repo Repository
	now  func() time.Time
	log  logger.Logger

	pollInterval time.Duration
	workers      int

	mu       sync.Mutex
	handlers map[Kind]Callback
	queue    deadlineQueue

	wake chan struct{}
}

func NewScheduler(repo Repository, opts Options) *Scheduler {
	poll := opts.PollInterval
	if poll <= 0 {
		poll = 30 * time.Second
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		repo:         repo,
		now:          now,
		log:          log.With(map[string]any{"component": "expiry_scheduler"}),
		pollInterval: poll,
		workers:      workers,
		handlers:     map[Kind]Callback{},
		wake:         make(chan struct{}, 1),
	}
}

// Handle registra el callback para un kind. Reemplaza el anterior si existía.
func (s *Scheduler) Handle(kind Kind, cb Callback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[kind] = cb
}

func (s *Scheduler) Allocate(ctx context.Context, resourceRef string, kind Kind, expiry time.Time) (TimedResource, error) {
	resourceRef = strings.TrimSpace(resourceRef)
	if resourceRef == "" || expiry.IsZero() {
		return TimedResource{}, apperr.ErrInvalidInput
	}
	if kind != KindRequest && kind != KindEvent {
		return TimedResource{}, apperr.New(apperr.ErrInvalidInput, "unknown timer kind %q", kind)
	}

	t := TimedResource{
		ID:          uuid.NewString(),
		ResourceRef: resourceRef,
		Kind:        kind,
		Expiry:      expiry,
		CreatedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return TimedResource{}, apperr.Storage("timers: create", err)
	}

	// Lo que vence más allá de la ventana lo trae reload cuando se acerque.
	if t.Expiry.Before(s.horizon()) {
		s.mu.Lock()
		heap.Push(&s.queue, deadline{ref: t.ResourceRef, at: t.Expiry})
		metrics.SetScheduledTimers(s.queue.Len())
		s.mu.Unlock()
		s.signal()
	}

	return t, nil
}

// Deallocate cancela el timer de resourceRef. Si no existe (ya disparó o nunca
// se creó) es un no-op.
func (s *Scheduler) Deallocate(ctx context.Context, resourceRef string) error {
	_, err := s.Cancel(ctx, resourceRef)
	return err
}

// Cancel es Deallocate pero informa si esta llamada borró el timer. false
// significa que no existía o que un Tick ya lo reclamó y su callback corre o corrió.
func (s *Scheduler) Cancel(ctx context.Context, resourceRef string) (bool, error) {
	resourceRef = strings.TrimSpace(resourceRef)
	if resourceRef == "" {
		return false, nil
	}
	_, err := s.repo.DeleteByRef(ctx, resourceRef)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return false, apperr.Storage("timers: delete", err)
	}

	s.mu.Lock()
	s.queue.remove(resourceRef)
	metrics.SetScheduledTimers(s.queue.Len())
	s.mu.Unlock()

	return err == nil, nil
}

func (s *Scheduler) Get(ctx context.Context, resourceRef string) (TimedResource, error) {
	t, err := s.repo.GetByRef(ctx, strings.TrimSpace(resourceRef))
	if err != nil {
		return TimedResource{}, apperr.Storage("timers: get", err)
	}
	return t, nil
}

// Tick dispara todo lo vencido a s.now(). Devuelve cuántos callbacks corrió.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	now := s.now()

	s.mu.Lock()
	for s.queue.Len() > 0 && !s.queue[0].at.After(now) {
		heap.Pop(&s.queue)
	}
	metrics.SetScheduledTimers(s.queue.Len())
	s.mu.Unlock()

	due, err := s.repo.ListDue(ctx, now, 0)
	if err != nil {
		return 0, apperr.Storage("timers: list due", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	var (
		fired   int
		firedMu sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, t := range due {
		t := t
		g.Go(func() error {
			ok := s.fire(gctx, t)
			if ok {
				firedMu.Lock()
				fired++
				firedMu.Unlock()
			}
			// Los errores de callback se loguean; no cortan el resto del tick.
			return nil
		})
	}
	_ = g.Wait()

	return fired, nil
}

// fire reclama el timer y corre su callback. false si otro lo reclamó antes.
func (s *Scheduler) fire(ctx context.Context, t TimedResource) bool {
	claimed, err := s.repo.DeleteByRef(ctx, t.ResourceRef)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			s.log.Error("timer claim failed", map[string]any{"resource_ref": t.ResourceRef, "err": err.Error()})
		}
		return false
	}

	s.mu.Lock()
	cb := s.handlers[claimed.Kind]
	s.mu.Unlock()

	if cb == nil {
		s.log.Warn("no handler for timer kind; dropping", map[string]any{
			"resource_ref": claimed.ResourceRef,
			"kind":         string(claimed.Kind),
		})
		metrics.RecordTimerFired(string(claimed.Kind), "unhandled")
		return true
	}

	if err := cb(ctx, claimed); err != nil {
		s.log.Error("timer callback failed", map[string]any{
			"resource_ref": claimed.ResourceRef,
			"kind":         string(claimed.Kind),
			"err":          err.Error(),
		})
		metrics.RecordTimerFired(string(claimed.Kind), "error")
		return true
	}

	s.log.Debug("timer fired", map[string]any{
		"resource_ref": claimed.ResourceRef,
		"kind":         string(claimed.Kind),
	})
	metrics.RecordTimerFired(string(claimed.Kind), "ok")
	return true
}

// Run es la tarea de fondo: duerme hasta el próximo deadline del heap o hasta
// PollInterval, lo que ocurra primero. Termina cuando ctx se cancela.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.reload(ctx); err != nil {
		s.log.Warn("initial timer reload failed", map[string]any{"err": err.Error()})
	}

	timer := time.NewTimer(s.nextWait())
	defer timer.Stop()

	lastPoll := s.now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wake:
		case <-timer.C:
			if _, err := s.Tick(ctx); err != nil {
				s.log.Error("expiry tick failed", map[string]any{"err": err.Error()})
			}
			if s.now().Sub(lastPoll) >= s.pollInterval {
				lastPoll = s.now()
				if err := s.reload(ctx); err != nil {
					s.log.Warn("timer reload failed", map[string]any{"err": err.Error()})
				}
			}
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(s.nextWait())
	}
}

// horizon es el límite de la ventana que vive en el heap.
func (s *Scheduler) horizon() time.Time {
	return s.now().Add(2 * s.pollInterval)
}

// reload trae al heap los timers que vencen dentro de la próxima ventana de poll.
func (s *Scheduler) reload(ctx context.Context) error {
	items, err := s.repo.ListBefore(ctx, s.horizon(), 0)
	if err != nil {
		return apperr.Storage("timers: reload", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	known := make(map[string]struct{}, s.queue.Len())
	for _, d := range s.queue {
		known[d.ref] = struct{}{}
	}
	for _, t := range items {
		if _, ok := known[t.ResourceRef]; ok {
			continue
		}
		heap.Push(&s.queue, deadline{ref: t.ResourceRef, at: t.Expiry})
	}
	metrics.SetScheduledTimers(s.queue.Len())
	return nil
}

func (s *Scheduler) nextWait() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	wait := s.pollInterval
	if s.queue.Len() > 0 {
		if d := s.queue[0].at.Sub(s.now()); d < wait {
			wait = d
		}
	}
	if wait < 0 {
		wait = 0
	}
	return wait
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// deadlineQueue es un min-heap por instante de vencimiento.
type deadline struct {
	ref string
	at  time.Time
}

type deadlineQueue []deadline

func (q deadlineQueue) Len() int           { return len(q) }
func (q deadlineQueue) Less(i, j int) bool { return q[i].at.Before(q[j].at) }
func (q deadlineQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *deadlineQueue) Push(x any) { *q = append(*q, x.(deadline)) }

func (q *deadlineQueue) remove(ref string) {
	for i, d := range *q {
		if d.ref == ref {
			heap.Remove(q, i)
			return
		}
	}
}

func (q *deadlineQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
