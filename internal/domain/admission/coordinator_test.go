package admission

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"social-coordination/internal/adapters/storage/memory"
	"social-coordination/internal/domain/apperr"
	"social-coordination/internal/domain/events"
	"social-coordination/internal/domain/friends"
	"social-coordination/internal/domain/groups"
	"social-coordination/internal/domain/registry"
	"social-coordination/internal/domain/requests"
	"social-coordination/internal/domain/timers"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	c         *Coordinator
	ledger    *requests.Service
	scheduler *timers.Scheduler
	registry  *registry.Registry
	groups    *groups.Service
	events    *events.Service
	friends   *friends.Service
	clock     *testClock
}

func newFixture(t *testing.T, policy DeadlinePolicy) *fixture {
	t.Helper()
	clock := &testClock{now: time.Now()}

	groupRepo := memory.NewGroupRepo()
	eventRepo := memory.NewEventRepo()

	groupsSvc := groups.NewService(groupRepo, nil)
	eventsSvc := events.NewService(eventRepo, groupsSvc, nil)
	f := &fixture{
		ledger:    requests.NewService(memory.NewRequestRepo()),
		scheduler: timers.NewScheduler(memory.NewTimerRepo(), timers.Options{Workers: 2, Now: clock.Now}),
		registry: registry.New(map[registry.Kind]registry.Store{
			registry.KindGroup: groups.NewRegistryStore(groupRepo),
			registry.KindEvent: events.NewRegistryStore(eventRepo),
		}),
		groups:  groupsSvc,
		events:  eventsSvc,
		friends: friends.NewService(memory.NewFriendRepo()),
		clock:   clock,
	}
	f.c = New(Deps{
		Ledger:    f.ledger,
		Scheduler: f.scheduler,
		Registry:  f.registry,
		Groups:    f.groups,
		Events:    f.events,
		Friends:   f.friends,
	}, Options{Policy: policy, Now: clock.Now})
	return f
}

func (f *fixture) group(t *testing.T, owner string, capacity int) registry.Ref {
	t.Helper()
	g, err := f.c.CreateGroup(context.Background(), owner, groups.CreateInput{Name: "g-" + owner, Capacity: capacity})
	if err != nil {
		t.Fatalf("CreateGroup error: %v", err)
	}
	return registry.Ref{Kind: registry.KindGroup, ID: g.ID}
}

func (f *fixture) members(t *testing.T, ref registry.Ref) []string {
	t.Helper()
	occ, err := f.registry.Occupancy(context.Background(), ref)
	if err != nil {
		t.Fatalf("Occupancy error: %v", err)
	}
	return occ.Members
}

func TestOpenMembership_DuplicatePendingConflicts(t *testing.T) {
	f := newFixture(t, DeadlinePolicy{})
	ctx := context.Background()
	ref := f.group(t, "owner", 3)

	if _, err := f.c.OpenMembershipRequest(ctx, "alice", ref, OpenInput{}); err != nil {
		t.Fatalf("first open: %v", err)
	}
	_, err := f.c.OpenMembershipRequest(ctx, "alice", ref, OpenInput{})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate open, got %v", err)
	}
}

func TestOpenMembership_RecipientIsOwner(t *testing.T) {
	f := newFixture(t, DeadlinePolicy{})
	ref := f.group(t, "owner", 3)

	req, err := f.c.OpenMembershipRequest(context.Background(), "alice", ref, OpenInput{Message: "hola"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	want := requests.Request{
		SenderID:    "alice",
		RecipientID: "owner",
		Target:      requests.GroupTarget{GroupID: ref.ID},
		Status:      requests.StatusPending,
		Message:     "hola",
	}
	ignore := cmpopts.IgnoreFields(requests.Request{}, "ID", "CreatedAt", "UpdatedAt")
	if diff := cmp.Diff(want, req, ignore); diff != "" {
		t.Fatalf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenMembership_AlreadyMemberConflicts(t *testing.T) {
	f := newFixture(t, DeadlinePolicy{})
	ctx := context.Background()
	ref := f.group(t, "owner", 3)
	_ = f.registry.Admit(ctx, ref, "alice")

	if _, err := f.c.OpenMembershipRequest(ctx, "alice", ref, OpenInput{}); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected ErrConflict for existing member, got %v", err)
	}
}

func TestResolve_OnlyRecipientWhilePending(t *testing.T) {
	f := newFixture(t, DeadlinePolicy{})
	ctx := context.Background()
	ref := f.group(t, "owner", 3)
	req, _ := f.c.OpenMembershipRequest(ctx, "alice", ref, OpenInput{})

	if _, err := f.c.ResolveMembershipRequest(ctx, requests.KindGroup, req.ID, "alice", true); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for sender, got %v", err)
	}
	if _, err := f.c.ResolveMembershipRequest(ctx, requests.KindEvent, req.ID, "owner", true); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound through the wrong kind, got %v", err)
	}
	if _, err := f.c.ResolveMembershipRequest(ctx, requests.KindGroup, req.ID, "owner", false); err != nil {
		t.Fatalf("decline: %v", err)
	}
	if _, err := f.c.ResolveMembershipRequest(ctx, requests.KindGroup, req.ID, "owner", true); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected ErrConflict after resolution, got %v", err)
	}
	if got := f.members(t, ref); len(got) != 0 {
		t.Fatalf("declined request must not admit, members=%v", got)
	}
}

// capacidad 2, dueño O: A y B aceptados en cualquier orden quedan miembros; C falla rápido.
func TestCapacityTwo_BothAdmittedThirdFailsFast(t *testing.T) {
	for _, order := range [][2]string{{"a", "b"}, {"b", "a"}} {
		f := newFixture(t, DeadlinePolicy{})
		ctx := context.Background()
		ref := f.group(t, "O", 2)

		ids := map[string]string{}
		for _, actor := range []string{"a", "b"} {
			req, err := f.c.OpenMembershipRequest(ctx, actor, ref, OpenInput{})
			if err != nil {
				t.Fatalf("open %s: %v", actor, err)
			}
			ids[actor] = req.ID
		}
		for _, actor := range order {
			if _, err := f.c.ResolveMembershipRequest(ctx, requests.KindGroup, ids[actor], "O", true); err != nil {
				t.Fatalf("accept %s: %v", actor, err)
			}
		}

		got := f.members(t, ref)
		if diff := cmp.Diff([]string{"a", "b"}, got, cmpopts.SortSlices(func(x, y string) bool { return x < y })); diff != "" {
			t.Fatalf("members mismatch (-want +got):\n%s", diff)
		}

		_, err := f.c.OpenMembershipRequest(ctx, "c", ref, OpenInput{})
		if !errors.Is(err, apperr.ErrConflict) {
			t.Fatalf("expected C to fail fast with ErrConflict, got %v", err)
		}
		if sent, _ := f.ledger.ListSentBy(ctx, "c", requests.ListFilter{}); len(sent) != 0 {
			t.Fatalf("fail-fast must not create a request, got %d", len(sent))
		}
	}
}

func TestAcceptIntoFullGroup_LedgerAcceptedCallerConflict(t *testing.T) {
	f := newFixture(t, DeadlinePolicy{})
	ctx := context.Background()
	ref := f.group(t, "owner", 1)

	reqA, _ := f.c.OpenMembershipRequest(ctx, "alice", ref, OpenInput{})
	reqB, _ := f.c.OpenMembershipRequest(ctx, "bob", ref, OpenInput{})

	if _, err := f.c.ResolveMembershipRequest(ctx, requests.KindGroup, reqA.ID, "owner", true); err != nil {
		t.Fatalf("accept alice: %v", err)
	}
	_, err := f.c.ResolveMembershipRequest(ctx, requests.KindGroup, reqB.ID, "owner", true)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected ErrConflict accepting into a full group, got %v", err)
	}

	stored, _ := f.ledger.Get(ctx, reqB.ID)
	if stored.Status != requests.StatusAccepted {
		t.Fatalf("ledger should keep the request accepted, got %s", stored.Status)
	}
	if member, _ := f.registry.IsMember(ctx, ref, "bob"); member {
		t.Fatalf("bob must not be admitted")
	}

	// Se libera un lugar y el reconcile completa la admisión.
	if err := f.c.LeaveGroup(ctx, ref.ID, "alice"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if _, err := f.c.Reconcile(ctx, reqB.ID, "bob"); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if member, _ := f.registry.IsMember(ctx, ref, "bob"); !member {
		t.Fatalf("bob should be a member after reconcile")
	}
	if _, err := f.c.Reconcile(ctx, reqB.ID, "bob"); err != nil {
		t.Fatalf("second reconcile should be a no-op, got %v", err)
	}
}

func TestReconcile_RejectsPendingAndStrangers(t *testing.T) {
	f := newFixture(t, DeadlinePolicy{})
	ctx := context.Background()
	ref := f.group(t, "owner", 2)
	req, _ := f.c.OpenMembershipRequest(ctx, "alice", ref, OpenInput{})

	if _, err := f.c.Reconcile(ctx, req.ID, "mallory"); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := f.c.Reconcile(ctx, req.ID, "alice"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected ErrConflict for a pending request, got %v", err)
	}
}

func TestExpiry_DeletesPendingWithoutAdmitting(t *testing.T) {
	f := newFixture(t, DeadlinePolicy{Group: time.Hour})
	ctx := context.Background()
	ref := f.group(t, "owner", 2)

	req, err := f.c.OpenMembershipRequest(ctx, "alice", ref, OpenInput{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if req.ExpiresAt == nil {
		t.Fatalf("expected a default deadline")
	}
	if _, err := f.scheduler.Get(ctx, req.ID); err != nil {
		t.Fatalf("expected a timer for the request: %v", err)
	}

	f.clock.Advance(2 * time.Hour)
	if n, err := f.scheduler.Tick(ctx); err != nil || n != 1 {
		t.Fatalf("expected one firing, got n=%d err=%v", n, err)
	}

	if _, err := f.ledger.Get(ctx, req.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected request deleted by expiry, got %v", err)
	}
	if _, err := f.c.ResolveMembershipRequest(ctx, requests.KindGroup, req.ID, "owner", true); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("responding after expiry should be NotFound, got %v", err)
	}
	if got := f.members(t, ref); len(got) != 0 {
		t.Fatalf("expiry must not touch the registry, members=%v", got)
	}
}

func TestRespondBeforeExpiry_TimerFiringIsNoop(t *testing.T) {
	f := newFixture(t, DeadlinePolicy{Group: time.Hour})
	ctx := context.Background()
	ref := f.group(t, "owner", 2)

	req, _ := f.c.OpenMembershipRequest(ctx, "alice", ref, OpenInput{})
	if _, err := f.c.ResolveMembershipRequest(ctx, requests.KindGroup, req.ID, "owner", true); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := f.scheduler.Get(ctx, req.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("respond should deallocate the timer, got %v", err)
	}

	f.clock.Advance(2 * time.Hour)
	if n, _ := f.scheduler.Tick(ctx); n != 0 {
		t.Fatalf("expected nothing to fire, got %d", n)
	}
	stored, _ := f.ledger.Get(ctx, req.ID)
	if stored.Status != requests.StatusAccepted {
		t.Fatalf("expected accepted, got %s", stored.Status)
	}
}

// respond y expiry compiten; exactamente uno gana.
func TestRespondAndExpiry_MutuallyExclusive(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newFixture(t, DeadlinePolicy{Group: time.Minute})
		ctx := context.Background()
		ref := f.group(t, "owner", 5)
		req, _ := f.c.OpenMembershipRequest(ctx, "alice", ref, OpenInput{})
		f.clock.Advance(time.Hour)

		var respondErr error
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, respondErr = f.c.ResolveMembershipRequest(ctx, requests.KindGroup, req.ID, "owner", true)
		}()
		go func() {
			defer wg.Done()
			_, _ = f.scheduler.Tick(ctx)
		}()
		wg.Wait()

		stored, getErr := f.ledger.Get(ctx, req.ID)
		member, _ := f.registry.IsMember(ctx, ref, "alice")
		switch {
		case respondErr == nil:
			if getErr != nil || stored.Status != requests.StatusAccepted || !member {
				t.Fatalf("respond won but state is inconsistent: status=%s member=%v err=%v", stored.Status, member, getErr)
			}
		default:
			if !errors.Is(getErr, apperr.ErrNotFound) || member {
				t.Fatalf("expiry won but state is inconsistent: getErr=%v member=%v", getErr, member)
			}
		}
	}
}

func TestWithdraw_CancelsExpiry(t *testing.T) {
	f := newFixture(t, DeadlinePolicy{Group: time.Hour})
	ctx := context.Background()
	ref := f.group(t, "owner", 2)
	req, _ := f.c.OpenMembershipRequest(ctx, "alice", ref, OpenInput{})

	if _, err := f.c.Withdraw(ctx, req.ID, "owner"); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-sender, got %v", err)
	}
	if _, err := f.c.Withdraw(ctx, req.ID, "alice"); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if _, err := f.scheduler.Get(ctx, req.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected timer cancelled, got %v", err)
	}
	if _, err := f.c.Withdraw(ctx, req.ID, "alice"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound withdrawing twice, got %v", err)
	}
}

func TestWithdraw_AfterTimerClaimedLosesToExpiry(t *testing.T) {
	f := newFixture(t, DeadlinePolicy{Group: time.Hour})
	ctx := context.Background()
	ref := f.group(t, "owner", 2)
	req, _ := f.c.OpenMembershipRequest(ctx, "alice", ref, OpenInput{})

	// El tick ya reclamó el timer; el withdraw llega antes que el callback.
	var withdrawErr error
	f.scheduler.Handle(timers.KindRequest, func(ctx context.Context, tr timers.TimedResource) error {
		_, withdrawErr = f.c.Withdraw(ctx, req.ID, "alice")
		return f.c.onRequestExpired(ctx, tr)
	})

	f.clock.Advance(time.Hour)
	if n, err := f.scheduler.Tick(ctx); err != nil || n != 1 {
		t.Fatalf("Tick: n=%d err=%v", n, err)
	}
	if !errors.Is(withdrawErr, apperr.ErrConflict) {
		t.Fatalf("expected ErrConflict withdrawing an expiring request, got %v", withdrawErr)
	}
	if _, err := f.ledger.Get(ctx, req.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected request expired, got %v", err)
	}
}

func TestEventRequest_DeadlineCappedAtStart(t *testing.T) {
	f := newFixture(t, DeadlinePolicy{Event: 48 * time.Hour})
	ctx := context.Background()
	ref := f.group(t, "owner", 5)

	start := f.clock.Now().Add(3 * time.Hour).Truncate(time.Second)
	e, err := f.c.CreateEvent(ctx, "owner", events.CreateInput{
		Name: "picnic", GroupID: ref.ID, Capacity: 3, Start: start, End: start.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	req, err := f.c.OpenMembershipRequest(ctx, "alice", registry.Ref{Kind: registry.KindEvent, ID: e.ID}, OpenInput{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if req.ExpiresAt == nil || !req.ExpiresAt.Equal(start.UTC()) {
		t.Fatalf("expected deadline capped at event start %v, got %v", start, req.ExpiresAt)
	}
}

func TestEventEnd_RemovesEventAndItsRequests(t *testing.T) {
	f := newFixture(t, DeadlinePolicy{})
	ctx := context.Background()
	ref := f.group(t, "owner", 5)
	_ = f.registry.Admit(ctx, ref, "host")

	start := f.clock.Now().Add(time.Hour)
	e, err := f.c.CreateEvent(ctx, "host", events.CreateInput{
		Name: "picnic", GroupID: ref.ID, Capacity: 3, Start: start, End: start.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	req, _ := f.c.OpenMembershipRequest(ctx, "alice", registry.Ref{Kind: registry.KindEvent, ID: e.ID}, OpenInput{})

	f.clock.Advance(3 * time.Hour)
	if _, err := f.scheduler.Tick(ctx); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if _, err := f.events.GetByID(ctx, e.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected event removed at end, got %v", err)
	}
	if _, err := f.ledger.Get(ctx, req.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected event request purged, got %v", err)
	}
}

func TestCreateEvent_HostMustBeMember(t *testing.T) {
	f := newFixture(t, DeadlinePolicy{})
	ref := f.group(t, "owner", 5)
	start := f.clock.Now().Add(time.Hour)

	_, err := f.c.CreateEvent(context.Background(), "stranger", events.CreateInput{
		Name: "x", GroupID: ref.ID, Capacity: 2, Start: start, End: start.Add(time.Hour),
	})
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestDisbandGroup_Cascades(t *testing.T) {
	f := newFixture(t, DeadlinePolicy{Group: time.Hour})
	ctx := context.Background()
	ref := f.group(t, "owner", 5)

	start := f.clock.Now().Add(time.Hour)
	e, _ := f.c.CreateEvent(ctx, "owner", events.CreateInput{
		Name: "picnic", GroupID: ref.ID, Capacity: 3, Start: start, End: start.Add(time.Hour),
	})
	req, _ := f.c.OpenMembershipRequest(ctx, "alice", ref, OpenInput{})

	if _, err := f.c.DisbandGroup(ctx, ref.ID, "alice"); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-owner, got %v", err)
	}
	if _, err := f.c.DisbandGroup(ctx, ref.ID, "owner"); err != nil {
		t.Fatalf("disband: %v", err)
	}

	if _, err := f.ledger.Get(ctx, req.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected group request purged, got %v", err)
	}
	if _, err := f.scheduler.Get(ctx, req.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected request timer cancelled, got %v", err)
	}
	if _, err := f.events.GetByID(ctx, e.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected group event removed, got %v", err)
	}
	if _, err := f.scheduler.Get(ctx, e.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected event timer cancelled, got %v", err)
	}
}

func TestDisbandGroup_RemovesEveryEventPastListCap(t *testing.T) {
	f := newFixture(t, DeadlinePolicy{})
	ctx := context.Background()
	ref := f.group(t, "owner", 5)

	start := f.clock.Now().Add(time.Hour)
	ids := make([]string, 0, events.MaxLimit+5)
	for i := 0; i < events.MaxLimit+5; i++ {
		e, err := f.c.CreateEvent(ctx, "owner", events.CreateInput{
			Name: "e", GroupID: ref.ID, Capacity: 2, Start: start, End: start.Add(time.Hour),
		})
		if err != nil {
			t.Fatalf("CreateEvent %d: %v", i, err)
		}
		ids = append(ids, e.ID)
	}

	if _, err := f.c.DisbandGroup(ctx, ref.ID, "owner"); err != nil {
		t.Fatalf("disband: %v", err)
	}
	left := 0
	for _, id := range ids {
		if _, err := f.events.GetByID(ctx, id); !errors.Is(err, apperr.ErrNotFound) {
			left++
		}
		if _, err := f.scheduler.Get(ctx, id); !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("expected end timer of %s cancelled, got %v", id, err)
		}
	}
	if left != 0 {
		t.Fatalf("events of disbanded group still present: %d of %d", left, len(ids))
	}
}

func TestRemoveActor_LeavesEveryEventPastListCap(t *testing.T) {
	f := newFixture(t, DeadlinePolicy{})
	ctx := context.Background()
	ref := f.group(t, "bob", 5)

	start := f.clock.Now().Add(time.Hour)
	n := events.MaxLimit + 5
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		e, err := f.c.CreateEvent(ctx, "bob", events.CreateInput{
			Name: "e", GroupID: ref.ID, Capacity: 2, Start: start, End: start.Add(time.Hour),
		})
		if err != nil {
			t.Fatalf("CreateEvent %d: %v", i, err)
		}
		if err := f.registry.Admit(ctx, registry.Ref{Kind: registry.KindEvent, ID: e.ID}, "alice"); err != nil {
			t.Fatalf("Admit %d: %v", i, err)
		}
		ids = append(ids, e.ID)
	}

	sum, err := f.c.RemoveActor(ctx, "alice")
	if err != nil {
		t.Fatalf("RemoveActor: %v", err)
	}
	if sum.EventsLeft != n {
		t.Fatalf("expected %d events left, got %d", n, sum.EventsLeft)
	}
	for _, id := range ids {
		e, err := f.events.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID %s: %v", id, err)
		}
		if e.HasAttendee("alice") {
			t.Fatalf("alice still attends %s", id)
		}
	}
}

// failingPurgeRepo falla DeleteByResource mientras fail esté en true.
type failingPurgeRepo struct {
	requests.Repository
	fail bool
}

func (r *failingPurgeRepo) DeleteByResource(ctx context.Context, kind requests.Kind, resourceID string) ([]requests.Request, error) {
	if r.fail {
		return nil, errors.New("db down")
	}
	return r.Repository.DeleteByResource(ctx, kind, resourceID)
}

func TestDisbandGroup_FailedPurgeCanBeRetried(t *testing.T) {
	f := newFixture(t, DeadlinePolicy{Group: time.Hour})
	ctx := context.Background()
	repo := &failingPurgeRepo{Repository: memory.NewRequestRepo()}
	f.ledger = requests.NewService(repo)
	f.c.ledger = f.ledger

	ref := f.group(t, "owner", 5)
	req, err := f.c.OpenMembershipRequest(ctx, "alice", ref, OpenInput{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	repo.fail = true
	if _, err := f.c.DisbandGroup(ctx, ref.ID, "owner"); err == nil {
		t.Fatalf("expected disband to fail while purge fails")
	}
	if _, err := f.groups.GetByID(ctx, ref.ID); err != nil {
		t.Fatalf("group must survive a failed cascade, got %v", err)
	}

	repo.fail = false
	if _, err := f.c.DisbandGroup(ctx, ref.ID, "owner"); err != nil {
		t.Fatalf("retry disband: %v", err)
	}
	if _, err := f.groups.GetByID(ctx, ref.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected group removed on retry, got %v", err)
	}
	if _, err := f.ledger.Get(ctx, req.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected request purged on retry, got %v", err)
	}
}

func TestFriendFlow(t *testing.T) {
	f := newFixture(t, DeadlinePolicy{})
	ctx := context.Background()

	req, err := f.c.OpenFriendRequest(ctx, "alice", "bob", OpenInput{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.c.OpenFriendRequest(ctx, "alice", "bob", OpenInput{}); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected duplicate friend request to conflict, got %v", err)
	}
	if _, err := f.c.ResolveMembershipRequest(ctx, requests.KindGroup, req.ID, "bob", true); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("a friend request is not reachable as a group request, got %v", err)
	}
	if _, err := f.c.ResolveFriendRequest(ctx, req.ID, "bob", true); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if ok, _ := f.friends.AreFriends(ctx, "bob", "alice"); !ok {
		t.Fatalf("expected friendship after accept")
	}
	if _, err := f.c.OpenFriendRequest(ctx, "bob", "alice", OpenInput{}); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected ErrConflict when already friends, got %v", err)
	}
}

func TestRemoveActor(t *testing.T) {
	f := newFixture(t, DeadlinePolicy{Friend: time.Hour})
	ctx := context.Background()

	owned := f.group(t, "alice", 5)
	other := f.group(t, "bob", 5)
	_ = f.registry.Admit(ctx, other, "alice")

	fr, _ := f.c.OpenFriendRequest(ctx, "alice", "carol", OpenInput{})
	_, _ = f.c.OpenMembershipRequest(ctx, "dave", owned, OpenInput{})
	_, _ = f.friends.Add(ctx, "alice", "bob")

	sum, err := f.c.RemoveActor(ctx, "alice")
	if err != nil {
		t.Fatalf("RemoveActor: %v", err)
	}
	want := RemovalSummary{Requests: 2, Friendships: 1, GroupsDisbanded: 1, GroupsLeft: 1}
	if diff := cmp.Diff(want, sum); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
	if _, err := f.groups.GetByID(ctx, owned.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected owned group disbanded, got %v", err)
	}
	if member, _ := f.registry.IsMember(ctx, other, "alice"); member {
		t.Fatalf("expected alice evicted from bob's group")
	}
	if _, err := f.scheduler.Get(ctx, fr.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected friend request timer cancelled, got %v", err)
	}
}
