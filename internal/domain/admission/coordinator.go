// Package admission orquesta open -> (expiry?) -> respond -> admit sobre el ledger,
// el scheduler y el registry. No guarda estado propio: cada paso es del servicio dueño.
package admission

import (
	"context"
	"errors"
	"strings"
	"time"

	"social-coordination/internal/domain/apperr"
	"social-coordination/internal/domain/events"
	"social-coordination/internal/domain/friends"
	"social-coordination/internal/domain/groups"
	"social-coordination/internal/domain/registry"
	"social-coordination/internal/domain/requests"
	"social-coordination/internal/domain/timers"
	"social-coordination/internal/platform/logger"
	"social-coordination/internal/platform/metrics"
)

// Deps son los servicios que el coordinator consume.
type Deps struct {
	Ledger    *requests.Service
	Scheduler *timers.Scheduler
	Registry  *registry.Registry
	Groups    *groups.Service
	Events    *events.Service
	Friends   *friends.Service
}

type Options struct {
	Policy DeadlinePolicy
	Logger logger.Logger
	// Stats es opcional (Redis).
	Stats StatsRecorder
	Now   func() time.Time
}

type Coordinator struct {
	ledger    *requests.Service
	scheduler *timers.Scheduler
	registry  *registry.Registry
	groups    *groups.Service
	events    *events.Service
	friends   *friends.Service

	policy DeadlinePolicy
	log    logger.Logger
	stats  StatsRecorder
	now    func() time.Time
}

// New arma el coordinator y registra sus callbacks de expiración en el scheduler.
func New(deps Deps, opts Options) *Coordinator {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	c := &Coordinator{
		ledger:    deps.Ledger,
		scheduler: deps.Scheduler,
		registry:  deps.Registry,
		groups:    deps.Groups,
		events:    deps.Events,
		friends:   deps.Friends,
		policy:    opts.Policy,
		log:       log.With(map[string]any{"component": "admission"}),
		stats:     opts.Stats,
		now:       now,
	}
	c.scheduler.Handle(timers.KindRequest, c.onRequestExpired)
	c.scheduler.Handle(timers.KindEvent, c.onEventEnded)
	return c
}

// RefFor traduce el target de un request de membresía a su recurso en el registry.
func RefFor(t requests.Target) (registry.Ref, bool) {
	switch v := t.(type) {
	case requests.GroupTarget:
		return registry.Ref{Kind: registry.KindGroup, ID: v.GroupID}, true
	case requests.EventTarget:
		return registry.Ref{Kind: registry.KindEvent, ID: v.EventID}, true
	default:
		return registry.Ref{}, false
	}
}

func targetFor(ref registry.Ref) (requests.Target, error) {
	switch ref.Kind {
	case registry.KindGroup:
		return requests.NewTarget(requests.KindGroup, ref.ID)
	case registry.KindEvent:
		return requests.NewTarget(requests.KindEvent, ref.ID)
	default:
		return nil, apperr.New(apperr.ErrInvalidInput, "unknown resource kind %q", ref.Kind)
	}
}

type OpenInput struct {
	Message   string
	ExpiresAt *time.Time
}

// OpenMembershipRequest pide ingreso a un group o event. El recipient es el dueño.
func (c *Coordinator) OpenMembershipRequest(ctx context.Context, senderID string, ref registry.Ref, in OpenInput) (requests.Request, error) {
	senderID = strings.TrimSpace(senderID)
	if senderID == "" {
		return requests.Request{}, apperr.ErrInvalidInput
	}
	target, err := targetFor(ref)
	if err != nil {
		return requests.Request{}, err
	}

	if err := c.registry.AssertNotAtCapacity(ctx, ref); err != nil {
		return requests.Request{}, err
	}
	occ, err := c.registry.Occupancy(ctx, ref)
	if err != nil {
		return requests.Request{}, err
	}
	if occ.Has(senderID) {
		return requests.Request{}, apperr.New(apperr.ErrConflict, "%s is already a member of %s %s", senderID, ref.Kind, ref.ID)
	}

	var notAfter *time.Time
	if ref.Kind == registry.KindEvent {
		e, err := c.events.GetByID(ctx, ref.ID)
		if err != nil {
			return requests.Request{}, err
		}
		notAfter = &e.Start
	}

	return c.open(ctx, requests.OpenInput{
		SenderID:    senderID,
		RecipientID: occ.OwnerID,
		Target:      target,
		Message:     in.Message,
		ExpiresAt:   c.policy.Deadline(target.Kind(), c.now(), in.ExpiresAt, notAfter),
	})
}

// OpenFriendRequest propone una amistad. Conflict si ya son amigos.
func (c *Coordinator) OpenFriendRequest(ctx context.Context, senderID, recipientID string, in OpenInput) (requests.Request, error) {
	already, err := c.friends.AreFriends(ctx, senderID, recipientID)
	if err != nil {
		return requests.Request{}, err
	}
	if already {
		return requests.Request{}, apperr.New(apperr.ErrConflict, "already friends")
	}
	return c.open(ctx, requests.OpenInput{
		SenderID:    senderID,
		RecipientID: recipientID,
		Target:      requests.FriendTarget{},
		Message:     in.Message,
		ExpiresAt:   c.policy.Deadline(requests.KindFriend, c.now(), in.ExpiresAt, nil),
	})
}

// open registra el request y, si tiene deadline, su timer. Si el timer falla
// el request se borra para no dejar un pending sin expiración.
func (c *Coordinator) open(ctx context.Context, in requests.OpenInput) (requests.Request, error) {
	req, err := c.ledger.Open(ctx, in)
	if err != nil {
		return requests.Request{}, err
	}

	if req.ExpiresAt != nil {
		if _, err := c.scheduler.Allocate(ctx, req.ID, timers.KindRequest, *req.ExpiresAt); err != nil {
			if _, rbErr := c.ledger.Withdraw(ctx, req.ID, req.SenderID); rbErr != nil {
				c.log.Error("rollback of request without timer failed", map[string]any{
					"request_id": req.ID,
					"err":        rbErr.Error(),
				})
			}
			return requests.Request{}, err
		}
	}

	kind := string(req.Kind())
	metrics.RecordRequestOpened(kind)
	c.record(ctx, kind, "opened")
	c.log.Info("request opened", map[string]any{
		"request_id": req.ID,
		"kind":       kind,
		"sender":     req.SenderID,
		"recipient":  req.RecipientID,
	})
	return req, nil
}

// ResolveMembershipRequest responde un request de group/event. kind es el del
// endpoint y tiene que coincidir con el del request.
//
// Si accept y la admisión falla, el request queda accepted y se devuelve Conflict.
func (c *Coordinator) ResolveMembershipRequest(ctx context.Context, kind requests.Kind, requestID, responderID string, accept bool) (requests.Request, error) {
	if kind != requests.KindGroup && kind != requests.KindEvent {
		return requests.Request{}, apperr.New(apperr.ErrInvalidInput, "%q is not a membership kind", kind)
	}
	return c.resolve(ctx, kind, requestID, responderID, accept, func(ctx context.Context, req requests.Request) error {
		ref, _ := RefFor(req.Target)
		return c.registry.Admit(ctx, ref, req.SenderID)
	})
}

// ResolveFriendRequest responde un friend request; accept crea la amistad.
func (c *Coordinator) ResolveFriendRequest(ctx context.Context, requestID, responderID string, accept bool) (requests.Request, error) {
	return c.resolve(ctx, requests.KindFriend, requestID, responderID, accept, func(ctx context.Context, req requests.Request) error {
		_, err := c.friends.Add(ctx, req.SenderID, req.RecipientID)
		// Ya amigos (p.ej. por el request inverso): el estado buscado ya existe.
		if errors.Is(err, apperr.ErrConflict) {
			return nil
		}
		return err
	})
}

func (c *Coordinator) resolve(
	ctx context.Context,
	kind requests.Kind,
	requestID, responderID string,
	accept bool,
	apply func(context.Context, requests.Request) error,
) (requests.Request, error) {
	current, err := c.ledger.Get(ctx, requestID)
	if err != nil {
		return requests.Request{}, err
	}
	if current.Kind() != kind {
		return requests.Request{}, apperr.New(apperr.ErrNotFound, "%s request %s not found", kind, requestID)
	}

	req, err := c.ledger.Respond(ctx, requestID, responderID, accept)
	if err != nil {
		return requests.Request{}, err
	}
	c.cancelTimer(ctx, req.ID)

	if !accept {
		metrics.RecordRequestResolved(string(kind), "declined")
		c.record(ctx, string(kind), "declined")
		return req, nil
	}
	metrics.RecordRequestResolved(string(kind), "accepted")
	c.record(ctx, string(kind), "accepted")

	if err := apply(ctx, req); err != nil {
		metrics.RecordAdmission(string(kind), "rejected")
		metrics.RecordInconsistency(string(kind))
		c.log.Warn("request accepted but admission failed", map[string]any{
			"request_id": req.ID,
			"kind":       string(kind),
			"resource":   req.ResourceID(),
			"sender":     req.SenderID,
			"err":        err.Error(),
		})
		return req, apperr.New(apperr.ErrConflict, "request %s was accepted but admission failed: %v", req.ID, err)
	}
	metrics.RecordAdmission(string(kind), "admitted")
	return req, nil
}

// Reconcile reintenta la admisión de un request accepted que no quedó aplicado.
// No-op si el sender ya es miembro.
func (c *Coordinator) Reconcile(ctx context.Context, requestID, actorID string) (requests.Request, error) {
	req, err := c.ledger.Get(ctx, requestID)
	if err != nil {
		return requests.Request{}, err
	}
	if !req.Involves(strings.TrimSpace(actorID)) {
		return requests.Request{}, apperr.New(apperr.ErrForbidden, "%s is not part of request %s", actorID, requestID)
	}
	if req.Status != requests.StatusAccepted {
		return requests.Request{}, apperr.New(apperr.ErrConflict, "request %s is %s, only accepted requests can be reconciled", requestID, req.Status)
	}

	if req.Kind() == requests.KindFriend {
		if _, err := c.friends.Add(ctx, req.SenderID, req.RecipientID); err != nil && !errors.Is(err, apperr.ErrConflict) {
			return req, err
		}
		return req, nil
	}

	ref, _ := RefFor(req.Target)
	member, err := c.registry.IsMember(ctx, ref, req.SenderID)
	if err != nil {
		return req, err
	}
	if member {
		return req, nil
	}
	if err := c.registry.Admit(ctx, ref, req.SenderID); err != nil {
		return req, err
	}
	metrics.RecordAdmission(string(req.Kind()), "reconciled")
	c.log.Info("request reconciled", map[string]any{"request_id": req.ID, "resource": ref.String()})
	return req, nil
}

// Withdraw borra un request pending del sender y cancela su expiración.
// El timer se cancela antes de tocar el ledger: si un Tick ya lo reclamó, gana
// la expiración y Withdraw devuelve Conflict.
func (c *Coordinator) Withdraw(ctx context.Context, requestID, actorID string) (requests.Request, error) {
	pending, err := c.ledger.Get(ctx, requestID)
	if err != nil {
		return requests.Request{}, err
	}
	if pending.SenderID != strings.TrimSpace(actorID) {
		return requests.Request{}, apperr.New(apperr.ErrForbidden, "%s is not the sender of request %s", actorID, pending.ID)
	}
	if !pending.IsPending() {
		return requests.Request{}, apperr.New(apperr.ErrConflict, "request %s is already %s", pending.ID, pending.Status)
	}

	if pending.ExpiresAt != nil {
		cancelled, err := c.scheduler.Cancel(ctx, pending.ID)
		if err != nil {
			return requests.Request{}, err
		}
		if !cancelled {
			return requests.Request{}, apperr.New(apperr.ErrConflict, "request %s is expiring", pending.ID)
		}
	}

	req, err := c.ledger.Withdraw(ctx, pending.ID, actorID)
	if err != nil {
		if pending.ExpiresAt != nil && !errors.Is(err, apperr.ErrNotFound) && !errors.Is(err, apperr.ErrConflict) {
			c.rearm(ctx, pending)
		}
		return requests.Request{}, err
	}
	metrics.RecordRequestResolved(string(req.Kind()), "withdrawn")
	c.record(ctx, string(req.Kind()), "withdrawn")
	return req, nil
}

// rearm vuelve a agendar la expiración de un request que sigue pending.
func (c *Coordinator) rearm(ctx context.Context, req requests.Request) {
	if _, err := c.scheduler.Allocate(ctx, req.ID, timers.KindRequest, *req.ExpiresAt); err != nil {
		c.log.Error("request left pending without expiry", map[string]any{"request_id": req.ID, "err": err.Error()})
	}
}

// cancelTimer es best-effort: si falla, el timer dispara después y el callback
// ve un request que ya no está pending (no-op).
func (c *Coordinator) cancelTimer(ctx context.Context, ref string) {
	if err := c.scheduler.Deallocate(ctx, ref); err != nil {
		c.log.Warn("timer deallocate failed", map[string]any{"ref": ref, "err": err.Error()})
	}
}

func (c *Coordinator) cancelRequestTimers(ctx context.Context, reqs []requests.Request) {
	for _, r := range reqs {
		if r.ExpiresAt != nil {
			c.cancelTimer(ctx, r.ID)
		}
	}
}

func (c *Coordinator) record(ctx context.Context, kind, outcome string) {
	if c.stats == nil {
		return
	}
	if err := c.stats.Record(ctx, Transition{Kind: kind, Outcome: outcome, At: c.now()}); err != nil {
		c.log.Debug("stats record failed", map[string]any{"err": err.Error()})
	}
}
