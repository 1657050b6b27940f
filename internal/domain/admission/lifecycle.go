package admission

import (
	"context"
	"errors"

	"social-coordination/internal/domain/apperr"
	"social-coordination/internal/domain/events"
	"social-coordination/internal/domain/groups"
	"social-coordination/internal/domain/registry"
	"social-coordination/internal/domain/requests"
	"social-coordination/internal/domain/timers"
	"social-coordination/internal/platform/metrics"
)

// onRequestExpired invalida el request. Nunca toca el registry.
// Si ya fue resuelto, retirado o purgado, no hay nada que hacer.
func (c *Coordinator) onRequestExpired(ctx context.Context, t timers.TimedResource) error {
	req, err := c.ledger.Expire(ctx, t.ResourceRef)
	if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrConflict) {
		c.log.Debug("expired timer for a request that is no longer pending", map[string]any{"request_id": t.ResourceRef})
		return nil
	}
	if err != nil {
		return err
	}
	metrics.RecordRequestResolved(string(req.Kind()), "expired")
	c.record(ctx, string(req.Kind()), "expired")
	c.log.Info("request expired", map[string]any{"request_id": req.ID, "kind": string(req.Kind())})
	return nil
}

// onEventEnded borra el event al llegar a su End, con cascada.
func (c *Coordinator) onEventEnded(ctx context.Context, t timers.TimedResource) error {
	err := c.teardownEvent(ctx, t.ResourceRef)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	return err
}

func (c *Coordinator) CreateGroup(ctx context.Context, ownerID string, in groups.CreateInput) (groups.Group, error) {
	g, err := c.groups.Create(ctx, ownerID, in)
	if err != nil {
		return groups.Group{}, err
	}
	c.log.Info("group created", map[string]any{"group_id": g.ID, "owner": g.OwnerID})
	return g, nil
}

// DisbandGroup borra el group (solo el dueño) y todo lo que cuelga de él:
// requests pendientes o resueltos, events del group y sus timers.
// El group se borra al final; si la cascada falla a mitad, repetir la operación la completa.
func (c *Coordinator) DisbandGroup(ctx context.Context, groupID, actorID string) (groups.Group, error) {
	g, err := c.groups.OwnedBy(ctx, groupID, actorID)
	if err != nil {
		return groups.Group{}, err
	}

	purged, err := c.ledger.PurgeByResource(ctx, requests.KindGroup, g.ID)
	if err != nil {
		return g, err
	}
	c.cancelRequestTimers(ctx, purged)

	evs, err := c.events.ListByGroup(ctx, g.ID)
	if err != nil {
		return g, err
	}
	for _, e := range evs {
		if err := c.teardownEvent(ctx, e.ID); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return g, err
		}
	}

	if err := c.groups.Remove(ctx, g.ID); err != nil {
		return g, err
	}

	// Requests abiertos mientras corría la cascada.
	late, err := c.ledger.PurgeByResource(ctx, requests.KindGroup, g.ID)
	if err != nil {
		c.log.Error("requests left pointing at a disbanded group", map[string]any{"group_id": g.ID, "err": err.Error()})
	}
	c.cancelRequestTimers(ctx, late)

	c.log.Info("group disbanded", map[string]any{
		"group_id":        g.ID,
		"purged_requests": len(purged) + len(late),
		"deleted_events":  len(evs),
	})
	return g, nil
}

// CreateEvent crea el event y agenda su fin. Si el timer no se puede crear el event se borra.
func (c *Coordinator) CreateEvent(ctx context.Context, hostID string, in events.CreateInput) (events.Event, error) {
	e, err := c.events.Create(ctx, hostID, in)
	if err != nil {
		return events.Event{}, err
	}
	if _, err := c.scheduler.Allocate(ctx, e.ID, timers.KindEvent, e.End); err != nil {
		if rmErr := c.events.Remove(ctx, e.ID); rmErr != nil {
			c.log.Error("rollback of event without timer failed", map[string]any{"event_id": e.ID, "err": rmErr.Error()})
		}
		return events.Event{}, err
	}
	c.log.Info("event created", map[string]any{"event_id": e.ID, "group_id": e.GroupID, "host": e.HostID})
	return e, nil
}

// DeleteEvent: solo el host.
func (c *Coordinator) DeleteEvent(ctx context.Context, eventID, actorID string) (events.Event, error) {
	e, err := c.events.Cancel(ctx, eventID, actorID)
	if err != nil {
		return events.Event{}, err
	}
	c.cancelTimer(ctx, e.ID)
	if err := c.purgeResource(ctx, requests.KindEvent, e.ID); err != nil {
		return e, err
	}
	return e, nil
}

// teardownEvent borra sin chequear actor (fin del event o disband del group).
func (c *Coordinator) teardownEvent(ctx context.Context, eventID string) error {
	if err := c.events.Remove(ctx, eventID); err != nil {
		return err
	}
	c.cancelTimer(ctx, eventID)
	if err := c.purgeResource(ctx, requests.KindEvent, eventID); err != nil {
		return err
	}
	c.log.Info("event removed", map[string]any{"event_id": eventID})
	return nil
}

func (c *Coordinator) purgeResource(ctx context.Context, kind requests.Kind, id string) error {
	purged, err := c.ledger.PurgeByResource(ctx, kind, id)
	if err != nil {
		return err
	}
	c.cancelRequestTimers(ctx, purged)
	return nil
}

func (c *Coordinator) LeaveGroup(ctx context.Context, groupID, actorID string) error {
	return c.registry.Evict(ctx, registry.Ref{Kind: registry.KindGroup, ID: groupID}, actorID)
}

func (c *Coordinator) UnregisterFromEvent(ctx context.Context, eventID, actorID string) error {
	return c.registry.Evict(ctx, registry.Ref{Kind: registry.KindEvent, ID: eventID}, actorID)
}

// RemovalSummary resume lo que se borró al sacar a un actor del sistema.
type RemovalSummary struct {
	Requests        int `json:"requests"`
	Friendships     int `json:"friendships"`
	EventsDeleted   int `json:"events_deleted"`
	EventsLeft      int `json:"events_left"`
	GroupsDisbanded int `json:"groups_disbanded"`
	GroupsLeft      int `json:"groups_left"`
}

// RemoveActor borra todo rastro del actor: requests, amistades, events que
// hospeda, groups de los que es dueño, y lo saca del resto.
func (c *Coordinator) RemoveActor(ctx context.Context, actorID string) (RemovalSummary, error) {
	var sum RemovalSummary

	purged, err := c.ledger.PurgeByActor(ctx, actorID)
	if err != nil {
		return sum, err
	}
	c.cancelRequestTimers(ctx, purged)
	sum.Requests = len(purged)

	if sum.Friendships, err = c.friends.RemoveAll(ctx, actorID); err != nil {
		return sum, err
	}

	evs, err := c.events.ListByAttendee(ctx, actorID)
	if err != nil {
		return sum, err
	}
	for _, e := range evs {
		if e.HostID == actorID {
			if err := c.teardownEvent(ctx, e.ID); err != nil && !errors.Is(err, apperr.ErrNotFound) {
				return sum, err
			}
			sum.EventsDeleted++
			continue
		}
		if err := c.UnregisterFromEvent(ctx, e.ID, actorID); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return sum, err
		}
		sum.EventsLeft++
	}

	gs, err := c.groups.ListByMember(ctx, actorID)
	if err != nil {
		return sum, err
	}
	for _, g := range gs {
		if g.OwnerID == actorID {
			if _, err := c.DisbandGroup(ctx, g.ID, actorID); err != nil && !errors.Is(err, apperr.ErrNotFound) {
				return sum, err
			}
			sum.GroupsDisbanded++
			continue
		}
		if err := c.LeaveGroup(ctx, g.ID, actorID); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return sum, err
		}
		sum.GroupsLeft++
	}

	c.log.Info("actor removed", map[string]any{
		"actor":            actorID,
		"requests":         sum.Requests,
		"friendships":      sum.Friendships,
		"events_deleted":   sum.EventsDeleted,
		"groups_disbanded": sum.GroupsDisbanded,
	})
	return sum, nil
}
