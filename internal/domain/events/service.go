package events

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"social-coordination/internal/domain/apperr"
	"social-coordination/internal/ports/locations"

	"github.com/google/uuid"
)

const (
	MaxNameLen   = 80
	DefaultLimit = 50
	MaxLimit     = 200
)

// GroupLookup evita importar groups (lo implementa groups.Service).
type GroupLookup interface {
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
}

type Service struct {
	repo      Repository
	groups    GroupLookup
	locations locations.Checker
	now       func() time.Time
}

func NewService(repo Repository, groups GroupLookup, locs locations.Checker) *Service {
	return &Service{
		repo:      repo,
		groups:    groups,
		locations: locs,
		now:       time.Now,
	}
}

type CreateInput struct {
	Name       string
	GroupID    string
	Capacity   int
	LocationID string
	Start      time.Time
	End        time.Time
}

// Create: el host debe ser miembro del group.
func (s *Service) Create(ctx context.Context, hostID string, in CreateInput) (Event, error) {
	hostID = strings.TrimSpace(hostID)
	name := strings.TrimSpace(in.Name)
	groupID := strings.TrimSpace(in.GroupID)
	if hostID == "" || name == "" || groupID == "" {
		return Event{}, apperr.New(apperr.ErrInvalidInput, "host, name and group are required")
	}
	if utf8.RuneCountInString(name) > MaxNameLen {
		return Event{}, apperr.New(apperr.ErrInvalidInput, "name must be at most %d characters", MaxNameLen)
	}
	if in.Capacity <= 0 {
		return Event{}, apperr.New(apperr.ErrInvalidInput, "capacity must be greater than zero")
	}
	if in.Start.IsZero() || in.End.IsZero() || !in.Start.Before(in.End) {
		return Event{}, apperr.New(apperr.ErrInvalidInput, "start must be before end")
	}
	now := s.now()
	if !in.End.After(now) {
		return Event{}, apperr.New(apperr.ErrInvalidInput, "end must be in the future")
	}

	member, err := s.groups.IsMember(ctx, groupID, hostID)
	if err != nil {
		return Event{}, err
	}
	if !member {
		return Event{}, apperr.New(apperr.ErrForbidden, "only members of group %s can host events", groupID)
	}

	locationID := strings.TrimSpace(in.LocationID)
	if s.locations != nil {
		ok, err := s.locations.Exists(ctx, locationID)
		if err != nil {
			return Event{}, apperr.Unavailable("events: check location", err)
		}
		if !ok {
			return Event{}, apperr.New(apperr.ErrInvalidInput, "location %q does not exist", locationID)
		}
	}

	e := Event{
		ID:         uuid.NewString(),
		Name:       name,
		GroupID:    groupID,
		HostID:     hostID,
		Attendees:  []string{},
		Capacity:   in.Capacity,
		LocationID: locationID,
		Start:      in.Start.UTC(),
		End:        in.End.UTC(),
		CreatedAt:  now,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return Event{}, apperr.Storage("events: create", err)
	}
	return e, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Event, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Event{}, apperr.ErrInvalidInput
	}
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Event{}, apperr.Storage("events: get", err)
	}
	return e, nil
}

// ListActive devuelve events que no terminaron, opcionalmente filtrados por nombre.
func (s *Service) ListActive(ctx context.Context, query string, limit int) ([]Event, error) {
	now := s.now()
	return s.list(ctx, ListFilter{Query: strings.TrimSpace(query), ActiveAt: &now, Limit: limit})
}

// ListByGroup y ListByAttendee no paginan: las usan DisbandGroup y RemoveActor.
func (s *Service) ListByGroup(ctx context.Context, groupID string) ([]Event, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return nil, apperr.ErrInvalidInput
	}
	return s.list(ctx, ListFilter{GroupID: groupID, Unbounded: true})
}

func (s *Service) ListByAttendee(ctx context.Context, userID string) ([]Event, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperr.ErrInvalidInput
	}
	return s.list(ctx, ListFilter{Attendee: userID, Unbounded: true})
}

func (s *Service) list(ctx context.Context, filter ListFilter) ([]Event, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultLimit
	}
	if filter.Limit > MaxLimit {
		filter.Limit = MaxLimit
	}
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperr.Storage("events: list", err)
	}
	return items, nil
}

// Cancel borra el event; solo el host.
func (s *Service) Cancel(ctx context.Context, id, actorID string) (Event, error) {
	e, err := s.GetByID(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if e.HostID != strings.TrimSpace(actorID) {
		return Event{}, apperr.New(apperr.ErrForbidden, "only the host can cancel event %s", e.ID)
	}
	return e, s.Remove(ctx, e.ID)
}

// Remove borra sin chequear actor (expiración, cascada de un group).
func (s *Service) Remove(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperr.Storage("events: delete", err)
	}
	return nil
}
