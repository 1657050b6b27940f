package groups

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"social-coordination/internal/domain/apperr"
	"social-coordination/internal/ports/locations"

	"github.com/google/uuid"
)

const MaxNameLen = 80

type Service struct {
	repo      Repository
	locations locations.Checker
	now       func() time.Time
}

// NewService: si locs es nil no se valida la ubicación.
func NewService(repo Repository, locs locations.Checker) *Service {
	return &Service{
		repo:      repo,
		locations: locs,
		now:       time.Now,
	}
}

type CreateInput struct {
	Name       string
	Capacity   int
	Private    bool
	LocationID string
}

// Create crea el group vacío; el dueño no consume capacidad.
func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (Group, error) {
	ownerID = strings.TrimSpace(ownerID)
	name := strings.TrimSpace(in.Name)
	if ownerID == "" || name == "" {
		return Group{}, apperr.New(apperr.ErrInvalidInput, "owner and name are required")
	}
	if utf8.RuneCountInString(name) > MaxNameLen {
		return Group{}, apperr.New(apperr.ErrInvalidInput, "name must be at most %d characters", MaxNameLen)
	}
	if in.Capacity <= 0 {
		return Group{}, apperr.New(apperr.ErrInvalidInput, "capacity must be greater than zero")
	}
	locationID := strings.TrimSpace(in.LocationID)
	if err := s.checkLocation(ctx, locationID); err != nil {
		return Group{}, err
	}

	// Fail-fast legible; la unicidad real la garantiza el repo.
	if _, err := s.repo.GetByName(ctx, name); err == nil {
		return Group{}, apperr.New(apperr.ErrConflict, "a group named %q already exists", name)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return Group{}, apperr.Storage("groups: get by name", err)
	}

	now := s.now()
	g := Group{
		ID:         uuid.NewString(),
		Name:       name,
		OwnerID:    ownerID,
		Members:    []string{},
		Capacity:   in.Capacity,
		Private:    in.Private,
		LocationID: locationID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, g); err != nil {
		return Group{}, apperr.Storage("groups: create", err)
	}
	return g, nil
}

func (s *Service) checkLocation(ctx context.Context, locationID string) error {
	if s.locations == nil {
		return nil
	}
	if locationID == "" {
		return apperr.New(apperr.ErrInvalidInput, "location is required")
	}
	ok, err := s.locations.Exists(ctx, locationID)
	if err != nil {
		return apperr.Unavailable("groups: check location", err)
	}
	if !ok {
		return apperr.New(apperr.ErrInvalidInput, "location %q does not exist", locationID)
	}
	return nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Group, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Group{}, apperr.ErrInvalidInput
	}
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Group{}, apperr.Storage("groups: get", err)
	}
	return g, nil
}

// ListFilter: OwnerID exacto, Name substring case-insensitive. Vacío = sin filtro.
type ListFilter struct {
	OwnerID string
	Name    string
}

// List devuelve los groups visibles para viewerID: públicos + privados donde es miembro.
func (s *Service) List(ctx context.Context, viewerID string, filter ListFilter) ([]Group, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Storage("groups: list", err)
	}
	name := strings.ToLower(strings.TrimSpace(filter.Name))
	out := make([]Group, 0, len(all))
	for _, g := range all {
		if g.Private && !g.HasMember(viewerID) {
			continue
		}
		if filter.OwnerID != "" && g.OwnerID != filter.OwnerID {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(g.Name), name) {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (s *Service) ListByMember(ctx context.Context, userID string) ([]Group, error) {
	items, err := s.repo.ListByMember(ctx, strings.TrimSpace(userID))
	if err != nil {
		return nil, apperr.Storage("groups: list by member", err)
	}
	return items, nil
}

// Disband borra el group. Solo el dueño. La cascada (requests, events, timers) es del coordinator.
func (s *Service) Disband(ctx context.Context, id, actorID string) (Group, error) {
	g, err := s.OwnedBy(ctx, id, actorID)
	if err != nil {
		return Group{}, err
	}
	return g, s.Remove(ctx, g.ID)
}

// OwnedBy devuelve el group si actorID es su dueño; Forbidden si no.
func (s *Service) OwnedBy(ctx context.Context, id, actorID string) (Group, error) {
	g, err := s.GetByID(ctx, id)
	if err != nil {
		return Group{}, err
	}
	if g.OwnerID != strings.TrimSpace(actorID) {
		return Group{}, apperr.New(apperr.ErrForbidden, "only the owner can disband group %s", g.ID)
	}
	return g, nil
}

// Remove borra sin chequear actor.
func (s *Service) Remove(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperr.Storage("groups: delete", err)
	}
	return nil
}

// IsMember satisface events.GroupLookup.
func (s *Service) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	g, err := s.GetByID(ctx, groupID)
	if err != nil {
		return false, err
	}
	return g.HasMember(userID), nil
}
