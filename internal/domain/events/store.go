package events

import (
	"context"

	"social-coordination/internal/domain/registry"
)

// RegistryStore expone el repo de events como registry.Store. El host es el dueño.
type RegistryStore struct {
	repo Repository
}

func NewRegistryStore(repo Repository) *RegistryStore {
	return &RegistryStore{repo: repo}
}

func (s *RegistryStore) Occupancy(ctx context.Context, id string) (registry.Occupancy, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return registry.Occupancy{}, err
	}
	return registry.Occupancy{
		Ref:      registry.Ref{Kind: registry.KindEvent, ID: e.ID},
		OwnerID:  e.HostID,
		Members:  append([]string(nil), e.Attendees...),
		Capacity: e.Capacity,
	}, nil
}

func (s *RegistryStore) Admit(ctx context.Context, id, userID string) error {
	return s.repo.Admit(ctx, id, userID)
}

func (s *RegistryStore) Evict(ctx context.Context, id, userID string) error {
	return s.repo.Evict(ctx, id, userID)
}
