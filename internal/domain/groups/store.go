package groups

import (
	"context"

	"social-coordination/internal/domain/registry"
)

// RegistryStore expone el repo de groups como registry.Store.
type RegistryStore struct {
	repo Repository
}

func NewRegistryStore(repo Repository) *RegistryStore {
	return &RegistryStore{repo: repo}
}

func (s *RegistryStore) Occupancy(ctx context.Context, id string) (registry.Occupancy, error) {
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return registry.Occupancy{}, err
	}
	return registry.Occupancy{
		Ref:      registry.Ref{Kind: registry.KindGroup, ID: g.ID},
		OwnerID:  g.OwnerID,
		Members:  append([]string(nil), g.Members...),
		Capacity: g.Capacity,
	}, nil
}

func (s *RegistryStore) Admit(ctx context.Context, id, userID string) error {
	return s.repo.Admit(ctx, id, userID)
}

func (s *RegistryStore) Evict(ctx context.Context, id, userID string) error {
	return s.repo.Evict(ctx, id, userID)
}
