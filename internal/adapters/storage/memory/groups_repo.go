package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"social-coordination/internal/domain/apperr"
	"social-coordination/internal/domain/groups"
)

type groupRepo struct {
	mu   sync.RWMutex
	byID map[string]groups.Group
}

func NewGroupRepo() groups.Repository {
	return &groupRepo{
		byID: make(map[string]groups.Group),
	}
}

func cloneGroup(g groups.Group) groups.Group {
	g.Members = append([]string(nil), g.Members...)
	return g
}

func (r *groupRepo) Create(ctx context.Context, g groups.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[g.ID]; exists {
		return apperr.New(apperr.ErrConflict, "group %s already exists", g.ID)
	}
	for _, cur := range r.byID {
		if strings.EqualFold(cur.Name, g.Name) {
			return apperr.New(apperr.ErrConflict, "a group named %q already exists", g.Name)
		}
	}
	r.byID[g.ID] = cloneGroup(g)
	return nil
}

func (r *groupRepo) GetByID(ctx context.Context, id string) (groups.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.byID[id]
	if !ok {
		return groups.Group{}, apperr.New(apperr.ErrNotFound, "group %s not found", id)
	}
	return cloneGroup(g), nil
}

func (r *groupRepo) GetByName(ctx context.Context, name string) (groups.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, g := range r.byID {
		if strings.EqualFold(g.Name, name) {
			return cloneGroup(g), nil
		}
	}
	return groups.Group{}, apperr.New(apperr.ErrNotFound, "group %q not found", name)
}

func (r *groupRepo) List(ctx context.Context) ([]groups.Group, error) {
	return r.list(func(groups.Group) bool { return true }), nil
}

func (r *groupRepo) ListByMember(ctx context.Context, userID string) ([]groups.Group, error) {
	return r.list(func(g groups.Group) bool { return g.HasMember(userID) }), nil
}

func (r *groupRepo) list(keep func(groups.Group) bool) []groups.Group {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]groups.Group, 0)
	for _, g := range r.byID {
		if keep(g) {
			out = append(out, cloneGroup(g))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *groupRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return apperr.New(apperr.ErrNotFound, "group %s not found", id)
	}
	delete(r.byID, id)
	return nil
}

// Admit chequea capacidad y agrega bajo el mismo lock.
func (r *groupRepo) Admit(ctx context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.byID[id]
	if !ok {
		return apperr.New(apperr.ErrNotFound, "group %s not found", id)
	}
	if g.HasMember(userID) {
		return apperr.New(apperr.ErrConflict, "%s is already a member of group %s", userID, id)
	}
	if g.AtCapacity() {
		return apperr.New(apperr.ErrConflict, "group %s is at capacity (%d/%d)", id, len(g.Members), g.Capacity)
	}
	g.Members = append(append([]string(nil), g.Members...), userID)
	r.byID[id] = g
	return nil
}

func (r *groupRepo) Evict(ctx context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.byID[id]
	if !ok {
		return apperr.New(apperr.ErrNotFound, "group %s not found", id)
	}
	g.Members = without(g.Members, userID)
	r.byID[id] = g
	return nil
}

func without(in []string, v string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
