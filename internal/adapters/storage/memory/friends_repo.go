package memory

import (
	"context"
	"sort"
	"sync"

	"social-coordination/internal/domain/apperr"
	"social-coordination/internal/domain/friends"
)

type friendKey struct{ a, b string }

func newFriendKey(a, b string) friendKey {
	if b < a {
		a, b = b, a
	}
	return friendKey{a: a, b: b}
}

type friendRepo struct {
	mu    sync.RWMutex
	pairs map[friendKey]friends.Friendship
}

func NewFriendRepo() friends.Repository {
	return &friendRepo{
		pairs: make(map[friendKey]friends.Friendship),
	}
}

func (r *friendRepo) Create(ctx context.Context, f friends.Friendship) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := newFriendKey(f.UserA, f.UserB)
	if _, exists := r.pairs[k]; exists {
		return apperr.New(apperr.ErrConflict, "already friends")
	}
	r.pairs[k] = f
	return nil
}

func (r *friendRepo) Delete(ctx context.Context, a, b string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := newFriendKey(a, b)
	if _, ok := r.pairs[k]; !ok {
		return apperr.New(apperr.ErrNotFound, "not friends")
	}
	delete(r.pairs, k)
	return nil
}

func (r *friendRepo) Exists(ctx context.Context, a, b string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.pairs[newFriendKey(a, b)]
	return ok, nil
}

func (r *friendRepo) ListByUser(ctx context.Context, userID string) ([]friends.Friendship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]friends.Friendship, 0)
	for k, f := range r.pairs {
		if k.a == userID || k.b == userID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *friendRepo) DeleteByUser(ctx context.Context, userID string) ([]friends.Friendship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]friends.Friendship, 0)
	for k, f := range r.pairs {
		if k.a == userID || k.b == userID {
			out = append(out, f)
			delete(r.pairs, k)
		}
	}
	return out, nil
}
