package friends

import (
	"context"
	"strings"
	"time"

	"social-coordination/internal/domain/apperr"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

func normalizePair(a, b string) (string, string, error) {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return "", "", apperr.ErrInvalidInput
	}
	if a == b {
		return "", "", apperr.New(apperr.ErrInvalidInput, "a user cannot befriend themselves")
	}
	if b < a {
		a, b = b, a
	}
	return a, b, nil
}

// Add registra la amistad. Conflict si ya eran amigos.
func (s *Service) Add(ctx context.Context, a, b string) (Friendship, error) {
	a, b, err := normalizePair(a, b)
	if err != nil {
		return Friendship{}, err
	}
	f := NewFriendship(a, b, s.now())
	if err := s.repo.Create(ctx, f); err != nil {
		return Friendship{}, apperr.Storage("friends: create", err)
	}
	return f, nil
}

func (s *Service) Remove(ctx context.Context, a, b string) error {
	a, b, err := normalizePair(a, b)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, a, b); err != nil {
		return apperr.Storage("friends: delete", err)
	}
	return nil
}

func (s *Service) AreFriends(ctx context.Context, a, b string) (bool, error) {
	a, b, err := normalizePair(a, b)
	if err != nil {
		return false, err
	}
	ok, err := s.repo.Exists(ctx, a, b)
	if err != nil {
		return false, apperr.Storage("friends: exists", err)
	}
	return ok, nil
}

// List devuelve los IDs de los amigos de userID.
func (s *Service) List(ctx context.Context, userID string) ([]string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperr.ErrInvalidInput
	}
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Storage("friends: list", err)
	}
	out := make([]string, 0, len(items))
	for _, f := range items {
		out = append(out, f.Other(userID))
	}
	return out, nil
}

// RemoveAll borra todas las amistades de userID (borrado de cuenta).
func (s *Service) RemoveAll(ctx context.Context, userID string) (int, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, apperr.ErrInvalidInput
	}
	deleted, err := s.repo.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, apperr.Storage("friends: delete by user", err)
	}
	return len(deleted), nil
}
