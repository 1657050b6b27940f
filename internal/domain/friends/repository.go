package friends

import "context"

// Repository persiste amistades normalizadas (ver NewFriendship).
//   - Create devuelve apperr.ErrConflict si ya existe.
//   - Delete devuelve apperr.ErrNotFound si no existe.
type Repository interface {
	Create(ctx context.Context, f Friendship) error
	Delete(ctx context.Context, a, b string) error
	Exists(ctx context.Context, a, b string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]Friendship, error)
	DeleteByUser(ctx context.Context, userID string) ([]Friendship, error)
}
