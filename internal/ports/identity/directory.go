// Package identity resuelve usernames <-> user IDs. Las respuestas HTTP muestran
// usernames, el core solo maneja IDs.
package identity

import "context"

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Directory devuelve apperr.ErrNotFound si el usuario no existe.
type Directory interface {
	ByUsername(ctx context.Context, username string) (User, error)
	ByID(ctx context.Context, id string) (User, error)
}

// DisplayName devuelve el username o, si no se puede resolver, el ID.
func DisplayName(ctx context.Context, dir Directory, id string) string {
	if dir == nil {
		return id
	}
	u, err := dir.ByID(ctx, id)
	if err != nil || u.Username == "" {
		return id
	}
	return u.Username
}
