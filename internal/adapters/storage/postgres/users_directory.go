package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"social-coordination/internal/domain/apperr"
	"social-coordination/internal/ports/identity"
)

// UserDirectory lee la tabla users, que mantiene el servicio de cuentas.
type UserDirectory struct {
	db *sql.DB
}

func NewUserDirectory(db *sql.DB) *UserDirectory {
	return &UserDirectory{db: db}
}

func (d *UserDirectory) ByUsername(ctx context.Context, username string) (identity.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return identity.User{}, apperr.ErrInvalidInput
	}
	return d.one(ctx, `SELECT id, username FROM users WHERE lower(username) = lower($1)`, username)
}

func (d *UserDirectory) ByID(ctx context.Context, id string) (identity.User, error) {
	return d.one(ctx, `SELECT id, username FROM users WHERE id = $1`, id)
}

func (d *UserDirectory) one(ctx context.Context, q, arg string) (identity.User, error) {
	var u identity.User
	err := d.db.QueryRowContext(ctx, q, arg).Scan(&u.ID, &u.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.User{}, apperr.New(apperr.ErrNotFound, "user %q not found", arg)
	}
	if err != nil {
		return identity.User{}, apperr.Storage("users: get", err)
	}
	return u, nil
}
