package postgres

import (
	"context"
	"database/sql"
	"time"

	"social-coordination/internal/domain/apperr"
	"social-coordination/internal/domain/friends"
)

// timeZero: Delete/Exists solo normalizan el par, la fecha no importa.
var timeZero time.Time

type FriendsRepo struct {
	db *sql.DB
}

func NewFriendsRepo(db *sql.DB) *FriendsRepo {
	return &FriendsRepo{db: db}
}

func (r *FriendsRepo) Create(ctx context.Context, f friends.Friendship) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO friendships (user_a, user_b, created_at) VALUES ($1, $2, $3)`,
		f.UserA, f.UserB, f.CreatedAt)
	if isUniqueViolation(err) {
		return apperr.New(apperr.ErrConflict, "%s and %s are already friends", f.UserA, f.UserB)
	}
	return err
}

func (r *FriendsRepo) Delete(ctx context.Context, a, b string) error {
	f := friends.NewFriendship(a, b, timeZero)
	res, err := r.db.ExecContext(ctx, `DELETE FROM friendships WHERE user_a = $1 AND user_b = $2`, f.UserA, f.UserB)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(apperr.ErrNotFound, "%s and %s are not friends", a, b)
	}
	return nil
}

func (r *FriendsRepo) Exists(ctx context.Context, a, b string) (bool, error) {
	f := friends.NewFriendship(a, b, timeZero)
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM friendships WHERE user_a = $1 AND user_b = $2)`,
		f.UserA, f.UserB).Scan(&exists)
	return exists, err
}

func (r *FriendsRepo) ListByUser(ctx context.Context, userID string) ([]friends.Friendship, error) {
	return r.query(ctx, `
		SELECT user_a, user_b, created_at FROM friendships
		WHERE user_a = $1 OR user_b = $1
		ORDER BY created_at`, userID)
}

func (r *FriendsRepo) DeleteByUser(ctx context.Context, userID string) ([]friends.Friendship, error) {
	return r.query(ctx, `
		DELETE FROM friendships
		WHERE user_a = $1 OR user_b = $1
		RETURNING user_a, user_b, created_at`, userID)
}

func (r *FriendsRepo) query(ctx context.Context, q string, args ...any) ([]friends.Friendship, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]friends.Friendship, 0)
	for rows.Next() {
		var f friends.Friendship
		if err := rows.Scan(&f.UserA, &f.UserB, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
