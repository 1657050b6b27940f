package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"social-coordination/internal/domain/apperr"
	"social-coordination/internal/domain/timers"
)

type TimersRepo struct {
	db *sql.DB
}

func NewTimersRepo(db *sql.DB) *TimersRepo {
	return &TimersRepo{db: db}
}

const timerColumns = `id, resource_ref, kind, expiry, created_at`

func (r *TimersRepo) Create(ctx context.Context, t timers.TimedResource) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO timed_resources (`+timerColumns+`)
		VALUES ($1,$2,$3,$4,$5)
	`, t.ID, t.ResourceRef, string(t.Kind), t.Expiry, t.CreatedAt)
	if isUniqueViolation(err) {
		return apperr.New(apperr.ErrConflict, "timer for %s already exists", t.ResourceRef)
	}
	return err
}

func (r *TimersRepo) GetByRef(ctx context.Context, ref string) (timers.TimedResource, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+timerColumns+` FROM timed_resources WHERE resource_ref = $1`, ref)
	return scanTimerOrNotFound(row, ref)
}

// DeleteByRef es el claim: con varias réplicas, solo una recibe la fila.
func (r *TimersRepo) DeleteByRef(ctx context.Context, ref string) (timers.TimedResource, error) {
	row := r.db.QueryRowContext(ctx, `DELETE FROM timed_resources WHERE resource_ref = $1 RETURNING `+timerColumns, ref)
	return scanTimerOrNotFound(row, ref)
}

func (r *TimersRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]timers.TimedResource, error) {
	return r.list(ctx, `SELECT `+timerColumns+` FROM timed_resources WHERE expiry <= $1 ORDER BY expiry`, now, limit)
}

func (r *TimersRepo) ListBefore(ctx context.Context, until time.Time, limit int) ([]timers.TimedResource, error) {
	return r.list(ctx, `SELECT `+timerColumns+` FROM timed_resources WHERE expiry < $1 ORDER BY expiry`, until, limit)
}

func (r *TimersRepo) list(ctx context.Context, q string, at time.Time, limit int) ([]timers.TimedResource, error) {
	args := []any{at}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]timers.TimedResource, 0)
	for rows.Next() {
		t, err := scanTimer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTimerOrNotFound(row *sql.Row, ref string) (timers.TimedResource, error) {
	t, err := scanTimer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return timers.TimedResource{}, apperr.New(apperr.ErrNotFound, "timer for %s not found", ref)
	}
	return t, err
}

func scanTimer(s scanner) (timers.TimedResource, error) {
	var t timers.TimedResource
	var kind string
	if err := s.Scan(&t.ID, &t.ResourceRef, &kind, &t.Expiry, &t.CreatedAt); err != nil {
		return timers.TimedResource{}, err
	}
	t.Kind = timers.Kind(kind)
	return t, nil
}
