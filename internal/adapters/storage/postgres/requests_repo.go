package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"social-coordination/internal/domain/apperr"
	"social-coordination/internal/domain/requests"
)

type RequestsRepo struct {
	db *sql.DB
}

func NewRequestsRepo(db *sql.DB) *RequestsRepo {
	return &RequestsRepo{db: db}
}

const requestColumns = `
	id, kind, sender_id, recipient_id, resource_id,
	status, message, expires_at,
	created_at, updated_at, responded_at`

func (r *RequestsRepo) Create(ctx context.Context, req requests.Request) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO requests (`+requestColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		req.ID,
		string(req.Kind()),
		req.SenderID,
		req.RecipientID,
		req.ResourceID(),
		string(req.Status),
		req.Message,
		toNullTime(req.ExpiresAt),
		req.CreatedAt,
		req.UpdatedAt,
		toNullTime(req.RespondedAt),
	)
	if isUniqueViolation(err) {
		return apperr.New(apperr.ErrConflict, "a pending %s request already exists", req.Kind())
	}
	return err
}

func (r *RequestsRepo) GetByID(ctx context.Context, id string) (requests.Request, error) {
	id = strings.TrimSpace(id)
	row := r.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return requests.Request{}, apperr.New(apperr.ErrNotFound, "request %s not found", id)
	}
	return req, err
}

// Transition es un UPDATE condicionado a status = 'pending'; si no afecta filas
// se distingue entre inexistente y ya resuelto.
func (r *RequestsRepo) Transition(ctx context.Context, id string, to requests.Status, at time.Time) (requests.Request, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE requests
		SET status = $2, updated_at = $3, responded_at = $3
		WHERE id = $1 AND status = 'pending'
		RETURNING `+requestColumns,
		id, string(to), at,
	)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return requests.Request{}, r.notPending(ctx, id)
	}
	return req, err
}

func (r *RequestsRepo) DeletePending(ctx context.Context, id string) (requests.Request, error) {
	row := r.db.QueryRowContext(ctx, `
		DELETE FROM requests
		WHERE id = $1 AND status = 'pending'
		RETURNING `+requestColumns,
		id,
	)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return requests.Request{}, r.notPending(ctx, id)
	}
	return req, err
}

func (r *RequestsRepo) notPending(ctx context.Context, id string) error {
	cur, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return apperr.New(apperr.ErrConflict, "request %s is already %s", id, cur.Status)
}

func (r *RequestsRepo) ListBySender(ctx context.Context, senderID string) ([]requests.Request, error) {
	return r.query(ctx, `SELECT `+requestColumns+` FROM requests WHERE sender_id = $1 ORDER BY created_at DESC`, senderID)
}

func (r *RequestsRepo) ListByRecipient(ctx context.Context, recipientID string) ([]requests.Request, error) {
	return r.query(ctx, `SELECT `+requestColumns+` FROM requests WHERE recipient_id = $1 ORDER BY created_at DESC`, recipientID)
}

func (r *RequestsRepo) DeleteByActor(ctx context.Context, actorID string) ([]requests.Request, error) {
	return r.query(ctx, `
		DELETE FROM requests
		WHERE sender_id = $1 OR recipient_id = $1
		RETURNING `+requestColumns, actorID)
}

func (r *RequestsRepo) DeleteByResource(ctx context.Context, kind requests.Kind, resourceID string) ([]requests.Request, error) {
	return r.query(ctx, `
		DELETE FROM requests
		WHERE kind = $1 AND resource_id = $2
		RETURNING `+requestColumns, string(kind), resourceID)
}

func (r *RequestsRepo) query(ctx context.Context, q string, args ...any) ([]requests.Request, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]requests.Request, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func scanRequest(s scanner) (requests.Request, error) {
	var (
		req                    requests.Request
		kind, resourceID, st   string
		expiresAt, respondedAt sql.NullTime
	)
	if err := s.Scan(
		&req.ID,
		&kind,
		&req.SenderID,
		&req.RecipientID,
		&resourceID,
		&st,
		&req.Message,
		&expiresAt,
		&req.CreatedAt,
		&req.UpdatedAt,
		&respondedAt,
	); err != nil {
		return requests.Request{}, err
	}
	target, err := requests.NewTarget(requests.Kind(kind), resourceID)
	if err != nil {
		return requests.Request{}, err
	}
	req.Target = target
	req.Status = requests.Status(st)
	req.ExpiresAt = fromNullTime(expiresAt)
	req.RespondedAt = fromNullTime(respondedAt)
	return req, nil
}
