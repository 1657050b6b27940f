package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"social-coordination/internal/domain/apperr"
	"social-coordination/internal/domain/groups"
)

type GroupsRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewGroupsRepo(db *sql.DB) *GroupsRepo {
	return &GroupsRepo{db: db, now: time.Now}
}

const groupColumns = `id, name, owner_id, capacity, private, location_id, created_at, updated_at`

func (r *GroupsRepo) Create(ctx context.Context, g groups.Group) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO groups (`+groupColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, g.ID, g.Name, g.OwnerID, g.Capacity, g.Private, g.LocationID, g.CreatedAt, g.UpdatedAt)
	if isUniqueViolation(err) {
		return apperr.New(apperr.ErrConflict, "a group named %q already exists", g.Name)
	}
	return err
}

func (r *GroupsRepo) GetByID(ctx context.Context, id string) (groups.Group, error) {
	return r.one(ctx, `WHERE id = $1`, id)
}

func (r *GroupsRepo) GetByName(ctx context.Context, name string) (groups.Group, error) {
	return r.one(ctx, `WHERE lower(name) = lower($1)`, strings.TrimSpace(name))
}

func (r *GroupsRepo) List(ctx context.Context) ([]groups.Group, error) {
	return r.list(ctx, `ORDER BY name`)
}

func (r *GroupsRepo) ListByMember(ctx context.Context, userID string) ([]groups.Group, error) {
	return r.list(ctx, `
		WHERE owner_id = $1
		   OR id IN (SELECT group_id FROM group_members WHERE user_id = $1)
		ORDER BY name`, userID)
}

// Delete: group_members cae por ON DELETE CASCADE.
func (r *GroupsRepo) Delete(ctx context.Context, id string) error {
	return groupMembership.delete(ctx, r.db, id)
}

func (r *GroupsRepo) Admit(ctx context.Context, id, userID string) error {
	return groupMembership.admit(ctx, r.db, id, userID, r.now().UTC())
}

func (r *GroupsRepo) Evict(ctx context.Context, id, userID string) error {
	return groupMembership.evict(ctx, r.db, id, userID)
}

func (r *GroupsRepo) one(ctx context.Context, where string, arg any) (groups.Group, error) {
	items, err := r.list(ctx, where, arg)
	if err != nil {
		return groups.Group{}, err
	}
	if len(items) == 0 {
		return groups.Group{}, apperr.New(apperr.ErrNotFound, "group %v not found", arg)
	}
	return items[0], nil
}

func (r *GroupsRepo) list(ctx context.Context, tail string, args ...any) ([]groups.Group, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+groupColumns+` FROM groups `+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]groups.Group, 0)
	ids := make([]string, 0)
	for rows.Next() {
		var g groups.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.OwnerID, &g.Capacity, &g.Private, &g.LocationID, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
		ids = append(ids, g.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	members, err := groupMembership.load(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Members = members[out[i].ID]
		if out[i].Members == nil {
			out[i].Members = []string{}
		}
	}
	return out, nil
}
