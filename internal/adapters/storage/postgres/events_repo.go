package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"social-coordination/internal/domain/apperr"
	"social-coordination/internal/domain/events"
)

type EventsRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewEventsRepo(db *sql.DB) *EventsRepo {
	return &EventsRepo{db: db, now: time.Now}
}

const eventColumns = `id, name, group_id, host_id, capacity, location_id, start_at, end_at, created_at`

func (r *EventsRepo) Create(ctx context.Context, e events.Event) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, e.ID, e.Name, e.GroupID, e.HostID, e.Capacity, e.LocationID, e.Start, e.End, e.CreatedAt)
	if isUniqueViolation(err) {
		return apperr.New(apperr.ErrConflict, "event %s already exists", e.ID)
	}
	return err
}

func (r *EventsRepo) GetByID(ctx context.Context, id string) (events.Event, error) {
	items, err := r.query(ctx, `WHERE id = $1`, id)
	if err != nil {
		return events.Event{}, err
	}
	if len(items) == 0 {
		return events.Event{}, apperr.New(apperr.ErrNotFound, "event %s not found", id)
	}
	return items[0], nil
}

// List arma el WHERE a partir del filtro; los placeholders se numeran en orden.
func (r *EventsRepo) List(ctx context.Context, f events.ListFilter) ([]events.Event, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.GroupID != "" {
		add("group_id = $%d", f.GroupID)
	}
	if f.Attendee != "" {
		args = append(args, f.Attendee)
		n := len(args)
		conds = append(conds, fmt.Sprintf("(host_id = $%d OR id IN (SELECT event_id FROM event_attendees WHERE user_id = $%d))", n, n))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		add("name ILIKE $%d", "%"+escapeLike(q)+"%")
	}
	if f.ActiveAt != nil {
		add("end_at > $%d", *f.ActiveAt)
	}

	tail := ""
	if len(conds) > 0 {
		tail = "WHERE " + strings.Join(conds, " AND ")
	}
	tail += " ORDER BY start_at"
	if !f.Unbounded {
		limit := f.Limit
		if limit <= 0 {
			limit = events.DefaultLimit
		}
		args = append(args, limit)
		tail += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	return r.query(ctx, tail, args...)
}

func (r *EventsRepo) Delete(ctx context.Context, id string) error {
	return eventMembership.delete(ctx, r.db, id)
}

func (r *EventsRepo) Admit(ctx context.Context, id, userID string) error {
	return eventMembership.admit(ctx, r.db, id, userID, r.now().UTC())
}

func (r *EventsRepo) Evict(ctx context.Context, id, userID string) error {
	return eventMembership.evict(ctx, r.db, id, userID)
}

func (r *EventsRepo) query(ctx context.Context, tail string, args ...any) ([]events.Event, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events `+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]events.Event, 0)
	ids := make([]string, 0)
	for rows.Next() {
		var e events.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.GroupID, &e.HostID, &e.Capacity, &e.LocationID, &e.Start, &e.End, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	attendees, err := eventMembership.load(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Attendees = attendees[out[i].ID]
		if out[i].Attendees == nil {
			out[i].Attendees = []string{}
		}
	}
	return out, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
