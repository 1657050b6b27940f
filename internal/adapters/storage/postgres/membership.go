package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"social-coordination/internal/domain/apperr"
)

// membership describe una tabla padre con capacidad y su tabla de miembros.
// El dueño (ownerCol) es miembro implícito y no ocupa lugar.
type membership struct {
	label    string
	parent   string
	ownerCol string
	members  string
	fk       string
}

var (
	groupMembership = membership{label: "group", parent: "groups", ownerCol: "owner_id", members: "group_members", fk: "group_id"}
	eventMembership = membership{label: "event", parent: "events", ownerCol: "host_id", members: "event_attendees", fk: "event_id"}
)

// admit bloquea la fila padre (FOR UPDATE) así el conteo y el insert no se
// intercalan con otro admit del mismo recurso.
func (m membership) admit(ctx context.Context, db *sql.DB, id, userID string, now time.Time) error {
	return inTx(ctx, db, func(tx *sql.Tx) error {
		var owner string
		var capacity int
		err := tx.QueryRowContext(ctx,
			`SELECT `+m.ownerCol+`, capacity FROM `+m.parent+` WHERE id = $1 FOR UPDATE`, id,
		).Scan(&owner, &capacity)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.ErrNotFound, "%s %s not found", m.label, id)
		}
		if err != nil {
			return err
		}
		if owner == userID {
			return apperr.New(apperr.ErrConflict, "%s is already a member of %s %s", userID, m.label, id)
		}

		var count int
		var already bool
		err = tx.QueryRowContext(ctx,
			`SELECT count(*), coalesce(bool_or(user_id = $2), false) FROM `+m.members+` WHERE `+m.fk+` = $1`, id, userID,
		).Scan(&count, &already)
		if err != nil {
			return err
		}
		if already {
			return apperr.New(apperr.ErrConflict, "%s is already a member of %s %s", userID, m.label, id)
		}
		if count >= capacity {
			return apperr.New(apperr.ErrConflict, "%s %s is at capacity (%d/%d)", m.label, id, count, capacity)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO `+m.members+` (`+m.fk+`, user_id, joined_at) VALUES ($1, $2, $3)`, id, userID, now)
		return err
	})
}

// evict no falla si el usuario no era miembro.
func (m membership) evict(ctx context.Context, db *sql.DB, id, userID string) error {
	if err := m.exists(ctx, db, id); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `DELETE FROM `+m.members+` WHERE `+m.fk+` = $1 AND user_id = $2`, id, userID)
	return err
}

func (m membership) exists(ctx context.Context, db *sql.DB, id string) error {
	var one int
	err := db.QueryRowContext(ctx, `SELECT 1 FROM `+m.parent+` WHERE id = $1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.New(apperr.ErrNotFound, "%s %s not found", m.label, id)
	}
	return err
}

// load trae los miembros de varios recursos en una sola query, en orden de ingreso.
func (m membership) load(ctx context.Context, db *sql.DB, ids []string) (map[string][]string, error) {
	out := make(map[string][]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := db.QueryContext(ctx,
		`SELECT `+m.fk+`, user_id FROM `+m.members+` WHERE `+m.fk+` = ANY($1) ORDER BY joined_at, user_id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id, user string
		if err := rows.Scan(&id, &user); err != nil {
			return nil, err
		}
		out[id] = append(out[id], user)
	}
	return out, rows.Err()
}

func (m membership) delete(ctx context.Context, db *sql.DB, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM `+m.parent+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(apperr.ErrNotFound, "%s %s not found", m.label, id)
	}
	return nil
}
