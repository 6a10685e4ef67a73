package postgres

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/aicall/store"
)

func (d *DB) ListTurns(ctx context.Context, find *store.FindTurn) ([]*store.Turn, error) {
	where, args := []string{"TRUE"}, []any{}

	if find.ID != nil {
		args = append(args, *find.ID)
		where = append(where, "id = "+placeholder(len(args)))
	}
	if find.UID != nil {
		args = append(args, *find.UID)
		where = append(where, "uid = "+placeholder(len(args)))
	}
	if find.SessionID != nil {
		args = append(args, *find.SessionID)
		where = append(where, "session_id = "+placeholder(len(args)))
	}

	query := `SELECT id, uid, session_id, role, content, audio_ref, created_ts
		FROM turn WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list turns")
	}
	defer rows.Close()

	list := make([]*store.Turn, 0)
	for rows.Next() {
		t := &store.Turn{}
		if err := rows.Scan(&t.ID, &t.UID, &t.SessionID, &t.Role, &t.Content, &t.AudioRef, &t.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan turn")
		}
		list = append(list, t)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate turns")
	}

	return list, nil
}

func (d *DB) DeleteTurns(ctx context.Context, delete *store.DeleteTurn) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM turn WHERE session_id = $1`, *delete.SessionID)
	return errors.Wrap(err, "failed to delete turns")
}

// AppendExchange inserts the given turns and applies the session update in a
// single transaction, so a concurrent reader never observes a user turn
// without its assistant counterpart.
func (d *DB) AppendExchange(ctx context.Context, turns []*store.Turn, update *store.UpdateSession) ([]*store.Turn, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	insert := `INSERT INTO turn (uid, session_id, role, content, audio_ref, created_ts)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	for _, turn := range turns {
		if err := tx.QueryRowContext(ctx, insert, turn.UID, turn.SessionID, turn.Role, turn.Content, turn.AudioRef, turn.CreatedTs).Scan(&turn.ID); err != nil {
			return nil, errors.Wrap(err, "failed to insert turn")
		}
	}

	if update != nil {
		set, args := sessionUpdateClauses(update, 0)
		if len(set) > 0 {
			args = append(args, update.ID)
			stmt := `UPDATE session SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args))
			if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
				return nil, errors.Wrap(err, "failed to update session")
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit exchange")
	}

	return turns, nil
}
