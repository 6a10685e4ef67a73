package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/aicall/store"
)

func (d *DB) CreateSession(ctx context.Context, create *store.Session) (*store.Session, error) {
	fields := []string{"uid", "partition_date", "mode", "next_mode", "system_prompt", "created_ts", "updated_ts"}
	args := []any{create.UID, create.PartitionDate, create.Mode, create.NextMode, create.SystemPrompt, create.CreatedTs, create.UpdatedTs}

	stmt := `INSERT INTO session (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create session")
	}

	return create, nil
}

func (d *DB) ListSessions(ctx context.Context, find *store.FindSession) ([]*store.Session, error) {
	where, args := []string{"TRUE"}, []any{}

	if find.ID != nil {
		args = append(args, *find.ID)
		where = append(where, "id = "+placeholder(len(args)))
	}
	if find.UID != nil {
		args = append(args, *find.UID)
		where = append(where, "uid = "+placeholder(len(args)))
	}
	if find.PartitionDate != nil {
		args = append(args, *find.PartitionDate)
		where = append(where, "partition_date = "+placeholder(len(args)))
	}

	query := `SELECT id, uid, partition_date, mode, next_mode, system_prompt, created_ts, updated_ts
		FROM session WHERE ` + strings.Join(where, " AND ") + ` ORDER BY updated_ts DESC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sessions")
	}
	defer rows.Close()

	list := make([]*store.Session, 0)
	for rows.Next() {
		s := &store.Session{}
		if err := rows.Scan(&s.ID, &s.UID, &s.PartitionDate, &s.Mode, &s.NextMode, &s.SystemPrompt, &s.CreatedTs, &s.UpdatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan session")
		}
		list = append(list, s)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate sessions")
	}

	return list, nil
}

func (d *DB) UpdateSession(ctx context.Context, update *store.UpdateSession) (*store.Session, error) {
	set, args := sessionUpdateClauses(update, 0)
	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE session SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args)) + `
		RETURNING id, uid, partition_date, mode, next_mode, system_prompt, created_ts, updated_ts`
	result := &store.Session{}
	err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&result.ID, &result.UID, &result.PartitionDate, &result.Mode, &result.NextMode, &result.SystemPrompt, &result.CreatedTs, &result.UpdatedTs,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("session not found")
		}
		return nil, errors.Wrap(err, "failed to update session")
	}

	return result, nil
}

func (d *DB) DeleteSession(ctx context.Context, delete *store.DeleteSession) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM turn WHERE session_id = $1`, delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete turns")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM summary_artifact WHERE session_id = $1`, delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete summary artifact")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM session WHERE id = $1`, delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete session")
	}

	return errors.Wrap(tx.Commit(), "failed to commit session delete")
}

// sessionUpdateClauses renders SET clauses with placeholders numbered from
// offset+1, so callers can append further args after them.
func sessionUpdateClauses(update *store.UpdateSession, offset int) ([]string, []any) {
	set, args := []string{}, []any{}
	if update.Mode != nil {
		args = append(args, *update.Mode)
		set = append(set, "mode = "+placeholder(offset+len(args)))
	}
	if update.NextMode != nil {
		args = append(args, *update.NextMode)
		set = append(set, "next_mode = "+placeholder(offset+len(args)))
	}
	if update.SystemPrompt != nil {
		args = append(args, *update.SystemPrompt)
		set = append(set, "system_prompt = "+placeholder(offset+len(args)))
	}
	if update.UpdatedTs != nil {
		args = append(args, *update.UpdatedTs)
		set = append(set, "updated_ts = "+placeholder(offset+len(args)))
	}
	return set, args
}
