package sqlite

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
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = ?"), append(args, *find.UID)
	}
	if find.PartitionDate != nil {
		where, args = append(where, "partition_date = ?"), append(args, *find.PartitionDate)
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
	set, args := sessionUpdateClauses(update)
	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE session SET ` + strings.Join(set, ", ") + ` WHERE id = ?
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

	if _, err := tx.ExecContext(ctx, `DELETE FROM turn WHERE session_id = ?`, delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete turns")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM summary_artifact WHERE session_id = ?`, delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete summary artifact")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM session WHERE id = ?`, delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete session")
	}

	return errors.Wrap(tx.Commit(), "failed to commit session delete")
}

// sessionUpdateClauses renders the SET clauses shared by UpdateSession and
// AppendExchange.
func sessionUpdateClauses(update *store.UpdateSession) ([]string, []any) {
	set, args := []string{}, []any{}
	if update.Mode != nil {
		set, args = append(set, "mode = ?"), append(args, *update.Mode)
	}
	if update.NextMode != nil {
		set, args = append(set, "next_mode = ?"), append(args, *update.NextMode)
	}
	if update.SystemPrompt != nil {
		set, args = append(set, "system_prompt = ?"), append(args, *update.SystemPrompt)
	}
	if update.UpdatedTs != nil {
		set, args = append(set, "updated_ts = ?"), append(args, *update.UpdatedTs)
	}
	return set, args
}
