package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/hrygo/aicall/store"
)

func (d *DB) UpsertSummaryArtifact(ctx context.Context, upsert *store.SummaryArtifact) (*store.SummaryArtifact, error) {
	stmt := `INSERT INTO summary_artifact (session_id, partition_date, content, storage_ref, created_ts)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			content = EXCLUDED.content,
			storage_ref = EXCLUDED.storage_ref,
			created_ts = EXCLUDED.created_ts
		RETURNING id`
	err := d.db.QueryRowContext(ctx, stmt,
		upsert.SessionID, upsert.PartitionDate, upsert.Content, upsert.StorageRef, upsert.CreatedTs,
	).Scan(&upsert.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert summary artifact")
	}

	return upsert, nil
}

func (d *DB) GetSummaryArtifact(ctx context.Context, find *store.FindSummaryArtifact) (*store.SummaryArtifact, error) {
	query := `SELECT id, session_id, partition_date, content, storage_ref, created_ts
		FROM summary_artifact WHERE session_id = ?`
	artifact := &store.SummaryArtifact{}
	err := d.db.QueryRowContext(ctx, query, *find.SessionID).Scan(
		&artifact.ID, &artifact.SessionID, &artifact.PartitionDate, &artifact.Content, &artifact.StorageRef, &artifact.CreatedTs,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get summary artifact")
	}

	return artifact, nil
}

func (d *DB) DeleteSummaryArtifact(ctx context.Context, delete *store.DeleteSummaryArtifact) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM summary_artifact WHERE session_id = ?`, delete.SessionID)
	return errors.Wrap(err, "failed to delete summary artifact")
}
