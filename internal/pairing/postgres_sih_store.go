package pairing

import (
	"context"
	"database/sql"
	"time"

	"github.com/aerocal/gaugecore/internal/dbutil"
	"github.com/aerocal/gaugecore/internal/model"
)

// PostgresSIHStore implements SIHStore using Postgres.
type PostgresSIHStore struct {
	db *sql.DB
}

// NewPostgresSIHStore wraps an existing *sql.DB.
func NewPostgresSIHStore(db *sql.DB) *PostgresSIHStore {
	return &PostgresSIHStore{db: db}
}

func (s *PostgresSIHStore) NextSequenceValue(ctx context.Context, tx *sql.Tx) (int64, error) {
	var next int64
	err := tx.QueryRowContext(ctx, `SELECT nextval('set_id_allocator')`).Scan(&next)
	return next, err
}

func (s *PostgresSIHStore) Lock(ctx context.Context, tx *sql.Tx, setID string) (model.SetIDHistoryEntry, bool, error) {
	var (
		entry       model.SetIDHistoryEntry
		firstUsedAt time.Time
		retiredAt   sql.NullTime
	)
	row := tx.QueryRowContext(ctx, `
		SELECT set_id, first_used_at, retired_at FROM set_id_history WHERE set_id = $1 FOR UPDATE
	`, setID)
	if err := row.Scan(&entry.SetID, &firstUsedAt, &retiredAt); err != nil {
		if err == sql.ErrNoRows {
			return model.SetIDHistoryEntry{}, false, nil
		}
		return model.SetIDHistoryEntry{}, false, err
	}
	entry.FirstUsedAt = firstUsedAt.UTC()
	entry.RetiredAt = dbutil.PtrTime(retiredAt)
	return entry, true, nil
}

func (s *PostgresSIHStore) Insert(ctx context.Context, tx *sql.Tx, entry model.SetIDHistoryEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO set_id_history (set_id, first_used_at, retired_at)
		VALUES ($1, $2, $3)
	`, entry.SetID, entry.FirstUsedAt, dbutil.ToNullTime(dbutil.FromPtrTime(entry.RetiredAt)))
	return err
}

func (s *PostgresSIHStore) Retire(ctx context.Context, tx *sql.Tx, setID string, retiredAt time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE set_id_history SET retired_at = $2 WHERE set_id = $1
	`, setID, retiredAt)
	return err
}
