package batch

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/aerocal/gaugecore/internal/coreerr"
	"github.com/aerocal/gaugecore/internal/dbutil"
	"github.com/aerocal/gaugecore/internal/model"
)

// PostgresStore implements Store using Postgres.
type PostgresStore struct{}

// NewPostgresStore builds a PostgresStore.
func NewPostgresStore() *PostgresStore {
	return &PostgresStore{}
}

func (s *PostgresStore) Create(ctx context.Context, tx *sql.Tx, b model.CalibrationBatch) (model.CalibrationBatch, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.CreatedAt = time.Now().UTC()
	_, err := tx.ExecContext(ctx, `
		INSERT INTO calibration_batches (id, type, vendor, tracking_number, status, sent_at, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, b.ID, b.Type, dbutil.ToNullString(b.Vendor), dbutil.ToNullString(b.TrackingNumber), b.Status, dbutil.ToNullTime(dbutil.FromPtrTime(b.SentAt)), b.CreatedBy, b.CreatedAt)
	if err != nil {
		return model.CalibrationBatch{}, err
	}
	return b, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, tx *sql.Tx, id string) (model.CalibrationBatch, error) {
	var (
		b        model.CalibrationBatch
		vendor   sql.NullString
		tracking sql.NullString
		sentAt   sql.NullTime
	)
	row := tx.QueryRowContext(ctx, `
		SELECT id, type, vendor, tracking_number, status, sent_at, created_by, created_at
		FROM calibration_batches WHERE id = $1
	`, id)
	if err := row.Scan(&b.ID, &b.Type, &vendor, &tracking, &b.Status, &sentAt, &b.CreatedBy, &b.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return model.CalibrationBatch{}, coreerr.New(coreerr.NotFound, "calibration batch not found")
		}
		return model.CalibrationBatch{}, err
	}
	b.Vendor = vendor.String
	b.TrackingNumber = tracking.String
	b.SentAt = dbutil.PtrTime(sentAt)
	b.CreatedAt = b.CreatedAt.UTC()

	members, err := s.Members(ctx, tx, id)
	if err != nil {
		return model.CalibrationBatch{}, err
	}
	b.GaugeIDs = members
	return b, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, tx *sql.Tx, id string, status model.BatchStatus, sentAt *time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE calibration_batches SET status = $2, sent_at = COALESCE($3, sent_at) WHERE id = $1
	`, id, status, dbutil.ToNullTime(dbutil.FromPtrTime(sentAt)))
	return err
}

func (s *PostgresStore) AddMember(ctx context.Context, tx *sql.Tx, batchID string, gaugeID int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO calibration_batch_members (batch_id, gauge_id) VALUES ($1, $2)
	`, batchID, gaugeID)
	return err
}

func (s *PostgresStore) RemoveMember(ctx context.Context, tx *sql.Tx, batchID string, gaugeID int64) error {
	_, err := tx.ExecContext(ctx, `
		DELETE FROM calibration_batch_members WHERE batch_id = $1 AND gauge_id = $2
	`, batchID, gaugeID)
	return err
}

func (s *PostgresStore) Members(ctx context.Context, tx *sql.Tx, batchID string) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT gauge_id FROM calibration_batch_members WHERE batch_id = $1 ORDER BY gauge_id ASC`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) ActiveBatchFor(ctx context.Context, tx *sql.Tx, gaugeID int64) (string, bool, error) {
	var batchID string
	row := tx.QueryRowContext(ctx, `
		SELECT m.batch_id
		FROM calibration_batch_members m
		JOIN calibration_batches b ON b.id = m.batch_id
		WHERE m.gauge_id = $1 AND b.status NOT IN ($2, $3)
		LIMIT 1
	`, gaugeID, model.BatchCompleted, model.BatchCancelled)
	if err := row.Scan(&batchID); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return batchID, true, nil
}

func (s *PostgresStore) MarkReceived(ctx context.Context, tx *sql.Tx, batchID string, gaugeID int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE calibration_batch_members SET received_at = now() WHERE batch_id = $1 AND gauge_id = $2
	`, batchID, gaugeID)
	return err
}

func (s *PostgresStore) ReceivedCount(ctx context.Context, tx *sql.Tx, batchID string) (int, error) {
	var count int
	err := tx.QueryRowContext(ctx, `
		SELECT count(*) FROM calibration_batch_members WHERE batch_id = $1 AND received_at IS NOT NULL
	`, batchID).Scan(&count)
	return count, err
}
