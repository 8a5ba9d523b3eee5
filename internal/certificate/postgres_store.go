package certificate

import (
	"context"
	"database/sql"
	"time"

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

func (s *PostgresStore) Insert(ctx context.Context, tx *sql.Tx, c model.Certificate) (model.Certificate, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO certificates (id, gauge_id, file_ref, uploaded_at, uploaded_by, custom_name, is_current, superseded_at, superseded_by, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, c.ID, c.GaugeID, c.FileRef, c.UploadedAt, c.UploadedBy, dbutil.ToNullString(dbutil.FromPtrString(c.CustomName)),
		c.IsCurrent, dbutil.ToNullTime(dbutil.FromPtrTime(c.SupersededAt)), dbutil.ToNullString(dbutil.FromPtrString(c.SupersededBy)),
		dbutil.ToNullTime(dbutil.FromPtrTime(c.DeletedAt)))
	if err != nil {
		return model.Certificate{}, err
	}
	return c, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, tx *sql.Tx, id string) (model.Certificate, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, gauge_id, file_ref, uploaded_at, uploaded_by, custom_name, is_current, superseded_at, superseded_by, deleted_at
		FROM certificates WHERE id = $1
	`, id)
	c, err := scanCertificate(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Certificate{}, coreerr.New(coreerr.NotFound, "certificate not found")
		}
		return model.Certificate{}, err
	}
	return c, nil
}

func (s *PostgresStore) ListByGauge(ctx context.Context, tx *sql.Tx, gaugeID int64) ([]model.Certificate, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, gauge_id, file_ref, uploaded_at, uploaded_by, custom_name, is_current, superseded_at, superseded_by, deleted_at
		FROM certificates WHERE gauge_id = $1 ORDER BY uploaded_at ASC
	`, gaugeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Certificate
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CurrentForGauge(ctx context.Context, tx *sql.Tx, gaugeID int64) (model.Certificate, bool, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, gauge_id, file_ref, uploaded_at, uploaded_by, custom_name, is_current, superseded_at, superseded_by, deleted_at
		FROM certificates WHERE gauge_id = $1 AND is_current = true AND deleted_at IS NULL
	`, gaugeID)
	c, err := scanCertificate(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Certificate{}, false, nil
		}
		return model.Certificate{}, false, err
	}
	return c, true, nil
}

func (s *PostgresStore) Supersede(ctx context.Context, tx *sql.Tx, id string, supersededAt time.Time, supersededBy string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE certificates SET is_current = false, superseded_at = $2, superseded_by = $3 WHERE id = $1
	`, id, supersededAt, supersededBy)
	return err
}

func (s *PostgresStore) Rename(ctx context.Context, tx *sql.Tx, id string, customName *string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE certificates SET custom_name = $2 WHERE id = $1
	`, id, dbutil.ToNullString(dbutil.FromPtrString(customName)))
	return err
}

func (s *PostgresStore) SoftDelete(ctx context.Context, tx *sql.Tx, id string, deletedAt time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE certificates SET deleted_at = $2 WHERE id = $1
	`, id, deletedAt)
	return err
}

func scanCertificate(row dbutil.RowScanner) (model.Certificate, error) {
	var (
		c            model.Certificate
		customName   sql.NullString
		supersededAt sql.NullTime
		supersededBy sql.NullString
		deletedAt    sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.GaugeID, &c.FileRef, &c.UploadedAt, &c.UploadedBy, &customName, &c.IsCurrent, &supersededAt, &supersededBy, &deletedAt); err != nil {
		return model.Certificate{}, err
	}
	c.UploadedAt = c.UploadedAt.UTC()
	c.CustomName = dbutil.PtrString(customName)
	c.SupersededAt = dbutil.PtrTime(supersededAt)
	c.SupersededBy = dbutil.PtrString(supersededBy)
	c.DeletedAt = dbutil.PtrTime(deletedAt)
	return c, nil
}
