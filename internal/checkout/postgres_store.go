package checkout

import (
	"context"
	"database/sql"

	"github.com/aerocal/gaugecore/internal/coreerr"
	"github.com/aerocal/gaugecore/internal/model"
)

// PostgresStore implements Store using Postgres.
type PostgresStore struct{}

// NewPostgresStore builds a PostgresStore.
func NewPostgresStore() *PostgresStore {
	return &PostgresStore{}
}

func (s *PostgresStore) Find(ctx context.Context, tx *sql.Tx, gaugeID int64) (model.ActiveCheckout, error) {
	var ac model.ActiveCheckout
	row := tx.QueryRowContext(ctx, `
		SELECT gauge_id, user_id, checked_out_at, notes FROM active_checkouts WHERE gauge_id = $1
	`, gaugeID)
	if err := row.Scan(&ac.GaugeID, &ac.UserID, &ac.CheckedOutAt, &ac.Notes); err != nil {
		if err == sql.ErrNoRows {
			return model.ActiveCheckout{}, coreerr.New(coreerr.NotFound, "no active checkout for gauge")
		}
		return model.ActiveCheckout{}, err
	}
	ac.CheckedOutAt = ac.CheckedOutAt.UTC()
	return ac, nil
}

func (s *PostgresStore) Insert(ctx context.Context, tx *sql.Tx, ac model.ActiveCheckout) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO active_checkouts (gauge_id, user_id, checked_out_at, notes)
		VALUES ($1, $2, $3, $4)
	`, ac.GaugeID, ac.UserID, ac.CheckedOutAt, ac.Notes)
	return err
}

func (s *PostgresStore) Delete(ctx context.Context, tx *sql.Tx, gaugeID int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM active_checkouts WHERE gauge_id = $1`, gaugeID)
	return err
}

func (s *PostgresStore) UpdateUser(ctx context.Context, tx *sql.Tx, gaugeID int64, newUserID string) error {
	_, err := tx.ExecContext(ctx, `UPDATE active_checkouts SET user_id = $2 WHERE gauge_id = $1`, gaugeID, newUserID)
	return err
}
