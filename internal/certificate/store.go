// Package certificate implements the Certificate Registry: the per-gauge
// chain of calibration certificates, with supersession bookkeeping.
package certificate

import (
	"context"
	"database/sql"
	"time"

	"github.com/aerocal/gaugecore/internal/model"
)

// Store is the certificate persistence contract.
type Store interface {
	Insert(ctx context.Context, tx *sql.Tx, c model.Certificate) (model.Certificate, error)
	FindByID(ctx context.Context, tx *sql.Tx, id string) (model.Certificate, error)
	ListByGauge(ctx context.Context, tx *sql.Tx, gaugeID int64) ([]model.Certificate, error)
	CurrentForGauge(ctx context.Context, tx *sql.Tx, gaugeID int64) (model.Certificate, bool, error)

	// Supersede marks id as no longer current, stamping supersededAt and
	// the id of the certificate that replaced it.
	Supersede(ctx context.Context, tx *sql.Tx, id string, supersededAt time.Time, supersededBy string) error

	Rename(ctx context.Context, tx *sql.Tx, id string, customName *string) error
	SoftDelete(ctx context.Context, tx *sql.Tx, id string, deletedAt time.Time) error
}
