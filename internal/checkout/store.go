// Package checkout manages Active Checkouts: checkout, return, and
// transfer, cohort-aware for paired thread gauges.
package checkout

import (
	"context"
	"database/sql"

	"github.com/aerocal/gaugecore/internal/model"
)

// Store is the Active Checkout persistence contract.
type Store interface {
	// Find returns the active checkout for gaugeID, or NotFound if none.
	Find(ctx context.Context, tx *sql.Tx, gaugeID int64) (model.ActiveCheckout, error)

	Insert(ctx context.Context, tx *sql.Tx, ac model.ActiveCheckout) error
	Delete(ctx context.Context, tx *sql.Tx, gaugeID int64) error
	UpdateUser(ctx context.Context, tx *sql.Tx, gaugeID int64, newUserID string) error
}
