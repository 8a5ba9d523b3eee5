// Package batch implements the Calibration Batch Coordinator: the 7-step
// workflow that moves a group of gauges out for calibration and back.
package batch

import (
	"context"
	"database/sql"
	"time"

	"github.com/aerocal/gaugecore/internal/model"
)

// Store is the calibration batch persistence contract.
type Store interface {
	Create(ctx context.Context, tx *sql.Tx, b model.CalibrationBatch) (model.CalibrationBatch, error)
	FindByID(ctx context.Context, tx *sql.Tx, id string) (model.CalibrationBatch, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, id string, status model.BatchStatus, sentAt *time.Time) error

	AddMember(ctx context.Context, tx *sql.Tx, batchID string, gaugeID int64) error
	RemoveMember(ctx context.Context, tx *sql.Tx, batchID string, gaugeID int64) error
	Members(ctx context.Context, tx *sql.Tx, batchID string) ([]int64, error)

	// ActiveBatchFor returns the non-terminal batch id a gauge already
	// belongs to, if any.
	ActiveBatchFor(ctx context.Context, tx *sql.Tx, gaugeID int64) (string, bool, error)

	// MarkReceived records that gaugeID's receive step ran, so the
	// coordinator can tell when every member has been received.
	MarkReceived(ctx context.Context, tx *sql.Tx, batchID string, gaugeID int64) error
	ReceivedCount(ctx context.Context, tx *sql.Tx, batchID string) (int, error)
}
