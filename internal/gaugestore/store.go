// Package gaugestore persists gauge entities and their per-equipment-type
// specifications, and computes the derived display name on read.
package gaugestore

import (
	"context"
	"database/sql"

	"github.com/aerocal/gaugecore/internal/model"
)

// Fields is a partial update for Update: nil pointers leave the
// corresponding column untouched.
type Fields struct {
	CategoryRef          *string
	OwnershipType        *model.OwnershipType
	OwnerRef             *string
	Status               *model.Status
	IsSealed             *bool
	StorageLocationRef   *string
	Manufacturer         *string
	Model                *string
	CalibrationFrequency *int
	Spec                 *model.Specification
}


// SpareFilter narrows findSpareThreadGauges.
type SpareFilter struct {
	ThreadSize  string
	ThreadForm  string
	ThreadClass string
}

// ListFilter narrows List. Zero-value fields are unconstrained.
type ListFilter struct {
	EquipmentType model.EquipmentType
	Status        model.Status
	OwnershipType model.OwnershipType
	CategoryRef   string
	Limit         int
	Offset        int
}

// Store is the gauge store's persistence contract.
type Store interface {
	Create(ctx context.Context, tx *sql.Tx, g model.Gauge) (model.Gauge, error)
	FindByID(ctx context.Context, tx *sql.Tx, id int64) (model.Gauge, error)
	FindBySerial(ctx context.Context, tx *sql.Tx, equipmentType model.EquipmentType, serial string) (model.Gauge, error)
	FindSpareThreadGauges(ctx context.Context, tx *sql.Tx, filter SpareFilter) ([]model.Gauge, error)
	FindByPublicID(ctx context.Context, tx *sql.Tx, gaugeID string) ([]model.Gauge, error)
	List(ctx context.Context, tx *sql.Tx, filter ListFilter) ([]model.Gauge, error)
	Update(ctx context.Context, tx *sql.Tx, id int64, patch Fields) (model.Gauge, error)

	// LockForUpdate row-locks the given internal ids in ascending order,
	// returning them hydrated. Used by pairing/state-machine cohort
	// operations to avoid deadlocks across concurrent cohort writes.
	LockForUpdate(ctx context.Context, tx *sql.Tx, ids []int64) ([]model.Gauge, error)

	// SetPairing writes the pairing-only columns directly: gaugeID,
	// suffix, and companionID are applied verbatim, including nil (to
	// turn a paired gauge back into a spare). Only the pairing manager
	// calls this.
	SetPairing(ctx context.Context, tx *sql.Tx, id int64, gaugeID *string, suffix *model.Suffix, companionID *int64) (model.Gauge, error)
}
