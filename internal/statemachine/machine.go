// Package statemachine validates and executes gauge lifecycle status
// transitions, including the companion-aware rules for thread-gauge pairs.
package statemachine

import (
	"context"
	"database/sql"

	"github.com/aerocal/gaugecore/internal/coreerr"
	"github.com/aerocal/gaugecore/internal/gaugestore"
	"github.com/aerocal/gaugecore/internal/model"
)

// Machine is the gauge lifecycle state machine.
type Machine struct {
	store gaugestore.Store
}

// New builds a Machine over store.
func New(store gaugestore.Store) *Machine {
	return &Machine{store: store}
}

// Transition moves gaugeID (and, for cohort-scoped transitions, its
// companion) from its current status to to, failing with
// IllegalTransition or PreconditionFailed if the move is not allowed.
// Every gauge in the cohort is locked and updated atomically within tx.
func (m *Machine) Transition(ctx context.Context, tx *sql.Tx, gaugeID int64, to model.Status, pre Preconditions) ([]model.Gauge, error) {
	gauge, err := m.store.FindByID(ctx, tx, gaugeID)
	if err != nil {
		return nil, err
	}

	from := gauge.Status
	if !IsLegal(from, to) {
		return nil, coreerr.New(coreerr.IllegalTransition, "illegal transition").
			WithField(string(from) + "->" + string(to))
	}

	var companion *model.Gauge
	if gauge.CompanionID != nil {
		found, err := m.store.FindByID(ctx, tx, *gauge.CompanionID)
		if err != nil {
			return nil, err
		}
		companion = &found
	}

	if err := checkPrecondition(from, to, &gauge, companion, pre); err != nil {
		return nil, err
	}

	ids := []int64{gauge.ID}
	cohorted := scopeForTarget(to) == ScopeCohort && companion != nil
	if cohorted {
		if companion.Status != from {
			return nil, coreerr.New(coreerr.PreconditionFailed, "companion is not in the same state, cannot move the cohort together").
				WithField("companion_status")
		}
		ids = append(ids, companion.ID)
	}

	locked, err := m.store.LockForUpdate(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	isSealed := gauge.IsSealed
	if to == model.StatusPendingCertificate {
		isSealed = true
	}

	explicitLocation := pre.StorageLocationRef
	if explicitLocation != nil && *explicitLocation == "" {
		explicitLocation = nil
	}

	updated := make([]model.Gauge, 0, len(locked))
	for _, g := range locked {
		patch := gaugestore.Fields{Status: &to}
		if to == model.StatusPendingCertificate {
			patch.IsSealed = &isSealed
		}
		if to == model.StatusAvailable && from == model.StatusPendingRelease {
			switch {
			case explicitLocation != nil:
				// An explicitly supplied location applies to the whole
				// cohort, matching a single physical release destination.
				patch.StorageLocationRef = explicitLocation
			case g.ID == gauge.ID:
				// No location was supplied: only the requested gauge falls
				// back to its own prior location. Other cohort members
				// keep theirs untouched.
				patch.StorageLocationRef = gauge.StorageLocationRef
			}
		}
		result, err := m.store.Update(ctx, tx, g.ID, patch)
		if err != nil {
			return nil, err
		}
		updated = append(updated, result)
	}
	return updated, nil
}
