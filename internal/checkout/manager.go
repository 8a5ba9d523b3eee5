package checkout

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aerocal/gaugecore/internal/audit"
	"github.com/aerocal/gaugecore/internal/coreerr"
	"github.com/aerocal/gaugecore/internal/eventbus"
	"github.com/aerocal/gaugecore/internal/gaugestore"
	"github.com/aerocal/gaugecore/internal/model"
	"github.com/aerocal/gaugecore/internal/statemachine"
)

// Clock lets tests control "now".
type Clock func() time.Time

// PostUseInspectionPolicy reports whether gauges of an equipment type must
// pass through pending_qc on return rather than going straight back to
// available.
type PostUseInspectionPolicy func(equipmentType model.EquipmentType) bool

// Manager is the Checkout/Return Engine.
type Manager struct {
	checkouts Store
	gauges    gaugestore.Store
	machine   *statemachine.Machine
	log       *audit.Log
	bus       *eventbus.Bus
	clock     Clock
	inspect   PostUseInspectionPolicy
}

// New builds a Manager. inspect may be nil, in which case every return
// goes straight to available.
func New(checkouts Store, gauges gaugestore.Store, machine *statemachine.Machine, log *audit.Log, bus *eventbus.Bus, inspect PostUseInspectionPolicy) *Manager {
	if inspect == nil {
		inspect = func(model.EquipmentType) bool { return false }
	}
	return &Manager{checkouts: checkouts, gauges: gauges, machine: machine, log: log, bus: bus, clock: time.Now, inspect: inspect}
}

// Checkout checks out gaugeID (and its companion, if paired) to caller,
// no-op if the same user already holds an identical checkout.
func (m *Manager) Checkout(ctx context.Context, tx *sql.Tx, gaugeID int64, userID, notes string) ([]model.ActiveCheckout, error) {
	gauge, err := m.gauges.FindByID(ctx, tx, gaugeID)
	if err != nil {
		return nil, err
	}

	existing, err := m.checkouts.Find(ctx, tx, gaugeID)
	if err == nil {
		if existing.UserID == userID && existing.Notes == notes {
			return []model.ActiveCheckout{existing}, nil
		}
		return nil, coreerr.New(coreerr.AlreadyCheckedOut, "gauge is already checked out by another user").WithField("gauge_id")
	}
	if coreerr.KindOf(err) != coreerr.NotFound {
		return nil, err
	}

	ineligible := gauge.OwnershipType == model.OwnershipEmployee && gauge.OwnerRef != "" && gauge.OwnerRef != userID
	pre := statemachine.Preconditions{HeldByAnotherEmployee: ineligible}

	cohort, err := m.machine.Transition(ctx, tx, gaugeID, model.StatusCheckedOut, pre)
	if err != nil {
		return nil, err
	}

	now := m.clock().UTC()
	result := make([]model.ActiveCheckout, 0, len(cohort))
	for _, g := range cohort {
		ac := model.ActiveCheckout{GaugeID: g.ID, UserID: userID, CheckedOutAt: now, Notes: notes}
		if err := m.checkouts.Insert(ctx, tx, ac); err != nil {
			return nil, err
		}
		result = append(result, ac)
		if err := m.appendAudit(ctx, tx, userID, eventbus.EventAssetCheckedOut, g.ID); err != nil {
			return nil, err
		}
	}
	m.publish(ctx, eventbus.EventAssetCheckedOut, gaugeID)
	return result, nil
}

// Return returns gaugeID (and its companion, if paired), routing to
// pending_qc instead of available when the gauge's equipment type
// requires post-use inspection.
func (m *Manager) Return(ctx context.Context, tx *sql.Tx, gaugeID int64, userID, notes string) ([]model.Gauge, error) {
	gauge, err := m.gauges.FindByID(ctx, tx, gaugeID)
	if err != nil {
		return nil, err
	}

	to := model.StatusAvailable
	if m.inspect(gauge.EquipmentType) {
		to = model.StatusPendingQC
	}

	cohort, err := m.machine.Transition(ctx, tx, gaugeID, to, statemachine.Preconditions{})
	if err != nil {
		return nil, err
	}

	for _, g := range cohort {
		if err := m.checkouts.Delete(ctx, tx, g.ID); err != nil {
			return nil, err
		}
		if err := m.appendAudit(ctx, tx, userID, eventbus.EventAssetReturned, g.ID); err != nil {
			return nil, err
		}
	}
	m.publish(ctx, eventbus.EventAssetReturned, gaugeID)
	return cohort, nil
}

// Transfer reassigns an active checkout's holder without changing the
// gauge's status.
func (m *Manager) Transfer(ctx context.Context, tx *sql.Tx, gaugeID int64, newHolder, actor, notes string) error {
	if _, err := m.checkouts.Find(ctx, tx, gaugeID); err != nil {
		return err
	}
	if err := m.checkouts.UpdateUser(ctx, tx, gaugeID, newHolder); err != nil {
		return err
	}
	return m.appendAudit(ctx, tx, actor, eventbus.EventAssetTransferred, gaugeID)
}

// Get returns the active checkout for gaugeID, or NotFound if the gauge is
// not currently checked out.
func (m *Manager) Get(ctx context.Context, tx *sql.Tx, gaugeID int64) (model.ActiveCheckout, error) {
	return m.checkouts.Find(ctx, tx, gaugeID)
}

func (m *Manager) appendAudit(ctx context.Context, tx *sql.Tx, actor, action string, gaugeID int64) error {
	_, err := m.log.Append(ctx, tx, actor, action, "gauge", fmt.Sprintf("%d", gaugeID), nil, nil, model.SeverityInfo)
	return err
}

func (m *Manager) publish(ctx context.Context, name string, gaugeID int64) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(ctx, eventbus.Event{Name: name, Payload: gaugeID})
}
