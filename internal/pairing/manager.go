// Package pairing implements set creation, member replacement, unpairing,
// and retirement for thread-gauge sets, and enforces set-id reuse
// prevention via Set-ID History.
package pairing

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
)

// maxAllocationAttempts bounds the SIH-reuse retry loop so a corrupted
// allocator sequence fails loudly instead of looping forever.
const maxAllocationAttempts = 1000

// Clock lets tests control "now".
type Clock func() time.Time

// Manager is the Pairing Manager.
type Manager struct {
	gauges SIHStore
	store  gaugestore.Store
	log    *audit.Log
	bus    *eventbus.Bus
	clock  Clock
}

// New builds a Manager.
func New(store gaugestore.Store, sih SIHStore, log *audit.Log, bus *eventbus.Bus) *Manager {
	return &Manager{store: store, gauges: sih, log: log, bus: bus, clock: time.Now}
}

// CreateSet pairs two thread-gauge spares into a new set. If candidateSetID
// is empty, a fresh public set id is allocated from the id allocator; if
// supplied, it is used as-is, rejected with SetIdReused if it has already
// appeared in Set-ID History.
func (m *Manager) CreateSet(ctx context.Context, tx *sql.Tx, goSpareID, nogoSpareID int64, shared gaugestore.Fields, actor string, candidateSetID string) (goGauge, nogoGauge model.Gauge, setID string, err error) {
	locked, err := m.store.LockForUpdate(ctx, tx, []int64{goSpareID, nogoSpareID})
	if err != nil {
		return model.Gauge{}, model.Gauge{}, "", err
	}
	goG, nogoG, err := pickPair(locked, goSpareID, nogoSpareID)
	if err != nil {
		return model.Gauge{}, model.Gauge{}, "", err
	}

	if err := validateSpare(goG); err != nil {
		return model.Gauge{}, model.Gauge{}, "", err
	}
	if err := validateSpare(nogoG); err != nil {
		return model.Gauge{}, model.Gauge{}, "", err
	}

	if candidateSetID != "" {
		_, exists, lockErr := m.gauges.Lock(ctx, tx, candidateSetID)
		if lockErr != nil {
			return model.Gauge{}, model.Gauge{}, "", lockErr
		}
		if exists {
			return model.Gauge{}, model.Gauge{}, "", coreerr.New(coreerr.SetIdReused, "candidate set id has already been used").WithField("set_id")
		}
		setID = candidateSetID
	} else {
		setID, err = m.allocateSetID(ctx, tx)
		if err != nil {
			return model.Gauge{}, model.Gauge{}, "", err
		}
	}

	if _, err := m.store.Update(ctx, tx, goG.ID, shared); err != nil {
		return model.Gauge{}, model.Gauge{}, "", err
	}
	if _, err := m.store.Update(ctx, tx, nogoG.ID, shared); err != nil {
		return model.Gauge{}, model.Gauge{}, "", err
	}

	goSuffix, nogoSuffix := model.SuffixGo, model.SuffixNoGo
	updatedGo, err := m.store.SetPairing(ctx, tx, goG.ID, &setID, &goSuffix, &nogoG.ID)
	if err != nil {
		return model.Gauge{}, model.Gauge{}, "", err
	}
	updatedNogo, err := m.store.SetPairing(ctx, tx, nogoG.ID, &setID, &nogoSuffix, &goG.ID)
	if err != nil {
		return model.Gauge{}, model.Gauge{}, "", err
	}

	if err := m.gauges.Insert(ctx, tx, model.SetIDHistoryEntry{SetID: setID, FirstUsedAt: m.clock().UTC()}); err != nil {
		return model.Gauge{}, model.Gauge{}, "", err
	}

	if err := m.appendGaugeAudit(ctx, tx, actor, "gauge.paired", updatedGo); err != nil {
		return model.Gauge{}, model.Gauge{}, "", err
	}
	if err := m.appendGaugeAudit(ctx, tx, actor, "gauge.paired", updatedNogo); err != nil {
		return model.Gauge{}, model.Gauge{}, "", err
	}
	if _, err := m.log.Append(ctx, tx, actor, "set_created", "set", setID, nil, nil, model.SeverityInfo); err != nil {
		return model.Gauge{}, model.Gauge{}, "", err
	}

	m.publish(ctx, eventbus.EventSetCreated, setID)
	return updatedGo, updatedNogo, setID, nil
}

// ReplaceMember swaps out one member of a set for a matching spare,
// preserving the public set id.
func (m *Manager) ReplaceMember(ctx context.Context, tx *sql.Tx, setID string, oldMemberID, newSpareID int64, actor string) (retained, replaced model.Gauge, err error) {
	members, err := m.store.FindByPublicID(ctx, tx, setID)
	if err != nil {
		return model.Gauge{}, model.Gauge{}, err
	}
	oldMember, retainedPartner, err := splitMembers(members, oldMemberID)
	if err != nil {
		return model.Gauge{}, model.Gauge{}, err
	}

	locked, err := m.store.LockForUpdate(ctx, tx, []int64{oldMember.ID, retainedPartner.ID, newSpareID})
	if err != nil {
		return model.Gauge{}, model.Gauge{}, err
	}
	_, _, newSpare, err := splitForReplace(locked, oldMember.ID, retainedPartner.ID, newSpareID)
	if err != nil {
		return model.Gauge{}, model.Gauge{}, err
	}

	if err := validateSpare(newSpare); err != nil {
		return model.Gauge{}, model.Gauge{}, err
	}
	if !matchesThreadSpec(oldMember.Spec.Thread, newSpare.Spec.Thread) {
		return model.Gauge{}, model.Gauge{}, coreerr.New(coreerr.PreconditionFailed, "replacement spare does not match the thread specification of the member it replaces")
	}

	if _, err := m.store.SetPairing(ctx, tx, oldMember.ID, nil, nil, nil); err != nil {
		return model.Gauge{}, model.Gauge{}, err
	}
	if _, err := m.store.Update(ctx, tx, oldMember.ID, gaugestore.Fields{Status: statusPtr(model.StatusAvailable)}); err != nil {
		return model.Gauge{}, model.Gauge{}, err
	}

	replacedGauge, err := m.store.SetPairing(ctx, tx, newSpare.ID, &setID, oldMember.Suffix, &retainedPartner.ID)
	if err != nil {
		return model.Gauge{}, model.Gauge{}, err
	}
	retainedGauge, err := m.store.SetPairing(ctx, tx, retainedPartner.ID, &setID, retainedPartner.Suffix, &newSpare.ID)
	if err != nil {
		return model.Gauge{}, model.Gauge{}, err
	}

	if err := m.appendGaugeAudit(ctx, tx, actor, "set.member_replaced", replacedGauge); err != nil {
		return model.Gauge{}, model.Gauge{}, err
	}
	m.publish(ctx, eventbus.EventSetMemberReplaced, setID)
	return retainedGauge, replacedGauge, nil
}

// Unpair splits a set back into two spares without retiring the set id:
// the id remains burned in Set-ID History.
func (m *Manager) Unpair(ctx context.Context, tx *sql.Tx, setID string, actor string) ([]model.Gauge, error) {
	members, err := m.store.FindByPublicID(ctx, tx, setID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(members))
	for i, g := range members {
		ids[i] = g.ID
	}
	if _, err := m.store.LockForUpdate(ctx, tx, ids); err != nil {
		return nil, err
	}

	var result []model.Gauge
	for _, g := range members {
		if _, err := m.store.SetPairing(ctx, tx, g.ID, nil, nil, nil); err != nil {
			return nil, err
		}
		updated, err := m.store.Update(ctx, tx, g.ID, gaugestore.Fields{Status: statusPtr(model.StatusAvailable)})
		if err != nil {
			return nil, err
		}
		result = append(result, updated)
		if err := m.appendGaugeAudit(ctx, tx, actor, "set.unpaired", updated); err != nil {
			return nil, err
		}
	}
	m.publish(ctx, eventbus.EventSetUnpaired, setID)
	return result, nil
}

// RetireSet transitions both members to retired while keeping them paired
// for historical clarity, and retires the set id in Set-ID History.
func (m *Manager) RetireSet(ctx context.Context, tx *sql.Tx, setID string, actor string) ([]model.Gauge, error) {
	members, err := m.store.FindByPublicID(ctx, tx, setID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(members))
	for i, g := range members {
		ids[i] = g.ID
	}
	if _, err := m.store.LockForUpdate(ctx, tx, ids); err != nil {
		return nil, err
	}

	var result []model.Gauge
	for _, g := range members {
		updated, err := m.store.Update(ctx, tx, g.ID, gaugestore.Fields{Status: statusPtr(model.StatusRetired)})
		if err != nil {
			return nil, err
		}
		result = append(result, updated)
		if err := m.appendGaugeAudit(ctx, tx, actor, "set.retired", updated); err != nil {
			return nil, err
		}
	}
	if err := m.gauges.Retire(ctx, tx, setID, m.clock().UTC()); err != nil {
		return nil, err
	}
	m.publish(ctx, eventbus.EventSetRetired, setID)
	return result, nil
}

// allocateSetID draws candidates from the id allocator until one is found
// that has never appeared in Set-ID History.
func (m *Manager) allocateSetID(ctx context.Context, tx *sql.Tx) (string, error) {
	for attempt := 0; attempt < maxAllocationAttempts; attempt++ {
		seq, err := m.gauges.NextSequenceValue(ctx, tx)
		if err != nil {
			return "", err
		}
		candidate := fmt.Sprintf("SP%04d", seq)
		_, exists, err := m.gauges.Lock(ctx, tx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", coreerr.New(coreerr.Conflict, "exhausted set id allocation attempts")
}

func (m *Manager) appendGaugeAudit(ctx context.Context, tx *sql.Tx, actor, action string, g model.Gauge) error {
	_, err := m.log.Append(ctx, tx, actor, action, "gauge", fmt.Sprintf("%d", g.ID), nil, nil, model.SeverityInfo)
	return err
}

func (m *Manager) publish(ctx context.Context, name, setID string) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(ctx, eventbus.Event{Name: name, Payload: setID})
}
