package batch

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

// CertificateChecker answers whether a gauge currently holds a certificate
// that has not been superseded, without the batch package needing to
// depend on the certificate store directly.
type CertificateChecker interface {
	HasCurrentCertificate(ctx context.Context, tx *sql.Tx, gaugeID int64) (bool, error)
}

// Manager is the Calibration Batch Coordinator.
type Manager struct {
	batches Store
	gauges  gaugestore.Store
	machine *statemachine.Machine
	certs   CertificateChecker
	log     *audit.Log
	bus     *eventbus.Bus
	clock   Clock
}

// New builds a Manager.
func New(batches Store, gauges gaugestore.Store, machine *statemachine.Machine, certs CertificateChecker, log *audit.Log, bus *eventbus.Bus) *Manager {
	return &Manager{batches: batches, gauges: gauges, machine: machine, certs: certs, log: log, bus: bus, clock: time.Now}
}

// CreateBatch opens a new batch in pending_send.
func (m *Manager) CreateBatch(ctx context.Context, tx *sql.Tx, batchType model.BatchType, vendor, trackingNumber, createdBy string) (model.CalibrationBatch, error) {
	if batchType == model.BatchExternal && vendor == "" {
		return model.CalibrationBatch{}, coreerr.New(coreerr.InvariantViolation, "external batches require a vendor").WithField("vendor")
	}

	b := model.CalibrationBatch{
		Type:           batchType,
		Vendor:         vendor,
		TrackingNumber: trackingNumber,
		Status:         model.BatchPendingSend,
		CreatedBy:      createdBy,
	}
	created, err := m.batches.Create(ctx, tx, b)
	if err != nil {
		return model.CalibrationBatch{}, err
	}
	if err := m.appendBatchAudit(ctx, tx, createdBy, eventbus.EventBatchCreated, created.ID); err != nil {
		return model.CalibrationBatch{}, err
	}
	m.publish(ctx, eventbus.EventBatchCreated, created.ID)
	return created, nil
}

// AddGauge attaches gaugeID to batchID, rejecting gauges that are checked
// out or already riding in another non-terminal batch.
func (m *Manager) AddGauge(ctx context.Context, tx *sql.Tx, batchID string, gaugeID int64, actor string) error {
	b, err := m.batches.FindByID(ctx, tx, batchID)
	if err != nil {
		return err
	}
	if b.Status != model.BatchPendingSend {
		return coreerr.New(coreerr.PreconditionFailed, "gauges can only be added while the batch is pending_send")
	}

	gauge, err := m.gauges.FindByID(ctx, tx, gaugeID)
	if err != nil {
		return err
	}
	if gauge.Status == model.StatusCheckedOut {
		return coreerr.New(coreerr.PreconditionFailed, "gauge is checked out")
	}

	if existing, active, err := m.batches.ActiveBatchFor(ctx, tx, gaugeID); err != nil {
		return err
	} else if active && existing != batchID {
		return coreerr.New(coreerr.Conflict, "gauge is already in another active calibration batch").WithField("gauge_id")
	}

	if err := m.batches.AddMember(ctx, tx, batchID, gaugeID); err != nil {
		return err
	}
	return m.appendGaugeAudit(ctx, tx, actor, eventbus.EventBatchGaugeAdded, gaugeID)
}

// RemoveGauge detaches gaugeID from batchID while the batch is still
// pending_send.
func (m *Manager) RemoveGauge(ctx context.Context, tx *sql.Tx, batchID string, gaugeID int64, actor string) error {
	b, err := m.batches.FindByID(ctx, tx, batchID)
	if err != nil {
		return err
	}
	if b.Status != model.BatchPendingSend {
		return coreerr.New(coreerr.PreconditionFailed, "gauges can only be removed while the batch is pending_send")
	}
	if err := m.batches.RemoveMember(ctx, tx, batchID, gaugeID); err != nil {
		return err
	}
	return m.appendGaugeAudit(ctx, tx, actor, eventbus.EventBatchGaugeRemoved, gaugeID)
}

// SendBatch transitions every member to out_for_calibration and marks the
// batch sent. Paired members that share a cohort are moved together by
// the state machine the first time either twin is visited, so duplicate
// visits are skipped.
func (m *Manager) SendBatch(ctx context.Context, tx *sql.Tx, batchID, actor string) (model.CalibrationBatch, error) {
	b, err := m.batches.FindByID(ctx, tx, batchID)
	if err != nil {
		return model.CalibrationBatch{}, err
	}
	if b.Status != model.BatchPendingSend {
		return model.CalibrationBatch{}, coreerr.New(coreerr.PreconditionFailed, "batch must be pending_send")
	}
	if len(b.GaugeIDs) == 0 {
		return model.CalibrationBatch{}, coreerr.New(coreerr.PreconditionFailed, "batch has no members")
	}

	visited := make(map[int64]bool, len(b.GaugeIDs))
	for _, id := range b.GaugeIDs {
		if visited[id] {
			continue
		}
		moved, err := m.machine.Transition(ctx, tx, id, model.StatusOutForCalibration, statemachine.Preconditions{})
		if err != nil {
			return model.CalibrationBatch{}, err
		}
		for _, g := range moved {
			visited[g.ID] = true
		}
		if err := m.appendGaugeAudit(ctx, tx, actor, eventbus.EventBatchSent, id); err != nil {
			return model.CalibrationBatch{}, err
		}
	}

	now := m.clock().UTC()
	if err := m.batches.UpdateStatus(ctx, tx, batchID, model.BatchSent, &now); err != nil {
		return model.CalibrationBatch{}, err
	}
	b.Status = model.BatchSent
	b.SentAt = &now
	m.publish(ctx, eventbus.EventBatchSent, batchID)
	return b, nil
}

// ReceiveGauge records the calibration outcome for one member: a failed
// calibration retires the gauge, a pass seals it and queues it for
// certificate verification. The batch as a whole completes once every
// member has been received.
func (m *Manager) ReceiveGauge(ctx context.Context, tx *sql.Tx, batchID string, gaugeID int64, calibrationPassed bool, actor string) (model.Gauge, model.CalibrationBatch, error) {
	b, err := m.batches.FindByID(ctx, tx, batchID)
	if err != nil {
		return model.Gauge{}, model.CalibrationBatch{}, err
	}

	to := model.StatusPendingCertificate
	if !calibrationPassed {
		to = model.StatusRetired
	}
	pre := statemachine.Preconditions{CalibrationPassed: calibrationPassed}
	moved, err := m.machine.Transition(ctx, tx, gaugeID, to, pre)
	if err != nil {
		return model.Gauge{}, model.CalibrationBatch{}, err
	}

	if err := m.batches.MarkReceived(ctx, tx, batchID, gaugeID); err != nil {
		return model.Gauge{}, model.CalibrationBatch{}, err
	}
	if err := m.appendGaugeAudit(ctx, tx, actor, eventbus.EventBatchReceived, gaugeID); err != nil {
		return model.Gauge{}, model.CalibrationBatch{}, err
	}

	received, err := m.batches.ReceivedCount(ctx, tx, batchID)
	if err != nil {
		return model.Gauge{}, model.CalibrationBatch{}, err
	}
	if received >= len(b.GaugeIDs) {
		b.Status = model.BatchCompleted
	} else {
		b.Status = model.BatchPartiallyReceived
	}
	if err := m.batches.UpdateStatus(ctx, tx, batchID, b.Status, b.SentAt); err != nil {
		return model.Gauge{}, model.CalibrationBatch{}, err
	}
	if b.Status == model.BatchCompleted {
		m.publish(ctx, eventbus.EventBatchCompleted, batchID)
	}

	var result model.Gauge
	for _, g := range moved {
		if g.ID == gaugeID {
			result = g
		}
	}
	return result, b, nil
}

// VerifyCertificates moves a gauge from pending_certificate to
// pending_release, requiring a current certificate on the gauge and, for
// a paired set, on its companion as well.
func (m *Manager) VerifyCertificates(ctx context.Context, tx *sql.Tx, gaugeID int64, actor string) ([]model.Gauge, error) {
	gauge, err := m.gauges.FindByID(ctx, tx, gaugeID)
	if err != nil {
		return nil, err
	}

	pre := statemachine.Preconditions{}
	pre.HasCurrentCertificate, err = m.certs.HasCurrentCertificate(ctx, tx, gauge.ID)
	if err != nil {
		return nil, err
	}

	if gauge.CompanionID != nil {
		companion, err := m.gauges.FindByID(ctx, tx, *gauge.CompanionID)
		if err != nil {
			return nil, err
		}
		pre.CompanionInPendingCertificate = companion.Status == model.StatusPendingCertificate
		pre.CompanionHasCurrentCertificate, err = m.certs.HasCurrentCertificate(ctx, tx, companion.ID)
		if err != nil {
			return nil, err
		}
	}

	moved, err := m.machine.Transition(ctx, tx, gaugeID, model.StatusPendingRelease, pre)
	if err != nil {
		return nil, err
	}
	for _, g := range moved {
		if err := m.appendGaugeAudit(ctx, tx, actor, eventbus.EventAssetStatusChanged, g.ID); err != nil {
			return nil, err
		}
	}
	return moved, nil
}

// ReleaseGauge moves a gauge (and its companion, if paired) from
// pending_release to available, optionally recording an updated storage
// location.
func (m *Manager) ReleaseGauge(ctx context.Context, tx *sql.Tx, gaugeID int64, storageLocation *string, actor string) ([]model.Gauge, error) {
	pre := statemachine.Preconditions{StorageLocationRef: storageLocation}
	moved, err := m.machine.Transition(ctx, tx, gaugeID, model.StatusAvailable, pre)
	if err != nil {
		return nil, err
	}
	for _, g := range moved {
		if err := m.appendGaugeAudit(ctx, tx, actor, eventbus.EventAssetStatusChanged, g.ID); err != nil {
			return nil, err
		}
	}
	return moved, nil
}

// CancelBatch cancels a pending_send batch without touching its members.
func (m *Manager) CancelBatch(ctx context.Context, tx *sql.Tx, batchID, actor string) error {
	b, err := m.batches.FindByID(ctx, tx, batchID)
	if err != nil {
		return err
	}
	if b.Status != model.BatchPendingSend {
		return coreerr.New(coreerr.PreconditionFailed, "only a pending_send batch can be cancelled")
	}
	if err := m.batches.UpdateStatus(ctx, tx, batchID, model.BatchCancelled, nil); err != nil {
		return err
	}
	return m.appendBatchAudit(ctx, tx, actor, eventbus.EventBatchCancelled, batchID)
}

func (m *Manager) appendGaugeAudit(ctx context.Context, tx *sql.Tx, actor, action string, gaugeID int64) error {
	_, err := m.log.Append(ctx, tx, actor, action, "gauge", fmt.Sprintf("%d", gaugeID), nil, nil, model.SeverityInfo)
	return err
}

func (m *Manager) appendBatchAudit(ctx context.Context, tx *sql.Tx, actor, action, batchID string) error {
	_, err := m.log.Append(ctx, tx, actor, action, "calibration_batch", batchID, nil, nil, model.SeverityInfo)
	return err
}

func (m *Manager) publish(ctx context.Context, name string, id any) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(ctx, eventbus.Event{Name: name, Payload: id})
}
