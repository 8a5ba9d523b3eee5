// Package gaugecore wires every domain component into one facade that
// exposes the operation surface an HTTP routing layer or frontend would
// call, without implementing that boundary itself.
package gaugecore

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/aerocal/gaugecore/internal/audit"
	"github.com/aerocal/gaugecore/internal/batch"
	"github.com/aerocal/gaugecore/internal/certificate"
	"github.com/aerocal/gaugecore/internal/checkout"
	"github.com/aerocal/gaugecore/internal/eventbus"
	"github.com/aerocal/gaugecore/internal/gaugestore"
	"github.com/aerocal/gaugecore/internal/identity"
	"github.com/aerocal/gaugecore/internal/model"
	"github.com/aerocal/gaugecore/internal/pairing"
	"github.com/aerocal/gaugecore/internal/statemachine"
	"github.com/aerocal/gaugecore/internal/txn"
)

// Core composes every component into the operation surface an external
// routing layer calls. It never discovers a transaction from ambient
// context: every write path goes through Coordinator.WithTx with an
// explicit *sql.Tx.
type Core struct {
	Gate         *identity.Gate
	Audit        *audit.Log
	Gauges       gaugestore.Store
	Machine      *statemachine.Machine
	Pairing      *pairing.Manager
	Checkout     *checkout.Manager
	Batches      *batch.Manager
	Certificates *certificate.Manager
	Events      *eventbus.Bus
	Coordinator *txn.Coordinator
}

// New assembles a Core from its already-constructed components.
func New(
	gate *identity.Gate,
	auditLog *audit.Log,
	gauges gaugestore.Store,
	machine *statemachine.Machine,
	pairingMgr *pairing.Manager,
	checkoutMgr *checkout.Manager,
	batchMgr *batch.Manager,
	certMgr *certificate.Manager,
	bus *eventbus.Bus,
	coord *txn.Coordinator,
) *Core {
	return &Core{
		Gate:         gate,
		Audit:        auditLog,
		Gauges:       gauges,
		Machine:      machine,
		Pairing:      pairingMgr,
		Checkout:     checkoutMgr,
		Batches:      batchMgr,
		Certificates: certMgr,
		Events:       bus,
		Coordinator:  coord,
	}
}

func (c *Core) authorize(caller *model.Caller, capability model.Capability) error {
	return c.Gate.Authorize(caller, capability)
}

// ---- Gauge ----

// CreateGauge creates a gauge with its specification in one transaction.
func (c *Core) CreateGauge(ctx context.Context, caller *model.Caller, g model.Gauge) (model.Gauge, error) {
	if err := c.authorize(caller, model.CapabilityGaugeManage); err != nil {
		return model.Gauge{}, err
	}
	var created model.Gauge
	err := c.Coordinator.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		created, err = c.Gauges.Create(ctx, tx, g)
		if err != nil {
			return err
		}
		_, err = c.Audit.Append(ctx, tx, caller.UserID, eventbus.EventAssetCreated, "gauge", idString(created.ID), nil, nil, model.SeverityInfo)
		return err
	})
	if err != nil {
		return model.Gauge{}, err
	}
	c.Events.Publish(ctx, eventbus.Event{Name: eventbus.EventAssetCreated, Payload: created.ID})
	return created, nil
}

// UpdateGauge applies a partial field update to gaugeID.
func (c *Core) UpdateGauge(ctx context.Context, caller *model.Caller, gaugeID int64, patch gaugestore.Fields) (model.Gauge, error) {
	if err := c.authorize(caller, model.CapabilityGaugeManage); err != nil {
		return model.Gauge{}, err
	}
	var updated model.Gauge
	err := c.Coordinator.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		updated, err = c.Gauges.Update(ctx, tx, gaugeID, patch)
		if err != nil {
			return err
		}
		_, err = c.Audit.Append(ctx, tx, caller.UserID, eventbus.EventAssetUpdated, "gauge", idString(gaugeID), nil, nil, model.SeverityInfo)
		return err
	})
	if err != nil {
		return model.Gauge{}, err
	}
	c.Events.Publish(ctx, eventbus.Event{Name: eventbus.EventAssetUpdated, Payload: gaugeID})
	return updated, nil
}

// ListGauges returns gauges matching filter; read-only, no transaction.
func (c *Core) ListGauges(ctx context.Context, caller *model.Caller, filter gaugestore.ListFilter) ([]model.Gauge, error) {
	if err := c.authorize(caller, model.CapabilityGaugeView); err != nil {
		return nil, err
	}
	return c.Gauges.List(ctx, nil, filter)
}

// GetGauge resolves a gauge by internal id.
func (c *Core) GetGauge(ctx context.Context, caller *model.Caller, gaugeID int64) (model.Gauge, error) {
	if err := c.authorize(caller, model.CapabilityGaugeView); err != nil {
		return model.Gauge{}, err
	}
	return c.Gauges.FindByID(ctx, nil, gaugeID)
}

// GetGaugeBySerial resolves a gauge by equipment type and serial number.
func (c *Core) GetGaugeBySerial(ctx context.Context, caller *model.Caller, equipmentType model.EquipmentType, serial string) (model.Gauge, error) {
	if err := c.authorize(caller, model.CapabilityGaugeView); err != nil {
		return model.Gauge{}, err
	}
	return c.Gauges.FindBySerial(ctx, nil, equipmentType, serial)
}

// ListSpareThreadGauges finds unpaired thread gauges eligible for pairing.
func (c *Core) ListSpareThreadGauges(ctx context.Context, caller *model.Caller, filter gaugestore.SpareFilter) ([]model.Gauge, error) {
	if err := c.authorize(caller, model.CapabilityGaugeView); err != nil {
		return nil, err
	}
	return c.Gauges.FindSpareThreadGauges(ctx, nil, filter)
}

// ---- Set (Pairing Manager) ----

// PairSpares creates a new thread-gauge set from two spares. candidateSetID
// is optional; pass "" to allocate a fresh set id, or supply one explicitly
// to have it rejected with SetIdReused if it has already been burned.
func (c *Core) PairSpares(ctx context.Context, caller *model.Caller, goSpareID, nogoSpareID int64, shared gaugestore.Fields, candidateSetID string) (goGauge, nogoGauge model.Gauge, setID string, err error) {
	if err = c.authorize(caller, model.CapabilityGaugeManage); err != nil {
		return model.Gauge{}, model.Gauge{}, "", err
	}
	err = c.Coordinator.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var txErr error
		goGauge, nogoGauge, setID, txErr = c.Pairing.CreateSet(ctx, tx, goSpareID, nogoSpareID, shared, caller.UserID, candidateSetID)
		return txErr
	})
	return goGauge, nogoGauge, setID, err
}

// ReplaceMember swaps one member of an existing set for a new spare.
func (c *Core) ReplaceMember(ctx context.Context, caller *model.Caller, setID string, oldMemberID, newSpareID int64) (retained, replaced model.Gauge, err error) {
	if err = c.authorize(caller, model.CapabilityGaugeManage); err != nil {
		return model.Gauge{}, model.Gauge{}, err
	}
	err = c.Coordinator.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var txErr error
		retained, replaced, txErr = c.Pairing.ReplaceMember(ctx, tx, setID, oldMemberID, newSpareID, caller.UserID)
		return txErr
	})
	return retained, replaced, err
}

// UnpairSet splits a set back into two spares.
func (c *Core) UnpairSet(ctx context.Context, caller *model.Caller, setID string) ([]model.Gauge, error) {
	if err := c.authorize(caller, model.CapabilityGaugeManage); err != nil {
		return nil, err
	}
	var members []model.Gauge
	err := c.Coordinator.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var txErr error
		members, txErr = c.Pairing.Unpair(ctx, tx, setID, caller.UserID)
		return txErr
	})
	return members, err
}

// RetireSet retires both members of a set while keeping them paired.
func (c *Core) RetireSet(ctx context.Context, caller *model.Caller, setID string) ([]model.Gauge, error) {
	if err := c.authorize(caller, model.CapabilityGaugeManage); err != nil {
		return nil, err
	}
	var members []model.Gauge
	err := c.Coordinator.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var txErr error
		members, txErr = c.Pairing.RetireSet(ctx, tx, setID, caller.UserID)
		return txErr
	})
	return members, err
}

// GetSetHistory returns the gauges whose gauge_id currently equals the
// given public set id. Gauges that left the set through ReplaceMember or
// Unpair no longer carry the id and are not returned.
func (c *Core) GetSetHistory(ctx context.Context, caller *model.Caller, setID string) ([]model.Gauge, error) {
	if err := c.authorize(caller, model.CapabilityGaugeView); err != nil {
		return nil, err
	}
	return c.Gauges.FindByPublicID(ctx, nil, setID)
}

// ---- Checkout/Return Engine ----

// CheckoutGauge checks a gauge (and companion, if paired) out to caller.
func (c *Core) CheckoutGauge(ctx context.Context, caller *model.Caller, gaugeID int64, notes string) ([]model.ActiveCheckout, error) {
	if err := c.authorize(caller, model.CapabilityGaugeOperate); err != nil {
		return nil, err
	}
	var out []model.ActiveCheckout
	err := c.Coordinator.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var txErr error
		out, txErr = c.Checkout.Checkout(ctx, tx, gaugeID, caller.UserID, notes)
		return txErr
	})
	return out, err
}

// ReturnGauge returns a gauge (and companion, if paired).
func (c *Core) ReturnGauge(ctx context.Context, caller *model.Caller, gaugeID int64, notes string) ([]model.Gauge, error) {
	if err := c.authorize(caller, model.CapabilityGaugeOperate); err != nil {
		return nil, err
	}
	var out []model.Gauge
	err := c.Coordinator.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var txErr error
		out, txErr = c.Checkout.Return(ctx, tx, gaugeID, caller.UserID, notes)
		return txErr
	})
	return out, err
}

// GetActiveCheckout resolves the active checkout for a gauge, or NotFound
// if it is not currently checked out.
func (c *Core) GetActiveCheckout(ctx context.Context, caller *model.Caller, gaugeID int64) (model.ActiveCheckout, error) {
	if err := c.authorize(caller, model.CapabilityGaugeView); err != nil {
		return model.ActiveCheckout{}, err
	}
	return c.Checkout.Get(ctx, nil, gaugeID)
}

// TransferCheckout reassigns an active checkout to a new holder.
func (c *Core) TransferCheckout(ctx context.Context, caller *model.Caller, gaugeID int64, newHolder, notes string) error {
	if err := c.authorize(caller, model.CapabilityGaugeOperate); err != nil {
		return err
	}
	return c.Coordinator.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return c.Checkout.Transfer(ctx, tx, gaugeID, newHolder, caller.UserID, notes)
	})
}

// ---- Calibration Batch Coordinator ----

// CreateBatch opens a new calibration batch.
func (c *Core) CreateBatch(ctx context.Context, caller *model.Caller, batchType model.BatchType, vendor, trackingNumber string) (model.CalibrationBatch, error) {
	if err := c.authorize(caller, model.CapabilityCalibrationManage); err != nil {
		return model.CalibrationBatch{}, err
	}
	var b model.CalibrationBatch
	err := c.Coordinator.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var txErr error
		b, txErr = c.Batches.CreateBatch(ctx, tx, batchType, vendor, trackingNumber, caller.UserID)
		return txErr
	})
	return b, err
}

// AddGaugeToBatch attaches a gauge to a pending_send batch.
func (c *Core) AddGaugeToBatch(ctx context.Context, caller *model.Caller, batchID string, gaugeID int64) error {
	if err := c.authorize(caller, model.CapabilityCalibrationManage); err != nil {
		return err
	}
	return c.Coordinator.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return c.Batches.AddGauge(ctx, tx, batchID, gaugeID, caller.UserID)
	})
}

// RemoveGaugeFromBatch detaches a gauge from a pending_send batch.
func (c *Core) RemoveGaugeFromBatch(ctx context.Context, caller *model.Caller, batchID string, gaugeID int64) error {
	if err := c.authorize(caller, model.CapabilityCalibrationManage); err != nil {
		return err
	}
	return c.Coordinator.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return c.Batches.RemoveGauge(ctx, tx, batchID, gaugeID, caller.UserID)
	})
}

// SendBatch sends every member of a batch for calibration.
func (c *Core) SendBatch(ctx context.Context, caller *model.Caller, batchID string) (model.CalibrationBatch, error) {
	if err := c.authorize(caller, model.CapabilityCalibrationManage); err != nil {
		return model.CalibrationBatch{}, err
	}
	var b model.CalibrationBatch
	err := c.Coordinator.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var txErr error
		b, txErr = c.Batches.SendBatch(ctx, tx, batchID, caller.UserID)
		return txErr
	})
	return b, err
}

// ReceiveGauge records the calibration outcome for one batch member.
func (c *Core) ReceiveGauge(ctx context.Context, caller *model.Caller, batchID string, gaugeID int64, calibrationPassed bool) (model.Gauge, model.CalibrationBatch, error) {
	if err := c.authorize(caller, model.CapabilityCalibrationManage); err != nil {
		return model.Gauge{}, model.CalibrationBatch{}, err
	}
	var (
		g model.Gauge
		b model.CalibrationBatch
	)
	err := c.Coordinator.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var txErr error
		g, b, txErr = c.Batches.ReceiveGauge(ctx, tx, batchID, gaugeID, calibrationPassed, caller.UserID)
		return txErr
	})
	return g, b, err
}

// VerifyCertificates attempts to move a gauge from pending_certificate to
// pending_release.
func (c *Core) VerifyCertificates(ctx context.Context, caller *model.Caller, gaugeID int64) ([]model.Gauge, error) {
	if err := c.authorize(caller, model.CapabilityCalibrationManage); err != nil {
		return nil, err
	}
	var out []model.Gauge
	err := c.Coordinator.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var txErr error
		out, txErr = c.Batches.VerifyCertificates(ctx, tx, gaugeID, caller.UserID)
		return txErr
	})
	return out, err
}

// ReleaseGauge moves a gauge from pending_release to available.
func (c *Core) ReleaseGauge(ctx context.Context, caller *model.Caller, gaugeID int64, storageLocation *string) ([]model.Gauge, error) {
	if err := c.authorize(caller, model.CapabilityCalibrationManage); err != nil {
		return nil, err
	}
	var out []model.Gauge
	err := c.Coordinator.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var txErr error
		out, txErr = c.Batches.ReleaseGauge(ctx, tx, gaugeID, storageLocation, caller.UserID)
		return txErr
	})
	return out, err
}

// CancelBatch cancels a pending_send batch.
func (c *Core) CancelBatch(ctx context.Context, caller *model.Caller, batchID string) error {
	if err := c.authorize(caller, model.CapabilityCalibrationManage); err != nil {
		return err
	}
	return c.Coordinator.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return c.Batches.CancelBatch(ctx, tx, batchID, caller.UserID)
	})
}

// ---- Certificate Registry ----

// UploadCertificateMetadata attaches a new certificate to a gauge.
func (c *Core) UploadCertificateMetadata(ctx context.Context, caller *model.Caller, gaugeID int64, fileRef string, customName *string) (model.Certificate, error) {
	if err := c.authorize(caller, model.CapabilityCalibrationManage); err != nil {
		return model.Certificate{}, err
	}
	var cert model.Certificate
	err := c.Coordinator.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var txErr error
		cert, txErr = c.Certificates.Upload(ctx, tx, gaugeID, fileRef, caller.UserID, customName)
		return txErr
	})
	return cert, err
}

// ListCertificates returns the full certificate chain for a gauge.
func (c *Core) ListCertificates(ctx context.Context, caller *model.Caller, gaugeID int64) ([]model.Certificate, error) {
	if err := c.authorize(caller, model.CapabilityGaugeView); err != nil {
		return nil, err
	}
	return c.Certificates.List(ctx, nil, gaugeID)
}

// RenameCertificate changes a certificate's display name.
func (c *Core) RenameCertificate(ctx context.Context, caller *model.Caller, certificateID, customName string) (model.Certificate, error) {
	if err := c.authorize(caller, model.CapabilityCalibrationManage); err != nil {
		return model.Certificate{}, err
	}
	var cert model.Certificate
	err := c.Coordinator.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var txErr error
		cert, txErr = c.Certificates.Rename(ctx, tx, certificateID, customName, caller.UserID)
		return txErr
	})
	return cert, err
}

// SoftDeleteCertificate soft-deletes a certificate.
func (c *Core) SoftDeleteCertificate(ctx context.Context, caller *model.Caller, certificateID string) error {
	if err := c.authorize(caller, model.CapabilityCalibrationManage); err != nil {
		return err
	}
	return c.Coordinator.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return c.Certificates.Delete(ctx, tx, certificateID, caller.UserID)
	})
}

// ---- Audit Log ----

// QueryAuditByEntity returns audit entries matching filter, each carrying a
// rendered diff summary for display.
func (c *Core) QueryAuditByEntity(ctx context.Context, caller *model.Caller, filter audit.QueryFilter) ([]audit.EntryView, error) {
	if err := c.authorize(caller, model.CapabilityAuditView); err != nil {
		return nil, err
	}
	return c.Audit.QueryWithSummaries(ctx, filter)
}

// VerifyAuditRange recomputes and checks the hash chain over a range.
func (c *Core) VerifyAuditRange(ctx context.Context, caller *model.Caller, fromSeq, toSeq int64) (audit.VerifyResult, error) {
	if err := c.authorize(caller, model.CapabilityAuditView); err != nil {
		return audit.VerifyResult{}, err
	}
	return c.Audit.Verify(ctx, fromSeq, toSeq)
}

// ExportAudit streams audit entries matching filter for external export,
// requiring the stronger data.export capability in addition to audit
// visibility.
func (c *Core) ExportAudit(ctx context.Context, caller *model.Caller, filter audit.QueryFilter) ([]model.AuditEntry, error) {
	if err := c.authorize(caller, model.CapabilityAuditView); err != nil {
		return nil, err
	}
	if err := c.authorize(caller, model.CapabilityDataExport); err != nil {
		return nil, err
	}
	return c.Audit.Export(ctx, filter)
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}
