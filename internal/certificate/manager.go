package certificate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aerocal/gaugecore/internal/audit"
	"github.com/aerocal/gaugecore/internal/eventbus"
	"github.com/aerocal/gaugecore/internal/model"
)

// Clock lets tests control "now".
type Clock func() time.Time

// Manager is the Certificate Registry.
type Manager struct {
	store Store
	log   *audit.Log
	bus   *eventbus.Bus
	clock Clock
}

// New builds a Manager.
func New(store Store, log *audit.Log, bus *eventbus.Bus) *Manager {
	return &Manager{store: store, log: log, bus: bus, clock: time.Now}
}

// Upload supersedes any existing current certificate for gaugeID and
// inserts the new one as current.
func (m *Manager) Upload(ctx context.Context, tx *sql.Tx, gaugeID int64, fileRef, uploadedBy string, customName *string) (model.Certificate, error) {
	now := m.clock().UTC()
	newID := uuid.NewString()

	prior, found, err := m.store.CurrentForGauge(ctx, tx, gaugeID)
	if err != nil {
		return model.Certificate{}, err
	}

	if customName == nil || *customName == "" {
		existing, err := m.store.ListByGauge(ctx, tx, gaugeID)
		if err != nil {
			return model.Certificate{}, err
		}
		name := disambiguate(defaultName(fileRef, now), existing)
		customName = &name
	}

	cert := model.Certificate{
		ID:         newID,
		GaugeID:    gaugeID,
		FileRef:    fileRef,
		UploadedAt: now,
		UploadedBy: uploadedBy,
		CustomName: customName,
		IsCurrent:  true,
	}
	created, err := m.store.Insert(ctx, tx, cert)
	if err != nil {
		return model.Certificate{}, err
	}

	if found {
		if err := m.store.Supersede(ctx, tx, prior.ID, now, newID); err != nil {
			return model.Certificate{}, err
		}
		if err := m.appendAudit(ctx, tx, uploadedBy, eventbus.EventCertificateSuperseded, prior.ID); err != nil {
			return model.Certificate{}, err
		}
		m.publish(ctx, eventbus.EventCertificateSuperseded, prior.ID)
	}

	if err := m.appendAudit(ctx, tx, uploadedBy, eventbus.EventCertificateUploaded, created.ID); err != nil {
		return model.Certificate{}, err
	}
	m.publish(ctx, eventbus.EventCertificateUploaded, created.ID)
	return created, nil
}

// List returns the full certificate chain for a gauge in upload order.
func (m *Manager) List(ctx context.Context, tx *sql.Tx, gaugeID int64) ([]model.Certificate, error) {
	return m.store.ListByGauge(ctx, tx, gaugeID)
}

// Rename changes a certificate's display name without affecting the
// supersession chain.
func (m *Manager) Rename(ctx context.Context, tx *sql.Tx, certificateID string, customName string, actor string) (model.Certificate, error) {
	if _, err := m.store.FindByID(ctx, tx, certificateID); err != nil {
		return model.Certificate{}, err
	}
	if err := m.store.Rename(ctx, tx, certificateID, &customName); err != nil {
		return model.Certificate{}, err
	}
	if err := m.appendAudit(ctx, tx, actor, eventbus.EventAssetUpdated, certificateID); err != nil {
		return model.Certificate{}, err
	}
	return m.store.FindByID(ctx, tx, certificateID)
}

// Delete soft-deletes a certificate. It never promotes a prior superseded
// certificate back to current; if the deleted certificate was current,
// the gauge is left needing re-verification at the workflow level.
func (m *Manager) Delete(ctx context.Context, tx *sql.Tx, certificateID string, actor string) error {
	if _, err := m.store.FindByID(ctx, tx, certificateID); err != nil {
		return err
	}
	if err := m.store.SoftDelete(ctx, tx, certificateID, m.clock().UTC()); err != nil {
		return err
	}
	return m.appendAudit(ctx, tx, actor, eventbus.EventAssetDeleted, certificateID)
}

// HasCurrentCertificate implements batch.CertificateChecker.
func (m *Manager) HasCurrentCertificate(ctx context.Context, tx *sql.Tx, gaugeID int64) (bool, error) {
	_, found, err := m.store.CurrentForGauge(ctx, tx, gaugeID)
	return found, err
}

func (m *Manager) appendAudit(ctx context.Context, tx *sql.Tx, actor, action, certificateID string) error {
	_, err := m.log.Append(ctx, tx, actor, action, "certificate", certificateID, nil, nil, model.SeverityInfo)
	return err
}

func (m *Manager) publish(ctx context.Context, name string, id string) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(ctx, eventbus.Event{Name: name, Payload: id})
}

func defaultName(fileRef string, uploadedAt time.Time) string {
	c := &model.Certificate{FileRef: fileRef, UploadedAt: uploadedAt}
	return c.DisplayName()
}

// disambiguate appends a numeric suffix to base until it no longer
// collides with any existing certificate's display name.
func disambiguate(base string, existing []model.Certificate) string {
	taken := make(map[string]bool, len(existing))
	for _, c := range existing {
		taken[c.DisplayName()] = true
	}
	if !taken[base] {
		return base
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", base, i)
		if !taken[candidate] {
			return candidate
		}
	}
}
