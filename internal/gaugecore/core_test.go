package gaugecore_test

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerocal/gaugecore/internal/audit"
	"github.com/aerocal/gaugecore/internal/batch"
	"github.com/aerocal/gaugecore/internal/certificate"
	"github.com/aerocal/gaugecore/internal/checkout"
	"github.com/aerocal/gaugecore/internal/coreerr"
	"github.com/aerocal/gaugecore/internal/eventbus"
	"github.com/aerocal/gaugecore/internal/gaugecore"
	"github.com/aerocal/gaugecore/internal/gaugestore"
	"github.com/aerocal/gaugecore/internal/identity"
	"github.com/aerocal/gaugecore/internal/model"
	"github.com/aerocal/gaugecore/internal/pairing"
	"github.com/aerocal/gaugecore/internal/statemachine"
	"github.com/aerocal/gaugecore/internal/storetest"
	"github.com/aerocal/gaugecore/internal/txn"
)

type fixedAdminCounter struct{ count int }

func (f fixedAdminCounter) SystemAdminCount() (int, error) { return f.count, nil }

func newTestCore(t *testing.T) (*gaugecore.Core, sqlmock.Sqlmock, *storetest.GaugeStore) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gauges := storetest.NewGaugeStore()
	machine := statemachine.New(gauges)
	auditLog := audit.New(storetest.NewAuditStore())
	bus := eventbus.New(nil, nil)
	pairingMgr := pairing.New(gauges, storetest.NewSIHStore(), auditLog, bus)
	checkoutMgr := checkout.New(storetest.NewCheckoutStore(), gauges, machine, auditLog, bus, nil)
	certMgr := certificate.New(storetest.NewCertificateStore(), auditLog, bus)
	batchMgr := batch.New(storetest.NewBatchStore(), gauges, machine, certMgr, auditLog, bus)
	gate := identity.New(fixedAdminCounter{count: 2})
	coord := txn.New(db, 0, 0)

	core := gaugecore.New(gate, auditLog, gauges, machine, pairingMgr, checkoutMgr, batchMgr, certMgr, bus, coord)
	return core, mock, gauges
}

func adminCaller() *model.Caller {
	return &model.Caller{UserID: "alice", Permissions: []model.Capability{
		model.CapabilityGaugeManage, model.CapabilityGaugeView, model.CapabilityGaugeOperate,
		model.CapabilityCalibrationManage, model.CapabilityAuditView, model.CapabilityDataExport,
	}}
}

func TestCreateGaugeCommitsAndPublishesOnSuccess(t *testing.T) {
	core, mock, _ := newTestCore(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	created, err := core.CreateGauge(context.Background(), adminCaller(), model.Gauge{
		SerialNumber:  "SN-1",
		EquipmentType: model.EquipmentThreadGauge,
		Status:        model.StatusAvailable,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateGaugeRejectsACallerWithoutGaugeManage(t *testing.T) {
	core, _, _ := newTestCore(t)
	caller := &model.Caller{UserID: "bob", Permissions: []model.Capability{model.CapabilityGaugeView}}

	_, err := core.CreateGauge(context.Background(), caller, model.Gauge{SerialNumber: "SN-2", EquipmentType: model.EquipmentThreadGauge})
	require.Error(t, err)
	assert.Equal(t, coreerr.PermissionDenied, coreerr.KindOf(err))
}

func TestListGaugesNeverOpensATransaction(t *testing.T) {
	core, mock, gauges := newTestCore(t)
	_, err := gauges.Create(context.Background(), nil, model.Gauge{SerialNumber: "SN-3", EquipmentType: model.EquipmentThreadGauge, Status: model.StatusAvailable})
	require.NoError(t, err)

	list, err := core.ListGauges(context.Background(), adminCaller(), gaugestore.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutGaugeRollsBackOnAnIllegalTransition(t *testing.T) {
	core, mock, gauges := newTestCore(t)
	g, err := gauges.Create(context.Background(), nil, model.Gauge{SerialNumber: "SN-4", EquipmentType: model.EquipmentThreadGauge, Status: model.StatusRetired})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err = core.CheckoutGauge(context.Background(), adminCaller(), g.ID, "")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportAuditRequiresBothAuditViewAndDataExport(t *testing.T) {
	core, _, _ := newTestCore(t)
	auditOnly := &model.Caller{UserID: "carol", Permissions: []model.Capability{model.CapabilityAuditView}}

	_, err := core.ExportAudit(context.Background(), auditOnly, audit.QueryFilter{})
	require.Error(t, err)
	assert.Equal(t, coreerr.PermissionDenied, coreerr.KindOf(err))
}

func TestGetActiveCheckoutResolvesAfterACheckout(t *testing.T) {
	core, mock, gauges := newTestCore(t)
	g, err := gauges.Create(context.Background(), nil, model.Gauge{SerialNumber: "SN-6", EquipmentType: model.EquipmentThreadGauge, Status: model.StatusAvailable})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()
	_, err = core.CheckoutGauge(context.Background(), adminCaller(), g.ID, "field use")
	require.NoError(t, err)

	active, err := core.GetActiveCheckout(context.Background(), adminCaller(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", active.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveCheckoutRequiresGaugeView(t *testing.T) {
	core, _, gauges := newTestCore(t)
	g, err := gauges.Create(context.Background(), nil, model.Gauge{SerialNumber: "SN-7", EquipmentType: model.EquipmentThreadGauge, Status: model.StatusAvailable})
	require.NoError(t, err)

	caller := &model.Caller{UserID: "bob", Permissions: nil}
	_, err = core.GetActiveCheckout(context.Background(), caller, g.ID)
	require.Error(t, err)
	assert.Equal(t, coreerr.PermissionDenied, coreerr.KindOf(err))
}

func TestPairSparesRejectsACallerSpecifiedIDThatIsAlreadyBurned(t *testing.T) {
	core, mock, gauges := newTestCore(t)
	threadSpare := func(serial string) model.Gauge {
		return model.Gauge{
			SerialNumber:  serial,
			EquipmentType: model.EquipmentThreadGauge,
			Status:        model.StatusAvailable,
			Spec:          model.Specification{Thread: &model.ThreadSpecification{ThreadSize: ".250-20", ThreadForm: "UN", ThreadClass: "2A"}},
		}
	}
	goSpare, err := gauges.Create(context.Background(), nil, threadSpare("SN-8"))
	require.NoError(t, err)
	nogoSpare, err := gauges.Create(context.Background(), nil, threadSpare("SN-9"))
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()
	_, _, setID, err := core.PairSpares(context.Background(), adminCaller(), goSpare.ID, nogoSpare.ID, gaugestore.Fields{}, "SP9999")
	require.NoError(t, err)
	assert.Equal(t, "SP9999", setID)

	goSpare2, err := gauges.Create(context.Background(), nil, threadSpare("SN-10"))
	require.NoError(t, err)
	nogoSpare2, err := gauges.Create(context.Background(), nil, threadSpare("SN-11"))
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, _, _, err = core.PairSpares(context.Background(), adminCaller(), goSpare2.ID, nogoSpare2.ID, gaugestore.Fields{}, "SP9999")
	require.Error(t, err)
	assert.Equal(t, coreerr.SetIdReused, coreerr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUploadCertificateMetadataThenListReflectsIt(t *testing.T) {
	core, mock, gauges := newTestCore(t)
	g, err := gauges.Create(context.Background(), nil, model.Gauge{SerialNumber: "SN-5", EquipmentType: model.EquipmentThreadGauge, Status: model.StatusPendingCertificate})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()
	cert, err := core.UploadCertificateMetadata(context.Background(), adminCaller(), g.ID, "cal-report.pdf", nil)
	require.NoError(t, err)
	assert.True(t, cert.IsCurrent)

	certs, err := core.ListCertificates(context.Background(), adminCaller(), g.ID)
	require.NoError(t, err)
	assert.Len(t, certs, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
