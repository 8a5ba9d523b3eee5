package checkout_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerocal/gaugecore/internal/audit"
	"github.com/aerocal/gaugecore/internal/checkout"
	"github.com/aerocal/gaugecore/internal/coreerr"
	"github.com/aerocal/gaugecore/internal/eventbus"
	"github.com/aerocal/gaugecore/internal/model"
	"github.com/aerocal/gaugecore/internal/statemachine"
	"github.com/aerocal/gaugecore/internal/storetest"
)

func newTestManager(t *testing.T, inspect checkout.PostUseInspectionPolicy) (*checkout.Manager, *storetest.GaugeStore) {
	t.Helper()
	gauges := storetest.NewGaugeStore()
	machine := statemachine.New(gauges)
	auditLog := audit.New(storetest.NewAuditStore())
	bus := eventbus.New(nil, nil)
	return checkout.New(storetest.NewCheckoutStore(), gauges, machine, auditLog, bus, inspect), gauges
}

func TestCheckoutThenReturnRoundTrips(t *testing.T) {
	m, gauges := newTestManager(t, nil)
	g, err := gauges.Create(context.Background(), nil, model.Gauge{Status: model.StatusAvailable})
	require.NoError(t, err)

	checkedOut, err := m.Checkout(context.Background(), nil, g.ID, "alice", "field use")
	require.NoError(t, err)
	require.Len(t, checkedOut, 1)
	assert.Equal(t, "alice", checkedOut[0].UserID)

	returned, err := m.Return(context.Background(), nil, g.ID, "alice", "")
	require.NoError(t, err)
	require.Len(t, returned, 1)
	assert.Equal(t, model.StatusAvailable, returned[0].Status)
}

func TestCheckoutBySameUserIsIdempotent(t *testing.T) {
	m, gauges := newTestManager(t, nil)
	g, err := gauges.Create(context.Background(), nil, model.Gauge{Status: model.StatusAvailable})
	require.NoError(t, err)

	first, err := m.Checkout(context.Background(), nil, g.ID, "alice", "note")
	require.NoError(t, err)
	second, err := m.Checkout(context.Background(), nil, g.ID, "alice", "note")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCheckoutByAnotherUserConflicts(t *testing.T) {
	m, gauges := newTestManager(t, nil)
	g, err := gauges.Create(context.Background(), nil, model.Gauge{Status: model.StatusAvailable})
	require.NoError(t, err)

	_, err = m.Checkout(context.Background(), nil, g.ID, "alice", "")
	require.NoError(t, err)

	_, err = m.Checkout(context.Background(), nil, g.ID, "bob", "")
	require.Error(t, err)
	assert.Equal(t, coreerr.AlreadyCheckedOut, coreerr.KindOf(err))
}

func TestCheckoutRejectsEmployeeOwnedGaugeHeldByAnotherEmployee(t *testing.T) {
	m, gauges := newTestManager(t, nil)
	g, err := gauges.Create(context.Background(), nil, model.Gauge{
		Status:        model.StatusAvailable,
		OwnershipType: model.OwnershipEmployee,
		OwnerRef:      "alice",
	})
	require.NoError(t, err)

	_, err = m.Checkout(context.Background(), nil, g.ID, "bob", "")
	require.Error(t, err)
	assert.Equal(t, coreerr.PreconditionFailed, coreerr.KindOf(err))
}

func TestReturnRoutesThroughPendingQCWhenInspectionRequired(t *testing.T) {
	inspect := func(t model.EquipmentType) bool { return t == model.EquipmentCalibrationStandard }
	m, gauges := newTestManager(t, inspect)
	g, err := gauges.Create(context.Background(), nil, model.Gauge{
		Status:        model.StatusAvailable,
		EquipmentType: model.EquipmentCalibrationStandard,
	})
	require.NoError(t, err)

	_, err = m.Checkout(context.Background(), nil, g.ID, "alice", "")
	require.NoError(t, err)

	returned, err := m.Return(context.Background(), nil, g.ID, "alice", "")
	require.NoError(t, err)
	require.Len(t, returned, 1)
	assert.Equal(t, model.StatusPendingQC, returned[0].Status)
}

func TestGetReturnsTheActiveCheckout(t *testing.T) {
	m, gauges := newTestManager(t, nil)
	g, err := gauges.Create(context.Background(), nil, model.Gauge{Status: model.StatusAvailable})
	require.NoError(t, err)

	_, err = m.Checkout(context.Background(), nil, g.ID, "alice", "field use")
	require.NoError(t, err)

	active, err := m.Get(context.Background(), nil, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", active.UserID)
}

func TestGetOnAGaugeThatIsNotCheckedOutReportsNotFound(t *testing.T) {
	m, gauges := newTestManager(t, nil)
	g, err := gauges.Create(context.Background(), nil, model.Gauge{Status: model.StatusAvailable})
	require.NoError(t, err)

	_, err = m.Get(context.Background(), nil, g.ID)
	require.Error(t, err)
	assert.Equal(t, coreerr.NotFound, coreerr.KindOf(err))
}

func TestTransferChangesHolderWithoutChangingStatus(t *testing.T) {
	m, gauges := newTestManager(t, nil)
	g, err := gauges.Create(context.Background(), nil, model.Gauge{Status: model.StatusAvailable})
	require.NoError(t, err)

	_, err = m.Checkout(context.Background(), nil, g.ID, "alice", "")
	require.NoError(t, err)

	err = m.Transfer(context.Background(), nil, g.ID, "bob", "alice", "handoff")
	require.NoError(t, err)

	after, err := gauges.FindByID(context.Background(), nil, g.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCheckedOut, after.Status)
}
