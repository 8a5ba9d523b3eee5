package statemachine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerocal/gaugecore/internal/coreerr"
	"github.com/aerocal/gaugecore/internal/model"
	"github.com/aerocal/gaugecore/internal/statemachine"
	"github.com/aerocal/gaugecore/internal/storetest"
)

func seedGauge(t *testing.T, store *storetest.GaugeStore, g model.Gauge) model.Gauge {
	t.Helper()
	created, err := store.Create(context.Background(), nil, g)
	require.NoError(t, err)
	return created
}

func TestTransitionRejectsIllegalMove(t *testing.T) {
	store := storetest.NewGaugeStore()
	g := seedGauge(t, store, model.Gauge{Status: model.StatusRetired})
	m := statemachine.New(store)

	_, err := m.Transition(context.Background(), nil, g.ID, model.StatusAvailable, statemachine.Preconditions{})
	require.Error(t, err)
	assert.Equal(t, coreerr.IllegalTransition, coreerr.KindOf(err))
}

func TestTransitionMovesPairedCohortTogether(t *testing.T) {
	store := storetest.NewGaugeStore()
	goGauge := seedGauge(t, store, model.Gauge{Status: model.StatusAvailable})
	noGoGauge := seedGauge(t, store, model.Gauge{Status: model.StatusAvailable})

	companion := noGoGauge.ID
	_, err := store.SetPairing(context.Background(), nil, goGauge.ID, strPtr("SET-1"), suffixPtr(model.SuffixGo), &companion)
	require.NoError(t, err)
	goID := goGauge.ID
	_, err = store.SetPairing(context.Background(), nil, noGoGauge.ID, strPtr("SET-1"), suffixPtr(model.SuffixNoGo), &goID)
	require.NoError(t, err)

	m := statemachine.New(store)
	moved, err := m.Transition(context.Background(), nil, goGauge.ID, model.StatusOutForCalibration, statemachine.Preconditions{})
	require.NoError(t, err)
	require.Len(t, moved, 2)
	for _, g := range moved {
		assert.Equal(t, model.StatusOutForCalibration, g.Status)
	}
}

func TestTransitionOutOfServiceMovesOnlyTheRequestedGauge(t *testing.T) {
	store := storetest.NewGaugeStore()
	goGauge := seedGauge(t, store, model.Gauge{Status: model.StatusAvailable})
	noGoGauge := seedGauge(t, store, model.Gauge{Status: model.StatusAvailable})
	companion := noGoGauge.ID
	goID := goGauge.ID
	_, err := store.SetPairing(context.Background(), nil, goGauge.ID, strPtr("SET-2"), suffixPtr(model.SuffixGo), &companion)
	require.NoError(t, err)
	_, err = store.SetPairing(context.Background(), nil, noGoGauge.ID, strPtr("SET-2"), suffixPtr(model.SuffixNoGo), &goID)
	require.NoError(t, err)

	m := statemachine.New(store)
	moved, err := m.Transition(context.Background(), nil, goGauge.ID, model.StatusOutOfService, statemachine.Preconditions{})
	require.NoError(t, err)
	require.Len(t, moved, 1)
	assert.Equal(t, goGauge.ID, moved[0].ID)

	companionGauge, err := store.FindByID(context.Background(), nil, noGoGauge.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAvailable, companionGauge.Status)
}

func TestTransitionToPendingReleaseRequiresCurrentCertificate(t *testing.T) {
	store := storetest.NewGaugeStore()
	g := seedGauge(t, store, model.Gauge{Status: model.StatusPendingCertificate})
	m := statemachine.New(store)

	_, err := m.Transition(context.Background(), nil, g.ID, model.StatusPendingRelease, statemachine.Preconditions{HasCurrentCertificate: false})
	require.Error(t, err)
	assert.Equal(t, coreerr.PreconditionFailed, coreerr.KindOf(err))

	_, err = m.Transition(context.Background(), nil, g.ID, model.StatusPendingRelease, statemachine.Preconditions{HasCurrentCertificate: true})
	require.NoError(t, err)
}

func TestTransitionToPendingReleaseWaitsOnCompanionCertificate(t *testing.T) {
	store := storetest.NewGaugeStore()
	goGauge := seedGauge(t, store, model.Gauge{Status: model.StatusPendingCertificate})
	noGoGauge := seedGauge(t, store, model.Gauge{Status: model.StatusOutForCalibration})
	companion := noGoGauge.ID
	goID := goGauge.ID
	_, err := store.SetPairing(context.Background(), nil, goGauge.ID, strPtr("SET-3"), suffixPtr(model.SuffixGo), &companion)
	require.NoError(t, err)
	_, err = store.SetPairing(context.Background(), nil, noGoGauge.ID, strPtr("SET-3"), suffixPtr(model.SuffixNoGo), &goID)
	require.NoError(t, err)

	m := statemachine.New(store)
	_, err = m.Transition(context.Background(), nil, goGauge.ID, model.StatusPendingRelease, statemachine.Preconditions{
		HasCurrentCertificate: true,
	})
	require.Error(t, err)
	assert.Equal(t, coreerr.AwaitingCompanionCertificate, coreerr.KindOf(err))
}

func TestTransitionToAvailableFallsBackToExistingStorageLocation(t *testing.T) {
	store := storetest.NewGaugeStore()
	loc := "B12"
	g := seedGauge(t, store, model.Gauge{Status: model.StatusPendingRelease, StorageLocationRef: &loc})
	m := statemachine.New(store)

	moved, err := m.Transition(context.Background(), nil, g.ID, model.StatusAvailable, statemachine.Preconditions{})
	require.NoError(t, err)
	require.Len(t, moved, 1)
	require.NotNil(t, moved[0].StorageLocationRef)
	assert.Equal(t, "B12", *moved[0].StorageLocationRef)
}

func TestTransitionToAvailableWithoutAnExplicitLocationLeavesTheCompanionsOwnLocationUntouched(t *testing.T) {
	store := storetest.NewGaugeStore()
	goLoc, noGoLoc := "B12", "B99"
	goGauge := seedGauge(t, store, model.Gauge{Status: model.StatusPendingRelease, StorageLocationRef: &goLoc})
	noGoGauge := seedGauge(t, store, model.Gauge{Status: model.StatusPendingRelease, StorageLocationRef: &noGoLoc})
	companion := noGoGauge.ID
	goID := goGauge.ID
	_, err := store.SetPairing(context.Background(), nil, goGauge.ID, strPtr("SET-4"), suffixPtr(model.SuffixGo), &companion)
	require.NoError(t, err)
	_, err = store.SetPairing(context.Background(), nil, noGoGauge.ID, strPtr("SET-4"), suffixPtr(model.SuffixNoGo), &goID)
	require.NoError(t, err)

	m := statemachine.New(store)
	moved, err := m.Transition(context.Background(), nil, goGauge.ID, model.StatusAvailable, statemachine.Preconditions{})
	require.NoError(t, err)
	require.Len(t, moved, 2)

	for _, g := range moved {
		require.NotNil(t, g.StorageLocationRef)
		if g.ID == goGauge.ID {
			assert.Equal(t, "B12", *g.StorageLocationRef)
		} else {
			assert.Equal(t, "B99", *g.StorageLocationRef)
		}
	}
}

func TestTransitionToAvailableWithAnExplicitLocationAppliesItToTheWholeCohort(t *testing.T) {
	store := storetest.NewGaugeStore()
	goLoc, noGoLoc := "B12", "B99"
	goGauge := seedGauge(t, store, model.Gauge{Status: model.StatusPendingRelease, StorageLocationRef: &goLoc})
	noGoGauge := seedGauge(t, store, model.Gauge{Status: model.StatusPendingRelease, StorageLocationRef: &noGoLoc})
	companion := noGoGauge.ID
	goID := goGauge.ID
	_, err := store.SetPairing(context.Background(), nil, goGauge.ID, strPtr("SET-5"), suffixPtr(model.SuffixGo), &companion)
	require.NoError(t, err)
	_, err = store.SetPairing(context.Background(), nil, noGoGauge.ID, strPtr("SET-5"), suffixPtr(model.SuffixNoGo), &goID)
	require.NoError(t, err)

	newLoc := "C01"
	m := statemachine.New(store)
	moved, err := m.Transition(context.Background(), nil, goGauge.ID, model.StatusAvailable, statemachine.Preconditions{StorageLocationRef: &newLoc})
	require.NoError(t, err)
	require.Len(t, moved, 2)
	for _, g := range moved {
		require.NotNil(t, g.StorageLocationRef)
		assert.Equal(t, "C01", *g.StorageLocationRef)
	}
}

func strPtr(s string) *string { return &s }
func suffixPtr(s model.Suffix) *model.Suffix { return &s }
