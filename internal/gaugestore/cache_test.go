package gaugestore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerocal/gaugecore/internal/gaugestore"
	"github.com/aerocal/gaugecore/internal/model"
	"github.com/aerocal/gaugecore/internal/storetest"
)

// A nil *redis.Client leaves CachedStore a passthrough, which is how every
// component under test exercises it without a running Redis instance.

func TestCachedStoreIsAPassthroughWithoutARedisClient(t *testing.T) {
	inner := storetest.NewGaugeStore()
	cached := gaugestore.NewCachedStore(inner, nil, 0, nil)

	created, err := cached.Create(context.Background(), nil, model.Gauge{
		SerialNumber:  "SN-1",
		EquipmentType: model.EquipmentThreadGauge,
		Status:        model.StatusAvailable,
	})
	require.NoError(t, err)

	found, err := cached.FindByID(context.Background(), nil, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
}

func TestCachedStoreUpdateAndSetPairingDoNotPanicWithoutARedisClient(t *testing.T) {
	inner := storetest.NewGaugeStore()
	cached := gaugestore.NewCachedStore(inner, nil, 0, nil)

	created, err := cached.Create(context.Background(), nil, model.Gauge{
		SerialNumber:  "SN-2",
		EquipmentType: model.EquipmentThreadGauge,
		Status:        model.StatusAvailable,
	})
	require.NoError(t, err)

	status := model.StatusCheckedOut
	updated, err := cached.Update(context.Background(), nil, created.ID, gaugestore.Fields{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCheckedOut, updated.Status)

	gaugeID := "SP0002A"
	suffix := model.SuffixGo
	paired, err := cached.SetPairing(context.Background(), nil, created.ID, &gaugeID, &suffix, nil)
	require.NoError(t, err)
	require.NotNil(t, paired.GaugeID)
	assert.Equal(t, gaugeID, *paired.GaugeID)
}

func TestCachedStoreFindSpareThreadGaugesAndFindByPublicIDArePassthroughsWithoutARedisClient(t *testing.T) {
	inner := storetest.NewGaugeStore()
	cached := gaugestore.NewCachedStore(inner, nil, 0, nil)

	created, err := cached.Create(context.Background(), nil, model.Gauge{
		SerialNumber:  "SN-3",
		EquipmentType: model.EquipmentThreadGauge,
		Status:        model.StatusAvailable,
		Spec:          model.Specification{Thread: &model.ThreadSpecification{ThreadSize: ".250-20", ThreadForm: "UN", ThreadClass: "2A"}},
	})
	require.NoError(t, err)

	spares, err := cached.FindSpareThreadGauges(context.Background(), nil, gaugestore.SpareFilter{ThreadSize: ".250-20"})
	require.NoError(t, err)
	require.Len(t, spares, 1)
	assert.Equal(t, created.ID, spares[0].ID)

	gaugeID := "SP0003A"
	suffix := model.SuffixGo
	_, err = cached.SetPairing(context.Background(), nil, created.ID, &gaugeID, &suffix, nil)
	require.NoError(t, err)

	members, err := cached.FindByPublicID(context.Background(), nil, gaugeID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, created.ID, members[0].ID)
}
