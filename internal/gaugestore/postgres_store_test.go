package gaugestore_test

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerocal/gaugecore/internal/coreerr"
	"github.com/aerocal/gaugecore/internal/gaugestore"
	"github.com/aerocal/gaugecore/internal/model"
)

func gaugeColumns() []string {
	return []string{
		"id", "gauge_id", "serial_number", "equipment_type", "category_ref", "ownership_type",
		"owner_ref", "status", "is_sealed", "storage_location_ref", "manufacturer", "model",
		"calibration_frequency", "gauge_suffix", "companion_id", "name", "specification",
		"created_at", "updated_at",
	}
}

func TestFindByIDReturnsNotFoundOnNoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, gauge_id, serial_number`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(gaugeColumns()))

	store := gaugestore.NewPostgresStore(db)
	_, err = store.FindByID(context.Background(), nil, 7)
	require.Error(t, err)
	assert.Equal(t, coreerr.NotFound, coreerr.KindOf(err))
}

func TestFindByIDScansASpecAndPairingColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(gaugeColumns()).AddRow(
		int64(1), "123456A", "SN-001", string(model.EquipmentThreadGauge), "cat-1", string(model.OwnershipCompany),
		"owner-1", string(model.StatusAvailable), false, "B12", "", "",
		int(90), "A", nil, "1/4-20 UNC 2A Thread GO Gauge", []byte(`{"thread":{"thread_size":"1/4-20","thread_form":"UNC","thread_class":"2A"}}`),
		now, now,
	)
	mock.ExpectQuery(`SELECT id, gauge_id, serial_number`).WithArgs(int64(1)).WillReturnRows(rows)

	store := gaugestore.NewPostgresStore(db)
	g, err := store.FindByID(context.Background(), nil, 1)
	require.NoError(t, err)
	require.NotNil(t, g.GaugeID)
	assert.Equal(t, "123456A", *g.GaugeID)
	require.NotNil(t, g.Suffix)
	assert.Equal(t, model.SuffixGo, *g.Suffix)
	require.NotNil(t, g.Spec.Thread)
	assert.Equal(t, "1/4-20", g.Spec.Thread.ThreadSize)
	assert.Nil(t, g.CompanionID)
}

func TestCreateWritesTheComputedDisplayNameWithinTheProvidedTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	now := time.Now().UTC()
	mock.ExpectQuery(`INSERT INTO gauges`).WillReturnRows(
		sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(42), now, now),
	)
	mock.ExpectCommit()

	store := gaugestore.NewPostgresStore(db)
	tx, err := db.Begin()
	require.NoError(t, err)

	g := model.Gauge{
		SerialNumber:  "SN-002",
		EquipmentType: model.EquipmentThreadGauge,
		Status:        model.StatusAvailable,
		Spec: model.Specification{
			Thread: &model.ThreadSpecification{ThreadSize: "1/4-20", ThreadForm: "UNC", ThreadClass: "2A"},
		},
	}
	created, err := store.Create(context.Background(), tx, g)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.Equal(t, int64(42), created.ID)
	assert.Equal(t, "S/N SN-002", created.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAppliesEquipmentTypeAndStatusFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM gauges`).
		WithArgs(string(model.EquipmentThreadGauge), string(model.StatusAvailable), "", "", 100, 0).
		WillReturnRows(sqlmock.NewRows(gaugeColumns()))

	store := gaugestore.NewPostgresStore(db)
	_, err = store.List(context.Background(), nil, gaugestore.ListFilter{
		EquipmentType: model.EquipmentThreadGauge,
		Status:        model.StatusAvailable,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockForUpdateOrdersIdsAscendingToAvoidDeadlocks(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(int64(3), int64(9)).WillReturnRows(sqlmock.NewRows(gaugeColumns()))
	mock.ExpectCommit()

	store := gaugestore.NewPostgresStore(db)
	tx, err := db.Begin()
	require.NoError(t, err)

	_, err = store.LockForUpdate(context.Background(), tx, []int64{9, 3})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}
