package gaugestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aerocal/gaugecore/internal/coreerr"
	"github.com/aerocal/gaugecore/internal/dbutil"
	"github.com/aerocal/gaugecore/internal/model"
)

// PostgresStore implements Store using Postgres. Specifications are stored
// as a single JSON column since exactly one of the four variants is
// populated per row and the set of variants is closed and small; a
// per-equipment-type table join would buy normalization at the cost of a
// four-way outer join on every read.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an existing *sql.DB.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, tx *sql.Tx, g model.Gauge) (model.Gauge, error) {
	var companion *model.Gauge
	if g.CompanionID != nil {
		found, err := s.FindByID(ctx, tx, *g.CompanionID)
		if err != nil {
			return model.Gauge{}, err
		}
		companion = &found
	}
	if err := validateInvariants(&g, companion); err != nil {
		return model.Gauge{}, err
	}

	specJSON, err := json.Marshal(g.Spec)
	if err != nil {
		return model.Gauge{}, err
	}

	g.Name = displayName(&g)

	row := tx.QueryRowContext(ctx, `
		INSERT INTO gauges (
			gauge_id, serial_number, equipment_type, category_ref, ownership_type,
			owner_ref, status, is_sealed, storage_location_ref, manufacturer, model,
			calibration_frequency, gauge_suffix, companion_id, name, specification,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16,
			now(), now()
		)
		RETURNING id, created_at, updated_at
	`,
		dbutil.ToNullString(dbutil.FromPtrString(g.GaugeID)), g.SerialNumber, g.EquipmentType, g.CategoryRef, g.OwnershipType,
		g.OwnerRef, g.Status, g.IsSealed, dbutil.ToNullString(dbutil.FromPtrString(g.StorageLocationRef)), g.Manufacturer, g.Model,
		g.CalibrationFrequency, dbutil.ToNullString(suffixString(g.Suffix)), dbutil.ToNullInt64(dbutil.FromPtrInt64(g.CompanionID)), g.Name, specJSON,
	)
	if err := row.Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return model.Gauge{}, classifyErr(err)
	}
	return g, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, tx *sql.Tx, id int64) (model.Gauge, error) {
	row := s.queryRow(ctx, tx, `
		SELECT id, gauge_id, serial_number, equipment_type, category_ref, ownership_type,
		       owner_ref, status, is_sealed, storage_location_ref, manufacturer, model,
		       calibration_frequency, gauge_suffix, companion_id, name, specification,
		       created_at, updated_at
		FROM gauges WHERE id = $1
	`, id)
	return scanGauge(row)
}

func (s *PostgresStore) FindBySerial(ctx context.Context, tx *sql.Tx, equipmentType model.EquipmentType, serial string) (model.Gauge, error) {
	row := s.queryRow(ctx, tx, `
		SELECT id, gauge_id, serial_number, equipment_type, category_ref, ownership_type,
		       owner_ref, status, is_sealed, storage_location_ref, manufacturer, model,
		       calibration_frequency, gauge_suffix, companion_id, name, specification,
		       created_at, updated_at
		FROM gauges WHERE equipment_type = $1 AND serial_number = $2
	`, equipmentType, serial)
	return scanGauge(row)
}

func (s *PostgresStore) FindSpareThreadGauges(ctx context.Context, tx *sql.Tx, filter SpareFilter) ([]model.Gauge, error) {
	rows, err := s.query(ctx, tx, `
		SELECT id, gauge_id, serial_number, equipment_type, category_ref, ownership_type,
		       owner_ref, status, is_sealed, storage_location_ref, manufacturer, model,
		       calibration_frequency, gauge_suffix, companion_id, name, specification,
		       created_at, updated_at
		FROM gauges
		WHERE equipment_type = $1 AND gauge_id IS NULL AND status = $2
		  AND ($3 = '' OR specification->'thread'->>'thread_size' = $3)
		  AND ($4 = '' OR specification->'thread'->>'thread_form' = $4)
		  AND ($5 = '' OR specification->'thread'->>'thread_class' = $5)
		ORDER BY id ASC
	`, model.EquipmentThreadGauge, model.StatusAvailable, filter.ThreadSize, filter.ThreadForm, filter.ThreadClass)
	if err != nil {
		return nil, classifyErr(err)
	}
	defer rows.Close()
	return scanGauges(rows)
}

func (s *PostgresStore) FindByPublicID(ctx context.Context, tx *sql.Tx, gaugeID string) ([]model.Gauge, error) {
	rows, err := s.query(ctx, tx, `
		SELECT id, gauge_id, serial_number, equipment_type, category_ref, ownership_type,
		       owner_ref, status, is_sealed, storage_location_ref, manufacturer, model,
		       calibration_frequency, gauge_suffix, companion_id, name, specification,
		       created_at, updated_at
		FROM gauges WHERE gauge_id = $1
		ORDER BY gauge_suffix ASC
	`, gaugeID)
	if err != nil {
		return nil, classifyErr(err)
	}
	defer rows.Close()
	return scanGauges(rows)
}

func (s *PostgresStore) List(ctx context.Context, tx *sql.Tx, filter ListFilter) ([]model.Gauge, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.query(ctx, tx, `
		SELECT id, gauge_id, serial_number, equipment_type, category_ref, ownership_type,
		       owner_ref, status, is_sealed, storage_location_ref, manufacturer, model,
		       calibration_frequency, gauge_suffix, companion_id, name, specification,
		       created_at, updated_at
		FROM gauges
		WHERE ($1 = '' OR equipment_type = $1)
		  AND ($2 = '' OR status = $2)
		  AND ($3 = '' OR ownership_type = $3)
		  AND ($4 = '' OR category_ref = $4)
		ORDER BY id ASC
		LIMIT $5 OFFSET $6
	`, string(filter.EquipmentType), string(filter.Status), string(filter.OwnershipType), filter.CategoryRef, limit, filter.Offset)
	if err != nil {
		return nil, classifyErr(err)
	}
	defer rows.Close()
	return scanGauges(rows)
}

func (s *PostgresStore) Update(ctx context.Context, tx *sql.Tx, id int64, patch Fields) (model.Gauge, error) {
	g, err := s.FindByID(ctx, tx, id)
	if err != nil {
		return model.Gauge{}, err
	}

	if patch.CategoryRef != nil {
		g.CategoryRef = *patch.CategoryRef
	}
	if patch.OwnershipType != nil {
		g.OwnershipType = *patch.OwnershipType
	}
	if patch.OwnerRef != nil {
		g.OwnerRef = *patch.OwnerRef
	}
	if patch.Status != nil {
		g.Status = *patch.Status
	}
	if patch.IsSealed != nil {
		g.IsSealed = *patch.IsSealed
	}
	if patch.StorageLocationRef != nil {
		g.StorageLocationRef = patch.StorageLocationRef
	}
	if patch.Manufacturer != nil {
		g.Manufacturer = *patch.Manufacturer
	}
	if patch.Model != nil {
		g.Model = *patch.Model
	}
	if patch.CalibrationFrequency != nil {
		g.CalibrationFrequency = *patch.CalibrationFrequency
	}
	if patch.Spec != nil {
		g.Spec = *patch.Spec
	}
	g.Name = displayName(&g)

	specJSON, err := json.Marshal(g.Spec)
	if err != nil {
		return model.Gauge{}, err
	}

	row := tx.QueryRowContext(ctx, `
		UPDATE gauges SET
			category_ref = $2, ownership_type = $3, owner_ref = $4, status = $5,
			is_sealed = $6, storage_location_ref = $7, manufacturer = $8, model = $9,
			calibration_frequency = $10, name = $11, specification = $12, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, g.ID, g.CategoryRef, g.OwnershipType, g.OwnerRef, g.Status,
		g.IsSealed, dbutil.ToNullString(dbutil.FromPtrString(g.StorageLocationRef)), g.Manufacturer, g.Model,
		g.CalibrationFrequency, g.Name, specJSON)
	if err := row.Scan(&g.UpdatedAt); err != nil {
		return model.Gauge{}, classifyErr(err)
	}
	return g, nil
}

func (s *PostgresStore) SetPairing(ctx context.Context, tx *sql.Tx, id int64, gaugeID *string, suffix *model.Suffix, companionID *int64) (model.Gauge, error) {
	row := tx.QueryRowContext(ctx, `
		UPDATE gauges SET gauge_id = $2, gauge_suffix = $3, companion_id = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, id, dbutil.ToNullString(dbutil.FromPtrString(gaugeID)), dbutil.ToNullString(suffixString(suffix)), dbutil.ToNullInt64(dbutil.FromPtrInt64(companionID)))
	var updatedAt sql.NullTime
	if err := row.Scan(&updatedAt); err != nil {
		return model.Gauge{}, classifyErr(err)
	}
	g, err := s.FindByID(ctx, tx, id)
	if err != nil {
		return model.Gauge{}, err
	}
	g.Name = displayName(&g)
	if _, err := tx.ExecContext(ctx, `UPDATE gauges SET name = $2 WHERE id = $1`, id, g.Name); err != nil {
		return model.Gauge{}, classifyErr(err)
	}
	return g, nil
}

func (s *PostgresStore) LockForUpdate(ctx context.Context, tx *sql.Tx, ids []int64) ([]model.Gauge, error) {
	ordered := append([]int64{}, ids...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	placeholders := make([]string, len(ordered))
	args := make([]any, len(ordered))
	for i, id := range ordered {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT id, gauge_id, serial_number, equipment_type, category_ref, ownership_type,
		       owner_ref, status, is_sealed, storage_location_ref, manufacturer, model,
		       calibration_frequency, gauge_suffix, companion_id, name, specification,
		       created_at, updated_at
		FROM gauges WHERE id IN (%s)
		ORDER BY id ASC
		FOR UPDATE
	`, strings.Join(placeholders, ", "))

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifyErr(err)
	}
	defer rows.Close()
	return scanGauges(rows)
}

func (s *PostgresStore) queryRow(ctx context.Context, tx *sql.Tx, query string, args ...any) dbutil.RowScanner {
	if tx != nil {
		return tx.QueryRowContext(ctx, query, args...)
	}
	return s.db.QueryRowContext(ctx, query, args...)
}

func (s *PostgresStore) query(ctx context.Context, tx *sql.Tx, query string, args ...any) (*sql.Rows, error) {
	if tx != nil {
		return tx.QueryContext(ctx, query, args...)
	}
	return s.db.QueryContext(ctx, query, args...)
}

func scanGauges(rows *sql.Rows) ([]model.Gauge, error) {
	var out []model.Gauge
	for rows.Next() {
		g, err := scanGauge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, classifyErr(rows.Err())
}

func scanGauge(scanner dbutil.RowScanner) (model.Gauge, error) {
	var (
		g              model.Gauge
		gaugeID        sql.NullString
		storageLoc     sql.NullString
		suffix         sql.NullString
		companionID    sql.NullInt64
		specJSON       []byte
	)
	if err := scanner.Scan(
		&g.ID, &gaugeID, &g.SerialNumber, &g.EquipmentType, &g.CategoryRef, &g.OwnershipType,
		&g.OwnerRef, &g.Status, &g.IsSealed, &storageLoc, &g.Manufacturer, &g.Model,
		&g.CalibrationFrequency, &suffix, &companionID, &g.Name, &specJSON,
		&g.CreatedAt, &g.UpdatedAt,
	); err != nil {
		return model.Gauge{}, classifyErr(err)
	}

	g.GaugeID = dbutil.PtrString(gaugeID)
	g.StorageLocationRef = dbutil.PtrString(storageLoc)
	g.CompanionID = dbutil.PtrInt64(companionID)
	g.CreatedAt = g.CreatedAt.UTC()
	g.UpdatedAt = g.UpdatedAt.UTC()

	if suffix.Valid {
		s := model.Suffix(suffix.String)
		g.Suffix = &s
	}
	if len(specJSON) > 0 {
		if err := json.Unmarshal(specJSON, &g.Spec); err != nil {
			return model.Gauge{}, err
		}
	}
	return g, nil
}

func suffixString(s *model.Suffix) string {
	if s == nil {
		return ""
	}
	return string(*s)
}

func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return coreerr.New(coreerr.NotFound, "gauge not found")
	}
	return err
}
