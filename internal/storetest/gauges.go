// Package storetest provides in-memory implementations of every component's
// Store interface, safe for concurrent use, for use in unit tests in place
// of a real Postgres connection.
package storetest

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/aerocal/gaugecore/internal/coreerr"
	"github.com/aerocal/gaugecore/internal/gaugestore"
	"github.com/aerocal/gaugecore/internal/model"
)

// GaugeStore is an in-memory gaugestore.Store.
type GaugeStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]model.Gauge
}

// NewGaugeStore builds an empty GaugeStore.
func NewGaugeStore() *GaugeStore {
	return &GaugeStore{rows: make(map[int64]model.Gauge)}
}

var _ gaugestore.Store = (*GaugeStore)(nil)

func (s *GaugeStore) Create(_ context.Context, _ *sql.Tx, g model.Gauge) (model.Gauge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	g.ID = s.nextID
	s.rows[g.ID] = g
	return g, nil
}

func (s *GaugeStore) FindByID(_ context.Context, _ *sql.Tx, id int64) (model.Gauge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.rows[id]
	if !ok {
		return model.Gauge{}, coreerr.New(coreerr.NotFound, "gauge not found").WithEntity("gauge")
	}
	return g, nil
}

func (s *GaugeStore) FindBySerial(_ context.Context, _ *sql.Tx, equipmentType model.EquipmentType, serial string) (model.Gauge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.rows {
		if g.EquipmentType == equipmentType && g.SerialNumber == serial && g.Status != model.StatusRetired {
			return g, nil
		}
	}
	return model.Gauge{}, coreerr.New(coreerr.NotFound, "gauge not found").WithEntity("gauge")
}

func (s *GaugeStore) FindSpareThreadGauges(_ context.Context, _ *sql.Tx, filter gaugestore.SpareFilter) ([]model.Gauge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Gauge
	for _, g := range s.rows {
		if !g.IsSpareThreadGauge() || g.Spec.Thread == nil {
			continue
		}
		t := g.Spec.Thread
		if filter.ThreadSize != "" && t.ThreadSize != filter.ThreadSize {
			continue
		}
		if filter.ThreadForm != "" && t.ThreadForm != filter.ThreadForm {
			continue
		}
		if filter.ThreadClass != "" && t.ThreadClass != filter.ThreadClass {
			continue
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *GaugeStore) FindByPublicID(_ context.Context, _ *sql.Tx, gaugeID string) ([]model.Gauge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Gauge
	for _, g := range s.rows {
		if g.GaugeID != nil && *g.GaugeID == gaugeID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *GaugeStore) List(_ context.Context, _ *sql.Tx, filter gaugestore.ListFilter) ([]model.Gauge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Gauge
	for _, g := range s.rows {
		if filter.EquipmentType != "" && g.EquipmentType != filter.EquipmentType {
			continue
		}
		if filter.Status != "" && g.Status != filter.Status {
			continue
		}
		if filter.OwnershipType != "" && g.OwnershipType != filter.OwnershipType {
			continue
		}
		if filter.CategoryRef != "" && g.CategoryRef != filter.CategoryRef {
			continue
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if filter.Offset >= len(out) {
		return nil, nil
	}
	end := filter.Offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[filter.Offset:end], nil
}

func (s *GaugeStore) Update(_ context.Context, _ *sql.Tx, id int64, patch gaugestore.Fields) (model.Gauge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.rows[id]
	if !ok {
		return model.Gauge{}, coreerr.New(coreerr.NotFound, "gauge not found").WithEntity("gauge")
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
	s.rows[id] = g
	return g, nil
}

func (s *GaugeStore) LockForUpdate(_ context.Context, _ *sql.Tx, ids []int64) ([]model.Gauge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sorted := append([]int64{}, ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	out := make([]model.Gauge, 0, len(sorted))
	for _, id := range sorted {
		g, ok := s.rows[id]
		if !ok {
			return nil, coreerr.New(coreerr.NotFound, "gauge not found").WithEntity("gauge")
		}
		out = append(out, g)
	}
	return out, nil
}

func (s *GaugeStore) SetPairing(_ context.Context, _ *sql.Tx, id int64, gaugeID *string, suffix *model.Suffix, companionID *int64) (model.Gauge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.rows[id]
	if !ok {
		return model.Gauge{}, coreerr.New(coreerr.NotFound, "gauge not found").WithEntity("gauge")
	}
	g.GaugeID = gaugeID
	g.Suffix = suffix
	g.CompanionID = companionID
	s.rows[id] = g
	return g, nil
}
