package storetest

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/aerocal/gaugecore/internal/certificate"
	"github.com/aerocal/gaugecore/internal/coreerr"
	"github.com/aerocal/gaugecore/internal/model"
	"github.com/google/uuid"
)

// CertificateStore is an in-memory certificate.Store.
type CertificateStore struct {
	mu   sync.Mutex
	rows map[string]model.Certificate
}

// NewCertificateStore builds an empty CertificateStore.
func NewCertificateStore() *CertificateStore {
	return &CertificateStore{rows: make(map[string]model.Certificate)}
}

var _ certificate.Store = (*CertificateStore)(nil)

func (s *CertificateStore) Insert(_ context.Context, _ *sql.Tx, c model.Certificate) (model.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.rows[c.ID] = c
	return c, nil
}

func (s *CertificateStore) FindByID(_ context.Context, _ *sql.Tx, id string) (model.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.rows[id]
	if !ok {
		return model.Certificate{}, coreerr.New(coreerr.NotFound, "certificate not found").WithEntity("certificate")
	}
	return c, nil
}

func (s *CertificateStore) ListByGauge(_ context.Context, _ *sql.Tx, gaugeID int64) ([]model.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Certificate
	for _, c := range s.rows {
		if c.GaugeID == gaugeID && c.DeletedAt == nil {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.Before(out[j].UploadedAt) })
	return out, nil
}

func (s *CertificateStore) CurrentForGauge(_ context.Context, _ *sql.Tx, gaugeID int64) (model.Certificate, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.rows {
		if c.GaugeID == gaugeID && c.IsCurrent && c.DeletedAt == nil {
			return c, true, nil
		}
	}
	return model.Certificate{}, false, nil
}

func (s *CertificateStore) Supersede(_ context.Context, _ *sql.Tx, id string, supersededAt time.Time, supersededBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.rows[id]
	if !ok {
		return coreerr.New(coreerr.NotFound, "certificate not found").WithEntity("certificate")
	}
	c.IsCurrent = false
	c.SupersededAt = &supersededAt
	c.SupersededBy = &supersededBy
	s.rows[id] = c
	return nil
}

func (s *CertificateStore) Rename(_ context.Context, _ *sql.Tx, id string, customName *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.rows[id]
	if !ok {
		return coreerr.New(coreerr.NotFound, "certificate not found").WithEntity("certificate")
	}
	c.CustomName = customName
	s.rows[id] = c
	return nil
}

func (s *CertificateStore) SoftDelete(_ context.Context, _ *sql.Tx, id string, deletedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.rows[id]
	if !ok {
		return coreerr.New(coreerr.NotFound, "certificate not found").WithEntity("certificate")
	}
	c.DeletedAt = &deletedAt
	s.rows[id] = c
	return nil
}
