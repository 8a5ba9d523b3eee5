package storetest

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/aerocal/gaugecore/internal/batch"
	"github.com/aerocal/gaugecore/internal/coreerr"
	"github.com/aerocal/gaugecore/internal/model"
	"github.com/google/uuid"
)

// BatchStore is an in-memory batch.Store.
type BatchStore struct {
	mu       sync.Mutex
	rows     map[string]model.CalibrationBatch
	received map[string]map[int64]bool
}

// NewBatchStore builds an empty BatchStore.
func NewBatchStore() *BatchStore {
	return &BatchStore{
		rows:     make(map[string]model.CalibrationBatch),
		received: make(map[string]map[int64]bool),
	}
}

var _ batch.Store = (*BatchStore)(nil)

func (s *BatchStore) Create(_ context.Context, _ *sql.Tx, b model.CalibrationBatch) (model.CalibrationBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	s.rows[b.ID] = b
	s.received[b.ID] = make(map[int64]bool)
	return b, nil
}

func (s *BatchStore) FindByID(_ context.Context, _ *sql.Tx, id string) (model.CalibrationBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.rows[id]
	if !ok {
		return model.CalibrationBatch{}, coreerr.New(coreerr.NotFound, "batch not found").WithEntity("calibration_batch")
	}
	return b, nil
}

func (s *BatchStore) UpdateStatus(_ context.Context, _ *sql.Tx, id string, status model.BatchStatus, sentAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.rows[id]
	if !ok {
		return coreerr.New(coreerr.NotFound, "batch not found").WithEntity("calibration_batch")
	}
	b.Status = status
	if sentAt != nil {
		b.SentAt = sentAt
	}
	s.rows[id] = b
	return nil
}

func (s *BatchStore) AddMember(_ context.Context, _ *sql.Tx, batchID string, gaugeID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.rows[batchID]
	if !ok {
		return coreerr.New(coreerr.NotFound, "batch not found").WithEntity("calibration_batch")
	}
	b.GaugeIDs = append(b.GaugeIDs, gaugeID)
	s.rows[batchID] = b
	return nil
}

func (s *BatchStore) RemoveMember(_ context.Context, _ *sql.Tx, batchID string, gaugeID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.rows[batchID]
	if !ok {
		return coreerr.New(coreerr.NotFound, "batch not found").WithEntity("calibration_batch")
	}
	out := b.GaugeIDs[:0:0]
	for _, id := range b.GaugeIDs {
		if id != gaugeID {
			out = append(out, id)
		}
	}
	b.GaugeIDs = out
	s.rows[batchID] = b
	return nil
}

func (s *BatchStore) Members(_ context.Context, _ *sql.Tx, batchID string) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.rows[batchID]
	if !ok {
		return nil, coreerr.New(coreerr.NotFound, "batch not found").WithEntity("calibration_batch")
	}
	return append([]int64{}, b.GaugeIDs...), nil
}

func (s *BatchStore) ActiveBatchFor(_ context.Context, _ *sql.Tx, gaugeID int64) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range s.rows {
		if b.Status == model.BatchCompleted || b.Status == model.BatchCancelled {
			continue
		}
		for _, member := range b.GaugeIDs {
			if member == gaugeID {
				return id, true, nil
			}
		}
	}
	return "", false, nil
}

func (s *BatchStore) MarkReceived(_ context.Context, _ *sql.Tx, batchID string, gaugeID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[batchID]; !ok {
		return coreerr.New(coreerr.NotFound, "batch not found").WithEntity("calibration_batch")
	}
	if s.received[batchID] == nil {
		s.received[batchID] = make(map[int64]bool)
	}
	s.received[batchID][gaugeID] = true
	return nil
}

func (s *BatchStore) ReceivedCount(_ context.Context, _ *sql.Tx, batchID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.received[batchID]), nil
}
