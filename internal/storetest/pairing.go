package storetest

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/aerocal/gaugecore/internal/model"
	"github.com/aerocal/gaugecore/internal/pairing"
)

// SIHStore is an in-memory pairing.SIHStore.
type SIHStore struct {
	mu      sync.Mutex
	nextSeq int64
	rows    map[string]model.SetIDHistoryEntry
}

// NewSIHStore builds an empty SIHStore.
func NewSIHStore() *SIHStore {
	return &SIHStore{rows: make(map[string]model.SetIDHistoryEntry)}
}

var _ pairing.SIHStore = (*SIHStore)(nil)

func (s *SIHStore) NextSequenceValue(_ context.Context, _ *sql.Tx) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	return s.nextSeq, nil
}

func (s *SIHStore) Lock(_ context.Context, _ *sql.Tx, setID string) (model.SetIDHistoryEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rows[setID]
	return e, ok, nil
}

func (s *SIHStore) Insert(_ context.Context, _ *sql.Tx, entry model.SetIDHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[entry.SetID] = entry
	return nil
}

func (s *SIHStore) Retire(_ context.Context, _ *sql.Tx, setID string, retiredAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rows[setID]
	if !ok {
		return nil
	}
	e.RetiredAt = &retiredAt
	s.rows[setID] = e
	return nil
}
