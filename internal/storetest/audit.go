package storetest

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/aerocal/gaugecore/internal/audit"
	"github.com/aerocal/gaugecore/internal/model"
)

// AuditStore is an in-memory audit.Store.
type AuditStore struct {
	mu      sync.Mutex
	tip     audit.ChainTip
	entries []model.AuditEntry
	archive []model.AuditEntry
}

// NewAuditStore builds an empty AuditStore.
func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

var _ audit.Store = (*AuditStore)(nil)

func (s *AuditStore) LockChainTip(_ context.Context, _ *sql.Tx) (audit.ChainTip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tip, nil
}

func (s *AuditStore) AdvanceChainTip(_ context.Context, _ *sql.Tx, tip audit.ChainTip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tip = tip
	return nil
}

func (s *AuditStore) Insert(_ context.Context, _ *sql.Tx, entry model.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *AuditStore) Range(_ context.Context, fromSeq, toSeq int64) ([]model.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.AuditEntry
	for _, e := range s.entries {
		if e.Sequence >= fromSeq && e.Sequence <= toSeq {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *AuditStore) Query(_ context.Context, filter audit.QueryFilter) ([]model.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.AuditEntry
	for _, e := range s.entries {
		if filter.EntityType != "" && e.EntityType != filter.EntityType {
			continue
		}
		if filter.EntityID != "" && e.EntityID != filter.EntityID {
			continue
		}
		if filter.ActorID != "" && e.ActorID != filter.ActorID {
			continue
		}
		if filter.From != nil && e.Timestamp.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.Timestamp.After(*filter.To) {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *AuditStore) ArchiveOlderThan(_ context.Context, cutoff time.Time, batchSize int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	moved := 0
	remaining := s.entries[:0:0]
	for _, e := range s.entries {
		if moved < batchSize && e.Timestamp.Before(cutoff) {
			s.archive = append(s.archive, e)
			moved++
			continue
		}
		remaining = append(remaining, e)
	}
	s.entries = remaining
	return moved, nil
}
