package audit

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerocal/gaugecore/internal/logging"
	"github.com/aerocal/gaugecore/internal/model"
)

func TestNewArchiverRejectsAMalformedSchedule(t *testing.T) {
	log := New(nil)
	_, err := NewArchiver(log, "not a cron expression", time.Hour, 100, logging.NewDefault("test"))
	require.Error(t, err)
}

func TestArchiverRunOnceDrainsInBatchesUntilExhausted(t *testing.T) {
	store := &countingStore{remaining: 5}
	log := New(store)
	a := &Archiver{log: log, retention: 0, batchSize: 2, logger: logging.NewDefault("test").WithField("component", "test")}

	a.runOnce()
	assert.Equal(t, 5, store.archivedTotal)
}

// countingStore is a minimal Store double that hands out archivable
// entries in fixed-size batches, used only to exercise the archiver's
// drain-until-exhausted loop.
type countingStore struct {
	remaining     int
	archivedTotal int
}

func (s *countingStore) LockChainTip(context.Context, *sql.Tx) (ChainTip, error)      { return ChainTip{}, nil }
func (s *countingStore) AdvanceChainTip(context.Context, *sql.Tx, ChainTip) error     { return nil }
func (s *countingStore) Insert(context.Context, *sql.Tx, model.AuditEntry) error      { return nil }
func (s *countingStore) Range(context.Context, int64, int64) ([]model.AuditEntry, error) {
	return nil, nil
}
func (s *countingStore) Query(context.Context, QueryFilter) ([]model.AuditEntry, error) {
	return nil, nil
}
func (s *countingStore) ArchiveOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int, error) {
	n := batchSize
	if n > s.remaining {
		n = s.remaining
	}
	s.remaining -= n
	s.archivedTotal += n
	return n, nil
}

var _ Store = (*countingStore)(nil)
