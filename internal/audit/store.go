package audit

import (
	"context"
	"database/sql"
	"time"

	"github.com/aerocal/gaugecore/internal/model"
)

// ChainTip is the row-locked marker the append path serializes on.
type ChainTip struct {
	LastSeq  int64
	LastHash []byte
}

// QueryFilter narrows an audit export/query.
type QueryFilter struct {
	EntityType   string
	EntityID     string
	ActorID      string
	From         *time.Time
	To           *time.Time
	JSONPath     string // optional JSONPath expression matched against payload
	Limit        int
}

// Store is the audit log's persistence contract.
type Store interface {
	// LockChainTip row-locks and returns the current chain tip within tx,
	// serializing concurrent appenders.
	LockChainTip(ctx context.Context, tx *sql.Tx) (ChainTip, error)

	// AdvanceChainTip updates the chain tip to the newly appended entry.
	AdvanceChainTip(ctx context.Context, tx *sql.Tx, tip ChainTip) error

	// Insert writes one audit entry within tx.
	Insert(ctx context.Context, tx *sql.Tx, entry model.AuditEntry) error

	// Range returns entries with sequence in [fromSeq, toSeq] ordered by
	// sequence ascending.
	Range(ctx context.Context, fromSeq, toSeq int64) ([]model.AuditEntry, error)

	// Query returns entries matching filter.
	Query(ctx context.Context, filter QueryFilter) ([]model.AuditEntry, error)

	// ArchiveOlderThan moves up to batchSize entries older than cutoff into
	// the archive store, returning the count archived.
	ArchiveOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int, error)
}
