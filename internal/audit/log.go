// Package audit implements the Audit Log: tamper-evident,
// hash-chained, append-only entries.
package audit

import (
	"bytes"
	"context"
	"database/sql"
	"time"

	"github.com/aerocal/gaugecore/internal/model"
)

// Clock lets tests control "now".
type Clock func() time.Time

// Log is the Audit Log component.
type Log struct {
	store Store
	clock Clock
}

// New builds a Log over store.
func New(store Store) *Log {
	return &Log{store: store, clock: time.Now}
}

// Append writes one audit entry within the caller's transaction: if the
// transaction aborts, the entry is rolled back with it. The hash chain is
// advanced under the chain-tip row lock so concurrent appenders across
// transactions serialize correctly; multiple appends within the same
// transaction are assigned sequential numbers in call order.
func (l *Log) Append(ctx context.Context, tx *sql.Tx, actor, action, entityType, entityID string, before, after []byte, severity model.Severity) (int64, error) {
	tip, err := l.store.LockChainTip(ctx, tx)
	if err != nil {
		return 0, err
	}

	seq := tip.LastSeq + 1
	ts := l.clock().UTC()

	payload := append(append([]byte{}, before...), after...)
	hash, err := computeHash(seq, ts, actor, action, entityType, entityID, payload, tip.LastHash)
	if err != nil {
		return 0, err
	}

	entry := model.AuditEntry{
		Sequence:     seq,
		Timestamp:    ts,
		ActorID:      actor,
		Action:       action,
		EntityType:   entityType,
		EntityID:     entityID,
		Before:       before,
		After:        after,
		PreviousHash: tip.LastHash,
		Hash:         hash,
		Severity:     severity,
	}

	if err := l.store.Insert(ctx, tx, entry); err != nil {
		return 0, err
	}
	if err := l.store.AdvanceChainTip(ctx, tx, ChainTip{LastSeq: seq, LastHash: hash}); err != nil {
		return 0, err
	}
	return seq, nil
}

// VerifyResult is the outcome of Verify.
type VerifyResult struct {
	Valid        bool
	FirstInvalid *int64
}

// Verify recomputes the hash chain across [fromSeq, toSeq] and reports the
// first mismatch.
func (l *Log) Verify(ctx context.Context, fromSeq, toSeq int64) (VerifyResult, error) {
	entries, err := l.store.Range(ctx, fromSeq, toSeq)
	if err != nil {
		return VerifyResult{}, err
	}

	for i, e := range entries {
		var prevHash []byte
		if i > 0 {
			prevHash = entries[i-1].Hash
		} else {
			prevHash = e.PreviousHash
		}
		if !bytes.Equal(prevHash, e.PreviousHash) {
			seq := e.Sequence
			return VerifyResult{Valid: false, FirstInvalid: &seq}, nil
		}

		payload := append(append([]byte{}, e.Before...), e.After...)
		wantHash, err := computeHash(e.Sequence, e.Timestamp, e.ActorID, e.Action, e.EntityType, e.EntityID, payload, e.PreviousHash)
		if err != nil {
			return VerifyResult{}, err
		}
		if !bytes.Equal(wantHash, e.Hash) {
			seq := e.Sequence
			return VerifyResult{Valid: false, FirstInvalid: &seq}, nil
		}
	}
	return VerifyResult{Valid: true}, nil
}

// Export streams entries matching filter.
func (l *Log) Export(ctx context.Context, filter QueryFilter) ([]model.AuditEntry, error) {
	return l.store.Query(ctx, filter)
}

// EntryView is an audit entry alongside a rendered diff summary, for
// callers presenting the log to a human rather than consuming it as raw
// before/after payloads.
type EntryView struct {
	model.AuditEntry
	Summary string
}

// QueryWithSummaries is Export plus a human-readable per-entry diff
// summary, for a caller rendering the entity's history rather than
// re-parsing payloads itself.
func (l *Log) QueryWithSummaries(ctx context.Context, filter QueryFilter) ([]EntryView, error) {
	entries, err := l.store.Query(ctx, filter)
	if err != nil {
		return nil, err
	}
	views := make([]EntryView, len(entries))
	for i, e := range entries {
		views[i] = EntryView{AuditEntry: e, Summary: DiffSummary(e.Before, e.After)}
	}
	return views, nil
}
