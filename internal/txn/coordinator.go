// Package txn implements the Transaction Coordinator: the single helper
// through which every multi-row write passes. A transaction handle is
// always an explicit parameter — no component may discover one from
// ambient context.
package txn

import (
	"context"
	"database/sql"
	"time"

	"github.com/aerocal/gaugecore/internal/coreerr"
	"github.com/aerocal/gaugecore/internal/resilience"
)

// Coordinator wraps a *sql.DB and provides the only sanctioned path to
// opening, passing, and committing/rolling back a transaction.
type Coordinator struct {
	db            *sql.DB
	queryTimeout  time.Duration
	acquireTimeout time.Duration
	retry         resilience.RetryConfig
}

// New builds a Coordinator with the given per-operation timeouts.
func New(db *sql.DB, queryTimeout, acquireTimeout time.Duration) *Coordinator {
	if queryTimeout <= 0 {
		queryTimeout = 15 * time.Second
	}
	if acquireTimeout <= 0 {
		acquireTimeout = 30 * time.Second
	}
	return &Coordinator{
		db:             db,
		queryTimeout:   queryTimeout,
		acquireTimeout: acquireTimeout,
		retry:          resilience.DefaultRetryConfig(),
	}
}

// WithTx begins a transaction, runs fn, and commits on success or rolls
// back on error. Transient errors from fn are retried with backoff; a
// context deadline comes back as a Timeout error wrapping it, and any
// other error surfaces unchanged after rollback. On ctx cancellation
// before commit the transaction is rolled back; after commit, it stands.
func (c *Coordinator) WithTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return resilience.Retry(ctx, c.retry, func() error {
		acquireCtx, cancel := context.WithTimeout(ctx, c.acquireTimeout)
		defer cancel()

		tx, err := c.db.BeginTx(acquireCtx, nil)
		if err != nil {
			return classifyDBError(err)
		}

		queryCtx, cancelQuery := context.WithTimeout(ctx, c.queryTimeout)
		defer cancelQuery()

		if err := fn(queryCtx, tx); err != nil {
			_ = tx.Rollback()
			return classifyDBError(err)
		}

		if err := tx.Commit(); err != nil {
			return classifyDBError(err)
		}
		return nil
	})
}

// classifyDBError maps a raw *sql.DB error to the core's error taxonomy:
// transient conditions (deadlock, lock-wait timeout, connection loss) are
// tagged Transient so Coordinator.WithTx's retry loop picks them up;
// everything else is returned unchanged.
func classifyDBError(err error) error {
	if err == nil {
		return nil
	}
	if err == context.DeadlineExceeded {
		return coreerr.Wrap(coreerr.Timeout, "database operation timed out", err)
	}
	if isTransientDBError(err) {
		return coreerr.Wrap(coreerr.Transient, "transient database error", err)
	}
	return err
}
