package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/aerocal/gaugecore/internal/coreerr"
	"github.com/aerocal/gaugecore/internal/model"
)

// PostgresStore implements Store using Postgres. Range and Query read
// through sqlx (QueryxContext with positional $n parameters, scanned
// column by column); the other methods use the database/sql API that the
// gauge/certificate stores also use.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an existing *sql.DB with sqlx.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: sqlx.NewDb(db, "postgres")}
}

func (s *PostgresStore) LockChainTip(ctx context.Context, tx *sql.Tx) (ChainTip, error) {
	var tip ChainTip
	row := tx.QueryRowContext(ctx, `
		SELECT last_seq, last_hash FROM audit_chain_tip WHERE id = 1 FOR UPDATE
	`)
	if err := row.Scan(&tip.LastSeq, &tip.LastHash); err != nil {
		if err == sql.ErrNoRows {
			return ChainTip{}, nil
		}
		return ChainTip{}, classifyErr(err)
	}
	return tip, nil
}

func (s *PostgresStore) AdvanceChainTip(ctx context.Context, tx *sql.Tx, tip ChainTip) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO audit_chain_tip (id, last_seq, last_hash)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET last_seq = $1, last_hash = $2
	`, tip.LastSeq, tip.LastHash)
	return classifyErr(err)
}

func (s *PostgresStore) Insert(ctx context.Context, tx *sql.Tx, entry model.AuditEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO audit_entries (
			sequence, ts, actor_id, action, entity_type, entity_id,
			before_payload, after_payload, previous_hash, hash, severity
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, entry.Sequence, entry.Timestamp, entry.ActorID, entry.Action, entry.EntityType, entry.EntityID,
		entry.Before, entry.After, entry.PreviousHash, entry.Hash, entry.Severity)
	return classifyErr(err)
}

func (s *PostgresStore) Range(ctx context.Context, fromSeq, toSeq int64) ([]model.AuditEntry, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT sequence, ts, actor_id, action, entity_type, entity_id,
		       before_payload, after_payload, previous_hash, hash, severity
		FROM audit_entries
		WHERE sequence BETWEEN $1 AND $2
		ORDER BY sequence ASC
	`, fromSeq, toSeq)
	if err != nil {
		return nil, classifyErr(err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *PostgresStore) Query(ctx context.Context, filter QueryFilter) ([]model.AuditEntry, error) {
	query := `
		SELECT sequence, ts, actor_id, action, entity_type, entity_id,
		       before_payload, after_payload, previous_hash, hash, severity
		FROM audit_entries
		WHERE ($1 = '' OR entity_type = $1)
		  AND ($2 = '' OR entity_id = $2)
		  AND ($3 = '' OR actor_id = $3)
		  AND ($4::timestamptz IS NULL OR ts >= $4)
		  AND ($5::timestamptz IS NULL OR ts <= $5)
		ORDER BY sequence ASC
	`
	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := s.db.QueryxContext(ctx, query,
		filter.EntityType, filter.EntityID, filter.ActorID, filter.From, filter.To)
	if err != nil {
		return nil, classifyErr(err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	if filter.JSONPath != "" {
		entries = filterByJSONPath(entries, filter.JSONPath)
	}
	return entries, nil
}

func (s *PostgresStore) ArchiveOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH moved AS (
			DELETE FROM audit_entries
			WHERE ts < $1 AND sequence IN (
				SELECT sequence FROM audit_entries WHERE ts < $1 ORDER BY sequence ASC LIMIT $2
			)
			RETURNING sequence, ts, actor_id, action, entity_type, entity_id,
			          before_payload, after_payload, previous_hash, hash, severity
		)
		INSERT INTO audit_entries_archive
		SELECT * FROM moved
		RETURNING sequence
	`, cutoff, batchSize)
	if err != nil {
		return 0, classifyErr(err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		count++
	}
	return count, rows.Err()
}

func scanEntries(rows *sqlx.Rows) ([]model.AuditEntry, error) {
	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.Sequence, &e.Timestamp, &e.ActorID, &e.Action, &e.EntityType, &e.EntityID,
			&e.Before, &e.After, &e.PreviousHash, &e.Hash, &e.Severity); err != nil {
			return nil, classifyErr(err)
		}
		entries = append(entries, e)
	}
	return entries, classifyErr(rows.Err())
}

func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return coreerr.New(coreerr.NotFound, "audit entry not found")
	}
	return err
}
