package identity

import (
	"context"
	"database/sql"

	"github.com/aerocal/gaugecore/internal/model"
)

// PostgresAdminCounter counts system.admin holders from the
// caller_capabilities table, a local mirror of the external identity
// provider's role assignments kept in sync out of band. The core never
// manages identities itself; it only needs to count admins to enforce
// the last-admin rule.
type PostgresAdminCounter struct {
	db *sql.DB
}

// NewPostgresAdminCounter wraps an existing *sql.DB.
func NewPostgresAdminCounter(db *sql.DB) *PostgresAdminCounter {
	return &PostgresAdminCounter{db: db}
}

func (c *PostgresAdminCounter) SystemAdminCount() (int, error) {
	var count int
	err := c.db.QueryRowContext(context.Background(), `
		SELECT count(DISTINCT user_id) FROM caller_capabilities WHERE capability = $1
	`, string(model.CapabilitySystemAdmin)).Scan(&count)
	return count, err
}
