package txn

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

// isTransientDBError reports whether err represents a transient condition
// the Postgres driver surfaces: deadlock, lock-wait timeout, or connection
// loss. These are worth retrying; constraint violations and the like are
// not.
func isTransientDBError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "deadlock_detected", "lock_not_available", "serialization_failure":
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection refused")
}
