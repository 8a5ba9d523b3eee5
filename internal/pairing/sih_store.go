package pairing

import (
	"context"
	"database/sql"
	"time"

	"github.com/aerocal/gaugecore/internal/model"
)

// SIHStore is the Set-ID History persistence contract: every public thread-
// gauge set id that has ever been assigned, so a new set can never reuse
// one even after the original set has been unpaired or retired.
type SIHStore interface {
	// NextSequenceValue draws the next raw candidate from the id
	// allocator, before it has been checked against history.
	NextSequenceValue(ctx context.Context, tx *sql.Tx) (int64, error)

	// Lock row-locks (or reports the absence of) the history entry for
	// setID, so concurrent createSet calls serialize on the same
	// candidate.
	Lock(ctx context.Context, tx *sql.Tx, setID string) (model.SetIDHistoryEntry, bool, error)

	Insert(ctx context.Context, tx *sql.Tx, entry model.SetIDHistoryEntry) error
	Retire(ctx context.Context, tx *sql.Tx, setID string, retiredAt time.Time) error
}
