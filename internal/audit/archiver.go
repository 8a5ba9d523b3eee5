package audit

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/aerocal/gaugecore/internal/logging"
)

// Archiver runs ArchiveOlderThan on a cron schedule, moving entries past
// their retention window into cold storage in bounded batches.
type Archiver struct {
	log       *Log
	retention time.Duration
	batchSize int
	logger    *logrus.Entry
	cron      *cron.Cron
}

// NewArchiver builds an Archiver. schedule is a standard 5-field cron
// expression; retention is how long an entry stays in the hot table
// before it becomes eligible for archival.
func NewArchiver(log *Log, schedule string, retention time.Duration, batchSize int, logger *logging.Logger) (*Archiver, error) {
	a := &Archiver{
		log:       log,
		retention: retention,
		batchSize: batchSize,
		logger:    logger.WithField("component", "audit_archiver"),
		cron:      cron.New(),
	}
	if _, err := a.cron.AddFunc(schedule, a.runOnce); err != nil {
		return nil, err
	}
	return a, nil
}

// Start begins running the schedule in the background.
func (a *Archiver) Start() {
	a.cron.Start()
}

// Stop halts the schedule, waiting for any in-flight run to finish.
func (a *Archiver) Stop() {
	<-a.cron.Stop().Done()
}

func (a *Archiver) runOnce() {
	cutoff := time.Now().UTC().Add(-a.retention)
	total := 0
	for {
		n, err := a.log.store.ArchiveOlderThan(context.Background(), cutoff, a.batchSize)
		if err != nil {
			a.logger.WithField("error", err).Error("archive audit entries")
			return
		}
		total += n
		if n < a.batchSize {
			break
		}
	}
	if total > 0 {
		a.logger.WithField("count", total).Info("archived audit entries")
	}
}
