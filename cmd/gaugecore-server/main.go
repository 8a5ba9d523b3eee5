// Command gaugecore-server assembles the Gauge Lifecycle Core's
// components against a Postgres database and Redis cache. It does not
// start an HTTP listener: serving the operation surface over the wire is
// the excluded routing layer's job.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	_ "github.com/lib/pq"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aerocal/gaugecore/internal/audit"
	"github.com/aerocal/gaugecore/internal/batch"
	"github.com/aerocal/gaugecore/internal/certificate"
	"github.com/aerocal/gaugecore/internal/checkout"
	"github.com/aerocal/gaugecore/internal/config"
	"github.com/aerocal/gaugecore/internal/eventbus"
	"github.com/aerocal/gaugecore/internal/gaugecore"
	"github.com/aerocal/gaugecore/internal/gaugestore"
	"github.com/aerocal/gaugecore/internal/identity"
	"github.com/aerocal/gaugecore/internal/logging"
	"github.com/aerocal/gaugecore/internal/model"
	"github.com/aerocal/gaugecore/internal/pairing"
	"github.com/aerocal/gaugecore/internal/statemachine"
	"github.com/aerocal/gaugecore/internal/platform/database"
	"github.com/aerocal/gaugecore/internal/txn"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional, env vars always apply on top)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	rootCtx := context.Background()

	db, err := database.Open(rootCtx, cfg.Database.DSN)
	if err != nil {
		logger.WithField("error", err).Fatal("connect to postgres")
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	registerer := prometheus.DefaultRegisterer

	coord := txn.New(db, time.Duration(cfg.Database.QueryTimeoutSec)*time.Second, time.Duration(cfg.Database.AcquireTimeoutSec)*time.Second)
	bus := eventbus.New(logger, registerer)

	auditStore := audit.NewPostgresStore(db)
	auditLog := audit.New(auditStore)

	retention := time.Duration(cfg.Audit.RetentionDays) * 24 * time.Hour
	archiver, err := audit.NewArchiver(auditLog, cfg.Audit.ArchiveCron, retention, cfg.Audit.ArchiveBatchSize, logger)
	if err != nil {
		logger.WithField("error", err).Fatal("schedule audit archiver")
	}
	archiver.Start()
	defer archiver.Stop()

	bareGaugeStore := gaugestore.NewPostgresStore(db)
	gaugeStore := gaugestore.NewCachedStore(bareGaugeStore, rdb, time.Duration(cfg.Redis.TTLSec)*time.Second, logger)

	machine := statemachine.New(gaugeStore)

	sihStore := pairing.NewPostgresSIHStore(db)
	pairingMgr := pairing.New(gaugeStore, sihStore, auditLog, bus)

	checkoutStore := checkout.NewPostgresStore()
	postUseInspection := func(equipmentType model.EquipmentType) bool {
		return equipmentType == model.EquipmentCalibrationStandard
	}
	checkoutMgr := checkout.New(checkoutStore, gaugeStore, machine, auditLog, bus, postUseInspection)

	certStore := certificate.NewPostgresStore()
	certMgr := certificate.New(certStore, auditLog, bus)

	batchStore := batch.NewPostgresStore()
	batchMgr := batch.New(batchStore, gaugeStore, machine, certMgr, auditLog, bus)

	adminCounter := identity.NewPostgresAdminCounter(db)
	gate := identity.New(adminCounter)

	core := gaugecore.New(gate, auditLog, gaugeStore, machine, pairingMgr, checkoutMgr, batchMgr, certMgr, bus, coord)

	logger.WithField("component", "gaugecore").Info("core assembled and ready to be wired into a routing layer")
	_ = core
}
