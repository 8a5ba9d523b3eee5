package gaugestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/aerocal/gaugecore/internal/logging"
	"github.com/aerocal/gaugecore/internal/model"
)

// CachedStore wraps a Store with a Redis read-through cache for
// FindByID/FindByPublicID/FindSpareThreadGauges lookups, the calls hit
// hardest by checkout/transition/pairing traffic. Writes invalidate rather
// than update the cache, so a cache miss always falls back to a consistent
// read.
type CachedStore struct {
	inner Store
	rdb   *redis.Client
	ttl   time.Duration
	log   *logging.Logger
}

// NewCachedStore wraps inner with a Redis cache. rdb may be nil, in which
// case CachedStore behaves as a passthrough (useful for tests/local runs
// without Redis configured).
func NewCachedStore(inner Store, rdb *redis.Client, ttl time.Duration, log *logging.Logger) *CachedStore {
	if log == nil {
		log = logging.NewDefault("gaugestore-cache")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedStore{inner: inner, rdb: rdb, ttl: ttl, log: log}
}

func (c *CachedStore) Create(ctx context.Context, tx *sql.Tx, g model.Gauge) (model.Gauge, error) {
	created, err := c.inner.Create(ctx, tx, g)
	if err != nil {
		return model.Gauge{}, err
	}
	c.invalidate(ctx, created.ID, created.GaugeID)
	return created, nil
}

func (c *CachedStore) FindByID(ctx context.Context, tx *sql.Tx, id int64) (model.Gauge, error) {
	if c.rdb == nil || tx != nil {
		return c.inner.FindByID(ctx, tx, id)
	}
	key := idKey(id)
	if g, ok := c.getCached(ctx, key); ok {
		return g, nil
	}
	g, err := c.inner.FindByID(ctx, tx, id)
	if err != nil {
		return model.Gauge{}, err
	}
	c.setCached(ctx, key, g)
	return g, nil
}

func (c *CachedStore) FindBySerial(ctx context.Context, tx *sql.Tx, equipmentType model.EquipmentType, serial string) (model.Gauge, error) {
	return c.inner.FindBySerial(ctx, tx, equipmentType, serial)
}

// FindSpareThreadGauges caches the spare list per distinct filter. The
// cached set is short-lived relative to idKey/publicIDKey since any write
// to any thread gauge can change the eligible spare pool, not just a write
// to one gauge; a short TTL bounds the staleness window instead of trying
// to invalidate every possible filter combination on write.
func (c *CachedStore) FindSpareThreadGauges(ctx context.Context, tx *sql.Tx, filter SpareFilter) ([]model.Gauge, error) {
	if c.rdb == nil || tx != nil {
		return c.inner.FindSpareThreadGauges(ctx, tx, filter)
	}
	key := spareFilterKey(filter)
	if gauges, ok := getCachedList(ctx, c.rdb, key); ok {
		return gauges, nil
	}
	gauges, err := c.inner.FindSpareThreadGauges(ctx, tx, filter)
	if err != nil {
		return nil, err
	}
	c.setCachedList(ctx, key, gauges, spareListTTL)
	return gauges, nil
}

func (c *CachedStore) FindByPublicID(ctx context.Context, tx *sql.Tx, gaugeID string) ([]model.Gauge, error) {
	if c.rdb == nil || tx != nil {
		return c.inner.FindByPublicID(ctx, tx, gaugeID)
	}
	key := publicIDKey(gaugeID)
	if gauges, ok := getCachedList(ctx, c.rdb, key); ok {
		return gauges, nil
	}
	gauges, err := c.inner.FindByPublicID(ctx, tx, gaugeID)
	if err != nil {
		return nil, err
	}
	c.setCachedList(ctx, key, gauges, c.ttl)
	return gauges, nil
}

func (c *CachedStore) List(ctx context.Context, tx *sql.Tx, filter ListFilter) ([]model.Gauge, error) {
	return c.inner.List(ctx, tx, filter)
}

func (c *CachedStore) Update(ctx context.Context, tx *sql.Tx, id int64, patch Fields) (model.Gauge, error) {
	updated, err := c.inner.Update(ctx, tx, id, patch)
	if err != nil {
		return model.Gauge{}, err
	}
	c.invalidate(ctx, updated.ID, updated.GaugeID)
	return updated, nil
}

func (c *CachedStore) SetPairing(ctx context.Context, tx *sql.Tx, id int64, gaugeID *string, suffix *model.Suffix, companionID *int64) (model.Gauge, error) {
	updated, err := c.inner.SetPairing(ctx, tx, id, gaugeID, suffix, companionID)
	if err != nil {
		return model.Gauge{}, err
	}
	c.invalidate(ctx, updated.ID, updated.GaugeID)
	return updated, nil
}

func (c *CachedStore) LockForUpdate(ctx context.Context, tx *sql.Tx, ids []int64) ([]model.Gauge, error) {
	gauges, err := c.inner.LockForUpdate(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	for _, g := range gauges {
		c.invalidate(ctx, g.ID, g.GaugeID)
	}
	return gauges, nil
}

// spareListTTL is shorter than the default gauge TTL since the spare pool
// changes on every pairing/checkout/status write, not just a write to the
// specific gauge a key names.
const spareListTTL = 30 * time.Second

func getCachedList(ctx context.Context, rdb *redis.Client, key string) ([]model.Gauge, bool) {
	raw, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var gauges []model.Gauge
	if err := json.Unmarshal(raw, &gauges); err != nil {
		return nil, false
	}
	return gauges, true
}

func (c *CachedStore) setCachedList(ctx context.Context, key string, gauges []model.Gauge, ttl time.Duration) {
	raw, err := json.Marshal(gauges)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		c.log.WithField("key", key).WithField("error", err).Warn("gauge cache write failed")
	}
}

func spareFilterKey(filter SpareFilter) string {
	return fmt.Sprintf("gauge:spares:%s:%s:%s", filter.ThreadSize, filter.ThreadForm, filter.ThreadClass)
}

func (c *CachedStore) getCached(ctx context.Context, key string) (model.Gauge, bool) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return model.Gauge{}, false
	}
	var g model.Gauge
	if err := json.Unmarshal(raw, &g); err != nil {
		return model.Gauge{}, false
	}
	return g, true
}

func (c *CachedStore) setCached(ctx context.Context, key string, g model.Gauge) {
	raw, err := json.Marshal(g)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.WithField("key", key).WithField("error", err).Warn("gauge cache write failed")
	}
}

func (c *CachedStore) invalidate(ctx context.Context, id int64, gaugeID *string) {
	if c.rdb == nil {
		return
	}
	keys := []string{idKey(id)}
	if gaugeID != nil {
		keys = append(keys, publicIDKey(*gaugeID))
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.log.WithField("error", err).Warn("gauge cache invalidation failed")
	}
}

func idKey(id int64) string {
	return fmt.Sprintf("gauge:id:%d", id)
}

func publicIDKey(gaugeID string) string {
	return fmt.Sprintf("gauge:public:%s", gaugeID)
}
