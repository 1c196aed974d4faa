// Package refdata serves vendor reference catalogs (doctors, procedures,
// insurances...) through a Redis read-through cache. Catalogs change rarely
// and vendors rate-limit aggressively, so cached reads answer most traffic.
package refdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/caremesh/erpbridge/internal/canonical"
	"github.com/caremesh/erpbridge/internal/erp"
	"github.com/caremesh/erpbridge/internal/faults"
	"github.com/caremesh/erpbridge/pkg/logging"
)

const defaultTTL = 15 * time.Minute

type adapterSource interface {
	Adapter(integ erp.Integration) (erp.Adapter, error)
}

// Cache is a read-through cache over adapter ListReferenceEntities calls.
// Redis being down degrades to vendor-direct reads, never to failures.
type Cache struct {
	redis    *redis.Client
	adapters adapterSource
	ttl      time.Duration
	logger   *logging.Logger
}

func NewCache(rdb *redis.Client, adapters adapterSource, ttl time.Duration, logger *logging.Logger) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Cache{redis: rdb, adapters: adapters, ttl: ttl, logger: logger}
}

func cacheKey(integrationID string, kind canonical.ReferenceKind) string {
	return fmt.Sprintf("refdata:%s:%s", integrationID, kind)
}

// List returns the entities of one catalog, from cache when fresh.
func (c *Cache) List(ctx context.Context, integ erp.Integration, kind canonical.ReferenceKind) ([]canonical.Entity, error) {
	const op = "refdata.List"
	if !canonical.KnownReferenceKind(kind) {
		return nil, faults.New(faults.KindBadRequest, op, "unknown reference kind %q", kind)
	}

	key := cacheKey(integ.ID, kind)
	if c.redis != nil {
		raw, err := c.redis.Get(ctx, key).Bytes()
		if err == nil {
			var entities []canonical.Entity
			if jsonErr := json.Unmarshal(raw, &entities); jsonErr == nil {
				return entities, nil
			}
			// Poisoned entry: fall through to the vendor and rewrite it.
			c.logger.Warn("dropping undecodable refdata cache entry", "key", key)
		} else if err != redis.Nil {
			c.logger.Warn("refdata cache read failed", "key", key, "error", err)
		}
	}

	adapter, err := c.adapters.Adapter(integ)
	if err != nil {
		return nil, err
	}
	if !adapter.Capabilities().Has(erp.CapListReferenceEntities) {
		return nil, faults.New(faults.KindNotImplemented, op,
			"vendor %s does not list reference entities", integ.Vendor)
	}
	entities, err := adapter.ListReferenceEntities(ctx, kind)
	if err != nil {
		return nil, err
	}

	if c.redis != nil {
		raw, err := json.Marshal(entities)
		if err == nil {
			if err := c.redis.Set(ctx, key, raw, c.ttl).Err(); err != nil {
				c.logger.Warn("refdata cache write failed", "key", key, "error", err)
			}
		}
	}
	return entities, nil
}

// Invalidate drops one cached catalog.
func (c *Cache) Invalidate(ctx context.Context, integrationID string, kind canonical.ReferenceKind) error {
	if c.redis == nil {
		return nil
	}
	if err := c.redis.Del(ctx, cacheKey(integrationID, kind)).Err(); err != nil {
		return fmt.Errorf("refdata: invalidate: %w", err)
	}
	return nil
}
