package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/arthuur01/capitalplay/internal/model"
)

// CachedCatalog wraps a primary Catalog (PostgreSQL) with a Redis
// read-through cache. Writes go to the primary and invalidate the cached
// scope listing; reads check Redis first then fall back to the primary.
type CachedCatalog struct {
	primary Catalog
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedCatalog creates a cached wrapper around a primary catalog.
func NewCachedCatalog(primary Catalog, rdb *redis.Client, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Read-through (check cache first) ---

func (c *CachedCatalog) ListInstruments(ctx context.Context, scope string) ([]model.Instrument, error) {
	data, err := c.rdb.Get(ctx, scopeKey(scope)).Bytes()
	if err == nil {
		var instruments []model.Instrument
		if json.Unmarshal(data, &instruments) == nil {
			return instruments, nil
		}
	}

	instruments, err := c.primary.ListInstruments(ctx, scope)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(instruments); err == nil {
		c.rdb.Set(ctx, scopeKey(scope), data, c.ttl)
	}
	return instruments, nil
}

func (c *CachedCatalog) GetInstrument(ctx context.Context, scope, id string) (*model.Instrument, error) {
	data, err := c.rdb.Get(ctx, instrumentKey(scope, id)).Bytes()
	if err == nil {
		var inst model.Instrument
		if json.Unmarshal(data, &inst) == nil {
			return &inst, nil
		}
	}

	inst, err := c.primary.GetInstrument(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(inst); err == nil {
		c.rdb.Set(ctx, instrumentKey(scope, id), data, c.ttl)
	}
	return inst, nil
}

// --- Write-through (write to primary, invalidate cache) ---

func (c *CachedCatalog) CreateInstrument(ctx context.Context, scope, name, symbol string, price decimal.Decimal) (*model.Instrument, error) {
	inst, err := c.primary.CreateInstrument(ctx, scope, name, symbol, price)
	if err != nil {
		return nil, err
	}
	c.rdb.Del(ctx, scopeKey(scope))
	return inst, nil
}

func (c *CachedCatalog) UpdateInstrument(ctx context.Context, scope, id string, upd Update) error {
	if err := c.primary.UpdateInstrument(ctx, scope, id, upd); err != nil {
		return err
	}
	// Invalidate; next read re-populates.
	c.rdb.Del(ctx, scopeKey(scope), instrumentKey(scope, id))
	return nil
}

func (c *CachedCatalog) DeleteInstrument(ctx context.Context, scope, id string) error {
	if err := c.primary.DeleteInstrument(ctx, scope, id); err != nil {
		return err
	}
	c.rdb.Del(ctx, scopeKey(scope), instrumentKey(scope, id))
	return nil
}

func (c *CachedCatalog) SeedDefaults(ctx context.Context) (int, error) {
	n, err := c.primary.SeedDefaults(ctx)
	if err != nil {
		return n, err
	}
	c.rdb.Del(ctx, scopeKey(model.DefaultScope))
	return n, nil
}

func scopeKey(scope string) string          { return fmt.Sprintf("catalog:%s", scope) }
func instrumentKey(scope, id string) string { return fmt.Sprintf("catalog:%s:%s", scope, id) }
