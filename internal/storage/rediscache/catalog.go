// Package rediscache puts a read-through Redis cache in front of the product
// catalog.
package rediscache

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/pos-till/internal/domain/product"
	"github.com/xenking/pos-till/internal/wire"
)

// DefaultTTL is how long cached catalog entries live.
const DefaultTTL = 10 * time.Minute

const (
	keyList    = "pos:products"
	keyByID    = "pos:product:id:"
	keyBarcode = "pos:product:barcode:"
)

// Client is the subset of *redis.Client used by the cache.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Catalog caches the results of the wrapped catalog. Cache failures are
// logged and fall through to the wrapped catalog. Missing products are not
// cached.
type Catalog struct {
	next product.Catalog
	rdb  Client
	ttl  time.Duration
	lg   *zap.Logger
}

var _ product.Catalog = (*Catalog)(nil)

// New wraps next. A ttl ≤ 0 selects DefaultTTL.
func New(next product.Catalog, rdb Client, ttl time.Duration, lg *zap.Logger) *Catalog {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Catalog{next: next, rdb: rdb, ttl: ttl, lg: lg}
}

// List returns the full catalog.
func (c *Catalog) List(ctx context.Context) ([]product.Product, error) {
	if data, ok := c.get(ctx, keyList); ok {
		products, err := wire.DecodeProducts(data)
		if err == nil {
			return products, nil
		}
		c.lg.Warn("Drop corrupt cache entry", zap.String("key", keyList), zap.Error(err))
	}

	products, err := c.next.List(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, keyList, wire.Marshal(func(e *jx.Encoder) {
		wire.EncodeProducts(e, products)
	}))
	return products, nil
}

// FindByID returns the product with id, or nil.
func (c *Catalog) FindByID(ctx context.Context, id string) (*product.Product, error) {
	return c.find(ctx, keyByID+id, func(ctx context.Context) (*product.Product, error) {
		return c.next.FindByID(ctx, id)
	})
}

// FindByBarcode returns the product carrying barcode, or nil.
func (c *Catalog) FindByBarcode(ctx context.Context, barcode string) (*product.Product, error) {
	if barcode == "" {
		return c.next.FindByBarcode(ctx, barcode)
	}
	return c.find(ctx, keyBarcode+barcode, func(ctx context.Context) (*product.Product, error) {
		return c.next.FindByBarcode(ctx, barcode)
	})
}

// Invalidate drops the cached listing and the entries of p.
func (c *Catalog) Invalidate(ctx context.Context, p product.Product) error {
	keys := []string{keyList, keyByID + p.ID}
	if p.Barcode != "" {
		keys = append(keys, keyBarcode+p.Barcode)
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(err, "invalidate product cache")
	}
	return nil
}

func (c *Catalog) find(ctx context.Context, key string, load func(context.Context) (*product.Product, error)) (*product.Product, error) {
	if data, ok := c.get(ctx, key); ok {
		p, err := wire.DecodeProduct(jx.DecodeBytes(data))
		if err == nil {
			return &p, nil
		}
		c.lg.Warn("Drop corrupt cache entry", zap.String("key", key), zap.Error(err))
	}

	p, err := load(ctx)
	if err != nil || p == nil {
		return p, err
	}
	c.set(ctx, key, wire.Marshal(func(e *jx.Encoder) {
		wire.EncodeProduct(e, p)
	}))
	return p, nil
}

func (c *Catalog) get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.lg.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return data, true
}

func (c *Catalog) set(ctx context.Context, key string, data []byte) {
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.lg.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}
