package catalog

import (
	"context"
	"fmt"
	"github.com/ariefcatur/go-storefront-orders.git/internal/redisx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"time"
)

// CachedReader is a read-through Redis cache in front of a Reader. Redis
// errors never fail a read; they only fall through to the source.
type CachedReader struct {
	Source Reader
	Redis  redis.Cmdable
	TTL    time.Duration
	Log    *zap.Logger
}

func (c *CachedReader) ttl() time.Duration {
	if c.TTL > 0 {
		return c.TTL
	}
	return redisx.TTLCatalog
}

func (c *CachedReader) GetProduct(ctx context.Context, id string) (Product, error) {
	key := fmt.Sprintf(redisx.KeyProduct, id)
	var p Product
	if ok, err := redisx.GetJSON(ctx, c.Redis, key, &p); err == nil && ok {
		return p, nil
	} else if err != nil {
		c.Log.Warn("catalog cache read", zap.String("key", key), zap.Error(err))
	}

	p, err := c.Source.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if err := redisx.SetJSON(ctx, c.Redis, key, p, c.ttl()); err != nil {
		c.Log.Warn("catalog cache write", zap.String("key", key), zap.Error(err))
	}
	return p, nil
}

func (c *CachedReader) ListGovernorates(ctx context.Context) ([]Governorate, error) {
	var govs []Governorate
	if ok, err := redisx.GetJSON(ctx, c.Redis, redisx.KeyGovernorates, &govs); err == nil && ok {
		return govs, nil
	} else if err != nil {
		c.Log.Warn("catalog cache read", zap.String("key", redisx.KeyGovernorates), zap.Error(err))
	}

	govs, err := c.Source.ListGovernorates(ctx)
	if err != nil {
		return nil, err
	}
	if err := redisx.SetJSON(ctx, c.Redis, redisx.KeyGovernorates, govs, c.ttl()); err != nil {
		c.Log.Warn("catalog cache write", zap.String("key", redisx.KeyGovernorates), zap.Error(err))
	}
	return govs, nil
}
