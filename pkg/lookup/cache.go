package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// DefaultCacheSize bounds the in-process cache per lookup kind.
	DefaultCacheSize = 65536
	// DefaultCacheTTL is how long a shared Redis entry lives.
	DefaultCacheTTL = 24 * time.Hour

	cacheKeyPrefix = "nodedist:lookup"
)

// CacheOpts configures the cached lookups. Redis is optional.
type CacheOpts struct {
	Size   int
	Redis  *redis.Client
	TTL    time.Duration
	Logger *zap.Logger
}

// tieredCache keeps successful answers in an LRU and, when configured, in Redis so
// scheduled runs and sibling processes share them. Failures are never cached.
type tieredCache[T any] struct {
	kind   string
	l1     *lru.Cache
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func newTieredCache[T any](kind string, o CacheOpts) (*tieredCache[T], error) {
	if o.Size <= 0 {
		o.Size = DefaultCacheSize
	}
	if o.TTL <= 0 {
		o.TTL = DefaultCacheTTL
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	l1, err := lru.New(o.Size)
	if err != nil {
		return nil, fmt.Errorf("lru: %w", err)
	}
	return &tieredCache[T]{kind: kind, l1: l1, rdb: o.Redis, ttl: o.TTL, logger: o.Logger}, nil
}

func (c *tieredCache[T]) key(ip string) string {
	return fmt.Sprintf("%s:%s:%s", cacheKeyPrefix, c.kind, ip)
}

func (c *tieredCache[T]) get(ctx context.Context, ip string) (T, bool) {
	var zero T
	if v, ok := c.l1.Get(ip); ok {
		cacheTotal.WithLabelValues(c.kind, "memory").Inc()
		return v.(T), true
	}
	if c.rdb == nil {
		cacheTotal.WithLabelValues(c.kind, "miss").Inc()
		return zero, false
	}
	bz, err := c.rdb.Get(ctx, c.key(ip)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("lookup cache read failed", zap.String("ip", ip), zap.Error(err))
		}
		cacheTotal.WithLabelValues(c.kind, "miss").Inc()
		return zero, false
	}
	var v T
	if err := json.Unmarshal(bz, &v); err != nil {
		cacheTotal.WithLabelValues(c.kind, "miss").Inc()
		return zero, false
	}
	c.l1.Add(ip, v)
	cacheTotal.WithLabelValues(c.kind, "redis").Inc()
	return v, true
}

func (c *tieredCache[T]) put(ctx context.Context, ip string, v T) {
	c.l1.Add(ip, v)
	if c.rdb == nil {
		return
	}
	bz, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(ip), bz, c.ttl).Err(); err != nil {
		c.logger.Debug("lookup cache write failed", zap.String("ip", ip), zap.Error(err))
	}
}

// CachedASN memoizes an ASNLookup.
type CachedASN struct {
	next  ASNLookup
	cache *tieredCache[ASNResult]
}

func NewCachedASN(next ASNLookup, o CacheOpts) (*CachedASN, error) {
	c, err := newTieredCache[ASNResult](kindASN, o)
	if err != nil {
		return nil, err
	}
	return &CachedASN{next: next, cache: c}, nil
}

func (c *CachedASN) LookupASN(ctx context.Context, ip string) (ASNResult, error) {
	if v, ok := c.cache.get(ctx, ip); ok {
		return v, nil
	}
	v, err := c.next.LookupASN(ctx, ip)
	if err != nil {
		return ASNResult{}, err
	}
	c.cache.put(ctx, ip, v)
	return v, nil
}

// CachedGeo memoizes a GeoLookup.
type CachedGeo struct {
	next  GeoLookup
	cache *tieredCache[Location]
}

func NewCachedGeo(next GeoLookup, o CacheOpts) (*CachedGeo, error) {
	c, err := newTieredCache[Location](kindGeo, o)
	if err != nil {
		return nil, err
	}
	return &CachedGeo{next: next, cache: c}, nil
}

func (c *CachedGeo) LookupGeo(ctx context.Context, ip string) (Location, error) {
	if v, ok := c.cache.get(ctx, ip); ok {
		return v, nil
	}
	v, err := c.next.LookupGeo(ctx, ip)
	if err != nil {
		return Location{}, err
	}
	c.cache.put(ctx, ip, v)
	return v, nil
}
