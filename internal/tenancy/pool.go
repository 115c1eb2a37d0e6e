package tenancy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/orthodoxmetrics/om-backend/pkg/db"
	"github.com/orthodoxmetrics/om-backend/pkg/logger"
	"github.com/orthodoxmetrics/om-backend/pkg/metrics"
	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// ErrPoolCacheClosed is returned by Get after Close.
var ErrPoolCacheClosed = errors.New("tenant pool cache closed")

const (
	evictReasonEvicted     = "evicted"
	evictReasonInvalidated = "invalidated"
	evictReasonShutdown    = "shutdown"
)

// Opener opens a pool for one record database.
type Opener func(ctx context.Context, databaseName string) (*gorm.DB, error)

// PoolCacheOptions bounds the cache.
type PoolCacheOptions struct {
	MaxEntries int
	TTL        time.Duration
	Metrics    *metrics.TenantPoolMetrics
	Logger     *logger.Logger
}

// PoolCache keeps at most MaxEntries record database pools, keyed by
// database name. Least recently used pools are evicted first and pools older
// than TTL expire; the next request reopens them. Evicted pools are closed.
type PoolCache struct {
	opener  Opener
	pools   *expirable.LRU[string, *gorm.DB]
	group   singleflight.Group
	metrics *metrics.TenantPoolMetrics
	logg    *logger.Logger

	// addMu serialises cache insertion with Close. It is never held by
	// onEvict, which c.pools may call from Add.
	addMu sync.Mutex

	mu           sync.Mutex
	closed       bool
	invalidating map[string]struct{}

	open    atomic.Int64
	closing sync.WaitGroup
}

// NewPoolCache builds an empty cache.
func NewPoolCache(opener Opener, opts PoolCacheOptions) (*PoolCache, error) {
	if opener == nil {
		return nil, fmt.Errorf("pool opener required")
	}
	if opts.MaxEntries <= 0 {
		return nil, fmt.Errorf("max entries must be positive")
	}
	c := &PoolCache{
		opener:       opener,
		metrics:      opts.Metrics,
		logg:         opts.Logger,
		invalidating: make(map[string]struct{}),
	}
	c.pools = expirable.NewLRU[string, *gorm.DB](opts.MaxEntries, c.onEvict, opts.TTL)
	return c, nil
}

// Get returns the pool for databaseName, opening it on first use.
// Concurrent first requests for one name share a single open.
func (c *PoolCache) Get(ctx context.Context, databaseName string) (*gorm.DB, error) {
	if c.isClosed() {
		return nil, ErrPoolCacheClosed
	}
	if conn, ok := c.pools.Get(databaseName); ok {
		c.metrics.IncHit()
		return conn, nil
	}

	v, err, _ := c.group.Do(databaseName, func() (any, error) {
		if conn, ok := c.pools.Get(databaseName); ok {
			return conn, nil
		}
		conn, err := c.opener(context.WithoutCancel(ctx), databaseName)
		if err != nil {
			c.metrics.IncOpenError()
			return nil, err
		}
		return c.store(ctx, databaseName, conn)
	})
	if err != nil {
		return nil, err
	}
	return v.(*gorm.DB), nil
}

// store caches a freshly opened pool. An Evict during the open lets a
// second flight for the same name start, so a pool may already be cached;
// the newcomer is closed and the cached one wins.
func (c *PoolCache) store(ctx context.Context, databaseName string, conn *gorm.DB) (*gorm.DB, error) {
	c.addMu.Lock()
	defer c.addMu.Unlock()

	if c.isClosed() {
		_ = db.CloseGorm(conn)
		return nil, ErrPoolCacheClosed
	}
	if cached, ok := c.pools.Peek(databaseName); ok {
		_ = db.CloseGorm(conn)
		return cached, nil
	}
	c.open.Add(1)
	c.pools.Add(databaseName, conn)
	c.metrics.IncMiss()
	c.metrics.SetOpen(int(c.open.Load()))
	if c.logg != nil {
		c.logg.Info(c.logg.WithTenantDB(ctx, databaseName), "tenant.pool_opened")
	}
	return conn, nil
}

// Evict closes and drops the pool for databaseName if cached.
func (c *PoolCache) Evict(databaseName string) bool {
	c.mu.Lock()
	c.invalidating[databaseName] = struct{}{}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.invalidating, databaseName)
		c.mu.Unlock()
	}()

	c.group.Forget(databaseName)
	return c.pools.Remove(databaseName)
}

// Contains reports whether a pool for databaseName is cached.
func (c *PoolCache) Contains(databaseName string) bool {
	return c.pools.Contains(databaseName)
}

// Len returns the number of cached pools.
func (c *PoolCache) Len() int {
	return c.pools.Len()
}

// Keys lists cached database names from oldest to newest use.
func (c *PoolCache) Keys() []string {
	return c.pools.Keys()
}

// Close closes every cached pool and rejects further Gets.
func (c *PoolCache) Close() error {
	c.addMu.Lock()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.addMu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	c.addMu.Unlock()

	var errs error
	for _, name := range c.pools.Keys() {
		conn, ok := c.pools.Peek(name)
		if !ok {
			continue
		}
		c.pools.Remove(name)
		errs = multierr.Append(errs, db.CloseGorm(conn))
	}
	c.closing.Wait()
	return errs
}

func (c *PoolCache) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// onEvict runs under the LRU lock; it must not call back into c.pools.
func (c *PoolCache) onEvict(databaseName string, conn *gorm.DB) {
	c.open.Add(-1)
	c.metrics.SetOpen(int(c.open.Load()))

	c.mu.Lock()
	reason := evictReasonEvicted
	if _, ok := c.invalidating[databaseName]; ok {
		reason = evictReasonInvalidated
	}
	shutdown := c.closed
	c.mu.Unlock()

	if shutdown {
		// Close closes these itself so it can collect errors.
		c.metrics.IncEviction(evictReasonShutdown)
		return
	}
	c.metrics.IncEviction(reason)

	c.closing.Add(1)
	go func() {
		defer c.closing.Done()
		if err := db.CloseGorm(conn); err != nil && c.logg != nil {
			ctx := c.logg.WithTenantDB(context.Background(), databaseName)
			c.logg.Error(ctx, "tenant.pool_close_failed", err)
		}
	}()
	if c.logg != nil {
		ctx := c.logg.WithFields(context.Background(), map[string]any{"tenant_db": databaseName, "reason": reason})
		c.logg.Info(ctx, "tenant.pool_evicted")
	}
}

// waitClosed blocks until evicted pools have finished closing.
func (c *PoolCache) waitClosed() {
	c.closing.Wait()
}
