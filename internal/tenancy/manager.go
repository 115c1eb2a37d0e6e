package tenancy

import (
	"context"
	"fmt"

	"github.com/orthodoxmetrics/om-backend/pkg/logger"
	"github.com/orthodoxmetrics/om-backend/pkg/metrics"
)

// Manager resolves a church to its record database and hands out pooled
// connections. It is constructed once at startup and passed down.
type Manager struct {
	resolver *Resolver
	pools    *PoolCache
	bus      *Invalidator
	metrics  *metrics.TenantPoolMetrics
	logg     *logger.Logger
}

// ManagerParams wires a Manager.
type ManagerParams struct {
	Resolver *Resolver
	Pools    *PoolCache
	// Bus is optional; without it invalidations stay local.
	Bus     *Invalidator
	Metrics *metrics.TenantPoolMetrics
	Logger  *logger.Logger
}

func NewManager(p ManagerParams) (*Manager, error) {
	if p.Resolver == nil {
		return nil, fmt.Errorf("resolver required")
	}
	if p.Pools == nil {
		return nil, fmt.Errorf("pool cache required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Manager{
		resolver: p.Resolver,
		pools:    p.Pools,
		bus:      p.Bus,
		metrics:  p.Metrics,
		logg:     p.Logger,
	}, nil
}

// ForChurch binds churchID to a pooled connection on its record database.
// A nil churchID fails with ReasonContextMissing; nothing is opened.
func (m *Manager) ForChurch(ctx context.Context, churchID *uint) (Handle, error) {
	if churchID == nil || *churchID == 0 {
		return Handle{}, m.fail(ctx, unresolved(ReasonContextMissing, "church context missing", nil))
	}

	tenant, err := m.resolver.Resolve(ctx, *churchID)
	if err != nil {
		return Handle{}, m.fail(m.logg.WithChurchID(ctx, *churchID), err)
	}

	conn, err := m.pools.Get(ctx, tenant.DatabaseName)
	if err != nil {
		ctx = m.logg.WithTenantDB(m.logg.WithChurchID(ctx, tenant.ChurchID), tenant.DatabaseName)
		return Handle{}, m.fail(ctx, unresolved(ReasonPoolUnavailable, "opening church database", err))
	}

	return Handle{ChurchID: tenant.ChurchID, DatabaseName: tenant.DatabaseName, DB: conn}, nil
}

// Invalidate drops the cached pool for databaseName here and, when a bus is
// configured, on every other instance.
func (m *Manager) Invalidate(ctx context.Context, databaseName string) {
	if databaseName == "" {
		return
	}
	m.pools.Evict(databaseName)
	if m.bus == nil {
		return
	}
	if err := m.bus.Publish(ctx, databaseName); err != nil {
		m.logg.Error(m.logg.WithTenantDB(ctx, databaseName), "tenant.invalidate_publish_failed", err)
	}
}

// Cached reports whether a pool for databaseName is open in this process.
func (m *Manager) Cached(databaseName string) bool {
	return m.pools.Contains(databaseName)
}

// ValidateName exposes the database name rules to provisioning code.
func (m *Manager) ValidateName(name string) error {
	return m.resolver.ValidateName(name)
}

// Stats reports the cache size and cached database names.
func (m *Manager) Stats() PoolStats {
	return PoolStats{Open: m.pools.Len(), Databases: m.pools.Keys()}
}

// PoolStats is a point-in-time view of the pool cache.
type PoolStats struct {
	Open      int      `json:"open"`
	Databases []string `json:"databases"`
}

// Close closes every cached pool.
func (m *Manager) Close() error {
	return m.pools.Close()
}

func (m *Manager) fail(ctx context.Context, err error) error {
	reason := ReasonOf(err)
	m.metrics.IncResolutionFailure(reason)
	m.logg.Error(m.logg.WithField(ctx, "reason", reason), "tenant.resolution_failed", err)
	return err
}
