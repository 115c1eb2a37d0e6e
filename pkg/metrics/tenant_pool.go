package metrics

import "github.com/prometheus/client_golang/prometheus"

// TenantPoolMetrics instruments church database resolution and the pool cache.
type TenantPoolMetrics struct {
	open       prometheus.Gauge
	hits       prometheus.Counter
	misses     prometheus.Counter
	openErrors prometheus.Counter
	evictions  *prometheus.CounterVec
	failures   *prometheus.CounterVec
}

// NewTenantPoolMetrics registers the tenant pool metrics on the provided registerer.
func NewTenantPoolMetrics(reg prometheus.Registerer) *TenantPoolMetrics {
	if reg == nil {
		return &TenantPoolMetrics{}
	}
	open := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tenant_pools_open",
		Help: "Church database pools currently cached.",
	})
	hits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tenant_pool_hits_total",
		Help: "Pool lookups served from cache.",
	})
	misses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tenant_pool_misses_total",
		Help: "Pool lookups that opened a new pool.",
	})
	openErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tenant_pool_open_errors_total",
		Help: "Failed attempts to open a church database pool.",
	})
	evictions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tenant_pool_evictions_total",
		Help: "Pools closed and removed from cache.",
	}, []string{"reason"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tenant_resolution_failures_total",
		Help: "Record requests that could not be bound to a church database.",
	}, []string{"reason"})
	reg.MustRegister(open, hits, misses, openErrors, evictions, failures)
	return &TenantPoolMetrics{
		open:       open,
		hits:       hits,
		misses:     misses,
		openErrors: openErrors,
		evictions:  evictions,
		failures:   failures,
	}
}

// SetOpen records the number of cached pools.
func (m *TenantPoolMetrics) SetOpen(n int) {
	if m == nil || m.open == nil {
		return
	}
	m.open.Set(float64(n))
}

func (m *TenantPoolMetrics) IncHit() {
	if m == nil || m.hits == nil {
		return
	}
	m.hits.Inc()
}

func (m *TenantPoolMetrics) IncMiss() {
	if m == nil || m.misses == nil {
		return
	}
	m.misses.Inc()
}

func (m *TenantPoolMetrics) IncOpenError() {
	if m == nil || m.openErrors == nil {
		return
	}
	m.openErrors.Inc()
}

// IncEviction counts a closed pool; reason is expired, capacity or invalidated.
func (m *TenantPoolMetrics) IncEviction(reason string) {
	if m == nil || m.evictions == nil {
		return
	}
	m.evictions.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncResolutionFailure counts a tenant resolution failure by reason.
func (m *TenantPoolMetrics) IncResolutionFailure(reason string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(reason)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
