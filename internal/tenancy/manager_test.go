package tenancy

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/orthodoxmetrics/om-backend/pkg/db/models"
	pkgerrors "github.com/orthodoxmetrics/om-backend/pkg/errors"
	"github.com/orthodoxmetrics/om-backend/pkg/metrics"
	redisclient "github.com/orthodoxmetrics/om-backend/pkg/redis"
	"github.com/prometheus/client_golang/prometheus"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, opener *countingOpener, bus *Invalidator) (*Manager, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.NewTenantPoolMetrics(reg)
	resolver, err := NewResolver(parishFixtures(), "orthodoxmetrics_db")
	require.NoError(t, err)
	cache, err := NewPoolCache(opener.Open, PoolCacheOptions{MaxEntries: 4, Metrics: m, Logger: testLogger()})
	require.NoError(t, err)
	mgr, err := NewManager(ManagerParams{Resolver: resolver, Pools: cache, Bus: bus, Metrics: m, Logger: testLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })
	return mgr, reg
}

func TestForChurchTargetsConfiguredDatabase(t *testing.T) {
	opener := newCountingOpener(t)
	mgr, _ := newTestManager(t, opener, nil)

	h, err := mgr.ForChurch(context.Background(), uintPtr(7))
	require.NoError(t, err)
	require.Equal(t, uint(7), h.ChurchID)
	require.Equal(t, "st_mary_records_db", h.DatabaseName)
	require.NotNil(t, h.DB)
	require.True(t, mgr.Cached("st_mary_records_db"))
	require.Equal(t, 1, opener.count("st_mary_records_db"))
}

func TestForChurchWithoutChurchFailsClosed(t *testing.T) {
	opener := newCountingOpener(t)
	mgr, reg := newTestManager(t, opener, nil)

	_, err := mgr.ForChurch(context.Background(), nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeTenantUnresolved))
	require.Equal(t, ReasonContextMissing, ReasonOf(err))
	require.Equal(t, int64(0), opener.total.Load())
	require.Equal(t, float64(1), counterValue(t, reg, "tenant_resolution_failures_total", "reason", ReasonContextMissing))
}

func TestForChurchNullDatabaseNeverFallsBack(t *testing.T) {
	opener := newCountingOpener(t)
	mgr, _ := newTestManager(t, opener, nil)

	_, err := mgr.ForChurch(context.Background(), uintPtr(14))
	require.Equal(t, ReasonDatabaseNotConfigured, ReasonOf(err))
	require.Equal(t, 500, pkgerrors.MetadataFor(pkgerrors.As(err).Code()).HTTPStatus)
	require.Equal(t, int64(0), opener.total.Load())
	require.Equal(t, 0, mgr.Stats().Open)
}

func TestForChurchPoolFailure(t *testing.T) {
	opener := newCountingOpener(t)
	opener.fail["holy_trinity_records_db"] = context.DeadlineExceeded
	mgr, _ := newTestManager(t, opener, nil)

	_, err := mgr.ForChurch(context.Background(), uintPtr(9))
	require.Equal(t, ReasonPoolUnavailable, ReasonOf(err))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTenantIsolationRoundTrip(t *testing.T) {
	opener := newCountingOpener(t)
	mgr, _ := newTestManager(t, opener, nil)
	ctx := context.Background()

	stMary, err := mgr.ForChurch(ctx, uintPtr(7))
	require.NoError(t, err)
	trinity, err := mgr.ForChurch(ctx, uintPtr(9))
	require.NoError(t, err)

	rec := models.BaptismRecord{FirstName: "Ioann", LastName: "Petrov", Clergy: "Fr. Alexei"}
	require.NoError(t, stMary.DB.WithContext(ctx).Create(&rec).Error)

	var got models.BaptismRecord
	require.NoError(t, stMary.DB.WithContext(ctx).First(&got, rec.ID).Error)
	require.Equal(t, "Ioann", got.FirstName)

	var count int64
	require.NoError(t, trinity.DB.WithContext(ctx).Model(&models.BaptismRecord{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestInvalidateAcrossInstances(t *testing.T) {
	srv := miniredis.RunT(t)
	newBus := func() *Invalidator {
		client := redisclient.NewFromRaw(redislib.NewClient(&redislib.Options{Addr: srv.Addr()}))
		t.Cleanup(func() { _ = client.Close() })
		inv, err := NewInvalidator(client, testLogger())
		require.NoError(t, err)
		return inv
	}

	opener := newCountingOpener(t)
	writer, _ := newTestManager(t, opener, newBus())
	readerBus := newBus()
	reader, _ := newTestManager(t, opener, readerBus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- readerBus.Listen(ctx, reader.pools, ready) }()
	<-ready

	_, err := reader.ForChurch(ctx, uintPtr(7))
	require.NoError(t, err)
	require.True(t, reader.Cached("st_mary_records_db"))

	writer.Invalidate(ctx, "st_mary_records_db")

	require.Eventually(t, func() bool {
		return !reader.Cached("st_mary_records_db")
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestDBFromContextFailsWithoutHandle(t *testing.T) {
	_, err := DBFromContext(context.Background())
	require.Equal(t, ReasonContextMissing, ReasonOf(err))

	opener := newCountingOpener(t)
	mgr, _ := newTestManager(t, opener, nil)
	h, err := mgr.ForChurch(context.Background(), uintPtr(7))
	require.NoError(t, err)

	ctx := WithHandle(context.Background(), h)
	conn, err := DBFromContext(ctx)
	require.NoError(t, err)
	require.NotNil(t, conn)
	bound, ok := HandleFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "st_mary_records_db", bound.DatabaseName)
}
