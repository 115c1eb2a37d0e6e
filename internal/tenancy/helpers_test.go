package tenancy

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/orthodoxmetrics/om-backend/pkg/db"
	"github.com/orthodoxmetrics/om-backend/pkg/db/models"
	"github.com/orthodoxmetrics/om-backend/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type stubChurches struct {
	mu   sync.Mutex
	rows map[uint]*models.Church
	err  error
}

func (s *stubChurches) FindByID(ctx context.Context, id uint) (*models.Church, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	row, ok := s.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *row
	return &cp, nil
}

func strPtr(v string) *string { return &v }

func uintPtr(v uint) *uint { return &v }

func parishFixtures() *stubChurches {
	return &stubChurches{rows: map[uint]*models.Church{
		7:  {ID: 7, Name: "St. Mary", DatabaseName: strPtr("st_mary_records_db"), IsActive: true},
		9:  {ID: 9, Name: "Holy Trinity", DatabaseName: strPtr("holy_trinity_records_db"), IsActive: true},
		14: {ID: 14, Name: "St. Nicholas", DatabaseName: nil, IsActive: true},
		15: {ID: 15, Name: "Closed Mission", DatabaseName: strPtr("closed_mission_db"), IsActive: false},
		16: {ID: 16, Name: "Blank", DatabaseName: strPtr("   "), IsActive: true},
		17: {ID: 17, Name: "Injected", DatabaseName: strPtr("x`; DROP DATABASE y"), IsActive: true},
		18: {ID: 18, Name: "Platform Alias", DatabaseName: strPtr("orthodoxmetrics_db"), IsActive: true},
	}}
}

// countingOpener opens named shared-cache sqlite databases and records every
// open, keyed by database name.
type countingOpener struct {
	prefix string
	mu     sync.Mutex
	opens  map[string]int
	total  atomic.Int64
	fail   map[string]error
}

func newCountingOpener(t *testing.T) *countingOpener {
	return &countingOpener{prefix: t.Name(), opens: make(map[string]int), fail: make(map[string]error)}
}

func (o *countingOpener) Open(ctx context.Context, name string) (*gorm.DB, error) {
	o.mu.Lock()
	err := o.fail[name]
	o.opens[name]++
	o.mu.Unlock()
	o.total.Add(1)
	if err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", o.prefix, name)
	conn, err := db.Open(sqlite.Open(dsn), db.PoolOptions{})
	if err != nil {
		return nil, err
	}
	if err := conn.AutoMigrate(models.TenantModels()...); err != nil {
		return nil, err
	}
	return conn, nil
}

func (o *countingOpener) count(name string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens[name]
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "tenancy-test", Output: &bytes.Buffer{}})
}

// counterValue reads one counter series; an empty label matches any series.
func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if label == "" {
				return m.GetCounter().GetValue()
			}
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
