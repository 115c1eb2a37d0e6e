package tenancy

import (
	"context"
	"fmt"

	"github.com/orthodoxmetrics/om-backend/pkg/logger"
	redislib "github.com/redis/go-redis/v9"
)

type invalidationBus interface {
	Publish(ctx context.Context, channel string, message any) error
	Subscribe(ctx context.Context, channels ...string) (*redislib.PubSub, error)
	PoolInvalidationChannel() string
}

// Invalidator broadcasts pool evictions between API instances over Redis
// pub/sub so a changed database_name takes effect everywhere.
type Invalidator struct {
	bus  invalidationBus
	logg *logger.Logger
}

func NewInvalidator(bus invalidationBus, logg *logger.Logger) (*Invalidator, error) {
	if bus == nil {
		return nil, fmt.Errorf("bus required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Invalidator{bus: bus, logg: logg}, nil
}

// Publish announces that databaseName must be evicted.
func (i *Invalidator) Publish(ctx context.Context, databaseName string) error {
	return i.bus.Publish(ctx, i.bus.PoolInvalidationChannel(), databaseName)
}

// Listen evicts pools from cache as announcements arrive. It blocks until
// ctx is cancelled. ready, when non-nil, is closed once subscribed.
func (i *Invalidator) Listen(ctx context.Context, cache *PoolCache, ready chan<- struct{}) error {
	sub, err := i.bus.Subscribe(ctx, i.bus.PoolInvalidationChannel())
	if err != nil {
		return err
	}
	defer sub.Close()
	if ready != nil {
		close(ready)
	}

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if msg.Payload == "" {
				continue
			}
			if cache.Evict(msg.Payload) {
				i.logg.Info(i.logg.WithTenantDB(ctx, msg.Payload), "tenant.pool_invalidated")
			}
		}
	}
}
