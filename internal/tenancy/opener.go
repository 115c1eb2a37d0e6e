package tenancy

import (
	"context"
	"fmt"

	"github.com/orthodoxmetrics/om-backend/pkg/config"
	"github.com/orthodoxmetrics/om-backend/pkg/db"
	"gorm.io/gorm"
)

// MySQLOpener opens record database pools on the platform MySQL host using
// the tenant credentials. The pool is pinged so an unknown schema fails here
// rather than on the first query.
func MySQLOpener(cfg *config.Config) Opener {
	opts := db.TenantPoolOptions(cfg.Tenant)
	return func(ctx context.Context, databaseName string) (*gorm.DB, error) {
		conn, err := db.OpenMySQL(cfg.TenantDSN(databaseName), opts)
		if err != nil {
			return nil, err
		}
		if err := db.PingGorm(ctx, conn); err != nil {
			_ = db.CloseGorm(conn)
			if db.IsUnknownDatabase(err) {
				return nil, fmt.Errorf("database %q does not exist: %w", databaseName, err)
			}
			return nil, fmt.Errorf("ping %q: %w", databaseName, err)
		}
		return conn, nil
	}
}
