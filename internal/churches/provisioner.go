package churches

import (
	"context"
	"fmt"

	"github.com/orthodoxmetrics/om-backend/pkg/db"
	"github.com/orthodoxmetrics/om-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Provisioner creates a church record database and its tables.
type Provisioner interface {
	Provision(ctx context.Context, databaseName string) error
}

// TenantOpener opens a pool on a named record database.
type TenantOpener func(ctx context.Context, databaseName string) (*gorm.DB, error)

// MySQLProvisioner issues CREATE DATABASE on the platform server and
// migrates the record tables through a short-lived tenant pool.
type MySQLProvisioner struct {
	platform *gorm.DB
	open     TenantOpener
	validate func(string) error
}

// NewMySQLProvisioner builds a provisioner. validate guards the database
// name before it is interpolated into DDL.
func NewMySQLProvisioner(platform *gorm.DB, open TenantOpener, validate func(string) error) (*MySQLProvisioner, error) {
	if platform == nil {
		return nil, fmt.Errorf("platform db required")
	}
	if open == nil {
		return nil, fmt.Errorf("tenant opener required")
	}
	if validate == nil {
		return nil, fmt.Errorf("name validator required")
	}
	return &MySQLProvisioner{platform: platform, open: open, validate: validate}, nil
}

func (p *MySQLProvisioner) Provision(ctx context.Context, databaseName string) error {
	if err := p.validate(databaseName); err != nil {
		return err
	}
	stmt := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci", databaseName)
	if err := p.platform.WithContext(ctx).Exec(stmt).Error; err != nil {
		return fmt.Errorf("create database %s: %w", databaseName, err)
	}
	return MigrateRecordTables(ctx, p.open, databaseName)
}

// MigrateRecordTables creates or updates the record tables of one church
// database. The pool is closed before returning.
func MigrateRecordTables(ctx context.Context, open TenantOpener, databaseName string) error {
	conn, err := open(ctx, databaseName)
	if err != nil {
		return fmt.Errorf("open %s: %w", databaseName, err)
	}
	defer func() { _ = db.CloseGorm(conn) }()
	if err := conn.WithContext(ctx).AutoMigrate(models.TenantModels()...); err != nil {
		return fmt.Errorf("migrate %s: %w", databaseName, err)
	}
	return nil
}
