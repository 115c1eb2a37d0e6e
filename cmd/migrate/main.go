package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/orthodoxmetrics/om-backend/internal/churches"
	"github.com/orthodoxmetrics/om-backend/internal/tenancy"
	"github.com/orthodoxmetrics/om-backend/pkg/config"
	"github.com/orthodoxmetrics/om-backend/pkg/db"
	"github.com/orthodoxmetrics/om-backend/pkg/logger"
	"github.com/orthodoxmetrics/om-backend/pkg/migrate"
)

func main() {
	ctx := context.Background()
	// bootstrap logger early (then re-init after config load)
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	// Flags
	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate|provision")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")

	// Command-specific flags
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	churchID := flag.Uint("church", 0, "church id for -cmd=provision; 0 migrates every active church database")

	flag.Parse()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx = logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": *dir,
	})

	// Commands that do NOT require DB
	switch *cmd {
	case "create":
		if *name == "" {
			fmt.Fprintln(os.Stderr, "missing -name for create")
			os.Exit(1)
		}
		logg.Info(ctx, "migrate ready")
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create migration: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("created migration:", path)
		return

	case "validate":
		logg.Info(ctx, "migrate ready")
		if err := migrate.ValidateDir(*dir); err != nil {
			fmt.Fprintf(os.Stderr, "migration validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("migration validation passed")
		return
	}

	// Everything else needs DB
	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	logg.Info(ctx, "migrate ready")

	switch *cmd {
	case "up":
		if err := migrate.Run(ctx, sqlDB, *dir, "up"); err != nil {
			fmt.Fprintf(os.Stderr, "goose up failed: %v\n", err)
			os.Exit(1)
		}

	case "down":
		if err := migrate.Run(ctx, sqlDB, *dir, "down"); err != nil {
			fmt.Fprintf(os.Stderr, "goose down failed: %v\n", err)
			os.Exit(1)
		}

	case "status":
		if err := migrate.Run(ctx, sqlDB, *dir, "status"); err != nil {
			fmt.Fprintf(os.Stderr, "goose status failed: %v\n", err)
			os.Exit(1)
		}

	case "version":
		if *version == "" {
			fmt.Fprintln(os.Stderr, "missing -version for version command")
			os.Exit(1)
		}
		if err := migrate.MigrateToVersion(ctx, sqlDB, *dir, *version); err != nil {
			fmt.Fprintf(os.Stderr, "goose version migrate failed: %v\n", err)
			os.Exit(1)
		}

	case "provision":
		if err := provision(ctx, cfg, logg, dbClient.DB(), *churchID); err != nil {
			fmt.Fprintf(os.Stderr, "provision failed: %v\n", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", *cmd)
		os.Exit(1)
	}
}

// provision creates and migrates one church record database, or migrates
// the record tables of every active church that already has one.
func provision(ctx context.Context, cfg *config.Config, logg *logger.Logger, platform *gorm.DB, churchID uint) error {
	repo := churches.NewRepository(platform)
	resolver, err := tenancy.NewResolver(repo, cfg.DB.Name, cfg.AuthDB.Name)
	if err != nil {
		return err
	}
	opener := churches.TenantOpener(tenancy.MySQLOpener(cfg))
	provisioner, err := churches.NewMySQLProvisioner(platform, opener, resolver.ValidateName)
	if err != nil {
		return err
	}

	if churchID == 0 {
		list, err := repo.List(ctx, false)
		if err != nil {
			return err
		}
		var failed error
		for _, church := range list {
			name, ok := church.RecordDatabase()
			if !ok {
				continue
			}
			churchCtx := logg.WithTenantDB(logg.WithChurchID(ctx, church.ID), name)
			if err := provisioner.Provision(ctx, name); err != nil {
				logg.Error(churchCtx, "church database migration failed", err)
				failed = multierr.Append(failed, err)
				continue
			}
			logg.Info(churchCtx, "church database migrated")
		}
		return failed
	}

	church, err := repo.FindByID(ctx, churchID)
	if err != nil {
		return fmt.Errorf("loading church %d: %w", churchID, err)
	}
	name, ok := church.RecordDatabase()
	if !ok {
		name = churches.DefaultDatabaseName(church.ID)
	}
	if err := provisioner.Provision(ctx, name); err != nil {
		return err
	}
	if !ok {
		if err := repo.SetDatabaseName(ctx, church.ID, name); err != nil {
			return fmt.Errorf("assigning database name: %w", err)
		}
	}
	logg.Info(logg.WithTenantDB(logg.WithChurchID(ctx, church.ID), name), "church database provisioned")
	return nil
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
