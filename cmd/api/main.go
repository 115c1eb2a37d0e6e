package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/orthodoxmetrics/om-backend/api/controllers"
	"github.com/orthodoxmetrics/om-backend/api/routes"
	"github.com/orthodoxmetrics/om-backend/internal/auth"
	"github.com/orthodoxmetrics/om-backend/internal/churches"
	"github.com/orthodoxmetrics/om-backend/internal/ocr"
	"github.com/orthodoxmetrics/om-backend/internal/records"
	"github.com/orthodoxmetrics/om-backend/internal/tenancy"
	"github.com/orthodoxmetrics/om-backend/internal/users"
	"github.com/orthodoxmetrics/om-backend/pkg/auth/session"
	"github.com/orthodoxmetrics/om-backend/pkg/config"
	"github.com/orthodoxmetrics/om-backend/pkg/db"
	"github.com/orthodoxmetrics/om-backend/pkg/instance"
	"github.com/orthodoxmetrics/om-backend/pkg/logger"
	"github.com/orthodoxmetrics/om-backend/pkg/metrics"
	"github.com/orthodoxmetrics/om-backend/pkg/migrate"
	"github.com/orthodoxmetrics/om-backend/pkg/pubsub"
	"github.com/orthodoxmetrics/om-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	platform, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, platform.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, platform); err != nil {
		return err
	}

	authDB := platform
	if cfg.AuthDB.Enabled() {
		authDB, err = db.NewFromDSN(ctx, cfg.AuthDSN(), db.PoolOptionsFrom(cfg.DB), logg)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, authDB.Close()) }()
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	poolMetrics := metrics.NewTenantPoolMetrics(registry)

	churchRepo := churches.NewRepository(platform.DB())
	resolver, err := tenancy.NewResolver(churchRepo, cfg.DB.Name, cfg.AuthDB.Name)
	if err != nil {
		return err
	}
	opener := tenancy.MySQLOpener(cfg)
	pools, err := tenancy.NewPoolCache(opener, tenancy.PoolCacheOptions{
		MaxEntries: cfg.Tenant.MaxEntries,
		TTL:        cfg.Tenant.PoolTTL,
		Metrics:    poolMetrics,
		Logger:     logg,
	})
	if err != nil {
		return err
	}
	invalidator, err := tenancy.NewInvalidator(redisClient, logg)
	if err != nil {
		return err
	}
	tenants, err := tenancy.NewManager(tenancy.ManagerParams{
		Resolver: resolver,
		Pools:    pools,
		Bus:      invalidator,
		Metrics:  poolMetrics,
		Logger:   logg,
	})
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, tenants.Close()) }()

	listenCtx, stopListening := context.WithCancel(ctx)
	defer stopListening()
	go func() {
		if err := invalidator.Listen(listenCtx, pools, nil); err != nil {
			logg.Error(listenCtx, "tenant.invalidation_listener_failed", err)
		}
	}()

	provisioner, err := churches.NewMySQLProvisioner(platform.DB(), churches.TenantOpener(opener), tenants.ValidateName)
	if err != nil {
		return err
	}
	churchService, err := churches.NewService(churches.ServiceParams{
		Repo:        churchRepo,
		Tenants:     tenants,
		Provisioner: provisioner,
		Logger:      logg,
	})
	if err != nil {
		return err
	}

	userRepo := users.NewRepository(authDB.DB())
	userService, err := users.NewService(users.ServiceParams{
		Repo:     userRepo,
		Churches: churchRepo,
		Sessions: sessionManager,
		Password: cfg.Password,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		ChurchRepo:     churchRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return err
	}

	readiness := []controllers.ReadinessCheck{
		{Name: "platform_db", Pinger: platform},
		{Name: "redis", Pinger: redisClient},
	}
	if authDB != platform {
		readiness = append(readiness, controllers.ReadinessCheck{Name: "auth_db", Pinger: authDB})
	}

	var publisher ocr.Publisher
	if cfg.PubSub.Enabled(cfg.GCP) {
		var pubsubClient *pubsub.Client
		pubsubClient, err = pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, pubsubClient.Close()) }()
		topic := pubsubClient.OCRPublisher()
		defer topic.Stop()
		if p := ocr.NewPubSubPublisher(topic); p != nil {
			publisher = p
		}
		readiness = append(readiness, controllers.ReadinessCheck{Name: "pubsub", Pinger: pubsubClient})
	} else {
		logg.Info(ctx, "pubsub disabled; ocr events will not be published")
	}

	handler, err := routes.NewRouter(routes.Params{
		Config:         cfg,
		Logger:         logg,
		Redis:          redisClient,
		Sessions:       sessionManager,
		Tenants:        tenants,
		Readiness:      readiness,
		Metrics:        metrics.NewHTTPMetrics(registry),
		Gatherer:       registry,
		AuthService:    authService,
		ChurchService:  churchService,
		UserService:    userService,
		RecordsService: records.NewService(logg),
		OCRService:     ocr.NewService(publisher, logg),
	})
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":              cfg.App.Env,
		"addr":             addr,
		"instance":         instance.GetID(),
		"tenant_pool_size": cfg.Tenant.MaxEntries,
	})
	logg.Info(logCtx, "starting api server")

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-serveErr
}
