package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/buybloem/storefront-notifier/internal/config"
	"github.com/buybloem/storefront-notifier/internal/dispatch"
	"github.com/buybloem/storefront-notifier/internal/domain"
	"github.com/buybloem/storefront-notifier/internal/handler"
	"github.com/buybloem/storefront-notifier/internal/infra/postgresql"
	"github.com/buybloem/storefront-notifier/internal/infra/postgresql/migrations"
	infraredis "github.com/buybloem/storefront-notifier/internal/infra/redis"
	"github.com/buybloem/storefront-notifier/internal/observability"
	"github.com/buybloem/storefront-notifier/internal/phone"
	"github.com/buybloem/storefront-notifier/internal/provider"
	"github.com/buybloem/storefront-notifier/internal/repository"
	"github.com/buybloem/storefront-notifier/internal/resolve"
	"github.com/buybloem/storefront-notifier/internal/transport"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	metrics := observability.NewMetrics()

	gateway, err := newGatewayProvider(cfg)
	if err != nil {
		logger.Fatal("gateway provider initialization failed", zap.Error(err))
	}

	limiter, err := infraredis.NewSendRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	normalizer := phone.NewNormalizer(phone.Rule{
		CountryCode: cfg.PhoneCountryCode,
		LocalLength: cfg.PhoneLocalLength,
		TrunkPrefix: '0',
	})

	storeRepo := repository.NewGormStoreRepo(db)
	noteRepo := repository.NewGormOrderNoteRepo(db)
	deliveryRepo := repository.NewGormDeliveryRepo(db)

	resolver, err := resolve.NewResolver(
		resolve.Lookups{
			Customers: storeRepo,
			Orders:    storeRepo,
			Vendors:   storeRepo,
			Addresses: storeRepo,
		},
		normalizer,
		cfg.StoreName,
		cfg.StoreOwnerPhone,
		logger,
	)
	if err != nil {
		logger.Fatal("resolver initialization failed", zap.Error(err))
	}

	dispatcher, err := dispatch.NewDispatcher(
		resolver,
		gateway,
		noteRepo,
		deliveryRepo,
		limiter,
		normalizer,
		logger,
		metrics,
	)
	if err != nil {
		logger.Fatal("dispatcher initialization failed", zap.Error(err))
	}

	providerCfg := domain.ProviderConfig{
		Enabled:     cfg.SMSEnabled,
		SenderPhone: cfg.SenderPhone,
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := handler.RegisterEventRoutes(app, dispatcher, noteRepo, deliveryRepo, providerCfg); err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("storefront-notifier api started",
			zap.Int("port", cfg.APIPort),
			zap.String("gatewayMode", cfg.GatewayMode),
			zap.Bool("smsEnabled", cfg.SMSEnabled),
		)
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})
	g.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
	}
}

func newGatewayProvider(cfg *config.Config) (provider.Provider, error) {
	switch cfg.GatewayMode {
	case config.GatewayModeSOAP:
		return provider.NewClickatellSOAPProvider(cfg.GatewayURL, provider.SOAPCredentials{
			APIID:    cfg.ClickatellAPIID,
			Username: cfg.ClickatellUsername,
			Password: cfg.ClickatellPassword,
		})
	default:
		return provider.NewClickatellProvider(cfg.GatewayURL, cfg.ClickatellAPIKey)
	}
}
