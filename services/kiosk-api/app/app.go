package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/cache"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/database"
	kafkautils "github.com/nimeshabuddhika/vending-kiosk/pkg/kafka"
	middleware "github.com/nimeshabuddhika/vending-kiosk/pkg/middlewares"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/otp"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/repositories"
	"github.com/nimeshabuddhika/vending-kiosk/services/kiosk-api/configs"
	_ "github.com/nimeshabuddhika/vending-kiosk/services/kiosk-api/docs"
	"github.com/nimeshabuddhika/vending-kiosk/services/kiosk-api/internal/handlers"
	"github.com/nimeshabuddhika/vending-kiosk/services/kiosk-api/internal/services"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Services is everything the router needs. Tests build it from fakes.
type Services struct {
	Catalog    services.CatalogService
	Orders     services.OrderService
	Wallet     services.WalletService
	Redemption services.RedemptionService
	Principal  middleware.PrincipalResolver
	Limiter    middleware.Limiter // optional, guards /machine
}

// NewRouter builds the Gin engine with all kiosk routes under /api/v1.
func NewRouter(logger *zap.Logger, svc Services) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	api.Use(middleware.TraceID(logger))
	api.Use(middleware.Metrics())

	handlers.NewCatalogHandler(logger, svc.Catalog).RegisterRoutes(api)

	user := api.Group("")
	user.Use(middleware.Principal(logger, svc.Principal))
	handlers.NewOrderHandler(logger, svc.Orders).RegisterRoutes(user)
	handlers.NewWalletHandler(logger, svc.Wallet).RegisterRoutes(user)

	machine := api.Group("/machine")
	if svc.Limiter != nil {
		machine.Use(middleware.RateLimit(logger, svc.Limiter, middleware.ClientIPKey))
	}
	handlers.NewMachineHandler(logger, svc.Redemption).RegisterRoutes(machine)

	handlers.NewBaseHandler(logger).RegisterRoutes(r)
	return r
}

// NewApp wires dependencies, builds the Gin engine, and returns an *http.Server and a cleanup func.
// It reads configuration from environment variables via configs.Load.
func NewApp(ctx context.Context, logger *zap.Logger) (*http.Server, func(), error) {
	// Load config
	cfg, err := configs.Load(logger)
	if err != nil {
		return nil, nil, err
	}
	defaultBalance, err := decimal.NewFromString(cfg.DefaultWalletBalance)
	if err != nil {
		return nil, nil, fmt.Errorf("APP_DEFAULT_WALLET_BALANCE: %w", err)
	}

	// Initialize postgres db
	dbConfig := database.Config{
		PrimaryDSN:  cfg.PrimaryDbAddr,
		ReplicaDSNs: strings.Split(cfg.ReplicaDbAddr, ","),
		MaxConns:    cfg.MaxDbCons,
		MinConns:    cfg.MinDbCons,
	}
	db, disconnect, err := database.New(ctx, logger, dbConfig)
	if err != nil {
		return nil, nil, err
	}

	// Run migrations on primary
	if err = database.RunMigrations(logger, cfg.PrimaryDbAddr); err != nil {
		disconnect()
		return nil, nil, err
	}

	redisClient, closeRedis, err := cache.New(ctx, logger, cache.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err != nil {
		disconnect()
		return nil, nil, err
	}

	if cfg.KafkaBrokers != "" {
		topics := kafkautils.OrderEventTopics(cfg.KafkaBrokers, cfg.KafkaOrderEventsTopic, int(cfg.KafkaPartition), cfg.KafkaEventsRetention)
		if err = kafkautils.InitKafkaTopics(logger, ctx, topics); err != nil {
			closeRedis()
			disconnect()
			return nil, nil, err
		}
	}
	publisher, err := kafkautils.NewEventPublisher(logger, kafkautils.PublisherConfig{
		Brokers:    cfg.KafkaBrokers,
		Topic:      cfg.KafkaOrderEventsTopic,
		Partitions: cfg.KafkaPartition,
		Retries:    cfg.KafkaRetry,
	})
	if err != nil {
		closeRedis()
		disconnect()
		return nil, nil, err
	}

	// Setup dependencies
	walletRepo := repositories.NewWalletRepository()
	txnRepo := repositories.NewTransactionRepository()
	orderRepo := repositories.NewOrderRepository()
	catalogRepo := repositories.NewCatalogRepository()

	catalogService := services.NewCatalogService(logger, db, catalogRepo, cache.NewRedisItemCache(redisClient, cfg.CatalogCacheTTL))
	walletService := services.NewWalletService(services.WalletServiceConfig{
		Logger:         logger,
		DB:             db,
		WalletRepo:     walletRepo,
		TxnRepo:        txnRepo,
		DefaultBalance: defaultBalance,
		RetryAttempts:  cfg.DbRetryAttempts,
		HistoryLimit:   cfg.HistoryLimit,
	})
	orderService := services.NewOrderService(services.OrderServiceConfig{
		Logger:         logger,
		DB:             db,
		OrderRepo:      orderRepo,
		WalletRepo:     walletRepo,
		TxnRepo:        txnRepo,
		Catalog:        catalogService,
		OtpGenerator:   otp.NewRandomGenerator(),
		Publisher:      publisher,
		DefaultBalance: defaultBalance,
		OtpMaxAttempts: cfg.OtpMaxAttempts,
		RetryAttempts:  cfg.DbRetryAttempts,
		HistoryLimit:   cfg.HistoryLimit,
	})
	redemptionService := services.NewRedemptionService(services.RedemptionServiceConfig{
		Logger:        logger,
		DB:            db,
		OrderRepo:     orderRepo,
		Authenticator: services.NewStaticKeyAuthenticator(cfg.MachineApiKeys),
		Publisher:     publisher,
		RetryAttempts: cfg.DbRetryAttempts,
	})

	var limiter middleware.Limiter
	if cfg.RedeemRatePerSec > 0 {
		limiter = pkg.NewDistributedLimiter(redisClient, "ratelimit:redeem", cfg.RedeemRatePerSec, cfg.RedeemRateBurst, time.Second, logger)
	}

	r := NewRouter(logger, Services{
		Catalog:    catalogService,
		Orders:     orderService,
		Wallet:     walletService,
		Redemption: redemptionService,
		Principal:  middleware.HeaderPrincipalResolver{},
		Limiter:    limiter,
	})

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	cleanup := func() {
		// flush pending order events first
		publisher.Close()
		closeRedis()
		// close db pools
		disconnect()
	}

	return srv, cleanup, nil
}
