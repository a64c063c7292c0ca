package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/audit"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/database"
	kafkautils "github.com/nimeshabuddhika/vending-kiosk/pkg/kafka"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/repositories"
	"github.com/nimeshabuddhika/vending-kiosk/services/order-worker/configs"
	"github.com/nimeshabuddhika/vending-kiosk/services/order-worker/internal/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// main runs the expiry sweeper, the ledger reconciler and the audit consumer.
func main() {
	// Initialize global logger with default configuration
	pkg.InitLogger("order-worker")
	logger := pkg.Logger
	defer logger.Sync() // Ensure all buffered logs are flushed on exit

	// Load configuration from environment and optional config file
	cfg, err := configs.Load(logger)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// Create a context that can be canceled for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize PostgreSQL database connection
	db, disconnect, err := database.New(ctx, logger, database.Config{
		PrimaryDSN:  cfg.PrimaryDbAddr,
		ReplicaDSNs: strings.Split(cfg.ReplicaDbAddr, ","),
		MaxConns:    cfg.MaxDbCons,
		MinConns:    cfg.MinDbCons,
	})
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer disconnect() // Ensure database connections are closed on shutdown

	publisher, err := kafkautils.NewEventPublisher(logger, kafkautils.PublisherConfig{
		Brokers:    cfg.KafkaBrokers,
		Topic:      cfg.KafkaOrderEventsTopic,
		Partitions: cfg.KafkaPartition,
		Retries:    cfg.KafkaRetry,
	})
	if err != nil {
		logger.Fatal("failed to create kafka producer", zap.Error(err))
	}
	defer publisher.Close()

	orderRepo := repositories.NewOrderRepository()

	stopSweeper := services.NewExpirySweeper(services.ExpirySweeperConfig{
		Logger:     logger,
		DB:         db,
		OrderRepo:  orderRepo,
		Publisher:  publisher,
		Interval:   cfg.SweepInterval,
		BatchSize:  cfg.SweepBatch,
		MaxBackoff: cfg.MaxSweepBackoff,
	}).Start(ctx)

	// Reconciliation reads go to the primary so fresh writes are never reported as drift.
	stopReconciler := services.NewReconciler(services.ReconcilerConfig{
		Logger:     logger,
		DB:         db.Primary(),
		WalletRepo: repositories.NewWalletRepository(),
		OrderRepo:  orderRepo,
		Interval:   cfg.ReconcileInterval,
		Limit:      cfg.ReconcileLimit,
	}).Start(ctx)

	stopConsumer := func() {}
	if cfg.KafkaBrokers != "" && cfg.MongoURI != "" {
		mongoClient, closeMongo, err := audit.Connect(ctx, logger, cfg.MongoURI)
		if err != nil {
			logger.Fatal("failed to connect to mongodb", zap.Error(err))
		}
		defer closeMongo()
		store := audit.NewMongoStore(mongoClient, cfg.MongoDB)
		if err = store.EnsureIndexes(ctx); err != nil {
			logger.Fatal("failed to create audit indexes", zap.Error(err))
		}
		consumer, err := services.NewAuditConsumer(services.AuditConsumerConfig{
			Logger:            logger,
			Brokers:           cfg.KafkaBrokers,
			Topic:             cfg.KafkaOrderEventsTopic,
			Group:             cfg.KafkaAuditConsumerGroup,
			MaxConcurrentJobs: cfg.MaxAuditConcurrentJobs,
			Store:             store,
		})
		if err != nil {
			logger.Fatal("failed to create kafka consumer", zap.Error(err))
		}
		if stopConsumer, err = consumer.Start(ctx); err != nil {
			logger.Fatal("failed to subscribe to order events", zap.Error(err))
		}
	} else {
		logger.Warn("audit consumer disabled, kafka brokers or mongo uri not configured")
	}

	// Expose Prometheus metrics
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("metrics server started", zap.String("addr", cfg.MetricsAddr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	// Handle graceful shutdown on SIGINT or SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	osSignal := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", osSignal.String()))
	cancel() // Trigger context cancellation
	stopConsumer()
	stopSweeper()
	stopReconciler()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", zap.Error(err))
	}
	logger.Info("service shutdown completed successfully")
}
