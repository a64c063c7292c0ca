package configs

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/utils"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds application configuration for order-worker.
type Config struct {
	MetricsAddr             string        `mapstructure:"METRICS_ADDR" validate:"required"`
	PrimaryDbAddr           string        `mapstructure:"PRIMARY_DB_ADDR" validate:"required"`
	ReplicaDbAddr           string        `mapstructure:"REPLICA_DB_ADDR"`
	MaxDbCons               int32         `mapstructure:"MAX_DB_CONNECTIONS" validate:"min=1"`
	MinDbCons               int32         `mapstructure:"MIN_DB_CONNECTIONS" validate:"min=1"`
	KafkaBrokers            string        `mapstructure:"KAFKA_BROKERS"` // empty disables publishing and the audit consumer
	KafkaRetry              int           `mapstructure:"KAFKA_RETRY" validate:"min=1"`
	KafkaPartition          int32         `mapstructure:"KAFKA_PARTITION" validate:"min=1"`
	KafkaOrderEventsTopic   string        `mapstructure:"KAFKA_ORDER_EVENTS_TOPIC" validate:"required"`
	KafkaAuditConsumerGroup string        `mapstructure:"KAFKA_AUDIT_CONSUMER_GROUP" validate:"required"`
	MaxAuditConcurrentJobs  int           `mapstructure:"MAX_AUDIT_CONCURRENT_JOBS" validate:"min=1"`
	MongoURI                string        `mapstructure:"MONGO_URI"` // empty disables the audit consumer
	MongoDB                 string        `mapstructure:"MONGO_DB" validate:"required"`
	SweepInterval           time.Duration `mapstructure:"SWEEP_INTERVAL" validate:"required"`
	SweepBatch              int           `mapstructure:"SWEEP_BATCH" validate:"min=1,max=10000"`
	MaxSweepBackoff         time.Duration `mapstructure:"MAX_SWEEP_BACKOFF" validate:"required"`
	ReconcileInterval       time.Duration `mapstructure:"RECONCILE_INTERVAL" validate:"required"`
	ReconcileLimit          int           `mapstructure:"RECONCILE_LIMIT" validate:"min=1"`
}

func Load(logger *zap.Logger) (*Config, error) {
	if err := godotenv.Load(); err == nil {
		logger.Info("loaded environment from .env")
	}

	viper.SetEnvPrefix("app") // Prefix for env vars
	viper.AutomaticEnv()

	// Default values
	viper.SetDefault("METRICS_ADDR", ":9091")
	viper.SetDefault("MAX_DB_CONNECTIONS", "5")
	viper.SetDefault("MIN_DB_CONNECTIONS", "1")
	viper.SetDefault("KAFKA_RETRY", "3")
	viper.SetDefault("KAFKA_PARTITION", "4")
	viper.SetDefault("KAFKA_ORDER_EVENTS_TOPIC", "vending.order-events")
	viper.SetDefault("KAFKA_AUDIT_CONSUMER_GROUP", "order-audit")
	viper.SetDefault("MAX_AUDIT_CONCURRENT_JOBS", "8")
	viper.SetDefault("MONGO_DB", "vending_kiosk")
	viper.SetDefault("SWEEP_INTERVAL", "30s")
	viper.SetDefault("SWEEP_BATCH", "500")
	viper.SetDefault("MAX_SWEEP_BACKOFF", "5m")
	viper.SetDefault("RECONCILE_INTERVAL", "10m")
	viper.SetDefault("RECONCILE_LIMIT", "100")

	// Optional: Read from config.yaml if exists
	if gin.ReleaseMode == gin.Mode() {
		viper.SetConfigName("config.prod")
	} else if gin.TestMode == gin.Mode() {
		logger.Warn("running in test mode")
		viper.SetConfigName("config.test")
	} else {
		logger.Warn("running in development mode")
		viper.SetConfigName("config.dev")
	}
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./services/order-worker/configs")
	_ = viper.ReadInConfig() // Ignore if no file

	var cfg Config
	if err := utils.ParseStructEnv(&cfg); err != nil {
		return nil, err
	}

	// Validate after unmarshal
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, utils.FormatConfigErrors(logger, err, cfg)
	}
	return &cfg, nil
}
