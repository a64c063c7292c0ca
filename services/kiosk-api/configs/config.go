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

type Config struct {
	Port                  string        `mapstructure:"PORT" validate:"required"`
	PrimaryDbAddr         string        `mapstructure:"PRIMARY_DB_ADDR" validate:"required"`
	ReplicaDbAddr         string        `mapstructure:"REPLICA_DB_ADDR"`
	MaxDbCons             int32         `mapstructure:"MAX_DB_CONNECTIONS" validate:"min=1"`
	MinDbCons             int32         `mapstructure:"MIN_DB_CONNECTIONS" validate:"min=1"`
	DbRetryAttempts       uint64        `mapstructure:"DB_RETRY_ATTEMPTS" validate:"min=1,max=10"`
	RedisAddr             string        `mapstructure:"REDIS_ADDR" validate:"required"`
	RedisPassword         string        `mapstructure:"REDIS_PASSWORD"`
	KafkaBrokers          string        `mapstructure:"KAFKA_BROKERS"` // empty disables event publishing
	KafkaRetry            int           `mapstructure:"KAFKA_RETRY" validate:"min=1"`
	KafkaPartition        int32         `mapstructure:"KAFKA_PARTITION" validate:"min=1"`
	KafkaOrderEventsTopic string        `mapstructure:"KAFKA_ORDER_EVENTS_TOPIC" validate:"required"`
	KafkaEventsRetention  time.Duration `mapstructure:"KAFKA_ORDER_EVENTS_RETENTION" validate:"required"`
	MachineApiKeys        string        `mapstructure:"MACHINE_API_KEYS" validate:"required"` // comma separated
	DefaultWalletBalance  string        `mapstructure:"DEFAULT_WALLET_BALANCE" validate:"required,numeric"`
	OtpMaxAttempts        int           `mapstructure:"OTP_MAX_ATTEMPTS" validate:"min=1,max=100"`
	RedeemRatePerSec      int           `mapstructure:"REDEEM_RATE_PER_SEC" validate:"min=0"`
	RedeemRateBurst       int           `mapstructure:"REDEEM_RATE_BURST" validate:"min=1"`
	CatalogCacheTTL       time.Duration `mapstructure:"CATALOG_CACHE_TTL" validate:"required"`
	HistoryLimit          int           `mapstructure:"HISTORY_LIMIT" validate:"min=1,max=500"`
}

func Load(logger *zap.Logger) (*Config, error) {
	// Local runs may keep secrets in .env; real deployments inject env vars.
	if err := godotenv.Load(); err == nil {
		logger.Info("loaded environment from .env")
	}

	viper.SetEnvPrefix("app") // Prefix for env vars
	viper.AutomaticEnv()

	// Default values
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("MAX_DB_CONNECTIONS", "10")
	viper.SetDefault("MIN_DB_CONNECTIONS", "2")
	viper.SetDefault("DB_RETRY_ATTEMPTS", "3")
	viper.SetDefault("KAFKA_RETRY", "3")
	viper.SetDefault("KAFKA_PARTITION", "4")
	viper.SetDefault("KAFKA_ORDER_EVENTS_TOPIC", "vending.order-events")
	viper.SetDefault("KAFKA_ORDER_EVENTS_RETENTION", "168h")
	viper.SetDefault("DEFAULT_WALLET_BALANCE", "0.00")
	viper.SetDefault("OTP_MAX_ATTEMPTS", "10")
	viper.SetDefault("REDEEM_RATE_PER_SEC", "5")
	viper.SetDefault("REDEEM_RATE_BURST", "10")
	viper.SetDefault("CATALOG_CACHE_TTL", "1m")
	viper.SetDefault("HISTORY_LIMIT", "50")

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
	viper.AddConfigPath("./services/kiosk-api/configs")
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
