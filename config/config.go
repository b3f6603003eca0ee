package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// MongoDB configuration (lock audit trail).
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis configuration.
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB   int    `mapstructure:"REDIS_CACHE_DB"`
	RedisSessionDB int    `mapstructure:"REDIS_SESSION_DB"`
	RedisLockDB    int    `mapstructure:"REDIS_LOCK_DB"`
	RedisQueueDB   int    `mapstructure:"REDIS_QUEUE_DB"`

	// PMS (Property Management System) client configuration.
	PMSBaseURL        string  `mapstructure:"PMS_BASE_URL"`
	PMSAPIKey         string  `mapstructure:"PMS_API_KEY"`
	PMSTimeoutSeconds int     `mapstructure:"PMS_TIMEOUT_SECONDS"`
	PMSRatePerSecond  float64 `mapstructure:"PMS_RATE_PER_SECOND"`
	PMSRateBurst      int     `mapstructure:"PMS_RATE_BURST"`

	// Circuit breaker tuning.
	BreakerFailureThreshold int `mapstructure:"BREAKER_FAILURE_THRESHOLD"`
	BreakerRecoverySeconds  int `mapstructure:"BREAKER_RECOVERY_SECONDS"`

	// Availability cache tuning.
	AvailabilityTTLSeconds int `mapstructure:"AVAILABILITY_TTL_SECONDS"`
	LateCheckoutTTLSeconds int `mapstructure:"LATE_CHECKOUT_TTL_SECONDS"`
	SnapshotTTLHours       int `mapstructure:"SNAPSHOT_TTL_HOURS"`

	// Reservation lock tuning.
	LockTTLSeconds    int `mapstructure:"LOCK_TTL_SECONDS"`
	LockMaxExtensions int `mapstructure:"LOCK_MAX_EXTENSIONS"`

	// Guest session persistence tuning.
	SessionTTLSeconds    int `mapstructure:"SESSION_TTL_SECONDS"`
	SessionMaxRetries    int `mapstructure:"SESSION_MAX_RETRIES"`
	SessionBackoffBaseMs int `mapstructure:"SESSION_BACKOFF_BASE_MS"`
	SweepIntervalSeconds int `mapstructure:"SWEEP_INTERVAL_SECONDS"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "innkeeper")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_SESSION_DB", 1)
	viper.SetDefault("REDIS_LOCK_DB", 2)
	viper.SetDefault("REDIS_QUEUE_DB", 3)
	viper.SetDefault("PMS_BASE_URL", "http://localhost:9090")
	viper.SetDefault("PMS_API_KEY", "")
	viper.SetDefault("PMS_TIMEOUT_SECONDS", 10)
	viper.SetDefault("PMS_RATE_PER_SECOND", 10.0)
	viper.SetDefault("PMS_RATE_BURST", 5)
	viper.SetDefault("BREAKER_FAILURE_THRESHOLD", 5)
	viper.SetDefault("BREAKER_RECOVERY_SECONDS", 30)
	viper.SetDefault("AVAILABILITY_TTL_SECONDS", 300)
	viper.SetDefault("LATE_CHECKOUT_TTL_SECONDS", 120)
	viper.SetDefault("SNAPSHOT_TTL_HOURS", 24)
	viper.SetDefault("LOCK_TTL_SECONDS", 600)
	viper.SetDefault("LOCK_MAX_EXTENSIONS", 2)
	viper.SetDefault("SESSION_TTL_SECONDS", 1800)
	viper.SetDefault("SESSION_MAX_RETRIES", 3)
	viper.SetDefault("SESSION_BACKOFF_BASE_MS", 200)
	viper.SetDefault("SWEEP_INTERVAL_SECONDS", 300)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
