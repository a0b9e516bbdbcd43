package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName         = "Tyche"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultMetricsPort     = "9090"
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultLedgerTopic     = "ledger.events"
	defaultPaymentsTopic   = "payments.confirmed"
	defaultKafkaGroupID    = "tyche-deposits"
	defaultFeedBaseURL     = "https://v3.football.api-sports.io"
	defaultFeedRate        = 5.0
	defaultFeedCacheTTL    = 6 * time.Hour
	defaultSettleInterval  = 5 * time.Minute
	defaultSettleWorkers   = 8
	defaultSettleBatchSize = 500
	defaultSettleLeaseTTL  = 4 * time.Minute
	defaultPlacementPerMin = 30
	developmentJWTSecret   = "dev-secret-change-me"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurationEnvVar  = "IDEMPOTENCY_TTL"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	MetricsPort    string
	LogLevel       string
	LogFormat      string
	DatabaseURL    string
	DBMaxConns     int32
	RedisURL       string
	JWTSecret      string
	AdminTokenHash string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	Kafka      KafkaConfig
	Feed       FeedConfig
	Settlement SettlementConfig

	// PlacementPerMinute caps wager placement requests per user; zero disables the limit.
	PlacementPerMinute int
}

// KafkaConfig is empty-broker safe: Enabled reports whether any broker is configured.
type KafkaConfig struct {
	Brokers       string
	LedgerTopic   string
	PaymentsTopic string
	GroupID       string
}

func (k KafkaConfig) Enabled() bool { return strings.TrimSpace(k.Brokers) != "" }

type FeedConfig struct {
	BaseURL    string
	APIKey     string
	RatePerSec float64
	CacheTTL   time.Duration
}

type SettlementConfig struct {
	Interval  time.Duration
	Workers   int
	BatchSize int
	LeaseTTL  time.Duration
}

// Load reads configuration values from the environment (and a .env file when
// present) and populates a Config instance.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		MetricsPort:    getEnv("METRICS_PORT", defaultMetricsPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", defaultLogFormat)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AdminTokenHash: os.Getenv("ADMIN_TOKEN_HASH"),
		Kafka: KafkaConfig{
			Brokers:       os.Getenv("KAFKA_BROKERS"),
			LedgerTopic:   getEnv("KAFKA_TOPIC_LEDGER", defaultLedgerTopic),
			PaymentsTopic: getEnv("KAFKA_TOPIC_PAYMENTS", defaultPaymentsTopic),
			GroupID:       getEnv("KAFKA_GROUP_ID", defaultKafkaGroupID),
		},
		Feed: FeedConfig{
			BaseURL: strings.TrimRight(getEnv("FEED_BASE_URL", defaultFeedBaseURL), "/"),
			APIKey:  os.Getenv("FEED_API_KEY"),
		},
	}

	var err error
	if cfg.ShutdownPeriod, err = secondsOrDuration(shutdownSecondsEnvVar, shutdownDurationEnvVar, defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = secondsOrDuration(idemTTLSecondsEnvVar, idemTTLDurationEnvVar, defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.Feed.CacheTTL, err = durationEnv("FEED_CACHE_TTL", defaultFeedCacheTTL); err != nil {
		return Config{}, err
	}
	if cfg.Feed.RatePerSec, err = floatEnv("FEED_RATE_PER_SEC", defaultFeedRate); err != nil {
		return Config{}, err
	}
	if cfg.Settlement.Interval, err = durationEnv("SETTLEMENT_INTERVAL", defaultSettleInterval); err != nil {
		return Config{}, err
	}
	if cfg.Settlement.LeaseTTL, err = durationEnv("SETTLEMENT_LEASE_TTL", defaultSettleLeaseTTL); err != nil {
		return Config{}, err
	}
	if cfg.Settlement.Workers, err = intEnv("SETTLEMENT_WORKERS", defaultSettleWorkers); err != nil {
		return Config{}, err
	}
	if cfg.Settlement.BatchSize, err = intEnv("SETTLEMENT_BATCH_SIZE", defaultSettleBatchSize); err != nil {
		return Config{}, err
	}
	if cfg.PlacementPerMinute, err = intEnv("PLACEMENT_RATE_PER_MIN", defaultPlacementPerMin); err != nil {
		return Config{}, err
	}
	maxConns, err := intEnv("DB_MAX_CONNS", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.DBMaxConns = int32(maxConns)

	if cfg.Settlement.Workers < 1 {
		return Config{}, fmt.Errorf("SETTLEMENT_WORKERS must be at least 1")
	}

	if !cfg.IsDevelopment() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set")
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set")
		}
		if cfg.JWTSecret == "" {
			return Config{}, fmt.Errorf("JWT_SECRET must be set")
		}
	} else if cfg.JWTSecret == "" {
		cfg.JWTSecret = developmentJWTSecret
	}

	return cfg, nil
}

// IsDevelopment reports whether in-memory fallbacks are allowed.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == defaultAppEnv
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func secondsOrDuration(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	return durationEnv(durationKey, fallback)
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
