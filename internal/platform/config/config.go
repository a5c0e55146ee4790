package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	pstrings "faceverify/pkg/platform/strings"
)

// Server captures process level configuration.
type Server struct {
	Addr      string
	LogLevel  string
	LogFormat string

	JWT         JWTConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	ModelServer ModelServerConfig

	CalibrationFile string
	// RequestTimeout and ProviderTimeout override the calibration when set.
	RequestTimeout  time.Duration
	ProviderTimeout time.Duration
	RiskWindow      time.Duration
}

// JWTConfig validates service tokens presented by the onboarding flow.
type JWTConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
}

// DatabaseConfig enables the Postgres result store when URL is set.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig enables the Redis risk store when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig enables the outbox relay when Brokers is non-empty.
type KafkaConfig struct {
	Brokers        []string
	ResultsTopic   string
	Partitions     int32
	Replication    int16
	OutboxInterval time.Duration
	OutboxBatch    int
}

// ModelServerConfig points at the face inference server.
type ModelServerConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var errs envErrors

	cfg := Server{
		Addr:      envString("FACEVERIFY_ADDR", ":8080"),
		LogLevel:  envString("LOG_LEVEL", "info"),
		LogFormat: envString("LOG_FORMAT", "json"),
		JWT: JWTConfig{
			// Use a default for development - should be overridden in production
			SigningKey: envString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:     envString("JWT_ISSUER", "onboarding"),
			Audience:   envString("JWT_AUDIENCE", "faceverify"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    errs.integer("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    errs.integer("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: errs.dur("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     errs.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: errs.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  errs.dur("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  errs.dur("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: errs.dur("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:        pstrings.SplitList(os.Getenv("KAFKA_BROKERS")),
			ResultsTopic:   envString("KAFKA_RESULTS_TOPIC", "faceverify.results"),
			Partitions:     int32(errs.integer("KAFKA_RESULTS_PARTITIONS", 3)),
			Replication:    int16(errs.integer("KAFKA_RESULTS_REPLICATION", 1)),
			OutboxInterval: errs.dur("OUTBOX_INTERVAL", time.Second),
			OutboxBatch:    errs.integer("OUTBOX_BATCH_SIZE", 100),
		},
		ModelServer: ModelServerConfig{
			URL:     os.Getenv("MODEL_SERVER_URL"),
			APIKey:  os.Getenv("MODEL_SERVER_API_KEY"),
			Timeout: errs.dur("MODEL_SERVER_TIMEOUT", 2*time.Second),
		},
		CalibrationFile: os.Getenv("CALIBRATION_FILE"),
		RequestTimeout:  errs.dur("REQUEST_TIMEOUT", 0),
		ProviderTimeout: errs.dur("PROVIDER_TIMEOUT", 0),
		RiskWindow:      errs.dur("RISK_WINDOW", 24*time.Hour),
	}

	if len(errs) > 0 {
		return Server{}, errs
	}
	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type envErrors []error

func (e envErrors) Error() string {
	msg := "invalid environment:"
	for _, err := range e {
		msg += " " + err.Error() + ";"
	}
	return msg
}

func (e *envErrors) integer(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*e = append(*e, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func (e *envErrors) dur(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*e = append(*e, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}
