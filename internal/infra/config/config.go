package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates application configuration values loaded from environment
// variables.
type Config struct {
	Env                string
	HTTPAddr           string
	StorageMode        string
	MongoURI           string
	MongoDB            string
	KafkaBrokers       []string
	KafkaTopicPrefix   string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	LeaseMode          string
	LeaseTimeout       time.Duration
	BookingHorizonDays int
	AdminIdentities    []string
	DefaultCurrency    string
	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration
	RetryBackoff       time.Duration
}

// Load parses configuration from the current environment. A .env file in the
// working directory is applied first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		StorageMode:      strings.ToLower(getEnv("STORAGE_MODE", "memory")),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "ereft"),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		LeaseMode:        strings.ToLower(getEnv("LEASE_MODE", "memory")),
		DefaultCurrency:  strings.ToUpper(getEnv("DEFAULT_CURRENCY", "ETB")),
	}

	brokers := getEnv("KAFKA_BROKERS", "")
	if brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	admins := getEnv("ADMIN_IDENTITIES", "")
	if admins != "" {
		for _, raw := range strings.Split(admins, ",") {
			if id := strings.TrimSpace(raw); id != "" {
				cfg.AdminIdentities = append(cfg.AdminIdentities, id)
			}
		}
	}

	leaseTimeoutMS, err := parseIntEnv("PROPERTY_LEASE_TIMEOUT_MS", 2000)
	if err != nil {
		return Config{}, err
	}
	if leaseTimeoutMS < 1 {
		return Config{}, fmt.Errorf("PROPERTY_LEASE_TIMEOUT_MS must be positive")
	}
	cfg.LeaseTimeout = time.Duration(leaseTimeoutMS) * time.Millisecond

	horizon, err := parseIntEnv("BOOKING_HORIZON_DAYS", 365)
	if err != nil {
		return Config{}, err
	}
	if horizon < 1 {
		return Config{}, fmt.Errorf("BOOKING_HORIZON_DAYS must be positive")
	}
	cfg.BookingHorizonDays = horizon

	redisDB, err := parseIntEnv("REDIS_DB", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.RedisDB = redisDB

	idempotencyTTL, err := parseDurationEnv("IDEMP_TTL", 168*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.IdempotencyTTL = idempotencyTTL

	poll, err := parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return Config{}, err
	}
	cfg.OutboxPollInterval = poll

	backoff, err := parseDurationEnv("RETRY_BACKOFF", 100*time.Millisecond)
	if err != nil {
		return Config{}, err
	}
	cfg.RetryBackoff = backoff

	if cfg.StorageMode == "mongo" && cfg.MongoURI == "" {
		return Config{}, fmt.Errorf("MONGO_URI is required when STORAGE_MODE=mongo")
	}
	if cfg.LeaseMode == "redis" && cfg.RedisAddr == "" {
		return Config{}, fmt.Errorf("REDIS_ADDR is required when LEASE_MODE=redis")
	}
	switch cfg.StorageMode {
	case "memory", "mongo":
	default:
		return Config{}, fmt.Errorf("invalid STORAGE_MODE %q", cfg.StorageMode)
	}
	switch cfg.LeaseMode {
	case "memory", "redis":
	default:
		return Config{}, fmt.Errorf("invalid LEASE_MODE %q", cfg.LeaseMode)
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %q", key, raw)
	}
	return v, nil
}
