package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type (
	// Config holds configuration settings for the compiler and engine
	Config struct {
		// API Server
		APIHost  string
		APIPort  int
		LogLevel string

		// Expressions & Binding
		ExpressionBackend   Backend
		MaxValueLength      int
		MaxExpressionLength int
		ScriptCacheSize     int

		// Engine
		MaxSteps        int
		ShutdownTimeout time.Duration

		// Event Delivery
		EventBatchSize int
		Redis          RedisConfig
		Archive        ArchiveConfig
	}

	// RedisConfig configures the Redis stream event sink. An empty Addr
	// disables the sink
	RedisConfig struct {
		Addr     string
		Password string
		DB       int
		Stream   string
		MaxLen   int64
	}

	// ArchiveConfig configures the blob archive of finished runs. An empty
	// BucketURL disables archiving
	ArchiveConfig struct {
		BucketURL string
		Prefix    string
	}

	// Backend selects the expression evaluation language
	Backend string
)

const (
	BackendLua Backend = "lua"
	BackendAle Backend = "ale"
)

const (
	DefaultShutdownTimeout = 10 * time.Second

	DefaultAPIPort = 8080
	DefaultAPIHost = "0.0.0.0"
	MaxTCPPort     = 65535

	DefaultExpressionBackend   = BackendLua
	DefaultMaxValueLength      = 65536
	DefaultMaxExpressionLength = 1000
	DefaultScriptCacheSize     = 1024
	DefaultMaxSteps            = 100_000
	DefaultEventBatchSize      = 100

	DefaultRedisStream   = "cloudslang:events"
	DefaultRedisMaxLen   = 10_000
	DefaultArchivePrefix = "runs/"

	MaxValueLength      = 64 * 1024 * 1024
	MaxExpressionLength = 1_000_000
	MaxScriptCacheSize  = 1_000_000
	MaxMaxSteps         = 1_000_000_000
	MaxEventBatchSize   = 10_000
)

var (
	ErrInvalidAPIPort           = errors.New("invalid API port")
	ErrInvalidExpressionBackend = errors.New("invalid expression backend")
	ErrInvalidMaxValueLength    = errors.New(
		"max value length must be positive",
	)
	ErrInvalidMaxExpressionLength = errors.New(
		"max expression length must be positive",
	)
	ErrInvalidScriptCacheSize = errors.New(
		"script cache size must be positive",
	)
	ErrInvalidMaxSteps       = errors.New("max steps must be positive")
	ErrInvalidEventBatchSize = errors.New("event batch size must be positive")
	ErrMissingRedisStream    = errors.New("redis stream name is required")
)

// NewDefaultConfig creates a configuration with sensible defaults for the
// evaluator, engine, and event delivery. Optional sinks start disabled
func NewDefaultConfig() *Config {
	return &Config{
		APIPort:             DefaultAPIPort,
		APIHost:             DefaultAPIHost,
		LogLevel:            "info",
		ExpressionBackend:   DefaultExpressionBackend,
		MaxValueLength:      DefaultMaxValueLength,
		MaxExpressionLength: DefaultMaxExpressionLength,
		ScriptCacheSize:     DefaultScriptCacheSize,
		MaxSteps:            DefaultMaxSteps,
		ShutdownTimeout:     DefaultShutdownTimeout,
		EventBatchSize:      DefaultEventBatchSize,
		Redis: RedisConfig{
			Stream: DefaultRedisStream,
			MaxLen: DefaultRedisMaxLen,
		},
		Archive: ArchiveConfig{
			Prefix: DefaultArchivePrefix,
		},
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed.
func (c *Config) LoadFromEnv() error {
	if apiHost := os.Getenv("API_HOST"); apiHost != "" {
		c.APIHost = apiHost
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.LogLevel = logLevel
	}
	if backend := os.Getenv("EXPRESSION_BACKEND"); backend != "" {
		c.ExpressionBackend = Backend(backend)
	}
	loadRedisConfigFromEnv(&c.Redis)
	if url := os.Getenv("ARCHIVE_BUCKET_URL"); url != "" {
		c.Archive.BucketURL = url
	}
	if prefix := os.Getenv("ARCHIVE_PREFIX"); prefix != "" {
		c.Archive.Prefix = prefix
	}

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}
	if err := loadEnvInt(
		"MAX_VALUE_LENGTH", &c.MaxValueLength, 0, MaxValueLength,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"MAX_EXPRESSION_LENGTH", &c.MaxExpressionLength, 0,
		MaxExpressionLength,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"SCRIPT_CACHE_SIZE", &c.ScriptCacheSize, 0, MaxScriptCacheSize,
	); err != nil {
		return err
	}
	if err := loadEnvInt("MAX_STEPS", &c.MaxSteps, 0, MaxMaxSteps); err != nil {
		return err
	}
	if err := loadEnvInt(
		"EVENT_BATCH_SIZE", &c.EventBatchSize, 0, MaxEventBatchSize,
	); err != nil {
		return err
	}

	return nil
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}

	if c.ExpressionBackend != BackendLua && c.ExpressionBackend != BackendAle {
		return fmt.Errorf("%w: %s",
			ErrInvalidExpressionBackend, c.ExpressionBackend)
	}

	if c.MaxValueLength <= 0 {
		return ErrInvalidMaxValueLength
	}

	if c.MaxExpressionLength <= 0 {
		return ErrInvalidMaxExpressionLength
	}

	if c.ScriptCacheSize <= 0 {
		return ErrInvalidScriptCacheSize
	}

	if c.MaxSteps <= 0 {
		return ErrInvalidMaxSteps
	}

	if c.EventBatchSize <= 0 {
		return ErrInvalidEventBatchSize
	}

	if c.Redis.Addr != "" && c.Redis.Stream == "" {
		return ErrMissingRedisStream
	}

	return nil
}

func loadRedisConfigFromEnv(r *RedisConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		r.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		r.Password = password
	}
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		db, err := strconv.Atoi(dbStr)
		if err == nil {
			r.DB = db
		}
	}
	if stream := os.Getenv("REDIS_STREAM"); stream != "" {
		r.Stream = stream
	}
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max]. Returns an error if
// the value cannot be parsed or falls outside the valid range.
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}
