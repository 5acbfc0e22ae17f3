package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "LUMIGLOW"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv     = "LUMIGLOW_APP_ENV"
	EnvAPIBaseURL = "LUMIGLOW_API_BASE_URL"
)

type Config struct {
	App     AppConfig
	API     APIConfig
	Storage StorageConfig
	Redis   RedisConfig
	Payment PaymentConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env      string `envconfig:"LUMIGLOW_APP_ENV" required:"true"`
	LogLevel string `envconfig:"LUMIGLOW_LOG_LEVEL" default:"info"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// APIConfig points the client at the remote commerce backend.
type APIConfig struct {
	BaseURL string        `envconfig:"LUMIGLOW_API_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"LUMIGLOW_API_TIMEOUT" default:"15s"`
}

// StorageConfig selects the durable cart storage backend.
type StorageConfig struct {
	Backend    string `envconfig:"LUMIGLOW_STORAGE_BACKEND" default:"sqlite"`
	SQLitePath string `envconfig:"LUMIGLOW_STORAGE_SQLITE_PATH" default:"storefront.db"`
}

const (
	StorageBackendSQLite = "sqlite"
	StorageBackendRedis  = "redis"
	StorageBackendMemory = "memory"
)

func (s StorageConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(s.Backend)) {
	case StorageBackendSQLite, StorageBackendRedis, StorageBackendMemory:
		return nil
	default:
		return fmt.Errorf("unknown storage backend %q", s.Backend)
	}
}

type RedisConfig struct {
	URL          string        `envconfig:"LUMIGLOW_REDIS_URL"`
	Address      string        `envconfig:"LUMIGLOW_REDIS_ADDR"`
	Password     string        `envconfig:"LUMIGLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"LUMIGLOW_REDIS_DB" default:"0"`
	DialTimeout  time.Duration `envconfig:"LUMIGLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LUMIGLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LUMIGLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// PaymentConfig configures the card-capture gateway path.
type PaymentConfig struct {
	GatewayBaseURL string        `envconfig:"LUMIGLOW_PAYMENT_GATEWAY_URL"`
	Timeout        time.Duration `envconfig:"LUMIGLOW_PAYMENT_TIMEOUT" default:"30s"`
}
