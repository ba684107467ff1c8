// Package config loads and validates process configuration from
// environment variables, following the teacher's viper-based loading
// style (internal/global/config.go) generalized into a single explicit
// struct instead of package-level singletons (SPEC_FULL §9).
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type PostgresConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database" validate:"required"`
	SSLMode  bool   `mapstructure:"sslmode"`
}

func (c PostgresConfig) DSN() string {
	ssl := "disable"
	if c.SSLMode {
		ssl = "require"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, ssl)
}

type RedisConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type BrokerConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	VHost    string `mapstructure:"vhost"`
	Queue    string `mapstructure:"queue" validate:"required"`
}

func (c BrokerConfig) URL() string {
	return fmt.Sprintf("nats://%s:%s@%s:%d", c.User, c.Password, c.Host, c.Port)
}

type OracleConfig struct {
	Provider string        `mapstructure:"provider" validate:"required,oneof=openai ollama"`
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Model    string        `mapstructure:"model" validate:"required"`
	Timeout  time.Duration `mapstructure:"timeout"`
	MaxTokens int          `mapstructure:"max_tokens"`
}

type TaskConfig struct {
	TTL               time.Duration `mapstructure:"ttl"`
	SearchCacheTTL    time.Duration `mapstructure:"search_cache_ttl"`
	ArtifactTTL       time.Duration `mapstructure:"artifact_ttl"`
	ProcessingTimeout time.Duration `mapstructure:"processing_timeout"`
	EnableProducerCache bool        `mapstructure:"enable_producer_cache"`
	EnablePartialResults bool       `mapstructure:"enable_partial_results"`
	MaxResults          int         `mapstructure:"max_results"`
}

type WorkerConfig struct {
	Prefetch        int           `mapstructure:"prefetch"`
	MaxRetries      int           `mapstructure:"max_retries"`
	HealthCheckPort int           `mapstructure:"health_check_port"`
	HealthCheckHost string        `mapstructure:"health_check_host"`
	ShutdownWaitTime time.Duration `mapstructure:"shutdown_wait_time"`
}

type LoggerConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

// Config is the full process configuration. A single command (serve,
// worker, migrate) uses the subset it needs.
type Config struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Broker   BrokerConfig   `mapstructure:"broker"`
	Oracle   OracleConfig   `mapstructure:"oracle"`
	Task     TaskConfig     `mapstructure:"task"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Logger   LoggerConfig   `mapstructure:"logger"`

	HTTPHost string `mapstructure:"http_host"`
	HTTPPort int    `mapstructure:"http_port"`
}

// Load reads configuration from environment variables (prefixed
// HYDROSEARCH_) with sane defaults, then validates it.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HYDROSEARCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(envKeyReplacer())

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", false)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)

	v.SetDefault("broker.host", "localhost")
	v.SetDefault("broker.port", 4222)
	v.SetDefault("broker.queue", "search_queue")

	v.SetDefault("oracle.provider", "openai")
	v.SetDefault("oracle.timeout", 120*time.Second)
	v.SetDefault("oracle.max_tokens", 1024)

	v.SetDefault("task.ttl", time.Hour)
	v.SetDefault("task.search_cache_ttl", 10*time.Minute)
	v.SetDefault("task.artifact_ttl", 24*time.Hour)
	v.SetDefault("task.processing_timeout", 300*time.Second)
	v.SetDefault("task.enable_producer_cache", true)
	v.SetDefault("task.enable_partial_results", true)
	v.SetDefault("task.max_results", 10)

	v.SetDefault("worker.prefetch", 1)
	v.SetDefault("worker.max_retries", 3)
	v.SetDefault("worker.health_check_port", 8080)
	v.SetDefault("worker.health_check_host", "0.0.0.0")
	v.SetDefault("worker.shutdown_wait_time", 5*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.console", true)

	v.SetDefault("http_host", "0.0.0.0")
	v.SetDefault("http_port", 8000)
}
