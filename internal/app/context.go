// Package app wires together the process-wide dependencies (database
// pool, cache client, broker connection, tracer, logger) into a single
// explicit context passed by reference to handler/worker constructors.
// This replaces the teacher's package-level lazily-initialized
// singletons (internal/global/global.go) per SPEC_FULL §9's redesign
// note: "replace with an explicit application context passed by
// reference through handler construction."
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ChiaYuChang/hydrosearch/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Context bundles every shared, concurrency-safe dependency a
// component constructor needs. It is built once at process startup and
// passed down explicitly; nothing in this repo reaches for a
// package-level global to find it.
type Context struct {
	Config *config.Config
	Logger zerolog.Logger
	Tracer trace.Tracer

	Postgres *pgxpool.Pool
	Redis    *redis.Client
	NATS     *nats.Conn
}

// Close releases every connection held by the context. Safe to call
// with nil fields (a partially-built context during startup failure).
func (c *Context) Close() {
	if c.Postgres != nil {
		c.Postgres.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.NATS != nil {
		c.NATS.Close()
	}
}

// NewRedis connects to Redis, following the teacher's retry-with-backoff
// connect pattern (internal/global/global.go NATS()/PostgresPool()).
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger zerolog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	var err error
	for retry := 0; retry < 5; retry++ {
		pCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = client.Ping(pCtx).Err()
		cancel()
		if err == nil {
			break
		}
		wait := time.Duration(1<<retry) * time.Second
		logger.Warn().Err(err).Int("retry", retry).Dur("wait", wait).Msg("waiting for redis connection")
		time.Sleep(wait)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// NewPostgres connects to Postgres, mirroring the teacher's
// PostgresPool() retry loop.
func NewPostgres(ctx context.Context, cfg config.PostgresConfig, logger zerolog.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	for retry := 0; retry < 5; retry++ {
		pCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = pool.Ping(pCtx)
		cancel()
		if err == nil {
			break
		}
		wait := time.Duration(1<<retry) * time.Second
		logger.Warn().Err(err).Int("retry", retry).Dur("wait", wait).Msg("waiting for postgres connection")
		time.Sleep(wait)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return pool, nil
}

// NewNATS connects to the broker's NATS server, mirroring the teacher's
// NATS() retry loop (internal/global/global.go).
func NewNATS(cfg config.BrokerConfig, logger zerolog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(cfg.URL(), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	for retry := 0; nc.Status() != nats.CONNECTED && retry < 5; retry++ {
		wait := time.Duration(1<<retry) * time.Second
		logger.Warn().Int("retry", retry).Dur("wait", wait).Msg("waiting for broker connection")
		time.Sleep(wait)
	}
	if nc.Status() != nats.CONNECTED {
		return nil, fmt.Errorf("broker not connected after retries")
	}
	return nc, nil
}
