package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/ChiaYuChang/hydrosearch/internal/app"
	"github.com/ChiaYuChang/hydrosearch/internal/config"
	"github.com/ChiaYuChang/hydrosearch/internal/llmgateway"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v2/option"
)

// newAppContext loads configuration and dials the dependencies every
// subcommand needs (logger, tracer, Redis, NATS), mirroring the
// teacher's LoadConfigs+global.Logger/NATS() bring-up sequence but
// returning an explicit *app.Context instead of populating
// package-level globals (SPEC_FULL §9). Postgres is dialed separately
// by withPostgres since only the worker subcommand touches the catalog
// (spec §6: the HTTP surface only wraps Producer+StatusAPI).
func newAppContext(ctx context.Context, serviceName string) (*app.Context, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := app.NewLogger(cfg.Logger)

	tracer, _, err := app.InitTracing(ctx, serviceName, os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}

	redisClient, err := app.NewRedis(ctx, cfg.Redis, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}

	natsConn, err := app.NewNATS(cfg.Broker, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect broker: %w", err)
	}

	return &app.Context{
		Config: cfg,
		Logger: logger,
		Tracer: tracer,
		Redis:  redisClient,
		NATS:   natsConn,
	}, nil
}

// withPostgres dials Postgres into an already-built Context, used only
// by the worker subcommand.
func withPostgres(ctx context.Context, appCtx *app.Context) error {
	pool, err := app.NewPostgres(ctx, appCtx.Config.Postgres, appCtx.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect postgres: %w", err)
	}
	appCtx.Postgres = pool
	return nil
}

// newGenerator builds the llmgateway.Generator selected by
// cfg.Oracle.Provider (spec §4.2/§6: oracle.provider ∈ {openai,ollama}).
func newGenerator(ctx context.Context, cfg config.OracleConfig) (llmgateway.Generator, error) {
	switch cfg.Provider {
	case "ollama":
		base, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid oracle base_url: %w", err)
		}
		client := api.NewClient(base, http.DefaultClient)
		return llmgateway.NewOllamaGenerator(client), nil
	default:
		opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
		return llmgateway.NewOpenAIGenerator(opts...), nil
	}
}
