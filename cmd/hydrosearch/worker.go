package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/ChiaYuChang/hydrosearch/internal/broker"
	"github.com/ChiaYuChang/hydrosearch/internal/catalog"
	"github.com/ChiaYuChang/hydrosearch/internal/llmgateway"
	"github.com/ChiaYuChang/hydrosearch/internal/taskstore"
	wk "github.com/ChiaYuChang/hydrosearch/internal/worker"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run one pipeline Worker (prefetch=1 pull consumer)",
	RunE:  runWorker,
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appCtx, err := newAppContext(ctx, "hydrosearch-worker")
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := withPostgres(ctx, appCtx); err != nil {
		return err
	}

	br, err := broker.New(appCtx.NATS, appCtx.Config.Broker.Queue+"_stream", appCtx.Config.Broker.Queue, appCtx.Logger, appCtx.Tracer)
	if err != nil {
		return fmt.Errorf("failed to init broker: %w", err)
	}

	consumer, err := br.NewConsumer("hydrosearch-worker")
	if err != nil {
		return fmt.Errorf("failed to init consumer: %w", err)
	}

	store := taskstore.New(appCtx.Redis, appCtx.Logger)
	cat := catalog.New(appCtx.Postgres, appCtx.Config.Task.MaxResults)

	gen, err := newGenerator(ctx, appCtx.Config.Oracle)
	if err != nil {
		return fmt.Errorf("failed to init oracle generator: %w", err)
	}
	gw := llmgateway.New(gen, appCtx.Config.Oracle.Model)

	w := wk.New(store, gw, cat, br, appCtx.Logger, appCtx.Tracer)
	w.MaxRetries = appCtx.Config.Worker.MaxRetries
	w.EnablePartialResults = appCtx.Config.Task.EnablePartialResults

	runner := wk.NewRunner(w, consumer, appCtx.Config.Worker.HealthCheckHost, appCtx.Config.Worker.HealthCheckPort, appCtx.Config.Worker.ShutdownWaitTime)

	appCtx.Logger.Info().Msg("starting worker")
	return runner.Run(ctx)
}
