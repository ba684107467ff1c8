package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ChiaYuChang/hydrosearch/internal/broker"
	"github.com/ChiaYuChang/hydrosearch/internal/httpapi"
	"github.com/ChiaYuChang/hydrosearch/internal/producer"
	"github.com/ChiaYuChang/hydrosearch/internal/statusapi"
	"github.com/ChiaYuChang/hydrosearch/internal/taskstore"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP surface (Producer + StatusAPI)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appCtx, err := newAppContext(ctx, "hydrosearch-http")
	if err != nil {
		return err
	}
	defer appCtx.Close()

	br, err := broker.New(appCtx.NATS, appCtx.Config.Broker.Queue+"_stream", appCtx.Config.Broker.Queue, appCtx.Logger, appCtx.Tracer)
	if err != nil {
		return fmt.Errorf("failed to init broker: %w", err)
	}

	store := taskstore.New(appCtx.Redis, appCtx.Logger)

	prod := producer.New(store, br, appCtx.Logger, appCtx.Config.Task.EnableProducerCache)
	status := statusapi.New(store, appCtx.Logger)

	server := httpapi.New(prod, status, store, br, appCtx.Logger)

	addr := fmt.Sprintf("%s:%d", appCtx.Config.HTTPHost, appCtx.Config.HTTPPort)
	httpSrv := &http.Server{Addr: addr, Handler: server.NewRouter()}

	errCh := make(chan error, 1)
	go func() {
		appCtx.Logger.Info().Str("addr", addr).Msg("starting HTTP server")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		sCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		appCtx.Logger.Info().Msg("shutting down HTTP server")
		return httpSrv.Shutdown(sCtx)
	case err := <-errCh:
		return err
	}
}
