package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ChiaYuChang/hydrosearch/internal/broker"
	ec "github.com/ChiaYuChang/hydrosearch/pkgs/errors"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

var (
	tasksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hydrosearch_worker_tasks_total",
		Help: "Tasks processed by the Worker, by outcome.",
	}, []string{"outcome"})

	taskDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "hydrosearch_worker_task_duration_seconds",
		Help: "Wall-clock time spent handling one message.",
	})
)

// Runner pulls messages from a Consumer one at a time and drives them
// through Worker.Handle, acking/naking per its Outcome. Grounded on
// the teacher's internal/workers/runner.go fetch loop and health-check
// server, generalized to a single Worker+Consumer pair (spec §5: "one
// message in flight per Worker at a time").
type Runner struct {
	worker   *Worker
	consumer *broker.Consumer

	healthCheckHost  string
	healthCheckPort  int
	shutdownWaitTime time.Duration

	healthSrv *http.Server
}

func NewRunner(w *Worker, consumer *broker.Consumer, healthHost string, healthPort int, shutdownWaitTime time.Duration) *Runner {
	return &Runner{
		worker:           w,
		consumer:         consumer,
		healthCheckHost:  healthHost,
		healthCheckPort:  healthPort,
		shutdownWaitTime: shutdownWaitTime,
	}
}

// Run blocks until ctx is canceled or a signal arrives, fetching and
// handling one message at a time and running the health/metrics
// server on a coordinated goroutine (spec §5: errgroup coordinates the
// health server against the fetch loop so a health-server crash
// doesn't leak the process).
func (r *Runner) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.runHealthServer(gCtx)
	})
	g.Go(func() error {
		return r.fetchLoop(gCtx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (r *Runner) fetchLoop(ctx context.Context) error {
	retry := 0
	for {
		select {
		case <-ctx.Done():
			_ = r.consumer.Unsubscribe()
			return ctx.Err()
		default:
		}

		msg, err := r.consumer.Fetch()
		if err != nil {
			if err == nats.ErrTimeout {
				retry = 0
				continue
			}
			wait := min(30*time.Second, time.Duration(1<<retry)*time.Second)
			r.worker.Logger.Error().Err(err).Int("retry", retry).Dur("wait", wait).Msg("failed to fetch message")
			time.Sleep(wait)
			retry++
			continue
		}
		retry = 0

		start := time.Now()
		outcome := r.worker.Handle(ctx, msg)
		taskDuration.Observe(time.Since(start).Seconds())

		switch outcome {
		case OutcomeAck, OutcomeDrop:
			tasksProcessed.WithLabelValues(outcomeLabel(outcome)).Inc()
			if err := msg.Ack(); err != nil {
				r.worker.Logger.Error().Err(err).Msg("failed to ack message")
			}
		case OutcomeNak:
			tasksProcessed.WithLabelValues("nak").Inc()
			if err := msg.NakWithDelay(10 * time.Second); err != nil {
				r.worker.Logger.Error().Err(err).Msg("failed to nak message")
			}
		}
	}
}

func outcomeLabel(o Outcome) string {
	switch o {
	case OutcomeAck:
		return "ack"
	case OutcomeDrop:
		return "drop"
	default:
		return "nak"
	}
}

func (r *Runner) runHealthServer(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf("%s:%d", r.healthCheckHost, r.healthCheckPort)
	r.healthSrv = &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		if err := r.healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		sCtx, cancel := context.WithTimeout(context.Background(), r.shutdownWaitTime)
		defer cancel()
		_ = r.healthSrv.Shutdown(sCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (r *Runner) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if !r.worker.Broker.Connected() {
		e := ec.ErrTransientUpstream
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = e.MarshalAndWriteTo(w)
		return
	}
	w.WriteHeader(http.StatusOK)
	_ = ec.Success.MarshalAndWriteTo(w)
}
