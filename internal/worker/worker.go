// Package worker implements the Worker component (spec §4.4): the
// per-message state machine that drives a task from a broker envelope
// to a terminal TaskStore write.
//
// Grounded on the teacher's KeywordExtractorWorker
// (internal/workers/subscribers/keyword_extractor.go) for the cache-
// probe-then-pipeline shape, per-stage OTel spans, and structured
// per-stage logging, and on internal/workers/base.go's BaseWorker.Log
// helper.
package worker

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/ChiaYuChang/hydrosearch/internal/artifact"
	"github.com/ChiaYuChang/hydrosearch/internal/broker"
	"github.com/ChiaYuChang/hydrosearch/internal/catalog"
	"github.com/ChiaYuChang/hydrosearch/internal/llmgateway"
	"github.com/ChiaYuChang/hydrosearch/internal/models"
	"github.com/ChiaYuChang/hydrosearch/internal/taskstore"
	ec "github.com/ChiaYuChang/hydrosearch/pkgs/errors"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Outcome is what a Worker decided to do with the in-flight message
// after running Handle, replacing exception-driven control flow with
// an explicit tagged result (SPEC_FULL §9 redesign note).
type Outcome int

const (
	// OutcomeAck commits the pipeline's result and acks the message.
	OutcomeAck Outcome = iota
	// OutcomeDrop acks without committing further work: a
	// non-transient, non-retryable failure (validation, unknown
	// classification, empty extraction).
	OutcomeDrop
	// OutcomeNak asks the broker to redeliver without modification
	// (persistence_failure, spec §7: "nack-requeue the message").
	OutcomeNak
)

// Worker wires the LLMGateway, CatalogAdapter, TaskStore, and
// ArtifactBuilder together to run spec §4.4's state machine for one
// message at a time (enforced by the broker's MaxAckPending(1)
// consumer, not by this struct).
type Worker struct {
	Store   *taskstore.Store
	Gateway *llmgateway.Gateway
	Catalog *catalog.Adapter
	Broker  *broker.Broker

	Logger zerolog.Logger
	Tracer trace.Tracer

	// MaxRetries bounds the in-band republish count (spec §4.4: "max
	// retries: 3").
	MaxRetries int
	// EnablePartialResults gates the CATALOG-failure branch between a
	// partial ai_only result and a terminal error (spec §7
	// catalog_failure).
	EnablePartialResults bool
	// SubQueryConcurrency bounds how many batch sub-queries run their
	// EXTRACT/CATALOG stages concurrently (spec §5: errgroup.SetLimit).
	SubQueryConcurrency int
}

// New builds a Worker with the given dependencies and sane defaults
// for the tunables config.go does not already cover by value.
func New(store *taskstore.Store, gw *llmgateway.Gateway, cat *catalog.Adapter, br *broker.Broker, logger zerolog.Logger, tracer trace.Tracer) *Worker {
	return &Worker{
		Store:                store,
		Gateway:              gw,
		Catalog:              cat,
		Broker:               br,
		Logger:               logger,
		Tracer:               tracer,
		MaxRetries:           broker.MaxRetries,
		EnablePartialResults: true,
		SubQueryConcurrency:  4,
	}
}

// Handle runs the full state machine for one message and returns the
// Outcome the Runner should act on. It never panics on a pipeline
// failure; every stage failure is translated into a TaskStore write
// plus an Outcome (spec §7: "Workers never raise").
func (w *Worker) Handle(ctx context.Context, msg *nats.Msg) Outcome {
	start := time.Now()

	var env broker.Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		w.Logger.Error().Err(err).Msg("malformed task envelope, dropping")
		return OutcomeDrop
	}

	log := w.logFor(env, start)

	if !validEnvelope(env) {
		log(zerolog.ErrorLevel, "validation failed", nil)
		return OutcomeDrop
	}

	sCtx, span := w.Tracer.Start(ctx, "worker.handle")
	defer span.End()

	task, err := w.Store.GetTask(sCtx, env.TaskID)
	if err != nil {
		log(zerolog.ErrorLevel, "failed to read task before processing", err)
		return OutcomeNak
	}
	if task != nil && task.Status == models.StatusCanceled {
		// Cancellation is sticky (spec §4.5): a Worker observing it
		// must skip any further write.
		log(zerolog.InfoLevel, "task canceled before processing, skipping", nil)
		return OutcomeAck
	}

	query := env.Query
	isBatch := env.Type == models.KindBatch
	if isBatch {
		query = env.Text
	}

	fingerprint := llmgateway.Fingerprint(query)
	if cached, err := w.Store.GetCachedSearch(sCtx, fingerprint); err != nil {
		log(zerolog.WarnLevel, "cache probe failed, continuing without cache", err)
	} else if cached != nil && !isBatch {
		result := cached.ResultPayload
		result.Source = models.SourceCache
		w.finish(sCtx, env, models.StatusCompleted, &result, "")
		log(zerolog.InfoLevel, "cache hit", nil)
		return OutcomeAck
	}

	retry := broker.RetryCount(msg)

	var result *models.TaskResult
	var status models.TaskStatus
	var kind ec.Kind
	var reason string

	if isBatch {
		result, status, kind, reason = w.runBatch(sCtx, query)
	} else {
		result, status, kind, reason = w.runSingle(sCtx, query)
	}

	if kind == ec.KindTransientUpstream {
		if retry >= w.MaxRetries {
			w.finish(sCtx, env, models.StatusError, nil, reasonRetriesExhausted)
			log(zerolog.ErrorLevel, "retries exhausted", nil)
			return OutcomeAck
		}
		select {
		case <-time.After(broker.Backoff(retry)):
		case <-sCtx.Done():
			return OutcomeNak
		}
		if err := w.Broker.Republish(sCtx, env, retry+1); err != nil {
			log(zerolog.ErrorLevel, "failed to republish for retry", err)
			return OutcomeNak
		}
		log(zerolog.WarnLevel, "transient failure, republished for retry", nil)
		return OutcomeAck
	}

	if kind == ec.KindClassificationUnknown || kind == ec.KindExtractionEmpty {
		if err := w.Store.RecordFailedQuery(sCtx, taskstore.FailedQueryEntry{
			TaskID: env.TaskID, Query: query, Kind: kind, At: time.Now().Unix(),
		}); err != nil {
			log(zerolog.WarnLevel, "failed to record failed-query ledger entry", err)
		}
		w.finish(sCtx, env, models.StatusError, nil, reason)
		log(zerolog.ErrorLevel, reason, nil)
		return OutcomeDrop
	}

	if !w.finish(sCtx, env, status, result, reason) {
		log(zerolog.ErrorLevel, "task-store write failed at commit, requeueing", nil)
		return OutcomeNak
	}

	log(zerolog.InfoLevel, "task processed", nil)
	return OutcomeAck
}

// finish persists the terminal (or completed-from-cache) status,
// skipping the write entirely if the task was canceled out from under
// the Worker (spec §4.5: cancel is sticky). Returns false on a
// persistence failure so the caller can nack-requeue.
func (w *Worker) finish(ctx context.Context, env broker.Envelope, status models.TaskStatus, result *models.TaskResult, reason string) bool {
	current, err := w.Store.GetTask(ctx, env.TaskID)
	if err == nil && current != nil && current.Status == models.StatusCanceled {
		return true
	}

	t := current
	if t == nil {
		t = models.NewTask(env.TaskID, env.Type, firstNonEmpty(env.Query, env.Text), env.Priority)
	}
	t.Status = status
	t.UpdatedAt = time.Now().Unix()
	t.Result = result
	t.ErrorMsg = reason
	if status == models.StatusError || status == models.StatusPartial {
		t.ErrorKind = currentKind(reason)
	}

	if err := w.Store.PutTask(ctx, t); err != nil {
		return false
	}

	if status == models.StatusCompleted && result != nil {
		_ = w.Store.PutCachedSearch(ctx, llmgateway.Fingerprint(firstNonEmpty(env.Query, env.Text)), models.CachedSearch{
			ResultPayload: *result,
			CachedAt:      time.Now().Unix(),
			TTL:           int64(taskstore.SearchTTL.Seconds()),
		})

		// BUILD_ARTIFACT (spec §4.4): only when there is at least one
		// match to tabulate.
		if resultHasMatches(env.Type, result) {
			data, err := artifact.Build(env.Type, result)
			if err == nil {
				_ = w.Store.PutArtifactRef(ctx, env.TaskID, base64.StdEncoding.EncodeToString(data))
			}
		}
	}
	return true
}

func resultHasMatches(kind models.TaskKind, result *models.TaskResult) bool {
	if kind == models.KindBatch {
		for _, r := range result.Results {
			if r.MatchCount > 0 {
				return true
			}
		}
		return false
	}
	return result.MatchCount > 0
}

// currentKind is a best-effort mapping back from a persisted reason
// string to its taxonomy Kind for storage in Task.ErrorKind; reasons
// not produced by this package's own stages default to the empty
// Kind, which is acceptable since only this package ever writes it.
func currentKind(reason string) ec.Kind {
	switch reason {
	case reasonClassificationUnknown:
		return ec.KindClassificationUnknown
	case reasonExtractionEmpty:
		return ec.KindExtractionEmpty
	case reasonCatalogFailure:
		return ec.KindCatalogFailure
	case reasonRetriesExhausted:
		return ec.KindTransientUpstream
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func validEnvelope(env broker.Envelope) bool {
	if env.TaskID == uuid.Nil {
		return false
	}
	return env.Query != "" || env.Text != ""
}

func (w *Worker) logFor(env broker.Envelope, start time.Time) func(lvl zerolog.Level, msg string, err error) {
	return func(lvl zerolog.Level, msg string, err error) {
		event := w.Logger.WithLevel(lvl).
			Str("task_id", env.TaskID.String()).
			Int64("elapsed_ms", time.Since(start).Milliseconds())
		if err != nil {
			event = event.Err(err)
		}
		event.Msg(msg)
	}
}
