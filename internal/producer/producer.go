// Package producer implements the Producer component (spec §4.1):
// accepting a new query, short-circuiting on a cached search, and
// otherwise writing the initial task state and publishing it to the
// Broker.
//
// Grounded on the teacher's publishers.Publisher
// (internal/workers/publishers/publishers.go) for the publish-then-
// commit ordering, generalized here to also cover the rollback-on-
// publish-failure rule spec §4.1 requires (the teacher's publisher has
// no equivalent, since its callers are Workers publishing completion
// events, not the entry point into the pipeline).
package producer

import (
	"context"
	"strings"

	"github.com/ChiaYuChang/hydrosearch/internal/broker"
	"github.com/ChiaYuChang/hydrosearch/internal/llmgateway"
	"github.com/ChiaYuChang/hydrosearch/internal/models"
	"github.com/ChiaYuChang/hydrosearch/internal/taskstore"
	ec "github.com/ChiaYuChang/hydrosearch/pkgs/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	minPriority = 0
	maxPriority = 10
)

// Producer validates and admits a new task (spec §4.1).
type Producer struct {
	Store   *taskstore.Store
	Broker  *broker.Broker
	Logger  zerolog.Logger
	// EnableCache gates the cache short-circuit (spec §4.1: "optional,
	// may be disabled by config").
	EnableCache bool
}

func New(store *taskstore.Store, br *broker.Broker, logger zerolog.Logger, enableCache bool) *Producer {
	return &Producer{Store: store, Broker: br, Logger: logger, EnableCache: enableCache}
}

// Admit runs the full Producer contract for a single-query task:
// validate, cache short-circuit, write, publish, rollback-on-failure.
func (p *Producer) Admit(ctx context.Context, query string, priority int, metadata map[string]any) (*models.Task, error) {
	return p.admit(ctx, models.KindSingle, query, priority, metadata)
}

// AdmitBatch runs the same contract for a batch (multi-line) task.
// Batch tasks are never cache-short-circuited (spec §3 invariant 4:
// partial matches/whole-text fingerprints never shortcut a batch
// pipeline split per-line by the Worker).
func (p *Producer) AdmitBatch(ctx context.Context, text string, priority int, metadata map[string]any) (*models.Task, error) {
	return p.admit(ctx, models.KindBatch, text, priority, metadata)
}

func (p *Producer) admit(ctx context.Context, kind models.TaskKind, input string, priority int, metadata map[string]any) (*models.Task, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ec.ErrValidationFailed.Clone().WithDetails("query must not be empty")
	}
	if priority < minPriority || priority > maxPriority {
		return nil, ec.ErrValidationFailed.Clone().WithDetails("priority must be in [0,10]")
	}

	id := uuid.New()

	if p.EnableCache && kind == models.KindSingle {
		fingerprint := llmgateway.Fingerprint(input)
		cached, err := p.Store.GetCachedSearch(ctx, fingerprint)
		if err != nil {
			p.Logger.Warn().Err(err).Msg("cache short-circuit probe failed, continuing without cache")
		} else if cached != nil {
			task := models.NewTask(id, kind, input, priority)
			task.Status = models.StatusCompleted
			result := cached.ResultPayload
			result.Source = models.SourceCache
			task.Result = &result
			if err := p.Store.PutTask(ctx, task); err != nil {
				return nil, ec.ErrPersistenceFailure.Clone().WithDetails(err.Error()).Warp(err)
			}
			return task, nil
		}
	}

	task := models.NewTask(id, kind, input, priority)
	if err := p.Store.PutTask(ctx, task); err != nil {
		return nil, ec.ErrPersistenceFailure.Clone().WithDetails(err.Error()).Warp(err)
	}

	env := broker.Envelope{
		TaskID:   id,
		Type:     kind,
		Priority: priority,
		Metadata: metadata,
	}
	if kind == models.KindBatch {
		env.Text = input
	} else {
		env.Query = input
	}

	if err := p.Broker.Publish(ctx, env); err != nil {
		// Publish failed: don't leave an orphaned task behind (spec
		// §4.1: "the initial state is not retained").
		if delErr := p.Store.DeleteTask(ctx, id); delErr != nil {
			p.Logger.Error().Err(delErr).Str("task_id", id.String()).Msg("failed to roll back task after publish failure")
		}
		return nil, err
	}

	return task, nil
}
