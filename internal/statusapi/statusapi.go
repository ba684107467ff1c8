// Package statusapi implements the StatusAPI component (spec §4.5):
// Get (with timeout reclamation), Cancel (idempotent, advisory), and
// Download (materializing the ArtifactBuilder's output).
//
// Grounded on the teacher's storage.Storage read/write pattern
// (internal/storage/storage.go) adapted to TaskStore's sliding-TTL
// key/value model instead of a relational store.
package statusapi

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/ChiaYuChang/hydrosearch/internal/artifact"
	"github.com/ChiaYuChang/hydrosearch/internal/models"
	"github.com/ChiaYuChang/hydrosearch/internal/taskstore"
	ec "github.com/ChiaYuChang/hydrosearch/pkgs/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ProcessingDeadline is how long a task may sit in `processing` before
// a Get reclaims it as `timeout` (spec §4.5: "now - created_at >
// 300s").
const ProcessingDeadline = 300 * time.Second

// StatusAPI answers task-lifecycle queries against the TaskStore.
type StatusAPI struct {
	Store  *taskstore.Store
	Logger zerolog.Logger
}

func New(store *taskstore.Store, logger zerolog.Logger) *StatusAPI {
	return &StatusAPI{Store: store, Logger: logger}
}

// GetResult is a task's current state plus its age, as returned to an
// HTTP client (spec §6: "{task_id, status, result?, age_seconds?}").
type GetResult struct {
	Task        *models.Task
	AgeSeconds  int64
	Reclaimed   bool
}

// Get looks up id, reclaiming a stale `processing` task to `timeout`
// if it has outlived ProcessingDeadline (spec §4.5: "this is the
// reclamation path — it is the only place processing→timeout occurs").
func (s *StatusAPI) Get(ctx context.Context, id uuid.UUID) (*GetResult, error) {
	task, err := s.Store.GetTask(ctx, id)
	if err != nil {
		return nil, ec.ErrPersistenceFailure.Clone().WithDetails(err.Error()).Warp(err)
	}
	if task == nil {
		return nil, ec.ErrNotFound.Clone().WithDetails("task not found")
	}

	age := time.Now().Unix() - task.CreatedAt
	result := &GetResult{Task: task, AgeSeconds: age}

	if task.Status == models.StatusProcessing && time.Duration(age)*time.Second > ProcessingDeadline {
		task.Status = models.StatusTimeout
		task.ErrorKind = ec.KindTimeoutReclaim
		task.ErrorMsg = "task exceeded processing deadline"
		task.UpdatedAt = time.Now().Unix()
		if err := s.Store.PutTask(ctx, task); err != nil {
			s.Logger.Warn().Err(err).Str("task_id", id.String()).Msg("failed to persist timeout reclamation")
		}
		result.Reclaimed = true
	}

	return result, nil
}

// Cancel transitions id to `canceled` if it is still `processing`.
// Idempotent on terminal states: it returns the current status
// unchanged rather than erroring (spec §4.5).
func (s *StatusAPI) Cancel(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	task, err := s.Store.GetTask(ctx, id)
	if err != nil {
		return nil, ec.ErrPersistenceFailure.Clone().WithDetails(err.Error()).Warp(err)
	}
	if task == nil {
		return nil, ec.ErrNotFound.Clone().WithDetails("task not found")
	}

	if task.Status != models.StatusProcessing {
		return task, nil
	}

	task.Status = models.StatusCanceled
	task.ErrorKind = ec.KindCanceled
	task.UpdatedAt = time.Now().Unix()
	if err := s.Store.PutTask(ctx, task); err != nil {
		return nil, ec.ErrPersistenceFailure.Clone().WithDetails(err.Error()).Warp(err)
	}
	return task, nil
}

// Download materializes id's result as a tabular artifact, requiring
// `status=completed` (spec §4.5). It prefers the Worker's precomputed
// artifact reference (BUILD_ARTIFACT, spec §4.4) and falls back to
// rendering the result on demand when no reference was stored (e.g. a
// completed task with zero matches never reaches BUILD_ARTIFACT).
func (s *StatusAPI) Download(ctx context.Context, id uuid.UUID) ([]byte, error) {
	task, err := s.Store.GetTask(ctx, id)
	if err != nil {
		return nil, ec.ErrPersistenceFailure.Clone().WithDetails(err.Error()).Warp(err)
	}
	if task == nil {
		return nil, ec.ErrNotFound.Clone().WithDetails("task not found")
	}
	if task.Status != models.StatusCompleted {
		return nil, ec.ErrValidationFailed.Clone().WithDetails("task is not completed")
	}

	if ref, err := s.Store.GetArtifactRef(ctx, id); err == nil && ref != "" {
		if data, decErr := base64.StdEncoding.DecodeString(ref); decErr == nil {
			return data, nil
		}
	}

	return artifact.Build(task.Kind, task.Result)
}
