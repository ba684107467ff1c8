package models

import (
	"time"

	ec "github.com/ChiaYuChang/hydrosearch/pkgs/errors"
	"github.com/google/uuid"
)

// TaskKind distinguishes a single-query task from a multi-line batch.
type TaskKind string

const (
	KindSingle TaskKind = "single"
	KindBatch  TaskKind = "batch"
)

// TaskStatus is the task lifecycle state (spec §3).
type TaskStatus string

const (
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusPartial    TaskStatus = "partial"
	StatusError      TaskStatus = "error"
	StatusTimeout    TaskStatus = "timeout"
	StatusCanceled   TaskStatus = "canceled"
)

// Terminal reports whether s is one of the terminal statuses (spec §3
// invariant 2).
func (s TaskStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusPartial, StatusError, StatusTimeout, StatusCanceled:
		return true
	default:
		return false
	}
}

// ResultSource records where a TaskResult's matches came from.
type ResultSource string

const (
	SourceCache    ResultSource = "cache"
	SourceDatabase ResultSource = "database"
	SourceAIOnly   ResultSource = "ai_only"
)

// ErrorKind is the machine-readable taxonomy entry attached to a
// terminal error/partial status (spec §7). It is an alias of
// errors.Kind so a Worker can persist the same value it got back from
// a failed pipeline step without a translation step.
type ErrorKind = ec.Kind

// Task is the durable unit of work tracked end-to-end from ingestion to
// a terminal status (spec §3).
type Task struct {
	ID         uuid.UUID   `json:"task_id"`
	Kind       TaskKind    `json:"kind"`
	Input      string      `json:"input"`
	Priority   int         `json:"priority"`
	Status     TaskStatus  `json:"status"`
	CreatedAt  int64       `json:"created_at"`
	UpdatedAt  int64       `json:"updated_at"`
	Result     *TaskResult `json:"result,omitempty"`
	RetryCount int         `json:"retry_count"`
	ErrorKind  ErrorKind   `json:"error_kind,omitempty"`
	ErrorMsg   string      `json:"error_message,omitempty"`
}

// NewTask builds a freshly-created task in the processing state.
func NewTask(id uuid.UUID, kind TaskKind, input string, priority int) *Task {
	now := time.Now().Unix()
	return &Task{
		ID:        id,
		Kind:      kind,
		Input:     input,
		Priority:  priority,
		Status:    StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Match is a single catalog row returned by the CatalogAdapter.
type Match struct {
	Name    string         `json:"name"`
	Article string         `json:"article"`
	Extra   map[string]any `json:"extra,omitempty"`
}

// AIResult is the LLM-derived summary embedded in a TaskResult.
type AIResult struct {
	ComponentType ComponentType  `json:"component_type"`
	ExtractedData map[string]any `json:"extracted_data"`
}

// SubQueryResult is one line's outcome within a batch task.
type SubQueryResult struct {
	Query      string       `json:"query"`
	Source     ResultSource `json:"source"`
	Matches    []Match      `json:"matches"`
	MatchCount int          `json:"match_count"`
	AIResult   *AIResult    `json:"ai_result,omitempty"`
	Quantity   *int         `json:"quantity,omitempty"`
}

// TaskResult is what clients receive for a terminal task (spec §3).
type TaskResult struct {
	// Single-task fields.
	Query      string       `json:"query,omitempty"`
	Source     ResultSource `json:"source,omitempty"`
	Matches    []Match      `json:"matches,omitempty"`
	MatchCount int          `json:"match_count,omitempty"`
	AIResult   *AIResult    `json:"ai_result,omitempty"`
	Quantity   *int         `json:"quantity,omitempty"`

	// Batch-task fields.
	Results        []SubQueryResult `json:"results,omitempty"`
	TotalItems     int              `json:"total_items,omitempty"`
	ProcessedItems int              `json:"processed_items,omitempty"`

	Timestamp int64 `json:"timestamp"`
}

// CachedSearch is the TaskStore payload keyed by a query fingerprint
// (spec §3/§4.7).
type CachedSearch struct {
	ResultPayload TaskResult `json:"result_payload"`
	CachedAt      int64      `json:"cached_at"`
	TTL           int64      `json:"ttl"`
}
