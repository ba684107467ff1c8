package broker

import (
	"strconv"
	"time"

	"github.com/ChiaYuChang/hydrosearch/internal/models"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Header names carried on every published message (spec §6 wire
// format).
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderTaskID        = "x-task-id"
	HeaderPriority      = "x-priority"
	HeaderSentTimestamp = "x-sent-timestamp"
)

// MaxRetries is the number of transient-failure republishes a message
// may undergo before the Worker gives up and writes a terminal error
// (spec §4.4 retry policy).
const MaxRetries = 3

// Backoff returns the delay to apply before a republish at the given
// retry attempt, matching spec.md's min(30, 2^retry) seconds rule.
func Backoff(retry int) time.Duration {
	seconds := min(30, 1<<retry)
	return time.Duration(seconds) * time.Second
}

// Envelope is the wire body published to the queue (spec §6: "UTF-8
// JSON object with keys {task_id, query|text, type, priority,
// metadata}").
type Envelope struct {
	TaskID   uuid.UUID       `json:"task_id"`
	Query    string          `json:"query,omitempty"`
	Text     string          `json:"text,omitempty"`
	Type     models.TaskKind `json:"type"`
	Priority int             `json:"priority"`
	Metadata map[string]any  `json:"metadata,omitempty"`
}

// RetryCount reads the x-retry-count header off msg, defaulting to 0
// when absent or malformed (first delivery).
func RetryCount(msg *nats.Msg) int {
	raw := msg.Header.Get(HeaderRetryCount)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

// baseHeaders builds the fixed header set for a fresh publish of env.
func baseHeaders(env Envelope, retryCount int) nats.Header {
	h := nats.Header{}
	h.Set(HeaderRetryCount, strconv.Itoa(retryCount))
	h.Set(HeaderTaskID, env.TaskID.String())
	h.Set(HeaderPriority, strconv.Itoa(env.Priority))
	h.Set(HeaderSentTimestamp, strconv.FormatInt(time.Now().Unix(), 10))
	return h
}
