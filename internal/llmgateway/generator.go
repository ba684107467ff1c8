// Package llmgateway implements the LLMGateway component: the four
// typed calls over the raw oracle (classify, extract_params,
// extract_quantity, split_batch), the stable query fingerprint, and
// the prompt-selection table (spec §4.2).
//
// Grounded on the teacher's internal/llm package (Role/Message request
// shape, jsonschema-enforced structured output, one client per
// provider) and internal/workers/subscribers/keyword_extractor.go
// (retry-with-backoff around a single Generate call). The teacher's
// llm.LLM multi-model-registry abstraction is more than this gateway
// needs (it also covers embeddings and batch jobs, neither used by
// this pipeline), so the Generator interface here is narrowed to the
// one call LLMGateway actually issues: a single text completion with
// an optional JSON-schema constraint.
package llmgateway

import "context"

// Role mirrors the teacher's llm.Role distinguishing system/user turns.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one turn of the prompt sent to the oracle.
type Message struct {
	Role    Role
	Content string
}

// GenerateRequest is the single shape every provider generator accepts.
type GenerateRequest struct {
	Messages    []Message
	Model       string
	Temperature float64
	MaxTokens   int
	// JSONSchema, when non-nil, asks the provider to constrain its
	// output to this schema (a *jsonschema.Schema from
	// github.com/invopop/jsonschema, kept as `any` here so this package
	// doesn't force a hard dependency on the schema reflector for
	// callers that only need free text, e.g. split_batch).
	JSONSchema any
}

// GenerateResponse is the oracle's answer.
type GenerateResponse struct {
	Text string
}

// Generator is the narrow oracle contract an LLMGateway calls through.
// Implementations are one-shot: no internal retry (spec §4.2 "one-shot,
// no internal retry" — retry lives in the Worker's per-stage policy).
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}
