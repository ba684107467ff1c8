package llmgateway

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ChiaYuChang/hydrosearch/internal/models"
	ec "github.com/ChiaYuChang/hydrosearch/pkgs/errors"
	"github.com/invopop/jsonschema"
	"github.com/sony/gobreaker"
)

const (
	oracleTemperature = 0.2
	oracleMaxTokens   = 1024
)

// Gateway is the LLMGateway component: four typed calls over a
// Generator, each one-shot (spec §4.2). A gobreaker.CircuitBreaker
// wraps every oracle call (§4.2.1), grounded on jordigilh/kubernaut's
// use of sony/gobreaker.
type Gateway struct {
	gen     Generator
	model   string
	breaker *gobreaker.CircuitBreaker
}

// New builds a Gateway. model is the provider model name to request
// generations from (spec §6 configuration: oracle.model).
func New(gen Generator, model string) *Gateway {
	st := gobreaker.Settings{
		Name:        "llmgateway.oracle",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &Gateway{gen: gen, model: model, breaker: gobreaker.NewCircuitBreaker(st)}
}

// call wraps a single generation through the circuit breaker. While
// the breaker is open, it returns transient_upstream immediately
// without reaching the oracle (§4.2.1).
func (g *Gateway) call(ctx context.Context, messages []Message, schema any) (string, error) {
	result, err := g.breaker.Execute(func() (any, error) {
		resp, err := g.gen.Generate(ctx, GenerateRequest{
			Messages:    messages,
			Model:       g.model,
			Temperature: oracleTemperature,
			MaxTokens:   oracleMaxTokens,
			JSONSchema:  schema,
		})
		if err != nil {
			return "", err
		}
		return resp.Text, nil
	})
	if err != nil {
		return "", ec.ErrTransientUpstream.Clone().Warp(err)
	}
	return result.(string), nil
}

// Classify implements the `classify` operation (spec §4.2): maps a raw
// query to one member of the component-type closed set, or unknown.
func (g *Gateway) Classify(ctx context.Context, query string) (models.ComponentType, error) {
	prompt, err := promptFor(promptClassify, "")
	if err != nil {
		return models.ComponentUnknown, err
	}

	text, err := g.call(ctx, []Message{
		{Role: RoleSystem, Content: prompt},
		{Role: RoleUser, Content: query},
	}, nil)
	if err != nil {
		return models.ComponentUnknown, err
	}

	return models.ParseComponentType(text), nil
}

// ExtractParams implements `extract_params`: returns the mapping of
// known fields for componentType, null-valued where absent. A
// non-JSON oracle answer degrades to {"raw_response": <text>} per
// spec; an empty answer returns nil (caller treats nil as "extraction
// empty").
func (g *Gateway) ExtractParams(ctx context.Context, query string, componentType models.ComponentType) (map[string]any, error) {
	prompt, err := promptFor(promptExtractParams, componentType)
	if err != nil {
		return nil, err
	}

	schema := jsonschema.Reflect(models.NewExtractedData(componentType))
	text, err := g.call(ctx, []Message{
		{Role: RoleSystem, Content: prompt},
		{Role: RoleUser, Content: query},
	}, schema)
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return map[string]any{"raw_response": text}, nil
	}
	return out, nil
}

var leadingDigitsRE = regexp.MustCompile(`\d+`)

// notSpecified is the oracle's "не указано" (Russian: "not specified")
// sentinel for an unanswerable quantity, preserved from the original
// Python prompt set (original_source) as-is since it is the literal
// string models are fine-tuned/prompted against.
const notSpecified = "не указано"

// ExtractQuantity implements `extract_quantity`: returns the longest
// leading digit run in the oracle's answer, or (0, false) when the
// oracle reports no quantity.
func (g *Gateway) ExtractQuantity(ctx context.Context, query string) (int, bool, error) {
	prompt, err := promptFor(promptExtractQty, "")
	if err != nil {
		return 0, false, err
	}

	text, err := g.call(ctx, []Message{
		{Role: RoleSystem, Content: prompt},
		{Role: RoleUser, Content: query},
	}, nil)
	if err != nil {
		return 0, false, err
	}

	text = strings.TrimSpace(text)
	if text == "" || strings.EqualFold(text, notSpecified) {
		return 0, false, nil
	}

	match := leadingDigitsRE.FindString(text)
	if match == "" {
		return 0, false, nil
	}

	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, false, nil
	}
	return n, true, nil
}

// SplitBatch implements `split_batch`: splits multi-line text into an
// ordered sequence of trimmed non-empty lines. Falls back to treating
// the whole input as a single line if the oracle returns nothing.
func (g *Gateway) SplitBatch(ctx context.Context, text string) ([]string, error) {
	prompt, err := promptFor(promptSplitBatch, "")
	if err != nil {
		return nil, err
	}

	resp, err := g.call(ctx, []Message{
		{Role: RoleSystem, Content: prompt},
		{Role: RoleUser, Content: text},
	}, nil)
	if err != nil {
		return nil, err
	}

	lines := splitNonEmpty(resp)
	if len(lines) == 0 {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return []string{trimmed}, nil
		}
		return nil, nil
	}
	return lines, nil
}

func splitNonEmpty(s string) []string {
	raw := strings.Split(s, "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}
