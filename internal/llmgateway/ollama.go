package llmgateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/ollama/ollama/api"
)

// OllamaGenerator is a Generator backed by a local/self-hosted Ollama
// server, grounded on the teacher's internal/llm/ollama.Client.Generate
// (api.Client.Chat with a non-streaming callback).
type OllamaGenerator struct {
	client *api.Client
}

func NewOllamaGenerator(client *api.Client) *OllamaGenerator {
	return &OllamaGenerator{client: client}
}

func (g *OllamaGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	msgs := make([]api.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := "user"
		if m.Role == RoleSystem {
			role = "system"
		}
		msgs = append(msgs, api.Message{Role: role, Content: m.Content})
	}

	opts := map[string]any{"temperature": req.Temperature}
	if req.MaxTokens > 0 {
		opts["num_predict"] = req.MaxTokens
	}

	var format json.RawMessage
	if schema, ok := req.JSONSchema.(*jsonschema.Schema); ok && schema != nil {
		raw, err := schema.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("failed to marshal json schema: %w", err)
		}
		format = raw
	}

	streaming := false
	var apiResp api.ChatResponse
	err := g.client.Chat(ctx, &api.ChatRequest{
		Model:    req.Model,
		Messages: msgs,
		Options:  opts,
		Format:   format,
		Stream:   &streaming,
	}, func(resp api.ChatResponse) error {
		apiResp = resp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat failed: %w", err)
	}
	if !apiResp.Done {
		return nil, fmt.Errorf("ollama response incomplete")
	}
	return &GenerateResponse{Text: apiResp.Message.Content}, nil
}
