package llmgateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIGenerator is a Generator backed by the OpenAI chat-completions
// API, grounded on the teacher's OpenAIChatCompletion wrapper
// (internal/llm/openai.go) but narrowed to the single
// request/response shape this gateway needs.
type OpenAIGenerator struct {
	client openai.Client
}

func NewOpenAIGenerator(opts ...option.RequestOption) *OpenAIGenerator {
	return &OpenAIGenerator{client: openai.NewClient(opts...)}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(req.Model),
		Messages:    msgs,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	if schema, ok := req.JSONSchema.(*jsonschema.Schema); ok && schema != nil {
		raw, err := schema.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("failed to marshal json schema: %w", err)
		}
		var schemaMap map[string]any
		if err := json.Unmarshal(raw, &schemaMap); err != nil {
			return nil, fmt.Errorf("failed to decode json schema: %w", err)
		}

		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "gateway_output",
					Schema: schemaMap,
					Strict: openai.Bool(true),
				},
			},
		}
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return &GenerateResponse{Text: ""}, nil
	}
	return &GenerateResponse{Text: resp.Choices[0].Message.Content}, nil
}
