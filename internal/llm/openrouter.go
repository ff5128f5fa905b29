package llm

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cast"

	"github.com/membench/membench/internal/model"
	"github.com/membench/membench/internal/resilience"
	"github.com/membench/membench/pkg/openrouter"
)

// OpenRouterProvider serves models through the OpenRouter gateway.
type OpenRouterProvider struct {
	client    openrouter.Client
	modelName string
	settings  map[string]any
}

// NewOpenRouterFactory returns a Factory that binds providers to the given client.
func NewOpenRouterFactory(client openrouter.Client) Factory {
	return func(spec model.ModelSpec) (Provider, error) {
		if spec.Name == "" {
			return nil, eris.New("openrouter: model name required")
		}
		return &OpenRouterProvider{
			client:    client,
			modelName: spec.Name,
			settings:  spec.Settings,
		}, nil
	}
}

func (p *OpenRouterProvider) GenerateText(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	messages := make([]openrouter.Message, 0, 2)
	if req.System != "" {
		messages = append(messages, openrouter.Message{Role: "system", Content: req.System})
	}
	messages = append(messages, openrouter.Message{Role: "user", Content: req.Prompt})

	chatReq := openrouter.ChatCompletionRequest{
		Model:    p.modelName,
		Messages: messages,
	}

	options := mergeOptions(p.settings, req.Options)
	if v, ok := options["temperature"]; ok {
		temp := cast.ToFloat64(v)
		chatReq.Temperature = &temp
	}
	if v, ok := options["max_tokens"]; ok {
		maxTokens := cast.ToInt(v)
		chatReq.MaxTokens = &maxTokens
	}

	resp, err := resilience.Retry(ctx, retryPolicy("openrouter"), func(ctx context.Context) (*openrouter.ChatCompletionResponse, error) {
		return p.client.ChatCompletion(ctx, chatReq)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "openrouter: chat completion with model %q", p.modelName)
	}
	if len(resp.Choices) == 0 {
		return nil, eris.Errorf("openrouter: empty choices for model %q", p.modelName)
	}

	return &GenerateResponse{
		Content: resp.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
		Metadata: map[string]any{
			"model":         resp.Model,
			"provider":      "openrouter",
			"finish_reason": resp.Choices[0].FinishReason,
		},
	}, nil
}

func (p *OpenRouterProvider) ModelInfo() ModelInfo {
	return ModelInfo{Model: p.modelName, Provider: "openrouter"}
}
