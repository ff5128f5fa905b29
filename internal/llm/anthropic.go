package llm

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"github.com/spf13/cast"

	"github.com/membench/membench/internal/model"
)

const defaultAnthropicMaxTokens = 1024

// AnthropicProvider serves Claude models via the official SDK.
type AnthropicProvider struct {
	client    sdk.Client
	modelName string
	settings  map[string]any
}

// NewAnthropicFactory returns a Factory backed by the Anthropic Messages API.
func NewAnthropicFactory(apiKey string) Factory {
	client := sdk.NewClient(option.WithAPIKey(apiKey))
	return func(spec model.ModelSpec) (Provider, error) {
		if spec.Name == "" {
			return nil, eris.New("anthropic: model name required")
		}
		return &AnthropicProvider{
			client:    client,
			modelName: spec.Name,
			settings:  spec.Settings,
		}, nil
	}
}

func (p *AnthropicProvider) GenerateText(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	options := mergeOptions(p.settings, req.Options)

	maxTokens := int64(defaultAnthropicMaxTokens)
	if v, ok := options["max_tokens"]; ok {
		maxTokens = cast.ToInt64(v)
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(p.modelName),
		MaxTokens: maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if v, ok := options["temperature"]; ok {
		params.Temperature = sdk.Float(cast.ToFloat64(v))
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrapf(err, "anthropic: create message with model %q", p.modelName)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return &GenerateResponse{
		Content: sb.String(),
		Usage: Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
		},
		Metadata: map[string]any{
			"model":       string(msg.Model),
			"provider":    "anthropic",
			"stop_reason": string(msg.StopReason),
		},
	}, nil
}

func (p *AnthropicProvider) ModelInfo() ModelInfo {
	return ModelInfo{Model: p.modelName, Provider: "anthropic"}
}
