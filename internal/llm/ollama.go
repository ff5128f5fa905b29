package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/membench/membench/internal/model"
	"github.com/membench/membench/internal/resilience"
	"github.com/membench/membench/pkg/ollama"
)

// OllamaProvider serves models from a local or remote Ollama host.
type OllamaProvider struct {
	client    ollama.Client
	modelName string
	settings  map[string]any
}

// NewOllamaFactory returns a Factory that binds providers to the given client.
func NewOllamaFactory(client ollama.Client) Factory {
	return func(spec model.ModelSpec) (Provider, error) {
		if spec.Name == "" {
			return nil, eris.New("ollama: model name required")
		}
		return &OllamaProvider{
			client:    client,
			modelName: spec.Name,
			settings:  spec.Settings,
		}, nil
	}
}

// GenerateText runs a non-streaming generation. Ollama's generate endpoint
// has no separate system role, so a system instruction is prepended to the
// prompt.
func (p *OllamaProvider) GenerateText(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	prompt := req.Prompt
	if req.System != "" {
		prompt = req.System + "\n\n" + req.Prompt
	}

	options := mergeOptions(p.settings, req.Options)

	resp, err := resilience.Retry(ctx, retryPolicy("ollama"), func(ctx context.Context) (*ollama.GenerateResponse, error) {
		return p.client.Generate(ctx, ollama.GenerateRequest{
			Model:   p.modelName,
			Prompt:  prompt,
			Options: options,
		})
	})
	if err != nil {
		return nil, eris.Wrapf(err, "ollama: generate with model %q", p.modelName)
	}

	return &GenerateResponse{
		Content: resp.Response,
		Usage: Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
		},
		Metadata: map[string]any{
			"model":          resp.Model,
			"provider":       "ollama",
			"total_duration": resp.TotalDuration,
		},
	}, nil
}

func (p *OllamaProvider) ModelInfo() ModelInfo {
	return ModelInfo{Model: p.modelName, Provider: "ollama"}
}

// mergeOptions overlays request options on the spec's provider settings.
// Request options win. Neither input map is mutated.
func mergeOptions(settings, overrides map[string]any) map[string]any {
	if len(settings) == 0 && len(overrides) == 0 {
		return nil
	}
	merged := make(map[string]any, len(settings)+len(overrides))
	for k, v := range settings {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
