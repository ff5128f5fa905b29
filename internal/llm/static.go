package llm

import (
	"context"
	"strings"

	"github.com/spf13/cast"

	"github.com/membench/membench/internal/model"
)

// StaticProvider returns a canned response for every prompt. It backs smoke
// runs and tests where no inference backend is reachable.
type StaticProvider struct {
	modelName string
	response  string
	err       error
}

// NewStaticFactory returns a Factory for the static provider. The response
// text can be set per model via the "response" provider setting.
func NewStaticFactory() Factory {
	return func(spec model.ModelSpec) (Provider, error) {
		response := "This is a static response."
		if v, ok := spec.Settings["response"]; ok {
			response = cast.ToString(v)
		}
		return &StaticProvider{modelName: spec.Name, response: response}, nil
	}
}

// NewStaticProvider builds a static provider directly; tests use it as a
// drop-in model handle.
func NewStaticProvider(modelName, response string) *StaticProvider {
	return &StaticProvider{modelName: modelName, response: response}
}

// FailWith makes every GenerateText call return err.
func (p *StaticProvider) FailWith(err error) *StaticProvider {
	p.err = err
	return p
}

func (p *StaticProvider) GenerateText(_ context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &GenerateResponse{
		Content: p.response,
		Usage: Usage{
			PromptTokens:     len(strings.Fields(req.Prompt)),
			CompletionTokens: len(strings.Fields(p.response)),
		},
		Metadata: map[string]any{"model": p.modelName, "provider": "static"},
	}, nil
}

func (p *StaticProvider) ModelInfo() ModelInfo {
	return ModelInfo{Model: p.modelName, Provider: "static"}
}
