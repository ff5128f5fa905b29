package benchmark

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cast"

	"github.com/membench/membench/internal/llm"
	"github.com/membench/membench/internal/memory"
)

const smokePrompt = "What is artificial intelligence and how does it work?"

// Smoke is a single-prompt benchmark that verifies a model/memory pairing
// end to end without a dataset. It is the default workload for wiring checks.
type Smoke struct {
	prompt string
	system string
}

// NewSmoke builds the smoke benchmark. Config keys: prompt, system.
func NewSmoke(cfg map[string]any) (Adapter, error) {
	s := &Smoke{
		prompt: smokePrompt,
		system: "You are a helpful AI assistant.",
	}
	if v, ok := cfg["prompt"]; ok {
		s.prompt = cast.ToString(v)
	}
	if v, ok := cfg["system"]; ok {
		s.system = cast.ToString(v)
	}
	return s, nil
}

func (s *Smoke) RunBenchmark(ctx context.Context, provider llm.Provider, mem memory.Method, cfg map[string]any) (map[string]any, error) {
	processed := mem.Process(s.prompt, memory.Options{})

	resp, err := provider.GenerateText(ctx, llm.GenerateRequest{
		Prompt: processed,
		System: s.system,
	})
	if err != nil {
		return nil, eris.Wrap(err, "smoke: generate")
	}

	eval := s.EvaluateResult(Task{ID: "smoke-1", Prompt: s.prompt}, resp.Content)

	return map[string]any{
		"prompt_length":           len(strings.Fields(s.prompt)),
		"processed_prompt_length": len(strings.Fields(processed)),
		"response_length":         len(strings.Fields(resp.Content)),
		"model_info":              provider.ModelInfo(),
		"memory_info":             mem.MethodInfo(),
		"score":                   eval.Score,
		"success":                 eval.Success,
		"metadata": map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"config":    cfg,
			"usage":     resp.Usage,
		},
	}, nil
}

// EvaluateResult checks only that a non-empty response came back; the smoke
// benchmark has no ground truth.
func (s *Smoke) EvaluateResult(_ Task, output string) Evaluation {
	nonEmpty := strings.TrimSpace(output) != ""
	score := 0.0
	if nonEmpty {
		score = 1.0
	}
	return Evaluation{
		Success: nonEmpty,
		Score:   score,
		Details: map[string]any{"response_nonempty": nonEmpty},
	}
}

func init() {
	Default.Register("smoke", NewSmoke)
}
