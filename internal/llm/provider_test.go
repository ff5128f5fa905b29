package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/membench/membench/internal/model"
	"github.com/membench/membench/pkg/ollama"
	"github.com/membench/membench/pkg/openrouter"
)

func TestRegistry_CreateUnknownListsKnownNames(t *testing.T) {
	r := NewRegistry()
	r.Register("static", NewStaticFactory())

	_, err := r.Create("ollama", model.ModelSpec{Name: "llama3.2"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotRegistered)
	assert.Contains(t, err.Error(), "static")
}

func TestRegistry_CreateReturnsIndependentInstances(t *testing.T) {
	r := NewRegistry()
	r.Register("static", NewStaticFactory())

	spec := model.ModelSpec{Name: "m1", Settings: map[string]any{"response": "hello"}}
	a, err := r.Create("static", spec)
	require.NoError(t, err)
	b, err := r.Create("static", spec)
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, a.ModelInfo(), b.ModelInfo())
}

func TestRegistry_RegisterOverwrites(t *testing.T) {
	r := NewRegistry()
	r.Register("ollama", NewStaticFactory()) // test double in place of the real backend

	p, err := r.Create("ollama", model.ModelSpec{Name: "fake"})
	require.NoError(t, err)
	assert.Equal(t, "static", p.ModelInfo().Provider)
}

func TestOllamaProvider_PrependsSystemPrompt(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollama.GenerateRequest
		require.NoError(t, jsonDecode(r, &req))
		gotPrompt = req.Prompt
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3.2","response":"ok","done":true,"prompt_eval_count":4,"eval_count":1}`))
	}))
	defer srv.Close()

	factory := NewOllamaFactory(ollama.NewClient(ollama.WithBaseURL(srv.URL)))
	p, err := factory(model.ModelSpec{Name: "llama3.2", Provider: "ollama"})
	require.NoError(t, err)

	resp, err := p.GenerateText(context.Background(), GenerateRequest{
		Prompt: "What is AI?",
		System: "You are a helpful AI assistant.",
	})
	require.NoError(t, err)
	assert.Equal(t, "You are a helpful AI assistant.\n\nWhat is AI?", gotPrompt)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 4, resp.Usage.PromptTokens)
	assert.Equal(t, ModelInfo{Model: "llama3.2", Provider: "ollama"}, p.ModelInfo())
}

func TestOllamaProvider_BackendErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	factory := NewOllamaFactory(ollama.NewClient(ollama.WithBaseURL(srv.URL)))
	p, err := factory(model.ModelSpec{Name: "llama3.2"})
	require.NoError(t, err)

	resp, err := p.GenerateText(context.Background(), GenerateRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.Nil(t, resp)
}

func TestOllamaProvider_RetriesTransientBackendError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3.2","response":"recovered","done":true}`))
	}))
	defer srv.Close()

	factory := NewOllamaFactory(ollama.NewClient(ollama.WithBaseURL(srv.URL)))
	p, err := factory(model.ModelSpec{Name: "llama3.2"})
	require.NoError(t, err)

	resp, err := p.GenerateText(context.Background(), GenerateRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Content)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenRouterProvider_UsesSystemRoleAndSettings(t *testing.T) {
	var got openrouter.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, jsonDecode(r, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"gpt-4o-mini","choices":[{"message":{"role":"assistant","content":"fine"},"finish_reason":"stop"}],"usage":{"prompt_tokens":7,"completion_tokens":1}}`))
	}))
	defer srv.Close()

	factory := NewOpenRouterFactory(openrouter.NewClient("k", openrouter.WithBaseURL(srv.URL)))
	p, err := factory(model.ModelSpec{
		Name:     "gpt-4o-mini",
		Provider: "openrouter",
		Settings: map[string]any{"temperature": 0.3},
	})
	require.NoError(t, err)

	resp, err := p.GenerateText(context.Background(), GenerateRequest{Prompt: "How are you?", System: "be brief"})
	require.NoError(t, err)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.3, *got.Temperature, 1e-9)
	assert.Equal(t, "fine", resp.Content)
	assert.Equal(t, 7, resp.Usage.PromptTokens)
}

func TestOpenRouterProvider_EmptyChoicesIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[],"usage":{}}`))
	}))
	defer srv.Close()

	factory := NewOpenRouterFactory(openrouter.NewClient("k", openrouter.WithBaseURL(srv.URL)))
	p, err := factory(model.ModelSpec{Name: "m"})
	require.NoError(t, err)

	_, err = p.GenerateText(context.Background(), GenerateRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty choices")
}

func TestFactories_RejectMissingModelName(t *testing.T) {
	for name, factory := range map[string]Factory{
		"ollama":     NewOllamaFactory(ollama.NewClient()),
		"openrouter": NewOpenRouterFactory(openrouter.NewClient("k")),
		"anthropic":  NewAnthropicFactory("k"),
	} {
		_, err := factory(model.ModelSpec{Provider: name})
		assert.Error(t, err, name)
	}
}

func jsonDecode(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
