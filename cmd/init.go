package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/membench/membench/internal/config"
	"github.com/membench/membench/internal/llm"
	"github.com/membench/membench/internal/store"
	"github.com/membench/membench/pkg/ollama"
	"github.com/membench/membench/pkg/openrouter"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "results/evaluation_results.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// registerProviders wires the configured inference backends into the process
// registry. Only providers named in the config get a factory; creating a
// model for anything else fails as a registry error at run time.
func registerProviders(c *config.Config) {
	for name := range c.Providers {
		switch name {
		case "ollama":
			llm.Default.Register("ollama", llm.NewOllamaFactory(newOllamaClient(c)))
		case "openrouter":
			opts := []openrouter.Option{}
			if c.OpenRouter.BaseURL != "" {
				opts = append(opts, openrouter.WithBaseURL(c.OpenRouter.BaseURL))
			}
			if c.OpenRouter.RequestsPerSec > 0 {
				opts = append(opts, openrouter.WithRateLimit(c.OpenRouter.RequestsPerSec))
			}
			llm.Default.Register("openrouter", llm.NewOpenRouterFactory(openrouter.NewClient(c.OpenRouter.Key, opts...)))
		case "anthropic":
			llm.Default.Register("anthropic", llm.NewAnthropicFactory(c.Anthropic.Key))
		case "static":
			llm.Default.Register("static", llm.NewStaticFactory())
		}
	}
}

func newOllamaClient(c *config.Config) ollama.Client {
	opts := []ollama.Option{}
	if c.Ollama.BaseURL != "" {
		opts = append(opts, ollama.WithBaseURL(c.Ollama.BaseURL))
	}
	if c.Ollama.TimeoutSecs > 0 {
		opts = append(opts, ollama.WithTimeout(time.Duration(c.Ollama.TimeoutSecs)*time.Second))
	}
	return ollama.NewClient(opts...)
}
