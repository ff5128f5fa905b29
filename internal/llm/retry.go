package llm

import (
	"errors"

	"github.com/membench/membench/internal/resilience"
	"github.com/membench/membench/pkg/ollama"
	"github.com/membench/membench/pkg/openrouter"
)

// retryPolicy returns the retry policy for one provider's generate calls.
func retryPolicy(provider string) resilience.Policy {
	p := resilience.DefaultPolicy()
	p.ShouldRetry = retryableProviderError
	p.OnRetry = resilience.RetryLogger(provider, "generate")
	return p
}

// retryableProviderError treats rate limits and server-side failures as
// transient; bad requests and auth failures are permanent.
func retryableProviderError(err error) bool {
	var ollamaErr *ollama.APIError
	if errors.As(err, &ollamaErr) {
		return resilience.IsTransientHTTPStatus(ollamaErr.StatusCode)
	}

	var openRouterErr *openrouter.APIError
	if errors.As(err, &openRouterErr) {
		return resilience.IsTransientHTTPStatus(openRouterErr.StatusCode)
	}

	return resilience.IsTransient(err)
}
