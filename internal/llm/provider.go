// Package llm defines the model-provider abstraction: a uniform contract for
// generating text against heterogeneous inference backends.
package llm

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/membench/membench/internal/model"
)

// GenerateRequest holds the inputs for a single generation call.
type GenerateRequest struct {
	Prompt  string
	System  string
	Options map[string]any
}

// Usage reports token consumption for a generation.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// GenerateResponse is the uniform result of a generation call.
type GenerateResponse struct {
	Content  string         `json:"content"`
	Usage    Usage          `json:"usage"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ModelInfo labels results with the model identity.
type ModelInfo struct {
	Model    string `json:"model"`
	Provider string `json:"provider"`
}

// Provider is the capability contract every inference backend implements.
// Instances are exclusively owned by one combination's execution; they are
// not required to be safe for concurrent use.
type Provider interface {
	GenerateText(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	ModelInfo() ModelInfo
}

// Factory constructs a provider instance for one enabled model.
type Factory func(spec model.ModelSpec) (Provider, error)

// ErrNotRegistered is returned by Create for unknown provider names.
var ErrNotRegistered = eris.New("model provider not registered")

// Registry maps provider names to factories. It caches factories, never
// instances: every Create call returns a fresh provider.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name, overwriting any existing registration.
// Registration is a setup-time operation; it must not overlap with an
// in-flight batch.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Create instantiates a provider for the given model spec.
func (r *Registry) Create(name string, spec model.ModelSpec) (Provider, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, eris.Wrapf(ErrNotRegistered, "llm: provider %q (known: %v)", name, r.List())
	}
	p, err := f(spec)
	if err != nil {
		return nil, eris.Wrapf(err, "llm: create provider %q for model %q", name, spec.Name)
	}
	return p, nil
}

// List returns registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default is the process-wide registry. Concrete providers are registered
// during startup wiring (cmd) so that construction can carry client
// credentials from config.
var Default = NewRegistry()
