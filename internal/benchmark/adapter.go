// Package benchmark defines the benchmark-adapter abstraction: pluggable
// workloads that exercise a model and memory method against a task set.
package benchmark

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/membench/membench/internal/llm"
	"github.com/membench/membench/internal/memory"
)

// Task is one unit of benchmark work with its ground truth.
type Task struct {
	ID       string         `json:"id" yaml:"id"`
	Prompt   string         `json:"prompt" yaml:"prompt"`
	Expected string         `json:"expected" yaml:"expected"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Evaluation scores one task's output against ground truth.
type Evaluation struct {
	Success bool           `json:"success"`
	Score   float64        `json:"score"`
	Details map[string]any `json:"details,omitempty"`
}

// Adapter is the capability contract for benchmarks. RunBenchmark is opaque
// and atomic from the orchestrator's point of view: it owns its model and
// memory handles for the duration of the call and returns one result bundle.
// EvaluateResult is exposed separately so saved outputs can be re-scored
// without re-running inference.
type Adapter interface {
	RunBenchmark(ctx context.Context, provider llm.Provider, mem memory.Method, cfg map[string]any) (map[string]any, error)
	EvaluateResult(task Task, output string) Evaluation
}

// Factory constructs an adapter from the benchmark's config block.
type Factory func(cfg map[string]any) (Adapter, error)

// ErrNotRegistered is returned by Create for unknown benchmark names.
var ErrNotRegistered = eris.New("benchmark not registered")

// Registry maps benchmark names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty benchmark registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name, overwriting any existing registration.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Create instantiates the named benchmark adapter.
func (r *Registry) Create(name string, cfg map[string]any) (Adapter, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, eris.Wrapf(ErrNotRegistered, "benchmark: %q (known: %v)", name, r.List())
	}
	a, err := f(cfg)
	if err != nil {
		return nil, eris.Wrapf(err, "benchmark: create %q", name)
	}
	return a, nil
}

// List returns registered benchmark names, sorted.
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

// Default is the process-wide registry, populated at init.
var Default = NewRegistry()
