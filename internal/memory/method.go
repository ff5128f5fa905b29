// Package memory defines the memory-method abstraction: pure text-shaping
// strategies applied before prompting a model.
package memory

import (
	"sort"
	"sync"

	"github.com/rotisserie/eris"
)

// Options holds runtime parameters for a single Process call.
type Options struct {
	// MaxTokens overrides the method's configured budget when set.
	MaxTokens *int
}

// Info describes a memory method for result labeling.
type Info struct {
	Method      string         `json:"method"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Parameters  []string       `json:"parameters"`
	Defaults    map[string]any `json:"defaults,omitempty"`
}

// Method is a deterministic, side-effect-free text transformation that shapes
// input to fit a size constraint.
type Method interface {
	Process(text string, opts Options) string
	MethodInfo() Info
}

// Factory constructs a method instance from its configured settings.
type Factory func(settings map[string]any) (Method, error)

// Registry maps method names to factories. Registration happens at setup
// time only; Create is safe for concurrent use during a batch.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty memory-method registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name, overwriting any existing registration.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Create instantiates the named method with the given settings.
func (r *Registry) Create(name string, settings map[string]any) (Method, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, eris.Wrapf(ErrNotRegistered, "memory: method %q (known: %v)", name, r.List())
	}
	m, err := f(settings)
	if err != nil {
		return nil, eris.Wrapf(err, "memory: create %q", name)
	}
	return m, nil
}

// List returns registered method names, sorted.
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

// ErrNotRegistered is returned by Create for unknown method names.
var ErrNotRegistered = eris.New("memory method not registered")

// Default is the process-wide registry. Built-in methods register here at
// init; tests and plugins may overwrite entries during setup.
var Default = NewRegistry()
