// Package store provides durable, queryable persistence for evaluation runs.
package store

import (
	"context"

	"github.com/membench/membench/internal/model"
)

// Filter specifies criteria for querying stored runs. Set fields combine
// with logical AND; zero values impose no constraint.
type Filter struct {
	ModelName     string          `json:"model_name,omitempty"`
	ModelProvider string          `json:"model_provider,omitempty"`
	MemoryMethod  string          `json:"memory_method,omitempty"`
	Benchmark     string          `json:"benchmark,omitempty"`
	Status        model.RunStatus `json:"status,omitempty"`
	Limit         int             `json:"limit,omitempty"`
}

// Summary holds aggregate statistics over all stored runs.
type Summary struct {
	TotalRuns      int      `json:"total_runs"`
	SuccessfulRuns int      `json:"successful_runs"`
	FailedRuns     int      `json:"failed_runs"`
	SuccessRate    float64  `json:"success_rate"`
	Models         []string `json:"models"`
	MemoryMethods  []string `json:"memory_methods"`
	Benchmarks     []string `json:"benchmarks"`
	Location       string   `json:"location"`
}

// Store defines the persistence contract for evaluation results. Each write
// is a self-contained transaction; multiple processes may point at the same
// storage location.
type Store interface {
	// SaveResult persists one evaluation result and returns its assigned ID.
	SaveResult(ctx context.Context, result *model.EvaluationResult) (int64, error)
	// GetResult returns the stored run with the given ID, or nil if absent.
	GetResult(ctx context.Context, id int64) (*model.StoredRun, error)
	// QueryResults returns stored runs matching the filter, newest first.
	QueryResults(ctx context.Context, filter Filter) ([]model.StoredRun, error)
	// ExportJSON writes the filtered result set as a JSON array to path.
	ExportJSON(ctx context.Context, path string, filter Filter) error
	// Summary returns aggregate statistics over all stored runs.
	Summary(ctx context.Context) (*Summary, error)
	// DeleteResult removes one run; it reports whether a row was removed.
	DeleteResult(ctx context.Context, id int64) (bool, error)
	// ClearAll removes every stored run.
	ClearAll(ctx context.Context) error

	// Migrate creates schema objects idempotently.
	Migrate(ctx context.Context) error
	Close() error
}

// unknownLabel is recorded when a result's model name or provider is absent.
// The lenient fallback mirrors the store's append-only role: labeling never
// blocks persistence.
const unknownLabel = "unknown"

// resultsPayload picks what lands in the results_json column: the benchmark
// payload on success, the classified error detail on failure.
func resultsPayload(result *model.EvaluationResult) any {
	if result.Error != nil {
		return map[string]any{"error": result.Error}
	}
	return result.Results
}

func modelLabels(result *model.EvaluationResult) (name, provider string) {
	name, provider = result.Model.Name, result.Model.Provider
	if name == "" {
		name = unknownLabel
	}
	if provider == "" {
		provider = unknownLabel
	}
	return name, provider
}
