package model

import "time"

// RunStatus is the terminal state of one evaluation combination.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusError   RunStatus = "error"
)

// ErrorKind classifies per-combination failures.
type ErrorKind string

const (
	ErrorKindRegistry  ErrorKind = "registry_error"
	ErrorKindExecution ErrorKind = "execution_error"
	ErrorKindTimeout   ErrorKind = "timeout"
)

// ModelSpec identifies one enabled model within a provider, carrying the
// provider's settings. Settings are shared with the provider config and must
// not be mutated by consumers.
type ModelSpec struct {
	Name     string         `json:"name"`
	Provider string         `json:"provider"`
	Settings map[string]any `json:"config,omitempty"`
}

// RunCombination is the atomic unit of orchestrated execution: one
// (model, memory method, benchmark) triple from the run plan.
type RunCombination struct {
	Model        ModelSpec `json:"model"`
	MemoryMethod string    `json:"memory_method"`
	Benchmark    string    `json:"benchmark"`
}

// ErrorDetail carries the classified failure context of an error-status run.
type ErrorDetail struct {
	Kind         ErrorKind `json:"kind"`
	Message      string    `json:"message"`
	Model        string    `json:"model"`
	Provider     string    `json:"provider"`
	MemoryMethod string    `json:"memory_method"`
	Benchmark    string    `json:"benchmark"`
}

// EvaluationResult is the immutable outcome of executing one combination.
// Results holds the benchmark-specific payload on success; Error is set on
// failure. Exactly one of the two is populated.
type EvaluationResult struct {
	Timestamp       time.Time      `json:"timestamp"`
	DurationSeconds float64        `json:"duration_seconds"`
	Model           ModelSpec      `json:"model"`
	MemoryMethod    string         `json:"memory_method"`
	Benchmark       string         `json:"benchmark"`
	Status          RunStatus      `json:"status"`
	Results         map[string]any `json:"results,omitempty"`
	Error           *ErrorDetail   `json:"error,omitempty"`
}

// EvaluationSummary aggregates a completed batch.
type EvaluationSummary struct {
	Timestamp           time.Time          `json:"timestamp"`
	TotalRuns           int                `json:"total_runs"`
	SuccessfulRuns      int                `json:"successful_runs"`
	FailedRuns          int                `json:"failed_runs"`
	SuccessRate         float64            `json:"success_rate"`
	Results             []EvaluationResult `json:"results"`
	ModelsTested        []string           `json:"models_tested"`
	MemoryMethodsTested []string           `json:"memory_methods_tested"`
	BenchmarksTested    []string           `json:"benchmarks_tested"`
}

// StoredRun is the durable record of one evaluation run as persisted by the
// results store. ID is store-assigned and monotonically increasing;
// CreatedAt is the store's insert time, distinct from Timestamp.
type StoredRun struct {
	ID              int64          `json:"id"`
	Timestamp       string         `json:"timestamp"`
	ModelName       string         `json:"model_name"`
	ModelProvider   string         `json:"model_provider"`
	MemoryMethod    string         `json:"memory_method"`
	Benchmark       string         `json:"benchmark"`
	Status          RunStatus      `json:"status"`
	DurationSeconds float64        `json:"duration_seconds"`
	Results         map[string]any `json:"results"`
	CreatedAt       time.Time      `json:"created_at"`
}
