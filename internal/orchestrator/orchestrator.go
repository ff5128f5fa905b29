// Package orchestrator resolves the configured evaluation matrix into a run
// plan and executes it under a concurrency bound, persisting every outcome.
package orchestrator

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/membench/membench/internal/benchmark"
	"github.com/membench/membench/internal/config"
	"github.com/membench/membench/internal/llm"
	"github.com/membench/membench/internal/memory"
	"github.com/membench/membench/internal/model"
	"github.com/membench/membench/internal/store"
)

// Orchestrator executes the full cross product of enabled models, memory
// methods and benchmarks. Component failures never abort a batch; each
// combination lands as a success or error result.
type Orchestrator struct {
	cfg        *config.Config
	store      store.Store
	providers  *llm.Registry
	memories   *memory.Registry
	benchmarks *benchmark.Registry
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithProviders overrides the model provider registry.
func WithProviders(r *llm.Registry) Option {
	return func(o *Orchestrator) { o.providers = r }
}

// WithMemories overrides the memory method registry.
func WithMemories(r *memory.Registry) Option {
	return func(o *Orchestrator) { o.memories = r }
}

// WithBenchmarks overrides the benchmark registry.
func WithBenchmarks(r *benchmark.Registry) Option {
	return func(o *Orchestrator) { o.benchmarks = r }
}

// New validates the configuration and creates an Orchestrator. The store may
// be nil for plan-only use; RunFullEvaluation then skips persistence.
func New(cfg *config.Config, st store.Store, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, eris.Wrap(err, "orchestrator: invalid config")
	}

	o := &Orchestrator{
		cfg:        cfg,
		store:      st,
		providers:  llm.Default,
		memories:   memory.Default,
		benchmarks: benchmark.Default,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// ModelSpecs flattens the provider config into the enabled model list.
// Providers are visited in sorted name order so repeated constructions from
// the same config yield the same sequence.
func (o *Orchestrator) ModelSpecs() []model.ModelSpec {
	names := make([]string, 0, len(o.cfg.Providers))
	for name := range o.cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	var specs []model.ModelSpec
	for _, name := range names {
		pc := o.cfg.Providers[name]
		for _, m := range pc.EnabledModels {
			specs = append(specs, model.ModelSpec{
				Name:     m,
				Provider: name,
				Settings: pc.Settings,
			})
		}
	}
	return specs
}

// Plan returns the full cross product of enabled models, memory methods and
// benchmarks, models outermost and benchmarks innermost.
func (o *Orchestrator) Plan() []model.RunCombination {
	specs := o.ModelSpecs()
	plan := make([]model.RunCombination, 0, len(specs)*len(o.cfg.MemoryMethods)*len(o.cfg.ExecutedBenchmarks))
	for _, spec := range specs {
		for _, mem := range o.cfg.MemoryMethods {
			for _, bench := range o.cfg.ExecutedBenchmarks {
				plan = append(plan, model.RunCombination{
					Model:        spec,
					MemoryMethod: mem,
					Benchmark:    bench,
				})
			}
		}
	}
	return plan
}

// RunFullEvaluation executes every combination in the plan and persists each
// result as it completes. Storage failures abort the batch; component
// failures are recorded as error-status results.
func (o *Orchestrator) RunFullEvaluation(ctx context.Context) (*model.EvaluationSummary, error) {
	plan := o.Plan()
	batchID := uuid.NewString()
	log := zap.L().With(zap.String("batch_id", batchID))

	bound := o.cfg.ConcurrentEvals
	if bound < 1 {
		bound = 1
	}
	log.Info("orchestrator: starting evaluation batch",
		zap.Int("combinations", len(plan)),
		zap.Int("concurrency", bound),
	)

	results := make([]model.EvaluationResult, len(plan))

	if bound == 1 {
		for i, comb := range plan {
			results[i] = o.runCombination(ctx, comb)
			if err := o.persist(ctx, &results[i]); err != nil {
				return nil, err
			}
		}
	} else {
		// Each goroutine persists its own result on completion, so a batch
		// interrupted midway keeps everything already finished.
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(bound)
		for i, comb := range plan {
			g.Go(func() error {
				results[i] = o.runCombination(gctx, comb)
				return o.persist(gctx, &results[i])
			})
		}
		if err := g.Wait(); err != nil {
			return nil, eris.Wrap(err, "orchestrator: wait for batch")
		}
	}

	summary := summarize(results)
	log.Info("orchestrator: batch complete",
		zap.Int("total", summary.TotalRuns),
		zap.Int("succeeded", summary.SuccessfulRuns),
		zap.Int("failed", summary.FailedRuns),
		zap.Float64("success_rate", summary.SuccessRate),
	)
	return summary, nil
}

// runCombination executes one combination and converts any component failure
// into an error-status result. It never returns an error.
func (o *Orchestrator) runCombination(ctx context.Context, comb model.RunCombination) model.EvaluationResult {
	log := zap.L().With(
		zap.String("model", comb.Model.Name),
		zap.String("provider", comb.Model.Provider),
		zap.String("memory", comb.MemoryMethod),
		zap.String("benchmark", comb.Benchmark),
	)
	log.Info("orchestrator: running combination")
	start := time.Now()

	results, err := o.executeGuarded(ctx, comb)

	result := model.EvaluationResult{
		Timestamp:       start.UTC(),
		DurationSeconds: time.Since(start).Seconds(),
		Model:           comb.Model,
		MemoryMethod:    comb.MemoryMethod,
		Benchmark:       comb.Benchmark,
	}
	if err != nil {
		result.Status = model.RunStatusError
		result.Error = &model.ErrorDetail{
			Kind:         classifyError(err),
			Message:      err.Error(),
			Model:        comb.Model.Name,
			Provider:     comb.Model.Provider,
			MemoryMethod: comb.MemoryMethod,
			Benchmark:    comb.Benchmark,
		}
		log.Warn("orchestrator: combination failed",
			zap.String("kind", string(result.Error.Kind)),
			zap.Error(err),
		)
		return result
	}

	result.Status = model.RunStatusSuccess
	result.Results = results
	log.Info("orchestrator: combination succeeded",
		zap.Float64("duration_secs", result.DurationSeconds))
	return result
}

// executeGuarded runs execute behind a panic recovery so a misbehaving
// component turns into an error-status result instead of killing the batch.
func (o *Orchestrator) executeGuarded(ctx context.Context, comb model.RunCombination) (results map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("orchestrator: combination panicked: %v", r)
		}
	}()
	return o.execute(ctx, comb)
}

// execute resolves the combination's components and runs the benchmark.
func (o *Orchestrator) execute(ctx context.Context, comb model.RunCombination) (map[string]any, error) {
	provider, err := o.providers.Create(comb.Model.Provider, comb.Model)
	if err != nil {
		return nil, err
	}

	mem, err := o.memories.Create(comb.MemoryMethod, o.cfg.MemoryConfig(comb.MemoryMethod))
	if err != nil {
		return nil, err
	}

	benchCfg := o.cfg.BenchmarkConfig(comb.Benchmark)
	adapter, err := o.benchmarks.Create(comb.Benchmark, benchCfg)
	if err != nil {
		return nil, err
	}

	if o.cfg.EvalTimeoutSecs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(o.cfg.EvalTimeoutSecs)*time.Second)
		defer cancel()
	}

	return adapter.RunBenchmark(ctx, provider, mem, benchCfg)
}

func (o *Orchestrator) persist(ctx context.Context, result *model.EvaluationResult) error {
	if o.store == nil {
		return nil
	}
	id, err := o.store.SaveResult(ctx, result)
	if err != nil {
		return eris.Wrap(err, "orchestrator: persist result")
	}
	zap.L().Debug("orchestrator: result persisted", zap.Int64("id", id))
	return nil
}

// classifyError maps a combination failure onto the stored error taxonomy.
func classifyError(err error) model.ErrorKind {
	switch {
	case errors.Is(err, llm.ErrNotRegistered),
		errors.Is(err, memory.ErrNotRegistered),
		errors.Is(err, benchmark.ErrNotRegistered):
		return model.ErrorKindRegistry
	case errors.Is(err, context.DeadlineExceeded):
		return model.ErrorKindTimeout
	default:
		return model.ErrorKindExecution
	}
}

// summarize aggregates batch results. Tested-component lists preserve first
// appearance order; the success rate of an empty batch is zero.
func summarize(results []model.EvaluationResult) *model.EvaluationSummary {
	summary := &model.EvaluationSummary{
		Timestamp: time.Now().UTC(),
		TotalRuns: len(results),
		Results:   results,
	}

	seenModels := map[string]bool{}
	seenMemories := map[string]bool{}
	seenBenchmarks := map[string]bool{}
	for _, r := range results {
		if r.Status == model.RunStatusSuccess {
			summary.SuccessfulRuns++
		} else {
			summary.FailedRuns++
		}
		if !seenModels[r.Model.Name] {
			seenModels[r.Model.Name] = true
			summary.ModelsTested = append(summary.ModelsTested, r.Model.Name)
		}
		if !seenMemories[r.MemoryMethod] {
			seenMemories[r.MemoryMethod] = true
			summary.MemoryMethodsTested = append(summary.MemoryMethodsTested, r.MemoryMethod)
		}
		if !seenBenchmarks[r.Benchmark] {
			seenBenchmarks[r.Benchmark] = true
			summary.BenchmarksTested = append(summary.BenchmarksTested, r.Benchmark)
		}
	}
	if summary.TotalRuns > 0 {
		summary.SuccessRate = float64(summary.SuccessfulRuns) / float64(summary.TotalRuns)
	}
	return summary
}
