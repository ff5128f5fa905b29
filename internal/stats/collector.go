// Package stats aggregates stored evaluation runs into per-dimension
// breakdowns for reporting.
package stats

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/membench/membench/internal/model"
	"github.com/membench/membench/internal/store"
)

// Dimension selects the grouping key for a breakdown.
type Dimension string

const (
	DimensionModel     Dimension = "model"
	DimensionMemory    Dimension = "memory"
	DimensionBenchmark Dimension = "benchmark"
)

// Row is one group in a breakdown.
type Row struct {
	Key             string  `json:"key"`
	Total           int     `json:"total"`
	Succeeded       int     `json:"succeeded"`
	Failed          int     `json:"failed"`
	SuccessRate     float64 `json:"success_rate"`
	AvgDurationSecs float64 `json:"avg_duration_secs"`
}

// queryLimit caps how many runs feed a breakdown.
const queryLimit = 10000

// Collector computes breakdowns over the results store.
type Collector struct {
	store store.Store
}

// NewCollector creates a stats collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Breakdown groups all stored runs by the given dimension, rows sorted by
// key.
func (c *Collector) Breakdown(ctx context.Context, dim Dimension) ([]Row, error) {
	key, err := keyFunc(dim)
	if err != nil {
		return nil, err
	}

	runs, err := c.store.QueryResults(ctx, store.Filter{Limit: queryLimit})
	if err != nil {
		return nil, eris.Wrap(err, "stats: query runs")
	}

	return Compute(runs, key), nil
}

// Compute groups runs with the given key function, rows sorted by key.
func Compute(runs []model.StoredRun, key func(model.StoredRun) string) []Row {
	groups := map[string]*Row{}
	durations := map[string]float64{}

	for _, r := range runs {
		k := key(r)
		row, ok := groups[k]
		if !ok {
			row = &Row{Key: k}
			groups[k] = row
		}
		row.Total++
		if r.Status == model.RunStatusSuccess {
			row.Succeeded++
		} else {
			row.Failed++
		}
		durations[k] += r.DurationSeconds
	}

	rows := make([]Row, 0, len(groups))
	for k, row := range groups {
		row.SuccessRate = float64(row.Succeeded) / float64(row.Total)
		row.AvgDurationSecs = durations[k] / float64(row.Total)
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	return rows
}

func keyFunc(dim Dimension) (func(model.StoredRun) string, error) {
	switch dim {
	case DimensionModel:
		return func(r model.StoredRun) string { return r.ModelName }, nil
	case DimensionMemory:
		return func(r model.StoredRun) string { return r.MemoryMethod }, nil
	case DimensionBenchmark:
		return func(r model.StoredRun) string { return r.Benchmark }, nil
	default:
		return nil, eris.Errorf("stats: unknown dimension %q", dim)
	}
}
