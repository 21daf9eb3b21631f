package sim

import (
	"context"
	"sync"
	"time"

	"github.com/san-kum/dcmsim/internal/config"
	"github.com/san-kum/dcmsim/internal/metrics"
)

// Ensemble runs independent engines over consecutive seeds. Each run owns its
// own simulators, so no entity buffer is shared between runs.
type Ensemble struct {
	cfg       *config.Config
	numRuns   int
	seedStart int64
}

func NewEnsemble(cfg *config.Config, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{cfg: cfg, numRuns: numRuns, seedStart: seedStart}
}

func (e *Ensemble) Run(ctx context.Context, d time.Duration) ([]*Result, error) {
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			cfgCopy := *e.cfg
			cfgCopy.Seed = e.seedStart + int64(idx)

			eng, err := New(&cfgCopy)
			if err != nil {
				errs[idx] = err
				return
			}
			for _, m := range metrics.DefaultRunMetrics(cfgCopy.Entities.Capacity) {
				eng.AddMetric(m)
			}
			results[idx], errs[idx] = eng.Run(ctx, d)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// MeanMetrics averages each metric across results.
func MeanMetrics(results []*Result) map[string]float64 {
	out := make(map[string]float64)
	if len(results) == 0 {
		return out
	}
	for _, r := range results {
		for k, v := range r.Metrics {
			out[k] += v
		}
	}
	for k := range out {
		out[k] /= float64(len(results))
	}
	return out
}
