package optim

import (
	"fmt"
	"math"

	"github.com/san-kum/dcmsim/internal/config"
	"github.com/san-kum/dcmsim/internal/metrics"
	"github.com/san-kum/dcmsim/internal/sim"
)

// Sweepable parameter names understood by ConfigBuild.
const (
	ParamCapacity     = "capacity"
	ParamJitterRadius = "jitter_radius"
)

// ConfigBuild returns a Build that applies the grid point to a copy of base
// and registers the default run metrics.
func ConfigBuild(base *config.Config) Build {
	return func(params map[string]float64) (*sim.Engine, error) {
		cfg := *base
		for name, v := range params {
			switch name {
			case ParamCapacity:
				if v != math.Trunc(v) {
					return nil, fmt.Errorf("optim: capacity %g is not an integer", v)
				}
				cfg.Entities.Capacity = int(v)
			case ParamJitterRadius:
				cfg.Entities.JitterRadius = v
			default:
				return nil, fmt.Errorf("optim: unknown parameter %q", name)
			}
		}
		eng, err := sim.New(&cfg)
		if err != nil {
			return nil, err
		}
		for _, m := range metrics.DefaultRunMetrics(cfg.Entities.Capacity) {
			eng.AddMetric(m)
		}
		return eng, nil
	}
}
