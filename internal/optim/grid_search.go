// Package optim sweeps simulator parameters over a grid and ranks the
// resulting runs by one metric.
package optim

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/san-kum/dcmsim/internal/sim"
)

// Build returns a ready engine for one grid point.
type Build func(params map[string]float64) (*sim.Engine, error)

// Trial is one evaluated grid point.
type Trial struct {
	Params map[string]float64
	Value  float64
}

func (t Trial) String() string {
	keys := make([]string, 0, len(t.Params))
	for k := range t.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%g", k, t.Params[k])
	}
	return strings.Join(parts, " ")
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	// Maximize ranks higher metric values first.
	Maximize bool
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("optim: %d params but %d ranges", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("optim: empty range for %q", params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search runs every grid point headless for d and returns all trials, best
// first. A failing build or run aborts the search.
func (g *GridSearch) Search(ctx context.Context, build Build, metricName string, d time.Duration) ([]Trial, error) {
	trials := make([]Trial, 0, g.Size())
	err := g.searchRecursive(ctx, 0, map[string]float64{}, func(params map[string]float64) error {
		eng, err := build(params)
		if err != nil {
			return fmt.Errorf("build %v: %w", params, err)
		}
		result, err := eng.Run(ctx, d)
		if err != nil {
			return err
		}
		val, ok := result.Metrics[metricName]
		if !ok {
			return fmt.Errorf("optim: unknown metric %q", metricName)
		}
		trials = append(trials, Trial{Params: params, Value: val})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(trials, func(i, j int) bool {
		a, b := trials[i].Value, trials[j].Value
		if math.IsNaN(b) {
			return !math.IsNaN(a)
		}
		if g.Maximize {
			return a > b
		}
		return a < b
	})
	return trials, nil
}

func (g *GridSearch) searchRecursive(ctx context.Context, depth int, current map[string]float64, visit func(map[string]float64) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		return visit(current)
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, visit); err != nil {
			return err
		}
	}
	return nil
}
