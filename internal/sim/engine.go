// Package sim wires the entity simulator and the stage sequencer to their
// own clocks and exposes the snapshots a presentation layer renders.
package sim

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/san-kum/dcmsim/internal/clock"
	"github.com/san-kum/dcmsim/internal/cluster"
	"github.com/san-kum/dcmsim/internal/config"
	"github.com/san-kum/dcmsim/internal/dynamo"
	"github.com/san-kum/dcmsim/internal/logging"
	"github.com/san-kum/dcmsim/internal/metrics"
	"github.com/san-kum/dcmsim/internal/phase"
	"github.com/san-kum/dcmsim/internal/stage"
)

type Option func(*Engine)

// WithClockFactory replaces the real clocks, e.g. with clock.NewManualFactory.
func WithClockFactory(f clock.Factory) Option {
	return func(e *Engine) { e.factory = f }
}

func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.log = l }
}

type Engine struct {
	cfg     *config.Config
	seed    int64
	factory clock.Factory
	log     *logging.Logger

	entities *cluster.Simulator
	stages   *stage.Sequencer
	compare  *metrics.Normalizer

	entityClock clock.Source
	stageClock  clock.Source

	mu        sync.RWMutex
	observers []Observer
	metrics   []metrics.Metric
}

// New validates cfg and builds every component. A zero seed is replaced by a
// time-based one.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:     cfg,
		seed:    cfg.Seed,
		factory: clock.NewFactory(),
		log:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.seed == 0 {
		e.seed = time.Now().UnixNano()
	}

	table, err := cfg.PhaseTable()
	if err != nil {
		return nil, err
	}
	sched, err := phase.NewScheduler(table)
	if err != nil {
		return nil, err
	}
	if e.entities, err = cluster.New(sched, cfg.ClusterConfig(), rand.New(rand.NewSource(e.seed))); err != nil {
		return nil, err
	}
	if e.stages, err = stage.NewSequencer(cfg.StageList()); err != nil {
		return nil, err
	}
	if err := e.stages.Restore(cfg.Stages.Start); err != nil {
		return nil, err
	}
	if e.compare, err = metrics.NewNormalizer(cfg.Comparison.Datasets, cfg.Comparison.Default, cfg.ComparisonOptions()); err != nil {
		return nil, err
	}

	e.entityClock = e.factory(cfg.Entities.Period, e.onEntityTick)
	e.stageClock = e.factory(cfg.Stages.Period, e.onStageTick)
	return e, nil
}

func (e *Engine) Seed() int64 { return e.seed }

func (e *Engine) Config() *config.Config { return e.cfg }

func (e *Engine) AddObserver(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, o)
}

// AddMetric registers a metric observed on every entity frame of Run.
func (e *Engine) AddMetric(m metrics.Metric) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics = append(e.metrics, m)
}

// Start runs both clocks.
func (e *Engine) Start() {
	e.entityClock.Start()
	e.stageClock.Start()
	e.log.Debug("clocks started", "entities", e.cfg.Entities.Period, "stages", e.cfg.Stages.Period)
}

// Stop halts both clocks. No tick is applied after Stop returns.
func (e *Engine) Stop() {
	e.entityClock.Stop()
	e.stageClock.Stop()
	e.log.Debug("clocks stopped")
}

func (e *Engine) Running() bool {
	return e.entityClock.Running() || e.stageClock.Running()
}

func (e *Engine) Entities() *cluster.Snapshot { return e.entities.Snapshot() }

func (e *Engine) Stages() stage.Snapshot { return e.stages.Snapshot() }

func (e *Engine) Series() *metrics.Series { return e.compare.Current() }

func (e *Engine) DatasetKeys() []string { return e.compare.Keys() }

// SelectDataset switches the comparison chart. Unknown names leave the current
// series in place.
func (e *Engine) SelectDataset(name string) (*metrics.Series, error) {
	prev := e.compare.Current()
	s, err := e.compare.Select(name)
	if err != nil {
		e.log.Warn("dataset selection rejected", "dataset", name, "err", err)
		return nil, err
	}
	if s != prev {
		e.log.Info("dataset selected", "dataset", name)
	}
	return s, nil
}

// DatasetSeries normalizes a registered dataset without touching the active
// selection.
func (e *Engine) DatasetSeries(name string) (*metrics.Series, error) {
	return e.compare.Normalize(name)
}

// NextDataset cycles the comparison chart through the registered datasets.
func (e *Engine) NextDataset() *metrics.Series {
	s := e.compare.Next()
	e.log.Info("dataset selected", "dataset", s.DatasetKey)
	return s
}

func (e *Engine) onEntityTick(t dynamo.Tick) {
	snap := e.entities.Apply(t)
	switch {
	case snap.Novelty:
		e.log.Debug("cluster introduced", "tick", t, "phase", snap.Phase, "clusters", len(snap.Clusters))
	case snap.Flushed:
		e.log.Debug("cycle reset", "tick", t, "cycle", snap.Cycle)
	}

	e.mu.RLock()
	obs := e.observers
	e.mu.RUnlock()
	for _, o := range obs {
		o.OnEntities(snap)
	}
}

func (e *Engine) onStageTick(dynamo.Tick) {
	e.stages.Advance()
	snap := e.stages.Snapshot()

	e.mu.RLock()
	obs := e.observers
	e.mu.RUnlock()
	for _, o := range obs {
		o.OnStage(snap)
	}
}

// Run replays both clocks on a virtual timeline for d, starting from fresh
// simulator state. Entity ticks land on multiples of the entity period and
// stage advances on multiples of the stage period; on a tie the entity tick
// goes first. Run fails with ErrRunning while the real clocks are active.
func (e *Engine) Run(ctx context.Context, d time.Duration) (*Result, error) {
	if d < 0 {
		return nil, dynamo.NewConfigError("sim", d.String(), dynamo.ErrInvalidValue)
	}
	if e.Running() {
		return nil, ErrRunning
	}

	e.entities.Reset()
	e.entities.Reseed(e.seed)
	if err := e.stages.Restore(e.cfg.Stages.Start); err != nil {
		return nil, err
	}

	e.mu.RLock()
	ms := e.metrics
	e.mu.RUnlock()
	for _, m := range ms {
		m.Reset()
	}

	pe, ps := e.cfg.Entities.Period, e.cfg.Stages.Period
	result := &Result{
		Seed:     e.seed,
		Duration: d,
		Frames:   make([]Frame, 0, max(0, int(d/pe)+int(d/ps))),
		Metrics:  make(map[string]float64),
	}

	var entityTick dynamo.Tick
	nextEntity, nextStage := pe, ps
	for {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		at := nextEntity
		if nextStage < at {
			at = nextStage
		}
		if at > d {
			break
		}

		if nextEntity <= nextStage {
			e.onEntityTick(entityTick)
			entityTick++
			snap := e.entities.Snapshot()
			for _, m := range ms {
				m.Observe(snap)
			}
			result.Frames = append(result.Frames, Frame{At: at, Kind: FrameEntities, Entities: snap})
			nextEntity += pe
		} else {
			e.onStageTick(0)
			st := e.stages.Snapshot()
			result.Frames = append(result.Frames, Frame{At: at, Kind: FrameStage, Stage: &st})
			nextStage += ps
		}
	}

	for _, m := range ms {
		result.Metrics[m.Name()] = m.Value()
	}
	return result, nil
}
