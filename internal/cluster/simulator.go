// Package cluster animates dynamic cluster formation: clusters are introduced
// as their phases begin, each active phase emits jittered points around its
// cluster, and the reset phase flushes everything at the end of the cycle.
package cluster

import (
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"

	"github.com/san-kum/dcmsim/internal/dynamo"
	"github.com/san-kum/dcmsim/internal/phase"
)

// Simulator owns the point buffer and cluster set. Apply must be called from
// a single goroutine; Snapshot may be called from any.
type Simulator struct {
	sched *phase.Scheduler
	cfg   Config
	specs map[int]Spec
	rng   *rand.Rand

	// ring buffer of points, oldest at head
	points []Point
	head   int
	size   int

	clusters []Cluster
	nextID   uint64

	snap atomic.Pointer[Snapshot]
}

// New validates cfg against the scheduler's phases. rng drives point jitter;
// pass a seeded source for reproducible runs.
func New(sched *phase.Scheduler, cfg Config, rng *rand.Rand) (*Simulator, error) {
	if err := validate(sched, cfg); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	specs := make(map[int]Spec, len(cfg.Clusters))
	for _, c := range cfg.Clusters {
		specs[c.ID] = c
	}

	s := &Simulator{
		sched:    sched,
		cfg:      cfg,
		specs:    specs,
		rng:      rng,
		points:   make([]Point, cfg.Capacity),
		clusters: make([]Cluster, 0, len(cfg.Clusters)),
		nextID:   1,
	}
	s.snap.Store(&Snapshot{Points: []Point{}, Clusters: []Cluster{}})
	return s, nil
}

func validate(sched *phase.Scheduler, cfg Config) error {
	if sched == nil {
		return dynamo.NewConfigError("cluster", "scheduler", dynamo.ErrInvalidValue)
	}
	if cfg.Capacity <= 0 {
		return dynamo.NewConfigError("cluster", "capacity", dynamo.ErrInvalidCapacity)
	}
	if cfg.JitterRadius < 0 || math.IsNaN(cfg.JitterRadius) || math.IsInf(cfg.JitterRadius, 0) {
		return dynamo.NewConfigError("cluster", "jitter_radius", dynamo.ErrInvalidValue)
	}
	if len(cfg.Clusters) == 0 {
		return dynamo.NewConfigError("cluster", "clusters", dynamo.ErrInvalidCapacity)
	}

	seen := make(map[int]bool, len(cfg.Clusters))
	for _, c := range cfg.Clusters {
		key := fmt.Sprint(c.ID)
		if seen[c.ID] {
			return dynamo.NewConfigError("cluster", key, dynamo.ErrDuplicateKey)
		}
		seen[c.ID] = true
		if !c.Center.IsValid() || !c.Center.InSpace() {
			return dynamo.NewConfigError("cluster", key, fmt.Errorf("%w: center %v outside diagram space", dynamo.ErrInvalidValue, c.Center))
		}
		if !ValidColor(c.Color) {
			return dynamo.NewConfigError("cluster", key, fmt.Errorf("%w: color %q", dynamo.ErrInvalidValue, c.Color))
		}
	}

	for _, p := range sched.Phases() {
		if p.Kind == phase.KindEmit && !seen[p.Cluster] {
			return dynamo.NewConfigError("cluster", p.Name, fmt.Errorf("%w %d", dynamo.ErrUnknownCluster, p.Cluster))
		}
	}
	return nil
}

// Capacity is the point buffer bound.
func (s *Simulator) Capacity() int { return s.cfg.Capacity }

// MaxClusters bounds the cluster set size within one cycle.
func (s *Simulator) MaxClusters() int { return len(s.cfg.Clusters) }

// Snapshot returns the latest published snapshot. Callers must not modify it.
func (s *Simulator) Snapshot() *Snapshot { return s.snap.Load() }

// Apply derives the phase of t, applies its rule and publishes the result.
func (s *Simulator) Apply(t dynamo.Tick) *Snapshot {
	return s.OnPhase(s.sched.PhaseOf(t), t)
}

// OnPhase applies the rule for p at tick t. The new snapshot is built in full
// before it replaces the previous one.
func (s *Simulator) OnPhase(p phase.Phase, t dynamo.Tick) *Snapshot {
	snap := &Snapshot{
		Tick:     t,
		Cycle:    s.sched.Cycle(t),
		Position: s.sched.Position(t),
		Phase:    p.Name,
		Applied:  true,
	}

	switch p.Kind {
	case phase.KindReset:
		s.reset()
		snap.Flushed = true
	case phase.KindEmit:
		if !s.present(p.Cluster) {
			s.introduce(p.Cluster, t)
			snap.Novelty = true
			snap.Annotation = p.Annotation
		}
		s.emit(p.Cluster, t)
	}

	snap.Points = s.orderedPoints()
	snap.Clusters = append(make([]Cluster, 0, len(s.clusters)), s.clusters...)
	s.snap.Store(snap)
	return snap
}

// Reseed restarts jitter and point numbering from seed.
func (s *Simulator) Reseed(seed int64) {
	s.rng = rand.New(rand.NewSource(seed))
	s.nextID = 1
}

// Reset flushes every entity and publishes an empty snapshot.
func (s *Simulator) Reset() {
	s.reset()
	s.snap.Store(&Snapshot{Points: []Point{}, Clusters: []Cluster{}})
}

func (s *Simulator) reset() {
	s.clusters = s.clusters[:0]
	s.head, s.size = 0, 0
}

func (s *Simulator) present(id int) bool {
	for _, c := range s.clusters {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (s *Simulator) introduce(id int, t dynamo.Tick) {
	spec := s.specs[id]
	s.clusters = append(s.clusters, Cluster{ID: id, Center: spec.Center, Color: spec.Color, Born: t})
}

func (s *Simulator) emit(id int, t dynamo.Tick) {
	center := s.specs[id].Center
	offset := dynamo.Vec2{X: s.jitter(), Y: s.jitter()}
	s.push(Point{ID: s.nextID, Pos: center.Add(offset).Clamp(), Cluster: id, Born: t})
	s.nextID++
}

func (s *Simulator) jitter() float64 {
	return (s.rng.Float64()*2 - 1) * s.cfg.JitterRadius
}

func (s *Simulator) push(p Point) {
	if s.size == len(s.points) {
		s.points[s.head] = p
		s.head = (s.head + 1) % len(s.points)
		return
	}
	s.points[(s.head+s.size)%len(s.points)] = p
	s.size++
}

func (s *Simulator) orderedPoints() []Point {
	out := make([]Point, s.size)
	for i := 0; i < s.size; i++ {
		out[i] = s.points[(s.head+i)%len(s.points)]
	}
	return out
}
