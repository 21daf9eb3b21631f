package metrics

import "github.com/san-kum/dcmsim/internal/cluster"

// Metric summarizes a stream of entity snapshots.
type Metric interface {
	Name() string
	Observe(s *cluster.Snapshot)
	Value() float64
	Reset()
}

// DefaultRunMetrics are the summaries printed after a headless run.
func DefaultRunMetrics(capacity int) []Metric {
	return []Metric{
		NewPeak("peak_points", func(s *cluster.Snapshot) int { return len(s.Points) }),
		NewPeak("peak_clusters", func(s *cluster.Snapshot) int { return len(s.Clusters) }),
		NewOccupancy(capacity),
		NewNoveltyRate(),
	}
}

// Peak tracks the largest count seen.
type Peak struct {
	name  string
	count func(*cluster.Snapshot) int
	max   int
}

func NewPeak(name string, count func(*cluster.Snapshot) int) *Peak {
	return &Peak{name: name, count: count}
}

func (p *Peak) Name() string { return p.name }

func (p *Peak) Observe(s *cluster.Snapshot) {
	if n := p.count(s); n > p.max {
		p.max = n
	}
}

func (p *Peak) Value() float64 { return float64(p.max) }

func (p *Peak) Reset() { p.max = 0 }

// Occupancy is the mean fill ratio of the point buffer.
type Occupancy struct {
	capacity int
	sum      float64
	samples  int
}

func NewOccupancy(capacity int) *Occupancy {
	return &Occupancy{capacity: capacity}
}

func (o *Occupancy) Name() string { return "occupancy" }

func (o *Occupancy) Observe(s *cluster.Snapshot) {
	if o.capacity > 0 {
		o.sum += float64(len(s.Points)) / float64(o.capacity)
	}
	o.samples++
}

func (o *Occupancy) Value() float64 {
	if o.samples == 0 {
		return 0
	}
	return o.sum / float64(o.samples)
}

func (o *Occupancy) Reset() {
	o.sum = 0
	o.samples = 0
}

// NoveltyRate counts novelty events per completed cycle.
type NoveltyRate struct {
	events int
	resets int
}

func NewNoveltyRate() *NoveltyRate { return &NoveltyRate{} }

func (n *NoveltyRate) Name() string { return "novelty_per_cycle" }

func (n *NoveltyRate) Observe(s *cluster.Snapshot) {
	if s.Novelty {
		n.events++
	}
	if s.Flushed {
		n.resets++
	}
}

func (n *NoveltyRate) Value() float64 {
	if n.resets == 0 {
		return float64(n.events)
	}
	return float64(n.events) / float64(n.resets)
}

func (n *NoveltyRate) Reset() {
	n.events = 0
	n.resets = 0
}
