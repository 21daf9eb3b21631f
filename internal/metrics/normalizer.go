// Package metrics turns static comparison tables into normalized bar heights
// and summarizes simulation runs.
package metrics

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/san-kum/dcmsim/internal/dynamo"
)

// NormalizedBar is one bar ready for drawing.
type NormalizedBar struct {
	Label     string  `json:"label"`
	Raw       float64 `json:"raw"`
	Fraction  float64 `json:"fraction"`
	Reference bool    `json:"reference"`
}

// Series is the full normalized view of one dataset. Bars holds the
// reference first, then the baselines in registration order.
type Series struct {
	DatasetKey    string          `json:"dataset"`
	Title         string          `json:"title"`
	Source        string          `json:"source"`
	Metric        string          `json:"metric"`
	LowerIsBetter bool            `json:"lower_is_better"`
	Scale         float64         `json:"scale"`
	Reference     NormalizedBar   `json:"reference"`
	Bars          []NormalizedBar `json:"bars"`
	// Revision changes only when the active dataset actually changes.
	Revision uint64 `json:"revision"`
}

// MaxFraction is the tallest bar's height.
func (s *Series) MaxFraction() float64 {
	m := 0.0
	for _, b := range s.Bars {
		m = math.Max(m, b.Fraction)
	}
	return m
}

// Improvement is the reference's relative gain over the best baseline,
// positive when the reference wins.
func (s *Series) Improvement() float64 {
	best := math.NaN()
	for _, b := range s.Bars {
		if b.Reference {
			continue
		}
		if math.IsNaN(best) || (s.LowerIsBetter && b.Raw < best) || (!s.LowerIsBetter && b.Raw > best) {
			best = b.Raw
		}
	}
	if math.IsNaN(best) || best == 0 {
		return 0
	}
	if s.LowerIsBetter {
		return (best - s.Reference.Raw) / best
	}
	return (s.Reference.Raw - best) / best
}

// Options describe how the comparison is captioned.
type Options struct {
	Metric        string
	LowerIsBetter bool
}

// Normalizer holds the registered datasets and the active selection.
type Normalizer struct {
	opts     Options
	datasets map[string]Dataset
	keys     []string

	mu       sync.Mutex
	revision uint64
	current  atomic.Pointer[Series]
}

// NewNormalizer registers datasets and selects initial.
func NewNormalizer(datasets []Dataset, initial string, opts Options) (*Normalizer, error) {
	n := &Normalizer{
		opts:     opts,
		datasets: make(map[string]Dataset, len(datasets)),
		keys:     make([]string, 0, len(datasets)),
	}
	for _, d := range datasets {
		if err := d.validate(); err != nil {
			return nil, err
		}
		if _, dup := n.datasets[d.Key]; dup {
			return nil, dynamo.NewConfigError("metrics", d.Key, dynamo.ErrDuplicateKey)
		}
		d.Baselines = append([]Bar(nil), d.Baselines...)
		n.datasets[d.Key] = d
		n.keys = append(n.keys, d.Key)
	}
	if _, err := n.Select(initial); err != nil {
		return nil, err
	}
	return n, nil
}

// Keys lists dataset keys in registration order.
func (n *Normalizer) Keys() []string {
	return append([]string(nil), n.keys...)
}

// SortedKeys lists dataset keys alphabetically.
func (n *Normalizer) SortedKeys() []string {
	keys := n.Keys()
	sort.Strings(keys)
	return keys
}

// Current returns the active series. Callers must not modify it.
func (n *Normalizer) Current() *Series { return n.current.Load() }

// Select activates the dataset registered under name. An unknown name fails
// with a configuration error and leaves the current selection untouched.
// Selecting the active dataset again returns the existing series unchanged.
func (n *Normalizer) Select(name string) (*Series, error) {
	d, ok := n.datasets[name]
	if !ok {
		return nil, dynamo.NewConfigError("metrics", name, dynamo.ErrUnknownDataset)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if cur := n.current.Load(); cur != nil && cur.DatasetKey == name {
		return cur, nil
	}
	n.revision++
	s := n.normalize(d)
	s.Revision = n.revision
	n.current.Store(s)
	return s, nil
}

// Next activates the dataset registered after the current one, wrapping.
func (n *Normalizer) Next() *Series {
	cur := n.Current().DatasetKey
	for i, k := range n.keys {
		if k == cur {
			s, _ := n.Select(n.keys[(i+1)%len(n.keys)])
			return s
		}
	}
	return n.Current()
}

// Normalize computes the series for name without changing the selection.
func (n *Normalizer) Normalize(name string) (*Series, error) {
	d, ok := n.datasets[name]
	if !ok {
		return nil, dynamo.NewConfigError("metrics", name, dynamo.ErrUnknownDataset)
	}
	return n.normalize(d), nil
}

func (n *Normalizer) normalize(d Dataset) *Series {
	scale := d.Scale()
	bar := func(b Bar, ref bool) NormalizedBar {
		return NormalizedBar{Label: b.Label, Raw: b.Value, Fraction: b.Value / scale, Reference: ref}
	}

	s := &Series{
		DatasetKey:    d.Key,
		Title:         d.Title,
		Source:        d.Source,
		Metric:        n.opts.Metric,
		LowerIsBetter: n.opts.LowerIsBetter,
		Scale:         scale,
		Reference:     bar(d.Reference, true),
		Bars:          make([]NormalizedBar, 0, len(d.Baselines)+1),
	}
	s.Bars = append(s.Bars, s.Reference)
	for _, b := range d.Baselines {
		s.Bars = append(s.Bars, bar(b, false))
	}
	return s
}
