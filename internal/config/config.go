package config

import (
	"fmt"
	"os"
	"time"

	"github.com/san-kum/dcmsim/internal/cluster"
	"github.com/san-kum/dcmsim/internal/dynamo"
	"github.com/san-kum/dcmsim/internal/metrics"
	"github.com/san-kum/dcmsim/internal/phase"
	"github.com/san-kum/dcmsim/internal/stage"
	"gopkg.in/yaml.v3"
)

const (
	DefaultEntityPeriod = time.Second
	DefaultStagePeriod  = 2500 * time.Millisecond
	DefaultCycleLength  = 12
	DefaultCapacity     = 16
	DefaultJitterRadius = 7.5
	DefaultDataset      = "cifar10"
	DefaultTheme        = "paper"
	DefaultFrameRate    = 30
)

type Config struct {
	Seed       int64            `yaml:"seed"`
	Theme      string           `yaml:"theme"`
	FrameRate  int              `yaml:"fps"`
	Entities   EntityConfig     `yaml:"entities"`
	Stages     StageConfig      `yaml:"stages"`
	Comparison ComparisonConfig `yaml:"comparison"`
}

type EntityConfig struct {
	Period       time.Duration   `yaml:"period"`
	CycleLength  int             `yaml:"cycle_length"`
	Capacity     int             `yaml:"capacity"`
	JitterRadius float64         `yaml:"jitter_radius"`
	Phases       []PhaseConfig   `yaml:"phases"`
	Clusters     []ClusterConfig `yaml:"clusters"`
}

type PhaseConfig struct {
	Name       string `yaml:"name"`
	Start      int    `yaml:"start"`
	End        int    `yaml:"end"`
	Kind       string `yaml:"kind"`
	Cluster    int    `yaml:"cluster,omitempty"`
	Annotation string `yaml:"annotation,omitempty"`
}

type ClusterConfig struct {
	ID    int     `yaml:"id"`
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
	Color string  `yaml:"color"`
}

type StageConfig struct {
	Period time.Duration `yaml:"period"`
	// Start is the stage shown first; a saved cursor can be restored here.
	Start  int           `yaml:"start,omitempty"`
	Items  []StageItem   `yaml:"items"`
}

type StageItem struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Icon        string `yaml:"icon,omitempty"`
}

type ComparisonConfig struct {
	Default       string            `yaml:"default"`
	Metric        string            `yaml:"metric"`
	LowerIsBetter bool              `yaml:"lower_is_better"`
	Datasets      []metrics.Dataset `yaml:"datasets"`
}

func DefaultConfig() *Config {
	return &Config{
		Theme:     DefaultTheme,
		FrameRate: DefaultFrameRate,
		Entities: EntityConfig{
			Period:       DefaultEntityPeriod,
			CycleLength:  DefaultCycleLength,
			Capacity:     DefaultCapacity,
			JitterRadius: DefaultJitterRadius,
			Phases: []PhaseConfig{
				{Name: "form-0", Start: 0, End: 3, Kind: "emit", Cluster: 0},
				{Name: "settle-0", Start: 3, End: 4, Kind: "idle"},
				{Name: "form-1", Start: 4, End: 7, Kind: "emit", Cluster: 1, Annotation: "new distribution found, expanding memory"},
				{Name: "settle-1", Start: 7, End: 8, Kind: "idle"},
				{Name: "form-2", Start: 8, End: 11, Kind: "emit", Cluster: 2, Annotation: "new distribution found, expanding memory"},
				{Name: "reset", Start: 11, End: 12, Kind: "reset"},
			},
			Clusters: []ClusterConfig{
				{ID: 0, X: 30, Y: 30, Color: "blue"},
				{ID: 1, X: 70, Y: 70, Color: "red"},
				{ID: 2, X: 70, Y: 30, Color: "emerald"},
			},
		},
		Stages: StageConfig{
			Period: DefaultStagePeriod,
			Items: []StageItem{
				{Title: "sample selection", Description: "compute KDM, match the nearest cluster", Icon: "search"},
				{Title: "expansion check", Description: "distance above threshold λ? create a new cluster", Icon: "database"},
				{Title: "memory pruning", Description: "memory full? remove overlapping clusters", Icon: "scissors"},
				{Title: "model update", Description: "train the DDPM on DCM memory", Icon: "network"},
			},
		},
		Comparison: ComparisonConfig{
			Default:       DefaultDataset,
			Metric:        "FID (lower is better)",
			LowerIsBetter: true,
			Datasets:      metrics.PaperDatasets(),
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults. Lists given in the document replace
// the default lists wholesale.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate builds every component description and reports the first
// configuration error.
func (c *Config) Validate() error {
	if c.Entities.Period <= 0 {
		return dynamo.NewConfigError("config", "entities.period", dynamo.ErrInvalidPeriod)
	}
	if c.Stages.Period <= 0 {
		return dynamo.NewConfigError("config", "stages.period", dynamo.ErrInvalidPeriod)
	}
	if c.FrameRate <= 0 {
		return dynamo.NewConfigError("config", "fps", dynamo.ErrInvalidValue)
	}

	table, err := c.PhaseTable()
	if err != nil {
		return err
	}
	sched, err := phase.NewScheduler(table)
	if err != nil {
		return err
	}
	if _, err := cluster.New(sched, c.ClusterConfig(), nil); err != nil {
		return err
	}
	seq, err := stage.NewSequencer(c.StageList())
	if err != nil {
		return err
	}
	if err := seq.Restore(c.Stages.Start); err != nil {
		return err
	}
	_, err = metrics.NewNormalizer(c.Comparison.Datasets, c.Comparison.Default, c.ComparisonOptions())
	return err
}

func (c *Config) PhaseTable() (phase.Table, error) {
	t := phase.Table{
		CycleLength: c.Entities.CycleLength,
		Phases:      make([]phase.Phase, 0, len(c.Entities.Phases)),
	}
	for _, p := range c.Entities.Phases {
		kind, err := phase.ParseKind(p.Kind)
		if err != nil {
			return phase.Table{}, fmt.Errorf("phase %q: %w", p.Name, err)
		}
		t.Phases = append(t.Phases, phase.Phase{
			Name:       p.Name,
			Start:      p.Start,
			End:        p.End,
			Kind:       kind,
			Cluster:    p.Cluster,
			Annotation: p.Annotation,
		})
	}
	return t, nil
}

func (c *Config) ClusterConfig() cluster.Config {
	specs := make([]cluster.Spec, 0, len(c.Entities.Clusters))
	for _, cc := range c.Entities.Clusters {
		specs = append(specs, cluster.Spec{ID: cc.ID, Center: dynamo.Vec2{X: cc.X, Y: cc.Y}, Color: cc.Color})
	}
	return cluster.Config{
		Capacity:     c.Entities.Capacity,
		JitterRadius: c.Entities.JitterRadius,
		Clusters:     specs,
	}
}

func (c *Config) StageList() []stage.Stage {
	out := make([]stage.Stage, 0, len(c.Stages.Items))
	for i, it := range c.Stages.Items {
		out = append(out, stage.Stage{Index: i, Title: it.Title, Description: it.Description, Icon: it.Icon})
	}
	return out
}

func (c *Config) ComparisonOptions() metrics.Options {
	return metrics.Options{Metric: c.Comparison.Metric, LowerIsBetter: c.Comparison.LowerIsBetter}
}
