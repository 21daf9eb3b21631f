package config

import (
	"sort"
	"time"
)

// Presets build named configurations on top of the defaults.
var Presets = map[string]func() *Config{
	"dcm": DefaultConfig,
	"dense": func() *Config {
		cfg := DefaultConfig()
		cfg.Entities.Period = 250 * time.Millisecond
		cfg.Entities.Capacity = 32
		cfg.Entities.CycleLength = 16
		cfg.Entities.Phases = []PhaseConfig{
			{Name: "form-0", Start: 0, End: 3, Kind: "emit", Cluster: 0},
			{Name: "settle-0", Start: 3, End: 4, Kind: "idle"},
			{Name: "form-1", Start: 4, End: 7, Kind: "emit", Cluster: 1, Annotation: "new distribution found, expanding memory"},
			{Name: "settle-1", Start: 7, End: 8, Kind: "idle"},
			{Name: "form-2", Start: 8, End: 11, Kind: "emit", Cluster: 2, Annotation: "new distribution found, expanding memory"},
			{Name: "settle-2", Start: 11, End: 12, Kind: "idle"},
			{Name: "form-3", Start: 12, End: 15, Kind: "emit", Cluster: 3, Annotation: "new distribution found, expanding memory"},
			{Name: "reset", Start: 15, End: 16, Kind: "reset"},
		}
		cfg.Entities.Clusters = append(cfg.Entities.Clusters, ClusterConfig{ID: 3, X: 30, Y: 70, Color: "amber"})
		cfg.Stages.Period = 625 * time.Millisecond
		return cfg
	},
	"slow": func() *Config {
		cfg := DefaultConfig()
		cfg.Entities.Period = 2 * time.Second
		cfg.Stages.Period = 5 * time.Second
		return cfg
	},
}

func GetPreset(name string) *Config {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
