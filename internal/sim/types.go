package sim

import (
	"errors"
	"time"

	"github.com/san-kum/dcmsim/internal/cluster"
	"github.com/san-kum/dcmsim/internal/stage"
)

// ErrRunning is returned by Run while the engine's clocks are ticking.
var ErrRunning = errors.New("sim: engine clocks are running")

// Observer receives every published snapshot. Entity and stage callbacks run
// on different clock goroutines when the engine is started.
type Observer interface {
	OnEntities(s *cluster.Snapshot)
	OnStage(s stage.Snapshot)
}

// FrameKind says which clock produced a frame.
type FrameKind int

const (
	FrameEntities FrameKind = iota
	FrameStage
)

func (k FrameKind) String() string {
	if k == FrameStage {
		return "stage"
	}
	return "entities"
}

// Frame is one tick of the virtual timeline.
type Frame struct {
	At       time.Duration
	Kind     FrameKind
	Entities *cluster.Snapshot
	Stage    *stage.Snapshot
}

// Result is the outcome of a headless run.
type Result struct {
	Seed     int64
	Duration time.Duration
	Frames   []Frame
	Metrics  map[string]float64
}

// EntitySnapshots returns the entity frames in order.
func (r *Result) EntitySnapshots() []*cluster.Snapshot {
	out := make([]*cluster.Snapshot, 0, len(r.Frames))
	for _, f := range r.Frames {
		if f.Kind == FrameEntities {
			out = append(out, f.Entities)
		}
	}
	return out
}

// StageSnapshots returns the stage frames in order.
func (r *Result) StageSnapshots() []stage.Snapshot {
	out := make([]stage.Snapshot, 0)
	for _, f := range r.Frames {
		if f.Kind == FrameStage {
			out = append(out, *f.Stage)
		}
	}
	return out
}
