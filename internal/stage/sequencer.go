// Package stage cycles a cursor through the ordered stages of an algorithm.
package stage

import (
	"fmt"
	"sync/atomic"

	"github.com/san-kum/dcmsim/internal/dynamo"
)

// Stage describes one step of the narrated pipeline. Stages never change.
type Stage struct {
	Index       int    `json:"index"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon,omitempty"`
}

// Status places a stage relative to the cursor.
type Status string

const (
	StatusDone    Status = "done"
	StatusActive  Status = "active"
	StatusPending Status = "pending"
)

// Snapshot is the stage list as of one cursor position.
type Snapshot struct {
	ActiveIndex int     `json:"active_index"`
	Stages      []Stage `json:"stages"`
}

// Status reports the position of stage i relative to the active stage.
func (s Snapshot) Status(i int) Status {
	switch {
	case i == s.ActiveIndex:
		return StatusActive
	case i < s.ActiveIndex:
		return StatusDone
	default:
		return StatusPending
	}
}

func (s Snapshot) Active() Stage { return s.Stages[s.ActiveIndex] }

// Sequencer holds the stage list and a single cursor. The cursor is the only
// mutable state, so persisting it is enough to restore the sequencer.
type Sequencer struct {
	stages []Stage
	cursor atomic.Int64
}

// NewSequencer copies stages and renumbers them by position.
func NewSequencer(stages []Stage) (*Sequencer, error) {
	if len(stages) == 0 {
		return nil, dynamo.NewConfigError("stage", "", dynamo.ErrEmptyStages)
	}
	own := make([]Stage, len(stages))
	for i, st := range stages {
		if st.Title == "" {
			return nil, dynamo.NewConfigError("stage", fmt.Sprint(i), fmt.Errorf("%w: empty title", dynamo.ErrInvalidValue))
		}
		st.Index = i
		own[i] = st
	}
	return &Sequencer{stages: own}, nil
}

func (s *Sequencer) Len() int { return len(s.stages) }

func (s *Sequencer) Current() int { return int(s.cursor.Load()) }

// Advance moves the cursor forward by one, wrapping at the end.
func (s *Sequencer) Advance() int {
	next := (s.cursor.Load() + 1) % int64(len(s.stages))
	s.cursor.Store(next)
	return int(next)
}

// OnTick adapts Advance to a clock callback.
func (s *Sequencer) OnTick(dynamo.Tick) { s.Advance() }

func (s *Sequencer) Reset() { s.cursor.Store(0) }

// Restore places the cursor at index, as previously read from Current.
func (s *Sequencer) Restore(index int) error {
	if index < 0 || index >= len(s.stages) {
		return dynamo.NewConfigError("stage", fmt.Sprint(index), fmt.Errorf("%w: cursor out of range", dynamo.ErrInvalidValue))
	}
	s.cursor.Store(int64(index))
	return nil
}

// Snapshot returns the stages with the current cursor. The stage slice is
// shared and must not be modified.
func (s *Sequencer) Snapshot() Snapshot {
	return Snapshot{ActiveIndex: s.Current(), Stages: s.stages}
}
