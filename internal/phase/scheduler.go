package phase

import "github.com/san-kum/dcmsim/internal/dynamo"

// Scheduler derives the phase of a tick. It holds no mutable state, so the
// same tick always yields the same phase.
type Scheduler struct {
	table  Table
	phases []Phase
	// lookup[pos] indexes phases for every cycle position
	lookup []int
}

// NewScheduler validates table and precomputes the position lookup.
func NewScheduler(table Table) (*Scheduler, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	phases := table.sorted()
	lookup := make([]int, table.CycleLength)
	for i, p := range phases {
		for pos := p.Start; pos < p.End; pos++ {
			lookup[pos] = i
		}
	}
	return &Scheduler{table: table, phases: phases, lookup: lookup}, nil
}

func (s *Scheduler) CycleLength() int { return s.table.CycleLength }

// Phases returns the phases ordered by start position.
func (s *Scheduler) Phases() []Phase {
	out := make([]Phase, len(s.phases))
	copy(out, s.phases)
	return out
}

// Position is the tick's offset inside its cycle.
func (s *Scheduler) Position(t dynamo.Tick) int {
	return int(uint64(t) % uint64(s.table.CycleLength))
}

// Cycle is the number of complete cycles before t.
func (s *Scheduler) Cycle(t dynamo.Tick) uint64 {
	return uint64(t) / uint64(s.table.CycleLength)
}

func (s *Scheduler) PhaseOf(t dynamo.Tick) Phase {
	return s.phases[s.lookup[s.Position(t)]]
}

// Entering reports whether t is the first tick of its phase.
func (s *Scheduler) Entering(t dynamo.Tick) bool {
	return s.PhaseOf(t).Start == s.Position(t)
}
