// Package phase maps ticks onto the named sub-ranges of a repeating cycle.
package phase

import (
	"fmt"
	"sort"

	"github.com/san-kum/dcmsim/internal/dynamo"
)

// Kind selects which entity rule applies while a phase is active.
type Kind int

const (
	// KindIdle phases change nothing.
	KindIdle Kind = iota
	// KindEmit phases introduce their cluster if absent and emit one point per tick.
	KindEmit
	// KindReset clears every point and cluster. It must close the cycle.
	KindReset
)

var kindNames = map[Kind]string{
	KindIdle:  "idle",
	KindEmit:  "emit",
	KindReset: "reset",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindIdle, dynamo.NewConfigError("phase", s, fmt.Errorf("%w: unknown phase kind", dynamo.ErrInvalidValue))
}

// Phase is a half-open range [Start, End) of cycle positions.
type Phase struct {
	Name  string
	Start int
	End   int
	Kind  Kind
	// Cluster is the cluster an emit phase feeds. Ignored for other kinds.
	Cluster int
	// Annotation is shown while the phase's cluster is first introduced.
	Annotation string
}

func (p Phase) Contains(pos int) bool { return pos >= p.Start && pos < p.End }

func (p Phase) Len() int { return p.End - p.Start }

// Table is a full cycle description.
type Table struct {
	CycleLength int
	Phases      []Phase
}

// Validate checks that the phases partition [0, CycleLength) exactly once and
// that the last range is the only reset phase.
func (t Table) Validate() error {
	if t.CycleLength <= 0 {
		return dynamo.NewConfigError("phase", "cycle_length", dynamo.ErrInvalidCapacity)
	}
	if len(t.Phases) == 0 {
		return dynamo.NewConfigError("phase", "", dynamo.ErrPhaseGap)
	}

	names := make(map[string]bool, len(t.Phases))
	for _, p := range t.Phases {
		if p.Start < 0 || p.End > t.CycleLength || p.Start >= p.End {
			return dynamo.NewConfigError("phase", p.Name, dynamo.ErrPhaseBounds)
		}
		if names[p.Name] {
			return dynamo.NewConfigError("phase", p.Name, dynamo.ErrDuplicateKey)
		}
		names[p.Name] = true
	}

	sorted := t.sorted()
	cursor := 0
	for _, p := range sorted {
		switch {
		case p.Start > cursor:
			return dynamo.NewConfigError("phase", p.Name, fmt.Errorf("%w at position %d", dynamo.ErrPhaseGap, cursor))
		case p.Start < cursor:
			return dynamo.NewConfigError("phase", p.Name, fmt.Errorf("%w at position %d", dynamo.ErrPhaseOverlap, p.Start))
		}
		cursor = p.End
	}
	if cursor != t.CycleLength {
		return dynamo.NewConfigError("phase", "", fmt.Errorf("%w at position %d", dynamo.ErrPhaseGap, cursor))
	}

	for i, p := range sorted {
		if p.Kind == KindReset && i != len(sorted)-1 {
			return dynamo.NewConfigError("phase", p.Name, dynamo.ErrNoResetPhase)
		}
	}
	if sorted[len(sorted)-1].Kind != KindReset {
		return dynamo.NewConfigError("phase", sorted[len(sorted)-1].Name, dynamo.ErrNoResetPhase)
	}
	return nil
}

func (t Table) sorted() []Phase {
	out := make([]Phase, len(t.Phases))
	copy(out, t.Phases)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}
