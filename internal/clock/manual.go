package clock

import (
	"sync"
	"time"

	"github.com/san-kum/dcmsim/internal/dynamo"
)

// Manual is a Source that ticks only when Advance is called. Advance on a
// stopped Manual does nothing, mirroring a stopped Clock.
type Manual struct {
	mu      sync.Mutex
	fn      func(dynamo.Tick)
	next    dynamo.Tick
	running bool
}

func NewManual(fn func(dynamo.Tick)) *Manual {
	return &Manual{fn: fn}
}

// NewManualFactory returns a Factory that records every Manual it builds, in
// construction order, into the returned slice pointer.
func NewManualFactory() (Factory, *[]*Manual) {
	built := make([]*Manual, 0, 2)
	return func(_ time.Duration, fn func(dynamo.Tick)) Source {
		m := NewManual(fn)
		built = append(built, m)
		return m
	}, &built
}

func (m *Manual) Start() {
	m.mu.Lock()
	m.running = true
	m.mu.Unlock()
}

func (m *Manual) Stop() {
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
}

func (m *Manual) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manual) Next() dynamo.Tick {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.next
}

// Advance fires n ticks synchronously and returns how many were delivered.
func (m *Manual) Advance(n int) int {
	fired := 0
	for i := 0; i < n; i++ {
		m.mu.Lock()
		if !m.running {
			m.mu.Unlock()
			break
		}
		t := m.next
		m.next++
		m.mu.Unlock()

		m.fn(t)
		fired++
	}
	return fired
}
