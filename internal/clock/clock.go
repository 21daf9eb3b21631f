// Package clock provides periodic tick sources. A Clock fires its callback
// once per period on a dedicated goroutine; a Manual source fires only when
// told to, so derivation code can be tested without real timers.
package clock

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/san-kum/dcmsim/internal/dynamo"
)

// Source is anything that delivers ticks to a callback until stopped.
type Source interface {
	Start()
	Stop()
	Running() bool
	// Next is the tick number the next callback will receive.
	Next() dynamo.Tick
}

// Factory builds a Source firing fn every period.
type Factory func(period time.Duration, fn func(dynamo.Tick)) Source

// Clock fires fn once per period. Ticks missed while stopped are not
// replayed, and the ticker drops ticks for a slow callback rather than
// bursting to catch up.
type Clock struct {
	period time.Duration
	fn     func(dynamo.Tick)
	next   atomic.Uint64

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// New returns a stopped clock. It returns dynamo.ErrInvalidPeriod wrapped in
// a ConfigError if period is not positive.
func New(period time.Duration, fn func(dynamo.Tick)) (*Clock, error) {
	if period <= 0 {
		return nil, dynamo.NewConfigError("clock", period.String(), dynamo.ErrInvalidPeriod)
	}
	return &Clock{period: period, fn: fn}, nil
}

// NewFactory returns a Factory producing real clocks. Periods are validated by
// the caller beforehand, so an invalid period panics here.
func NewFactory() Factory {
	return func(period time.Duration, fn func(dynamo.Tick)) Source {
		c, err := New(period, fn)
		if err != nil {
			panic(err)
		}
		return c
	}
}

func (c *Clock) Period() time.Duration { return c.period }

func (c *Clock) Next() dynamo.Tick { return dynamo.Tick(c.next.Load()) }

func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != nil
}

// Start begins ticking. Starting a running clock is a no-op.
func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.loop(c.stop, c.done)
}

// Stop halts ticking and releases the timer. When Stop returns no callback is
// running and none will run until the next Start. Stopping a stopped clock is
// a no-op. Stop must not be called from the callback itself.
func (c *Clock) Stop() {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (c *Clock) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// a stop that raced with a ready tick wins
			select {
			case <-stop:
				return
			default:
			}
			c.fire()
		}
	}
}

func (c *Clock) fire() {
	t := dynamo.Tick(c.next.Add(1) - 1)
	c.fn(t)
}
