package clock

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/san-kum/dcmsim/internal/dynamo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidPeriod(t *testing.T) {
	for _, p := range []time.Duration{0, -time.Second} {
		_, err := New(p, func(dynamo.Tick) {})
		require.Error(t, err)
		assert.True(t, errors.Is(err, dynamo.ErrConfig))
		assert.True(t, errors.Is(err, dynamo.ErrInvalidPeriod))
	}
}

func TestClock_TicksInOrder(t *testing.T) {
	ticks := make(chan dynamo.Tick, 64)
	c, err := New(2*time.Millisecond, func(tk dynamo.Tick) { ticks <- tk })
	require.NoError(t, err)

	c.Start()
	assert.True(t, c.Running())

	for want := dynamo.Tick(0); want < 5; want++ {
		select {
		case got := <-ticks:
			assert.Equal(t, want, got)
		case <-time.After(time.Second):
			t.Fatalf("tick %d never arrived", want)
		}
	}
	c.Stop()
	assert.False(t, c.Running())
}

func TestClock_NoCallbackAfterStop(t *testing.T) {
	var stopped atomic.Bool
	var late atomic.Int32
	c, err := New(time.Millisecond, func(dynamo.Tick) {
		if stopped.Load() {
			late.Add(1)
		}
	})
	require.NoError(t, err)

	c.Start()
	time.Sleep(10 * time.Millisecond)
	c.Stop()
	stopped.Store(true)
	time.Sleep(10 * time.Millisecond)

	assert.Zero(t, late.Load(), "callback fired after Stop returned")
}

func TestClock_StopIsIdempotent(t *testing.T) {
	c, err := New(time.Millisecond, func(dynamo.Tick) {})
	require.NoError(t, err)

	c.Stop()
	c.Start()
	c.Start()
	c.Stop()
	c.Stop()
	assert.False(t, c.Running())
}

func TestClock_ResumesWithoutReplay(t *testing.T) {
	const period = 10 * time.Millisecond
	var count atomic.Int32
	c, err := New(period, func(dynamo.Tick) { count.Add(1) })
	require.NoError(t, err)

	c.Start()
	require.Eventually(t, func() bool { return count.Load() >= 1 }, time.Second, time.Millisecond)
	c.Stop()
	before := count.Load()
	require.Equal(t, int32(c.Next()), before)

	// Three missed periods while stopped.
	time.Sleep(3 * period)
	assert.Equal(t, before, count.Load())

	c.Start()
	time.Sleep(period + period/2)
	c.Stop()
	assert.LessOrEqual(t, count.Load()-before, int32(1), "missed ticks were replayed on resume")

	c.Start()
	defer c.Stop()
	assert.Eventually(t, func() bool { return count.Load() > before }, time.Second, time.Millisecond)
}

func TestManual(t *testing.T) {
	var got []dynamo.Tick
	m := NewManual(func(tk dynamo.Tick) { got = append(got, tk) })

	assert.Equal(t, 0, m.Advance(3), "stopped manual source must not tick")

	m.Start()
	assert.Equal(t, 3, m.Advance(3))
	m.Stop()
	assert.Equal(t, 0, m.Advance(2))
	m.Start()
	m.Advance(1)

	assert.Equal(t, []dynamo.Tick{0, 1, 2, 3}, got)
	assert.Equal(t, dynamo.Tick(4), m.Next())
}

func TestManualFactory(t *testing.T) {
	factory, built := NewManualFactory()
	a := factory(time.Second, func(dynamo.Tick) {})
	b := factory(2*time.Second, func(dynamo.Tick) {})

	require.Len(t, *built, 2)
	assert.Same(t, a, Source((*built)[0]))
	assert.Same(t, b, Source((*built)[1]))
}
