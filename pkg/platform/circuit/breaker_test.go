package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestBreakerLifecycle(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	var transitions []State
	b := New("redis",
		WithFailureThreshold(2),
		WithSuccessThreshold(2),
		WithCooldown(time.Second),
		WithStateChangeHook(func(name string, to State) {
			assert.Equal(t, "redis", name)
			transitions = append(transitions, to)
		}),
		withClock(clock.Now),
	)

	assert.True(t, b.Allow())
	assert.False(t, b.RecordFailure())
	assert.True(t, b.RecordFailure(), "second failure opens")
	assert.Equal(t, StateOpen, b.State())

	assert.False(t, b.Allow(), "no probe inside cooldown")
	clock.Advance(time.Second)
	assert.True(t, b.Allow(), "probe after cooldown")
	assert.False(t, b.Allow(), "one probe per cooldown")

	assert.False(t, b.RecordSuccess(), "one success is not enough")
	clock.Advance(time.Second)
	assert.True(t, b.Allow())
	assert.True(t, b.RecordSuccess())
	assert.Equal(t, StateClosed, b.State())

	assert.Equal(t, []State{StateOpen, StateClosed}, transitions)
}

func TestSuccessResetsFailureStreak(t *testing.T) {
	b := New("redis", WithFailureThreshold(2))

	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()

	assert.Equal(t, StateClosed, b.State())
}

func TestFailureWhileOpenResetsProbeSuccesses(t *testing.T) {
	b := New("redis", WithFailureThreshold(1), WithSuccessThreshold(2), WithCooldown(0))

	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordSuccess()

	assert.Equal(t, StateOpen, b.State())
	assert.Equal(t, "open", b.State().String())
}
