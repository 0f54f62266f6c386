package throttle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestAllow(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	th := NewWithClock(clock.Now)

	assert.True(t, th.Allow("loop_error", time.Minute))
	assert.False(t, th.Allow("loop_error", time.Minute))
	assert.True(t, th.Allow("other", time.Minute), "keys are independent")

	clock.t = clock.t.Add(59 * time.Second)
	assert.False(t, th.Allow("loop_error", time.Minute))

	clock.t = clock.t.Add(time.Second)
	assert.True(t, th.Allow("loop_error", time.Minute))
}

func TestAllow_EmptyKeyAlwaysPasses(t *testing.T) {
	th := New()
	assert.True(t, th.Allow("", time.Hour))
	assert.True(t, th.Allow("", time.Hour))
}

func TestReset(t *testing.T) {
	th := New()
	assert.True(t, th.Allow("k", time.Hour))
	th.Reset()
	assert.True(t, th.Allow("k", time.Hour))
}
