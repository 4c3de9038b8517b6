package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMockAdvanceFiresDueTimers(t *testing.T) {
	m := NewMock()

	var fired []string
	m.AfterFunc(10*time.Second, func() { fired = append(fired, "ten") })
	m.AfterFunc(5*time.Second, func() { fired = append(fired, "five") })

	m.Advance(4 * time.Second)
	assert.Empty(t, fired)

	m.Advance(1 * time.Second)
	assert.Equal(t, []string{"five"}, fired)

	m.Advance(5 * time.Second)
	assert.Equal(t, []string{"five", "ten"}, fired)
}

func TestMockStopPreventsFiring(t *testing.T) {
	m := NewMock()

	fired := false
	timer := m.AfterFunc(10*time.Second, func() { fired = true })

	assert.True(t, timer.Stop())
	m.Advance(time.Minute)
	assert.False(t, fired)

	// Stopping again reports false.
	assert.False(t, timer.Stop())
}

func TestMockStopAfterFire(t *testing.T) {
	m := NewMock()

	timer := m.AfterFunc(time.Second, func() {})
	m.Advance(time.Second)
	assert.False(t, timer.Stop())
}

func TestMockSince(t *testing.T) {
	m := NewMock()
	start := m.Now()
	m.Advance(90 * time.Second)
	assert.Equal(t, 90*time.Second, m.Since(start))
}

func TestRealClockTimer(t *testing.T) {
	c := Real()
	done := make(chan struct{})
	c.AfterFunc(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("real timer did not fire")
	}
}
