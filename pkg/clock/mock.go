package clock

import (
	"sort"
	"sync"
	"time"
)

// Mock is the testing implementation of Clock. It tracks a time that only
// moves when Advance is called, firing any timers whose deadline has been
// reached. Timer callbacks run synchronously inside Advance so tests never
// race against the clock.
type Mock struct {
	mu     sync.Mutex
	cur    time.Time
	timers []*mockTimer
}

// NewMock creates a Mock clock starting at a fixed, arbitrary instant.
func NewMock() *Mock {
	return &Mock{
		cur: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Now returns the mock's current time.
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur
}

// Since returns the elapsed mock time since t.
func (m *Mock) Since(t time.Time) time.Duration {
	return m.Now().Sub(t)
}

// AfterFunc registers f to run once the mock clock has advanced by at
// least d.
func (m *Mock) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	mt := &mockTimer{
		clock:    m,
		deadline: m.cur.Add(d),
		fn:       f,
	}
	m.timers = append(m.timers, mt)
	return mt
}

// Advance moves the mock clock forward by d, firing due timers in deadline
// order.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	m.cur = m.cur.Add(d)
	due := m.takeDueLocked()
	m.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

// Set jumps the mock clock to an absolute instant, firing due timers.
func (m *Mock) Set(t time.Time) {
	m.mu.Lock()
	m.cur = t
	due := m.takeDueLocked()
	m.mu.Unlock()

	for _, timer := range due {
		timer.fn()
	}
}

func (m *Mock) takeDueLocked() []*mockTimer {
	var due []*mockTimer
	var remaining []*mockTimer
	for _, t := range m.timers {
		if t.stopped {
			continue
		}
		if !t.deadline.After(m.cur) {
			t.fired = true
			due = append(due, t)
		} else {
			remaining = append(remaining, t)
		}
	}
	m.timers = remaining
	sort.Slice(due, func(i, j int) bool { return due[i].deadline.Before(due[j].deadline) })
	return due
}

type mockTimer struct {
	clock    *Mock
	deadline time.Time
	fn       func()
	stopped  bool
	fired    bool
}

func (t *mockTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}
