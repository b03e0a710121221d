package clock

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Clock whose time only moves when Advance is called.
// Due callbacks run synchronously on the goroutine calling Advance,
// in deadline order. It is safe for concurrent use.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	pending []*manualTimer
}

type manualTimer struct {
	clock    *Manual
	deadline time.Time
	seq      uint64
	fn       func()
	done     bool
}

// NewManual creates a manual clock starting at the given time.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc schedules f to run once the clock has been advanced by d.
func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &manualTimer{
		clock:    m,
		deadline: m.now.Add(d),
		seq:      m.seq,
		fn:       f,
	}
	m.pending = append(m.pending, t)
	return t
}

// Advance moves the clock forward by d, firing every timer whose deadline
// falls within the window. Callbacks scheduled by fired callbacks also run
// if they fall within the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDue(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		next.done = true
		m.remove(next)
		if next.deadline.After(m.now) {
			m.now = next.deadline
		}
		m.mu.Unlock()

		next.fn()
	}
}

// Pending returns the number of timers that have neither fired nor been stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// nextDue returns the earliest timer due at or before target. Caller holds mu.
func (m *Manual) nextDue(target time.Time) *manualTimer {
	if len(m.pending) == 0 {
		return nil
	}
	sort.Slice(m.pending, func(i, j int) bool {
		a, b := m.pending[i], m.pending[j]
		if a.deadline.Equal(b.deadline) {
			return a.seq < b.seq
		}
		return a.deadline.Before(b.deadline)
	})
	if m.pending[0].deadline.After(target) {
		return nil
	}
	return m.pending[0]
}

// remove drops t from the pending list. Caller holds mu.
func (m *Manual) remove(t *manualTimer) {
	for i, p := range m.pending {
		if p == t {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return
		}
	}
}

// Stop cancels the timer if it has not fired yet.
func (t *manualTimer) Stop() bool {
	m := t.clock
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.done {
		return false
	}
	t.done = true
	m.remove(t)
	return true
}
