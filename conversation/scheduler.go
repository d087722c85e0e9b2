package conversation

import (
	"sort"
	"sync"
	"time"
)

// Timer is a cancellable pending callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs fn once after d. Sessions own at most one pending timer.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// SystemScheduler backs timers with the runtime clock.
type SystemScheduler struct{}

func (SystemScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// ManualScheduler is a virtual clock. Callbacks only run from Advance or
// Flush, on the caller's goroutine, in due-time order.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	pending []*manualTimer
}

type manualTimer struct {
	s       *ManualScheduler
	due     time.Time
	seq     uint64
	fn      func()
	stopped bool
}

func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start}
}

func (m *ManualScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{s: m, due: m.now.Add(d), seq: m.seq, fn: fn}
	m.pending = append(m.pending, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	for i, p := range t.s.pending {
		if p == t {
			t.s.pending = append(t.s.pending[:i], t.s.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Now returns the virtual time.
func (m *ManualScheduler) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending returns how many callbacks are waiting.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// NextDue returns the wait until the earliest pending callback.
func (m *ManualScheduler) NextDue() (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) == 0 {
		return 0, false
	}
	m.sortLocked()
	return m.pending[0].due.Sub(m.now), true
}

// Advance moves the clock forward by d, running every callback due on the
// way, including ones scheduled by callbacks that fall inside the window.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		t := m.popDue(target)
		if t == nil {
			break
		}
		t.fn()
	}

	m.mu.Lock()
	if m.now.Before(target) {
		m.now = target
	}
	m.mu.Unlock()
}

// Flush runs callbacks until none are pending and returns the virtual time
// that elapsed.
func (m *ManualScheduler) Flush() time.Duration {
	start := m.Now()
	for {
		wait, ok := m.NextDue()
		if !ok {
			break
		}
		m.Advance(wait)
	}
	return m.Now().Sub(start)
}

func (m *ManualScheduler) popDue(target time.Time) *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) == 0 {
		return nil
	}
	m.sortLocked()
	t := m.pending[0]
	if t.due.After(target) {
		return nil
	}
	m.pending = m.pending[1:]
	t.stopped = true
	if t.due.After(m.now) {
		m.now = t.due
	}
	return t
}

func (m *ManualScheduler) sortLocked() {
	sort.SliceStable(m.pending, func(i, j int) bool {
		if m.pending[i].due.Equal(m.pending[j].due) {
			return m.pending[i].seq < m.pending[j].seq
		}
		return m.pending[i].due.Before(m.pending[j].due)
	})
}
