package sessionmonitor

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	StatusAccepted = "accepted"
	StatusIgnored  = "ignored"
	StatusFailed   = "failed"
)

// Event is one lifecycle or conversation event of a hosted session.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	SessionID  string    `json:"session_id"`
	Kind       string    `json:"kind"` // created | text | choice | media_ended | closed | expired
	Step       string    `json:"step,omitempty"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
}

type Stats struct {
	TotalEvents   int64   `json:"total_events"`
	TotalAccepted int64   `json:"total_accepted"`
	TotalIgnored  int64   `json:"total_ignored"`
	TotalFailed   int64   `json:"total_failed"`
	RecentEvents  []Event `json:"recent_events"`
}

// Monitor keeps totals plus a fixed-size ring of the latest events.
type Monitor struct {
	ttl time.Duration
	now func() time.Time

	eventsMu sync.Mutex
	events   []Event
	idx      int
	count    int

	totalEvents   int64
	totalAccepted int64
	totalIgnored  int64
	totalFailed   int64
}

// New returns a monitor holding the last size events. Events older than ttl
// are hidden from GetStats; zero keeps them until overwritten.
func New(size int, ttl time.Duration) *Monitor {
	if size <= 0 {
		size = 200
	}
	return &Monitor{events: make([]Event, size), ttl: ttl, now: time.Now}
}

func (m *Monitor) Record(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = m.now().UTC()
	}

	atomic.AddInt64(&m.totalEvents, 1)
	switch e.Status {
	case StatusAccepted:
		atomic.AddInt64(&m.totalAccepted, 1)
	case StatusIgnored:
		atomic.AddInt64(&m.totalIgnored, 1)
	case StatusFailed:
		atomic.AddInt64(&m.totalFailed, 1)
	}

	m.eventsMu.Lock()
	m.events[m.idx] = e
	m.idx = (m.idx + 1) % len(m.events)
	if m.count < len(m.events) {
		m.count++
	}
	m.eventsMu.Unlock()
}

// GetStats returns totals and the retained events, oldest first.
func (m *Monitor) GetStats() Stats {
	m.eventsMu.Lock()
	defer m.eventsMu.Unlock()

	res := make([]Event, 0, m.count)
	var cutoff time.Time
	if m.ttl > 0 {
		cutoff = m.now().UTC().Add(-m.ttl)
	}
	start := (m.idx - m.count) % len(m.events)
	if start < 0 {
		start += len(m.events)
	}
	for i := 0; i < m.count; i++ {
		e := m.events[(start+i)%len(m.events)]
		if !cutoff.IsZero() && e.Timestamp.Before(cutoff) {
			continue
		}
		res = append(res, e)
	}

	return Stats{
		TotalEvents:   atomic.LoadInt64(&m.totalEvents),
		TotalAccepted: atomic.LoadInt64(&m.totalAccepted),
		TotalIgnored:  atomic.LoadInt64(&m.totalIgnored),
		TotalFailed:   atomic.LoadInt64(&m.totalFailed),
		RecentEvents:  res,
	}
}

// StatusOf maps an engine verdict to a status.
func StatusOf(accepted bool) string {
	if accepted {
		return StatusAccepted
	}
	return StatusIgnored
}
