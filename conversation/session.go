// Package conversation drives one scripted chat from INTRO to FINAL_CTA.
//
// A Session walks the script step by step. On entering a step it emits the
// step's instructions one at a time, each after its configured delay, then
// either moves on by itself or opens the step and waits for exactly one kind
// of external event (media playback end, free text, or a button press).
// Events that do not match the open step are dropped without error.
package conversation

import (
	"strings"
	"sync"
	"time"

	"github.com/AzielCF/az-funnel/conversation/domain"
	"github.com/AzielCF/az-funnel/conversation/script"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultStepEntryDelay is the pause before a step starts emitting.
const DefaultStepEntryDelay = 100 * time.Millisecond

// Listener observes every state change. It runs outside the session lock,
// never concurrently with another listener call of the same session, and
// with strictly increasing revisions. It must not call back into the
// session synchronously.
type Listener func(domain.Snapshot)

type Option func(*Session)

func WithScheduler(s Scheduler) Option {
	return func(sess *Session) { sess.sched = s }
}

func WithClock(clock func() time.Time) Option {
	return func(sess *Session) { sess.clock = clock }
}

func WithIDGenerator(gen func() string) Option {
	return func(sess *Session) { sess.newID = gen }
}

func WithStepEntryDelay(d time.Duration) Option {
	return func(sess *Session) {
		if d >= 0 {
			sess.entryDelay = d
		}
	}
}

func WithListener(l Listener) Option {
	return func(sess *Session) {
		if l != nil {
			sess.listeners = append(sess.listeners, l)
		}
	}
}

func WithLogger(entry *logrus.Entry) Option {
	return func(sess *Session) { sess.log = entry }
}

type Session struct {
	id         string
	script     *script.Script
	sched      Scheduler
	clock      func() time.Time
	newID      func() string
	entryDelay time.Duration
	log        *logrus.Entry
	listeners  []Listener

	mu        sync.Mutex
	started   bool
	step      domain.Step
	phase     domain.Phase
	cursor    int
	next      int
	profile   domain.Profile
	messages  []domain.Message
	lastStamp time.Time
	revision  uint64
	gen       uint64
	pending   Timer

	notifyMu  sync.Mutex
	delivered uint64
}

// NewSession prepares a session on sc. Nothing is emitted until Start.
func NewSession(id string, sc *script.Script, opts ...Option) *Session {
	s := &Session{
		id:         id,
		script:     sc,
		sched:      SystemScheduler{},
		clock:      time.Now,
		newID:      uuid.NewString,
		entryDelay: DefaultStepEntryDelay,
		step:       domain.StepIntro,
		phase:      domain.PhaseIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logrus.WithField("session_id", id)
	}
	return s
}

func (s *Session) ID() string { return s.id }

// Start enters INTRO. Later calls do nothing.
func (s *Session) Start() {
	s.mu.Lock()
	if s.started || s.phase == domain.PhaseClosed {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.enterLocked(domain.StepIntro)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// SubmitUserText answers an open free-text step. Blank input, or input while
// no free-text step is open, is ignored and reported as false.
func (s *Session) SubmitUserText(raw string) bool {
	text := strings.TrimSpace(raw)

	s.mu.Lock()
	rule, ok := s.openRuleLocked().(domain.AwaitUserText)
	if !ok || text == "" {
		s.ignoredLocked("text")
		s.mu.Unlock()
		return false
	}
	s.appendLocked(domain.SenderUser, domain.KindText, text, "")
	if rule.Field == domain.FieldNone {
		s.log.Debugf("[ENGINE] %s answer acknowledged, not stored", s.step)
	}
	s.profile.Set(rule.Field, text)
	s.enterLocked(rule.Next)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return true
}

// SubmitUserChoice presses the button labelled label on an open choice step.
func (s *Session) SubmitUserChoice(label string) bool {
	s.mu.Lock()
	rule, ok := s.openRuleLocked().(domain.AwaitUserChoice)
	if !ok {
		s.ignoredLocked("choice")
		s.mu.Unlock()
		return false
	}
	var choice *domain.Choice
	for i := range rule.Choices {
		if rule.Choices[i].Label == label {
			choice = &rule.Choices[i]
			break
		}
	}
	if choice == nil {
		s.log.Debugf("[ENGINE] unknown choice %q on %s", label, s.step)
		s.mu.Unlock()
		return false
	}
	s.appendLocked(domain.SenderUser, domain.KindText, choice.Label, "")
	s.enterLocked(choice.Next)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return true
}

// NotifyMediaEnded reports that the client finished playing the current
// audio. On a sequence step the next item is appended at once; after the last
// item (or on a single-audio step) the session moves on.
func (s *Session) NotifyMediaEnded() bool {
	s.mu.Lock()
	rule, ok := s.openRuleLocked().(domain.AwaitMedia)
	if !ok {
		s.ignoredLocked("media_ended")
		s.mu.Unlock()
		return false
	}
	advanced := false
	if rule.Sequence != nil {
		next := rule.Sequence.Advance(s.cursor)
		if next.HasNext {
			s.cursor = next.NextCursor
			s.appendLocked(domain.SenderBot, domain.KindAudio, "", next.NextURL)
			advanced = true
		}
	}
	if !advanced {
		if rule.Sequence != nil {
			s.cursor = rule.Sequence.Reset()
		}
		s.enterLocked(rule.Next)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return true
}

// Close cancels the pending emission. Every later call is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	if s.phase == domain.PhaseClosed {
		s.mu.Unlock()
		return
	}
	s.stopPendingLocked()
	s.phase = domain.PhaseClosed
	s.revision++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Debug("[ENGINE] session closed")
	s.notify(snap)
}

func (s *Session) Step() domain.Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

func (s *Session) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) Profile() domain.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

func (s *Session) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Message(nil), s.messages...)
}

func (s *Session) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) enterLocked(step domain.Step) {
	s.stopPendingLocked()
	s.step = step
	s.next = 0
	s.phase = domain.PhaseEmitting
	s.revision++
	s.log.Debugf("[ENGINE] entering %s", step)
	s.scheduleLocked()
}

// scheduleLocked arms the timer for the next instruction of the current step,
// or settles the step when every instruction is out.
func (s *Session) scheduleLocked() {
	row, ok := s.script.Step(s.step)
	if !ok {
		s.log.Errorf("[ENGINE] step %s missing from script, halting", s.step)
		s.phase = domain.PhaseFinished
		return
	}
	if s.next >= len(row.Instructions) {
		s.settleLocked(row.Exit)
		return
	}

	delay := row.Instructions[s.next].Delay
	if s.next == 0 {
		delay += s.entryDelay
	}
	s.gen++
	gen := s.gen
	s.pending = s.sched.AfterFunc(delay, func() { s.fire(gen) })
}

func (s *Session) settleLocked(exit domain.ExitRule) {
	switch r := exit.(type) {
	case domain.AutoAfter:
		s.enterLocked(r.Next)
	case domain.Terminal:
		s.phase = domain.PhaseFinished
		s.revision++
		s.log.Infof("[ENGINE] reached %s", s.step)
	default:
		s.phase = domain.PhaseAwaiting
		s.revision++
	}
}

func (s *Session) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.phase != domain.PhaseEmitting {
		s.mu.Unlock()
		return
	}
	s.pending = nil

	row, _ := s.script.Step(s.step)
	if s.next < len(row.Instructions) {
		in := row.Instructions[s.next]
		s.next++
		s.appendLocked(in.Sender, in.Kind, s.profile.Expand(in.Content), in.MediaURL)
	}
	s.scheduleLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

func (s *Session) stopPendingLocked() {
	s.gen++
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
}

func (s *Session) appendLocked(sender domain.Sender, kind domain.Kind, content, mediaURL string) {
	now := s.clock()
	if now.Before(s.lastStamp) {
		now = s.lastStamp
	}
	s.lastStamp = now
	s.messages = append(s.messages, domain.Message{
		ID:        s.newID(),
		Sender:    sender,
		Kind:      kind,
		Content:   content,
		MediaURL:  mediaURL,
		Timestamp: now,
	})
	s.revision++
}

func (s *Session) openRuleLocked() domain.ExitRule {
	if s.phase != domain.PhaseAwaiting {
		return nil
	}
	row, ok := s.script.Step(s.step)
	if !ok {
		return nil
	}
	return row.Exit
}

func (s *Session) ignoredLocked(event string) {
	s.log.Debugf("[ENGINE] ignoring %s event on %s (%s)", event, s.step, s.phase)
}

func (s *Session) notify(snap domain.Snapshot) {
	if len(s.listeners) == 0 {
		return
	}
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if snap.Revision <= s.delivered {
		return
	}
	s.delivered = snap.Revision
	for _, l := range s.listeners {
		l(snap)
	}
}
