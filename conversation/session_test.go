package conversation

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AzielCF/az-funnel/conversation/domain"
	"github.com/AzielCF/az-funnel/conversation/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEpoch = time.Date(2025, 7, 6, 12, 0, 0, 0, time.UTC)

func newTestSession(t *testing.T, opts ...Option) (*Session, *ManualScheduler) {
	t.Helper()
	sched := NewManualScheduler(testEpoch)
	n := 0
	base := []Option{
		WithScheduler(sched),
		WithClock(sched.Now),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("m%d", n) }),
	}
	s := NewSession("test-session", script.Default(), append(base, opts...)...)
	t.Cleanup(s.Close)
	return s, sched
}

// driveTo answers every open step with canned input until target is open.
func driveTo(t *testing.T, s *Session, sched *ManualScheduler, target domain.Step) {
	t.Helper()
	for i := 0; i < 200; i++ {
		sched.Flush()
		snap := s.Snapshot()
		if snap.Step == target && snap.Phase != domain.PhaseEmitting {
			return
		}
		switch snap.Awaiting {
		case domain.AwaitMediaEnd:
			require.True(t, s.NotifyMediaEnded())
		case domain.AwaitText:
			answer := "cansaço"
			switch snap.Step {
			case domain.StepWaitName:
				answer = "Ana"
			case domain.StepWaitAge:
				answer = "45"
			}
			require.True(t, s.SubmitUserText(answer))
		case domain.AwaitChoice:
			require.True(t, s.SubmitUserChoice(snap.Input.Choices[0]))
		default:
			t.Fatalf("stuck at %s (%s) before reaching %s", snap.Step, snap.Phase, target)
		}
	}
	t.Fatalf("did not reach %s", target)
}

func countKind(msgs []domain.Message, kind domain.Kind) int {
	n := 0
	for _, m := range msgs {
		if m.Kind == kind {
			n++
		}
	}
	return n
}

func TestStart_EmitsIntroOnSchedule(t *testing.T) {
	s, sched := newTestSession(t)
	s.Start()

	assert.Equal(t, domain.StepIntro, s.Step())
	assert.Equal(t, domain.PhaseEmitting, s.Phase())
	assert.Empty(t, s.Messages())

	sched.Advance(99 * time.Millisecond)
	assert.Empty(t, s.Messages())
	sched.Advance(1 * time.Millisecond)
	require.Len(t, s.Messages(), 1)

	sched.Advance(799 * time.Millisecond)
	assert.Len(t, s.Messages(), 1)
	sched.Advance(1 * time.Millisecond)
	assert.Len(t, s.Messages(), 2)

	sched.Advance(1000 * time.Millisecond)
	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, domain.SenderSystem, msgs[0].Sender)
	assert.Equal(t, domain.SenderSystem, msgs[1].Sender)
	assert.Equal(t, domain.SenderBot, msgs[2].Sender)
	assert.Equal(t, "Olá, tudo bem com você?", msgs[2].Content)
	assert.Equal(t, testEpoch.Add(100*time.Millisecond), msgs[0].Timestamp)
	assert.Equal(t, testEpoch.Add(1900*time.Millisecond), msgs[2].Timestamp)

	// INTRO hands over to AUDIO_1 without waiting for the user.
	assert.Equal(t, domain.StepAudio1, s.Step())
	sched.Advance(600 * time.Millisecond)
	msgs = s.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, domain.KindAudio, msgs[3].Kind)
	assert.NotEmpty(t, msgs[3].MediaURL)

	snap := s.Snapshot()
	assert.Equal(t, domain.PhaseAwaiting, snap.Phase)
	assert.Equal(t, domain.AwaitMediaEnd, snap.Awaiting)
	assert.Equal(t, "está gravando...", snap.StatusText)
}

func TestStart_IsIdempotent(t *testing.T) {
	s, sched := newTestSession(t)
	s.Start()
	s.Start()
	sched.Advance(2 * time.Second)
	assert.Len(t, s.Messages(), 3)
}

func TestFullConversation(t *testing.T) {
	s, sched := newTestSession(t)
	s.Start()
	sched.Flush()

	require.Equal(t, domain.StepAudio1, s.Step())
	require.True(t, s.NotifyMediaEnded())
	sched.Flush()

	require.Equal(t, domain.StepWaitName, s.Step())
	require.True(t, s.SubmitUserText("  Ana  "))
	sched.Flush()

	require.Equal(t, domain.StepWaitAge, s.Step())
	require.True(t, s.SubmitUserText("45"))
	sched.Flush()

	for _, step := range []domain.Step{domain.StepAudio2, domain.StepAudio3} {
		require.Equal(t, step, s.Step())
		require.True(t, s.NotifyMediaEnded())
		sched.Flush()
	}

	require.Equal(t, domain.StepWaitSymptoms, s.Step())
	require.True(t, s.SubmitUserText("cansaço e sede"))
	sched.Flush()

	require.Equal(t, domain.StepWaitContinue, s.Step())
	require.True(t, s.SubmitUserChoice("PODEMOS CONTINUAR DOUTOR"))
	sched.Flush()

	require.Equal(t, domain.StepAudiosSeries1, s.Step())
	for i := 0; i < 4; i++ {
		require.True(t, s.NotifyMediaEnded())
	}
	sched.Flush()

	require.Equal(t, domain.StepWaitTreatment, s.Step())
	require.True(t, s.SubmitUserChoice("EU QUERO TRATAR MEUS SINTOMAS"))
	sched.Flush()

	require.Equal(t, domain.StepWaitResults, s.Step())
	require.True(t, s.SubmitUserChoice("SIM EU QUERO"))
	sched.Flush()

	require.Equal(t, domain.StepProtocolAudios, s.Step())
	for i := 0; i < 2; i++ {
		require.True(t, s.NotifyMediaEnded())
	}
	sched.Flush()

	require.Equal(t, domain.StepAudioBenefits, s.Step())
	require.True(t, s.NotifyMediaEnded())
	sched.Flush()

	require.Equal(t, domain.StepWaitWantBenefits, s.Step())
	require.True(t, s.SubmitUserChoice("SIM EU QUERO"))
	sched.Flush()

	require.Equal(t, domain.StepAudiosSeries2, s.Step())
	for i := 0; i < 6; i++ {
		require.True(t, s.NotifyMediaEnded())
	}
	sched.Flush()

	require.Equal(t, domain.StepProposalAudios, s.Step())
	for i := 0; i < 4; i++ {
		require.True(t, s.NotifyMediaEnded())
	}
	sched.Flush()

	snap := s.Snapshot()
	require.Equal(t, domain.StepFinalCTA, snap.Step)
	assert.Equal(t, domain.PhaseFinished, snap.Phase)
	assert.Equal(t, domain.Profile{Name: "Ana", Age: "45"}, snap.Profile)
	assert.Equal(t, domain.Affordance{
		Kind:  domain.AffordanceLink,
		URL:   "https://pay.kiwify.com.br/5j1fD0L",
		Label: "QUERO COMEÇAR AGORA!",
	}, snap.Input)
	assert.Equal(t, "Online agora", snap.StatusText)

	msgs := snap.Messages
	assert.Len(t, msgs, 60)
	assert.Equal(t, 20, countKind(msgs, domain.KindAudio))

	var user []string
	var transcript strings.Builder
	for _, m := range msgs {
		if m.Sender == domain.SenderUser {
			user = append(user, m.Content)
		}
		transcript.WriteString(m.Content)
		transcript.WriteString("\n")
	}
	assert.Equal(t, []string{
		"Ana", "45", "cansaço e sede", "PODEMOS CONTINUAR DOUTOR",
		"EU QUERO TRATAR MEUS SINTOMAS", "SIM EU QUERO", "SIM EU QUERO",
	}, user)
	assert.Contains(t, transcript.String(), "E quantos anos você tem, Ana?")
	assert.Contains(t, transcript.String(), "Com 45 anos, esses sintomas")
	assert.Contains(t, transcript.String(), "Quando a gente chega nos 45 anos")
	assert.NotContains(t, transcript.String(), "{name}")
	assert.NotContains(t, transcript.String(), "{age}")
	assert.Equal(t, "Para garantir a sua vaga,\nclique no botão abaixo.", msgs[len(msgs)-1].Content)

	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].Timestamp.Before(msgs[i-1].Timestamp), "message %d goes back in time", i)
	}
}

func TestAudioSeriesOne_AdvancesThroughEveryClip(t *testing.T) {
	s, sched := newTestSession(t)
	s.Start()
	driveTo(t, s, sched, domain.StepWaitContinue)
	require.True(t, s.SubmitUserChoice("PODEMOS CONTINUAR DOUTOR"))
	sched.Flush()

	series := script.Default().Sequence(script.SeriesOne)
	require.Equal(t, domain.StepAudiosSeries1, s.Step())
	assert.Equal(t, 0, s.Cursor())
	before := len(s.Messages())
	last := s.Messages()[before-1]
	assert.Equal(t, series.Items[0], last.MediaURL)

	for i := 1; i < 4; i++ {
		require.True(t, s.NotifyMediaEnded())
		assert.Equal(t, domain.StepAudiosSeries1, s.Step())
		assert.Equal(t, i, s.Cursor())
		msgs := s.Messages()
		require.Len(t, msgs, before+i)
		assert.Equal(t, series.Items[i], msgs[len(msgs)-1].MediaURL)
		assert.Equal(t, domain.KindAudio, msgs[len(msgs)-1].Kind)
	}

	require.True(t, s.NotifyMediaEnded())
	assert.Equal(t, domain.StepAskTreatment, s.Step())
	assert.Equal(t, series.Reset(), s.Cursor())
	assert.Len(t, s.Messages(), before+3)

	sched.Flush()
	assert.Equal(t, domain.StepWaitTreatment, s.Step())
	assert.Equal(t, domain.PhaseAwaiting, s.Phase())
}

func TestEvents_IgnoredWhileEmitting(t *testing.T) {
	s, sched := newTestSession(t)
	s.Start()
	sched.Advance(150 * time.Millisecond)

	assert.False(t, s.NotifyMediaEnded())
	assert.False(t, s.SubmitUserText("Ana"))
	assert.False(t, s.SubmitUserChoice("SIM EU QUERO"))
	assert.Len(t, s.Messages(), 1)
	assert.Equal(t, domain.StepIntro, s.Step())
}

func TestEvents_IgnoredOnMismatchedStep(t *testing.T) {
	s, sched := newTestSession(t)
	s.Start()
	driveTo(t, s, sched, domain.StepWaitName)
	before := len(s.Messages())

	assert.False(t, s.NotifyMediaEnded())
	assert.False(t, s.SubmitUserChoice("SIM EU QUERO"))
	assert.False(t, s.SubmitUserText("   "))
	assert.False(t, s.SubmitUserText(""))

	assert.Len(t, s.Messages(), before)
	assert.Equal(t, domain.StepWaitName, s.Step())
	assert.Equal(t, domain.Profile{}, s.Profile())

	snap := s.Snapshot()
	assert.Equal(t, domain.AffordanceText, snap.Input.Kind)
	assert.Equal(t, "Digite sua resposta...", snap.Input.Placeholder)
	assert.Equal(t, "Online agora", snap.StatusText)
}

func TestSubmitUserText_IgnoredOnMediaStep(t *testing.T) {
	s, sched := newTestSession(t)
	s.Start()
	driveTo(t, s, sched, domain.StepAudio1)

	assert.False(t, s.SubmitUserText("Ana"))
	assert.Equal(t, domain.StepAudio1, s.Step())
	assert.Equal(t, domain.Profile{}, s.Profile())
}

func TestSubmitUserChoice_UnknownLabel(t *testing.T) {
	s, sched := newTestSession(t)
	s.Start()
	driveTo(t, s, sched, domain.StepWaitContinue)
	before := len(s.Messages())

	assert.False(t, s.SubmitUserChoice("NÃO"))
	assert.False(t, s.SubmitUserChoice("podemos continuar doutor"))
	assert.Len(t, s.Messages(), before)

	snap := s.Snapshot()
	assert.Equal(t, domain.AffordanceChoice, snap.Input.Kind)
	assert.Equal(t, []string{"PODEMOS CONTINUAR DOUTOR"}, snap.Input.Choices)
}

func TestWaitSymptoms_DoesNotTouchProfile(t *testing.T) {
	s, sched := newTestSession(t)
	s.Start()
	driveTo(t, s, sched, domain.StepWaitSymptoms)

	require.True(t, s.SubmitUserText("visão embaçada"))
	assert.Equal(t, domain.Profile{Name: "Ana", Age: "45"}, s.Profile())
	msgs := s.Messages()
	assert.Equal(t, "visão embaçada", msgs[len(msgs)-1].Content)
	assert.Equal(t, domain.SenderUser, msgs[len(msgs)-1].Sender)
}

func TestFinalCTA_IsIdempotent(t *testing.T) {
	s, sched := newTestSession(t)
	s.Start()
	driveTo(t, s, sched, domain.StepFinalCTA)
	before := len(s.Messages())

	for i := 0; i < 3; i++ {
		assert.False(t, s.NotifyMediaEnded())
	}
	assert.False(t, s.SubmitUserText("oi"))
	assert.False(t, s.SubmitUserChoice("SIM EU QUERO"))
	sched.Flush()

	assert.Len(t, s.Messages(), before)
	assert.Equal(t, domain.StepFinalCTA, s.Step())
	assert.Equal(t, domain.PhaseFinished, s.Phase())
}

func TestClose_CancelsPendingEmission(t *testing.T) {
	s, sched := newTestSession(t)
	s.Start()
	sched.Advance(100 * time.Millisecond)
	require.Len(t, s.Messages(), 1)
	require.Equal(t, 1, sched.Pending())

	s.Close()
	assert.Equal(t, 0, sched.Pending())
	sched.Advance(10 * time.Second)

	assert.Len(t, s.Messages(), 1)
	assert.Equal(t, domain.PhaseClosed, s.Phase())
	assert.False(t, s.NotifyMediaEnded())

	s.Start()
	sched.Flush()
	assert.Len(t, s.Messages(), 1)
}

// stickyScheduler never forgets a callback, mimicking a timer that fired
// just as it was being stopped.
type stickyScheduler struct {
	mu  sync.Mutex
	fns []func()
}

type stickyTimer struct{}

func (stickyTimer) Stop() bool { return false }

func (s *stickyScheduler) AfterFunc(_ time.Duration, fn func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fns = append(s.fns, fn)
	return stickyTimer{}
}

func TestStaleCallback_IsDiscarded(t *testing.T) {
	sched := &stickyScheduler{}
	s := NewSession("stale", script.Default(), WithScheduler(sched))
	s.Start()
	require.Len(t, sched.fns, 1)

	s.Close()
	sched.fns[0]()
	assert.Empty(t, s.Messages())
}

func TestStaleCallback_FiresOnlyOnce(t *testing.T) {
	sched := &stickyScheduler{}
	s := NewSession("dup", script.Default(), WithScheduler(sched))
	s.Start()

	first := sched.fns[0]
	first()
	first()
	assert.Len(t, s.Messages(), 1)
}

func TestTimestamps_NeverGoBackwards(t *testing.T) {
	sched := NewManualScheduler(testEpoch)
	ticks := 0
	clock := func() time.Time {
		ticks++
		return testEpoch.Add(-time.Duration(ticks) * time.Minute)
	}
	s := NewSession("clock", script.Default(), WithScheduler(sched), WithClock(clock))
	s.Start()
	sched.Flush()

	msgs := s.Messages()
	require.Len(t, msgs, 4)
	for i := 1; i < len(msgs); i++ {
		assert.Equal(t, msgs[0].Timestamp, msgs[i].Timestamp)
	}
}

func TestStepEntryDelay_Zero(t *testing.T) {
	s, sched := newTestSession(t, WithStepEntryDelay(0))
	s.Start()
	sched.Advance(0)
	assert.Len(t, s.Messages(), 1)
}

func TestListener_ReceivesOrderedSnapshots(t *testing.T) {
	var revisions []uint64
	var last domain.Snapshot
	s, sched := newTestSession(t, WithListener(func(snap domain.Snapshot) {
		revisions = append(revisions, snap.Revision)
		last = snap
	}))
	s.Start()
	driveTo(t, s, sched, domain.StepWaitName)

	require.NotEmpty(t, revisions)
	for i := 1; i < len(revisions); i++ {
		assert.Greater(t, revisions[i], revisions[i-1])
	}
	assert.Equal(t, s.Snapshot(), last)
	assert.Equal(t, "test-session", last.SessionID)
}

func TestPresence_FollowsStep(t *testing.T) {
	s, sched := newTestSession(t)
	s.Start()
	assert.Equal(t, "está digitando...", s.Snapshot().StatusText)

	driveTo(t, s, sched, domain.StepAudio1)
	assert.Equal(t, "está gravando...", s.Snapshot().StatusText)
	assert.Equal(t, domain.AffordanceNone, s.Snapshot().Input.Kind)
}

func TestSnapshot_IsACopy(t *testing.T) {
	s, sched := newTestSession(t)
	s.Start()
	sched.Flush()

	snap := s.Snapshot()
	snap.Messages[0].Content = "changed"
	assert.NotEqual(t, "changed", s.Messages()[0].Content)
}
