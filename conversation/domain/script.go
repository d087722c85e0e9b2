package domain

import (
	"time"

	"github.com/AzielCF/az-funnel/pkg/mediaseq"
)

// Instruction is one scripted bot or system emission. Delay is the wait
// before it is appended, counted from the previous emission of the step.
type Instruction struct {
	Sender   Sender
	Kind     Kind
	Content  string
	MediaURL string
	Delay    time.Duration
}

// ExitRule decides how a step hands over once its instructions are out.
// The set of variants is closed.
type ExitRule interface {
	isExitRule()
}

// AutoAfter moves on by itself.
type AutoAfter struct {
	Next Step
}

// AwaitMedia waits for the client to report playback end. With a Sequence
// the step replays each remaining item before moving to Next.
type AwaitMedia struct {
	Next     Step
	Sequence *mediaseq.Sequence
}

// AwaitUserText waits for a non-blank line typed by the user.
type AwaitUserText struct {
	Field ProfileField
	Next  Step
}

// AwaitUserChoice waits for one of the labelled buttons.
type AwaitUserChoice struct {
	Choices []Choice
}

// Terminal ends the conversation on a call-to-action link.
type Terminal struct {
	URL   string
	Label string
}

type Choice struct {
	Label string
	Next  Step
}

func (AutoAfter) isExitRule()       {}
func (AwaitMedia) isExitRule()      {}
func (AwaitUserText) isExitRule()   {}
func (AwaitUserChoice) isExitRule() {}
func (Terminal) isExitRule()        {}

// Targets lists every step this rule can move to.
func Targets(rule ExitRule) []Step {
	switch r := rule.(type) {
	case AutoAfter:
		return []Step{r.Next}
	case AwaitMedia:
		return []Step{r.Next}
	case AwaitUserText:
		return []Step{r.Next}
	case AwaitUserChoice:
		out := make([]Step, 0, len(r.Choices))
		for _, c := range r.Choices {
			out = append(out, c.Next)
		}
		return out
	}
	return nil
}

// ScriptStep is one row of the conversation script.
type ScriptStep struct {
	Step         Step
	Instructions []Instruction
	Exit         ExitRule
}

// EmitsAudio reports whether any instruction of the step is an audio clip.
func (s ScriptStep) EmitsAudio() bool {
	for _, in := range s.Instructions {
		if in.Kind == KindAudio {
			return true
		}
	}
	return false
}
