// Package script holds the static conversation table: what each step says,
// how long it waits before each bubble, and where it goes next.
package script

import (
	"errors"
	"fmt"
	"sort"

	"github.com/AzielCF/az-funnel/conversation/domain"
	"github.com/AzielCF/az-funnel/pkg/mediaseq"
)

var ErrInvalidScript = errors.New("invalid conversation script")

// Persona is the contact shown in the chat header.
type Persona struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// Script is immutable once built and safe for concurrent use by any number
// of sessions.
type Script struct {
	Persona     Persona
	Placeholder string

	steps     [domain.StepCount]domain.ScriptStep
	defined   [domain.StepCount]bool
	sequences map[string]*mediaseq.Sequence
}

// New assembles a script from its rows and validates it.
func New(persona Persona, placeholder string, rows []domain.ScriptStep) (*Script, error) {
	s := &Script{
		Persona:     persona,
		Placeholder: placeholder,
		sequences:   make(map[string]*mediaseq.Sequence),
	}
	for _, row := range rows {
		if !row.Step.Valid() {
			return nil, fmt.Errorf("%w: step %d out of range", ErrInvalidScript, int(row.Step))
		}
		if s.defined[row.Step] {
			return nil, fmt.Errorf("%w: step %s defined twice", ErrInvalidScript, row.Step)
		}
		s.steps[row.Step] = row
		s.defined[row.Step] = true
		if media, ok := row.Exit.(domain.AwaitMedia); ok && media.Sequence != nil {
			s.sequences[media.Sequence.Name] = media.Sequence
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Step returns the row for step.
func (s *Script) Step(step domain.Step) (domain.ScriptStep, bool) {
	if !step.Valid() || !s.defined[step] {
		return domain.ScriptStep{}, false
	}
	return s.steps[step], true
}

// Sequence looks up a media sequence by name.
func (s *Script) Sequence(name string) *mediaseq.Sequence {
	return s.sequences[name]
}

// Sequences lists every media sequence in name order.
func (s *Script) Sequences() []*mediaseq.Sequence {
	out := make([]*mediaseq.Sequence, 0, len(s.sequences))
	for _, seq := range s.sequences {
		out = append(out, seq)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Checkout returns the terminal call-to-action.
func (s *Script) Checkout() domain.Terminal {
	for _, row := range s.steps {
		if t, ok := row.Exit.(domain.Terminal); ok {
			return t
		}
	}
	return domain.Terminal{}
}

// Presence derives the header status for a step: steps waiting on the user
// (and the terminal step) are online, audio steps are recording, everything
// else is typing.
func (s *Script) Presence(step domain.Step) domain.Presence {
	row, ok := s.Step(step)
	if !ok {
		return domain.PresenceOnline
	}
	switch row.Exit.(type) {
	case domain.AwaitUserText, domain.AwaitUserChoice, domain.Terminal:
		return domain.PresenceOnline
	case domain.AwaitMedia:
		return domain.PresenceRecording
	}
	if row.EmitsAudio() {
		return domain.PresenceRecording
	}
	return domain.PresenceTyping
}

// Validate checks the structural rules every session relies on.
func (s *Script) Validate() error {
	var errs []error
	terminals := 0

	for _, step := range domain.AllSteps() {
		if !s.defined[step] {
			errs = append(errs, fmt.Errorf("step %s is not defined", step))
			continue
		}
		row := s.steps[step]
		if row.Exit == nil {
			errs = append(errs, fmt.Errorf("step %s has no exit rule", step))
			continue
		}
		for _, in := range row.Instructions {
			if in.Kind.IsMedia() && in.MediaURL == "" {
				errs = append(errs, fmt.Errorf("step %s emits %s without a URL", step, in.Kind))
			}
			if in.Delay < 0 {
				errs = append(errs, fmt.Errorf("step %s has a negative delay", step))
			}
		}
		for _, next := range domain.Targets(row.Exit) {
			if !next.Valid() {
				errs = append(errs, fmt.Errorf("step %s points to unknown step %d", step, int(next)))
			}
		}
		switch r := row.Exit.(type) {
		case domain.AwaitMedia:
			if r.Sequence != nil && r.Sequence.Len() == 0 {
				errs = append(errs, fmt.Errorf("step %s owns empty sequence %s", step, r.Sequence.Name))
			}
		case domain.AwaitUserChoice:
			if len(r.Choices) == 0 {
				errs = append(errs, fmt.Errorf("step %s offers no choices", step))
			}
		case domain.Terminal:
			terminals++
			if r.URL == "" {
				errs = append(errs, fmt.Errorf("terminal step %s has no link", step))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidScript, errors.Join(errs...))
	}

	if terminals != 1 {
		errs = append(errs, fmt.Errorf("expected exactly one terminal step, found %d", terminals))
	}
	if step, ok := s.autoCycle(); ok {
		errs = append(errs, fmt.Errorf("step %s loops through automatic transitions", step))
	}
	if !s.reachable(domain.StepIntro, domain.StepFinalCTA) {
		errs = append(errs, fmt.Errorf("%s is not reachable from %s", domain.StepFinalCTA, domain.StepIntro))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidScript, errors.Join(errs...))
	}
	return nil
}

func (s *Script) autoCycle() (domain.Step, bool) {
	for _, start := range domain.AllSteps() {
		cur := start
		for hops := 0; ; hops++ {
			auto, ok := s.steps[cur].Exit.(domain.AutoAfter)
			if !ok {
				break
			}
			if hops >= domain.StepCount {
				return start, true
			}
			cur = auto.Next
		}
	}
	return 0, false
}

func (s *Script) reachable(from, to domain.Step) bool {
	var seen [domain.StepCount]bool
	queue := []domain.Step{from}
	seen[from] = true
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == to {
			return true
		}
		for _, next := range domain.Targets(s.steps[cur].Exit) {
			if next.Valid() && !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}
