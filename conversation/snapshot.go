package conversation

import "github.com/AzielCF/az-funnel/conversation/domain"

func (s *Session) snapshotLocked() domain.Snapshot {
	presence := s.script.Presence(s.step)
	return domain.Snapshot{
		SessionID:  s.id,
		Revision:   s.revision,
		Step:       s.step,
		Phase:      s.phase,
		Awaiting:   awaitKind(s.openRuleLocked()),
		Cursor:     s.cursor,
		Profile:    s.profile,
		Presence:   presence,
		StatusText: presence.Text(),
		Input:      s.affordanceLocked(),
		Messages:   append([]domain.Message(nil), s.messages...),
	}
}

func awaitKind(rule domain.ExitRule) domain.Await {
	switch rule.(type) {
	case domain.AwaitMedia:
		return domain.AwaitMediaEnd
	case domain.AwaitUserText:
		return domain.AwaitText
	case domain.AwaitUserChoice:
		return domain.AwaitChoice
	}
	return domain.AwaitNothing
}

// affordanceLocked picks the input control: a text box or buttons while a
// step is open, the checkout link once the conversation is finished.
func (s *Session) affordanceLocked() domain.Affordance {
	switch s.phase {
	case domain.PhaseAwaiting:
		switch r := s.openRuleLocked().(type) {
		case domain.AwaitUserText:
			return domain.Affordance{Kind: domain.AffordanceText, Placeholder: s.script.Placeholder}
		case domain.AwaitUserChoice:
			labels := make([]string, 0, len(r.Choices))
			for _, c := range r.Choices {
				labels = append(labels, c.Label)
			}
			return domain.Affordance{Kind: domain.AffordanceChoice, Choices: labels}
		}
	case domain.PhaseFinished:
		row, _ := s.script.Step(s.step)
		if t, ok := row.Exit.(domain.Terminal); ok {
			return domain.Affordance{Kind: domain.AffordanceLink, URL: t.URL, Label: t.Label}
		}
	}
	return domain.Affordance{Kind: domain.AffordanceNone}
}
