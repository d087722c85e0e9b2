package domain

import (
	"fmt"
	"strings"
)

// Step identifies one stage of the scripted conversation.
type Step int

const (
	StepIntro Step = iota
	StepAudio1
	StepIntroReport
	StepAskName
	StepWaitName
	StepAskAge
	StepWaitAge
	StepExplainAudio
	StepAudio2
	StepIndustrySecret
	StepAudio3
	StepAskSymptoms
	StepWaitSymptoms
	StepExplainSymptoms
	StepAskContinue
	StepWaitContinue
	StepAudiosSeries1
	StepAskTreatment
	StepWaitTreatment
	StepCasesIntro
	StepCasesMedia
	StepAskResults
	StepWaitResults
	StepExplainProtocol
	StepProtocolAudios
	StepProtocolBenefits
	StepAudioBenefits
	StepAskWantBenefits
	StepWaitWantBenefits
	StepCongratsDecision
	StepAudiosSeries2
	StepProposalIntro
	StepProposalAudios
	StepFinalCTA

	// StepCount is the number of catalog steps.
	StepCount = int(StepFinalCTA) + 1
)

var stepNames = [StepCount]string{
	"INTRO",
	"AUDIO_1",
	"INTRO_REPORT",
	"ASK_NAME",
	"WAIT_NAME",
	"ASK_AGE",
	"WAIT_AGE",
	"EXPLAIN_AUDIO",
	"AUDIO_2",
	"INDUSTRY_SECRET",
	"AUDIO_3",
	"ASK_SYMPTOMS",
	"WAIT_SYMPTOMS",
	"EXPLAIN_SYMPTOMS",
	"ASK_CONTINUE",
	"WAIT_CONTINUE",
	"AUDIOS_SERIES_1",
	"ASK_TREATMENT",
	"WAIT_TREATMENT",
	"CASES_INTRO",
	"CASES_MEDIA",
	"ASK_RESULTS",
	"WAIT_RESULTS",
	"EXPLAIN_PROTOCOL",
	"PROTOCOL_AUDIOS",
	"PROTOCOL_BENEFITS",
	"AUDIO_BENEFITS",
	"ASK_WANT_BENEFITS",
	"WAIT_WANT_BENEFITS",
	"CONGRATS_DECISION",
	"AUDIOS_SERIES_2",
	"PROPOSAL_INTRO",
	"PROPOSAL_AUDIOS",
	"FINAL_CTA",
}

// Valid reports whether s belongs to the catalog.
func (s Step) Valid() bool {
	return s >= StepIntro && s <= StepFinalCTA
}

func (s Step) String() string {
	if !s.Valid() {
		return fmt.Sprintf("STEP(%d)", int(s))
	}
	return stepNames[s]
}

// MarshalText renders the catalog name so JSON payloads stay readable.
func (s Step) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid step %d", int(s))
	}
	return []byte(stepNames[s]), nil
}

func (s *Step) UnmarshalText(text []byte) error {
	parsed, err := ParseStep(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStep resolves a catalog name (case-insensitive).
func ParseStep(name string) (Step, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for i, n := range stepNames {
		if n == name {
			return Step(i), nil
		}
	}
	return 0, fmt.Errorf("unknown step %q", name)
}

// AllSteps lists the catalog in declaration order.
func AllSteps() []Step {
	out := make([]Step, StepCount)
	for i := range out {
		out[i] = Step(i)
	}
	return out
}
