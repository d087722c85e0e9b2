package domain

// Phase is where a session stands inside its current step.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseEmitting Phase = "emitting"
	PhaseAwaiting Phase = "awaiting"
	PhaseFinished Phase = "finished"
	PhaseClosed   Phase = "closed"
)

// Await is the kind of external event an open step accepts.
type Await string

const (
	AwaitNothing  Await = "none"
	AwaitMediaEnd Await = "media"
	AwaitText     Await = "text"
	AwaitChoice   Await = "choice"
)

// Presence is the header status shown under the persona name.
type Presence string

const (
	PresenceOnline    Presence = "online"
	PresenceRecording Presence = "recording"
	PresenceTyping    Presence = "typing"
)

// Text is the status line rendered in the chat header.
func (p Presence) Text() string {
	switch p {
	case PresenceRecording:
		return "está gravando..."
	case PresenceTyping:
		return "está digitando..."
	default:
		return "Online agora"
	}
}

type AffordanceKind string

const (
	AffordanceNone   AffordanceKind = "none"
	AffordanceText   AffordanceKind = "text"
	AffordanceChoice AffordanceKind = "choice"
	AffordanceLink   AffordanceKind = "link"
)

// Affordance describes the input control the presentation layer shows.
type Affordance struct {
	Kind        AffordanceKind `json:"kind"`
	Placeholder string         `json:"placeholder,omitempty"`
	Choices     []string       `json:"choices,omitempty"`
	URL         string         `json:"url,omitempty"`
	Label       string         `json:"label,omitempty"`
}

// Snapshot is a read-only copy of a session, safe to hand to other goroutines.
type Snapshot struct {
	SessionID  string     `json:"session_id"`
	Revision   uint64     `json:"revision"`
	Step       Step       `json:"step"`
	Phase      Phase      `json:"phase"`
	Awaiting   Await      `json:"awaiting"`
	Cursor     int        `json:"cursor"`
	Profile    Profile    `json:"profile"`
	Presence   Presence   `json:"presence"`
	StatusText string     `json:"status_text"`
	Input      Affordance `json:"input"`
	Messages   []Message  `json:"messages"`
}
