package domain

import (
	"strings"
	"time"
)

type Sender string

const (
	SenderBot    Sender = "bot"
	SenderUser   Sender = "user"
	SenderSystem Sender = "system"
)

type Kind string

const (
	KindText   Kind = "text"
	KindImage  Kind = "image"
	KindAudio  Kind = "audio"
	KindVideo  Kind = "video"
	KindSystem Kind = "system"
)

// IsMedia reports whether messages of this kind carry a MediaURL.
func (k Kind) IsMedia() bool {
	return k == KindImage || k == KindAudio || k == KindVideo
}

// Message is one bubble of the transcript. Messages are never mutated or
// removed once appended.
type Message struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Kind      Kind      `json:"type"`
	Content   string    `json:"content"`
	MediaURL  string    `json:"media_url,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ProfileField names the profile slot a free-text answer fills.
type ProfileField string

const (
	FieldNone ProfileField = ""
	FieldName ProfileField = "name"
	FieldAge  ProfileField = "age"
)

// Profile holds what the user typed when asked. Age is kept verbatim.
type Profile struct {
	Name string `json:"name"`
	Age  string `json:"age"`
}

// Set stores value into field; FieldNone discards it.
func (p *Profile) Set(field ProfileField, value string) {
	switch field {
	case FieldName:
		p.Name = value
	case FieldAge:
		p.Age = value
	}
}

// Expand substitutes {name} and {age}. Missing values expand to "".
func (p Profile) Expand(template string) string {
	if !strings.Contains(template, "{") {
		return template
	}
	return strings.NewReplacer("{name}", p.Name, "{age}", p.Age).Replace(template)
}
