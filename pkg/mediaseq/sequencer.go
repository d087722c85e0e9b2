// Package mediaseq walks an ordered, finite list of media URLs one element at a time.
package mediaseq

// Sequence is an ordered, non-empty list of media URLs played back-to-back.
type Sequence struct {
	Name  string
	Items []string
}

// Step is the result of advancing a cursor over a sequence.
type Step struct {
	HasNext    bool   `json:"has_next"`
	NextURL    string `json:"next_url,omitempty"`
	NextCursor int    `json:"next_cursor"`
}

// New builds a named sequence from its URLs.
func New(name string, items ...string) *Sequence {
	return &Sequence{Name: name, Items: append([]string(nil), items...)}
}

// Len returns the number of items.
func (s *Sequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Items)
}

// First returns the URL emitted when the owning step is entered.
func (s *Sequence) First() string {
	if s.Len() == 0 {
		return ""
	}
	return s.Items[0]
}

// At returns the URL at cursor, or "" when out of range.
func (s *Sequence) At(cursor int) string {
	if cursor < 0 || cursor >= s.Len() {
		return ""
	}
	return s.Items[cursor]
}

// IsLast reports whether cursor points at (or past) the final item.
func (s *Sequence) IsLast(cursor int) bool {
	return cursor >= s.Len()-1
}

// Advance reports what follows the item at cursor. When cursor is the last
// index (or beyond) the sequence is exhausted and HasNext is false; the
// cursor is returned unchanged in that case.
func (s *Sequence) Advance(cursor int) Step {
	if cursor < 0 {
		cursor = 0
	}
	if s.IsLast(cursor) {
		return Step{HasNext: false, NextCursor: cursor}
	}
	next := cursor + 1
	return Step{HasNext: true, NextURL: s.Items[next], NextCursor: next}
}

// Reset returns the cursor value used on entry to a sequence step.
func (s *Sequence) Reset() int {
	return 0
}
