package session

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Note records one delivered snippet.
type Note struct {
	SnippetID   string    `json:"snippet_id"`
	CharacterID string    `json:"character_id"`
	Topic       string    `json:"topic"`
	Text        string    `json:"text"` // copied at delivery time
	DeliveredAt time.Time `json:"delivered_at"`
	NoMore      bool      `json:"no_more,omitempty"`
	// Categorization is filled in when notes are read back, once the
	// player has categorized the snippet.
	Categorization *Categorization `json:"categorization,omitempty"`
}

// Session is the ordered, append-only log of delivered snippets.
type Session struct {
	ID        uuid.UUID `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Notes     []Note    `json:"notes"`

	delivered map[string]struct{}
}

// New starts an empty session.
func New(now time.Time) *Session {
	return &Session{
		ID:        uuid.New(),
		StartedAt: now,
		Notes:     make([]Note, 0),
		delivered: make(map[string]struct{}),
	}
}

// Append adds a note in delivery order.
func (s *Session) Append(n Note) {
	s.Notes = append(s.Notes, n)
	s.delivered[n.SnippetID] = struct{}{}
}

// Delivered reports whether snippetID has been delivered in this session.
func (s *Session) Delivered(snippetID string) bool {
	_, ok := s.delivered[snippetID]
	return ok
}

// Len returns the number of delivered notes.
func (s *Session) Len() int {
	return len(s.Notes)
}

// Snapshot returns a copy of the notes in delivery order.
func (s *Session) Snapshot() []Note {
	return slices.Clone(s.Notes)
}
