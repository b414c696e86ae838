package conversation

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jwebster45206/freud-of-the-dark/pkg/session"
	"github.com/jwebster45206/freud-of-the-dark/pkg/snippet"
)

// Delivery is the snippet handed to the presentation layer.
type Delivery struct {
	SessionID uuid.UUID       `json:"session_id"`
	Snippet   snippet.Snippet `json:"snippet"`
	Note      session.Note    `json:"note"`
	// Remaining counts the regular snippets still available to the speaker
	// on this topic after this delivery.
	Remaining int `json:"remaining"`
	// Interactions is the number of deliveries in the session so far,
	// this one included.
	Interactions int `json:"interactions"`
	// SessionStarted is set on the delivery that opened the session.
	SessionStarted bool `json:"session_started,omitempty"`
	// SessionComplete is set on the delivery that reached the session cap.
	SessionComplete bool `json:"session_complete,omitempty"`
}

// Fallback reports whether the delivered snippet is the topic's NoMore line.
func (d Delivery) Fallback() bool {
	return d.Snippet.NoMore
}

// DeliverSnippet picks one available snippet uniformly at random and
// records it in the session log, starting the session if needed. When the
// pool is exhausted it delivers the topic's fallback line instead. A regular
// snippet is never delivered twice in one session. Once a capped session is
// complete, ErrSessionComplete is returned until StartNewSession.
func (e *Engine) DeliverSnippet(characterID, topic string) (Delivery, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.cast[characterID]
	if !ok {
		return Delivery{}, fmt.Errorf("deliver snippet for %q: %w", characterID, ErrUnknownCharacter)
	}
	if e.completeLocked() {
		return Delivery{}, fmt.Errorf("deliver snippet for %q: %d of %d: %w", characterID, e.current.Len(), e.maxDeliveries, ErrSessionComplete)
	}

	available := e.availableLocked(characterID, topic)

	var chosen snippet.Snippet
	remaining := 0
	if len(available) > 0 {
		chosen = available[e.intn(len(available))]
		remaining = len(available) - 1
	} else {
		fallback, ok := e.catalog.FindFallback(characterID, topic, c.CurrentTier)
		if !ok {
			e.logger.Warn("No content available",
				"character_id", characterID,
				"topic", topic,
				"tier", c.CurrentTier)
			return Delivery{}, fmt.Errorf("deliver snippet for %q on %q: %w", characterID, topic, ErrNoContentAvailable)
		}
		chosen = fallback
	}

	started := false
	if e.current == nil {
		e.current = session.New(e.now())
		started = true
		e.logger.Info("Session started", "session_id", e.current.ID)
	}

	note := session.Note{
		SnippetID:   chosen.ID,
		CharacterID: chosen.CharacterID,
		Topic:       chosen.Topic,
		Text:        chosen.Text,
		DeliveredAt: e.now(),
		NoMore:      chosen.NoMore,
	}
	e.current.Append(note)

	e.logger.Debug("Snippet delivered",
		"session_id", e.current.ID,
		"snippet_id", chosen.ID,
		"character_id", characterID,
		"topic", topic,
		"fallback", chosen.NoMore,
		"remaining", remaining)

	complete := e.completeLocked()
	if complete {
		e.logger.Info("Session complete", "session_id", e.current.ID, "notes", e.current.Len())
	}

	return Delivery{
		SessionID:       e.current.ID,
		Snippet:         chosen,
		Note:            note,
		Remaining:       remaining,
		Interactions:    e.current.Len(),
		SessionStarted:  started,
		SessionComplete: complete,
	}, nil
}
