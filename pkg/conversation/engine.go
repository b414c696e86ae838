package conversation

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/freud-of-the-dark/pkg/character"
	"github.com/jwebster45206/freud-of-the-dark/pkg/session"
	"github.com/jwebster45206/freud-of-the-dark/pkg/snippet"
)

// Engine owns all mutable conversation state: character attributes, the
// relationship, the current session log and categorization records.
// All methods are serialized by a single mutex.
type Engine struct {
	mu sync.Mutex

	catalog      *snippet.Catalog
	cast         map[string]*character.Character
	relationship *character.Relationship

	current         *session.Session
	categorizations session.Categorizations
	maxDeliveries   int // 0 means unlimited

	intn   func(n int) int
	now    func() time.Time
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand makes snippet selection draw from r.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) {
		e.intn = r.IntN
	}
}

// WithSeed makes snippet selection reproducible.
func WithSeed(seed uint64) Option {
	return WithRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// WithMaxDeliveries caps the number of deliveries in one session. Once the
// cap is reached the session is complete until StartNewSession. Zero or
// less means no cap.
func WithMaxDeliveries(n int) Option {
	return func(e *Engine) {
		e.maxDeliveries = max(n, 0)
	}
}

// WithClock overrides the time source used for note timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine builds an engine over catalog. The cast and relationship are
// copied; later changes by the caller do not reach the engine.
func NewEngine(catalog *snippet.Catalog, cast []*character.Character, rel *character.Relationship, opts ...Option) (*Engine, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog cannot be nil")
	}
	if rel == nil {
		return nil, fmt.Errorf("relationship cannot be nil")
	}

	e := &Engine{
		catalog:         catalog,
		cast:            make(map[string]*character.Character, len(cast)),
		relationship:    rel.Clone(),
		categorizations: make(session.Categorizations),
		intn:            rand.IntN,
		now:             time.Now,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, c := range cast {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("invalid cast: %w", err)
		}
		if _, dup := e.cast[c.ID]; dup {
			return nil, fmt.Errorf("invalid cast: duplicate character %q", c.ID)
		}
		e.cast[c.ID] = c.Clone()
	}

	for _, speaker := range catalog.Speakers() {
		if _, ok := e.cast[speaker]; !ok {
			e.logger.Warn("Snippet speaker is not in the cast", "character_id", speaker, "source", catalog.Source())
		}
	}

	return e, nil
}

// NewDefaultEngine builds an engine with the default cast.
func NewDefaultEngine(catalog *snippet.Catalog, opts ...Option) (*Engine, error) {
	cast, rel := character.DefaultCast()
	return NewEngine(catalog, cast, rel, opts...)
}

// AvailableTopics returns the sorted topic list.
func (e *Engine) AvailableTopics() []string {
	return e.catalog.ListTopics()
}

// AvailableSnippets returns the regular snippets the speaker may deliver on
// topic right now: not yet delivered this session, tier met and
// relationship requirements met. Order follows the catalog.
func (e *Engine) AvailableSnippets(characterID, topic string) []snippet.Snippet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.availableLocked(characterID, topic)
}

func (e *Engine) availableLocked(characterID, topic string) []snippet.Snippet {
	c, ok := e.cast[characterID]
	if !ok {
		return nil
	}

	var out []snippet.Snippet
	for _, s := range e.catalog.Snippets(characterID, topic) {
		if e.current != nil && e.current.Delivered(s.ID) {
			continue
		}
		if !c.MeetsTier(s.Tier) {
			continue
		}
		if !e.meetsRelationship(characterID, s.RelationshipRequirements) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (e *Engine) meetsRelationship(characterID string, req map[string]int) bool {
	if len(req) == 0 {
		return true
	}
	if !e.relationship.Involves(characterID) {
		return false
	}
	return e.relationship.Meets(req)
}

// Character returns a copy of the character's current state.
func (e *Engine) Character(id string) (*character.Character, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.cast[id]
	return c.Clone(), ok
}

// Characters returns copies of the cast sorted by id.
func (e *Engine) Characters() []*character.Character {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*character.Character, 0, len(e.cast))
	for _, c := range e.cast {
		out = append(out, c.Clone())
	}
	slices.SortFunc(out, func(a, b *character.Character) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Relationship returns a copy of the shared relationship.
func (e *Engine) Relationship() *character.Relationship {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.relationship.Clone()
}

// MaxDeliveries returns the per-session delivery cap, 0 when unlimited.
func (e *Engine) MaxDeliveries() int {
	return e.maxDeliveries
}

// SessionComplete reports whether the active session reached its cap.
func (e *Engine) SessionComplete() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.completeLocked()
}

func (e *Engine) completeLocked() bool {
	return e.maxDeliveries > 0 && e.current != nil && e.current.Len() >= e.maxDeliveries
}

// Catalog returns the snippet catalog the engine reads from.
func (e *Engine) Catalog() *snippet.Catalog {
	return e.catalog
}

// SessionID returns the active session id, if a session has started.
func (e *Engine) SessionID() (uuid.UUID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return uuid.Nil, false
	}
	return e.current.ID, true
}

// StartNewSession ends the current session. The next delivery opens a new
// one, so every snippet becomes available again. Character state and
// categorization records carry over.
func (e *Engine) StartNewSession() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current != nil {
		e.logger.Info("Session ended", "session_id", e.current.ID, "notes", e.current.Len())
	}
	e.current = nil
}

// CurrentSessionSnippets returns the notes of the active session in
// delivery order, with any categorization attached. It returns an empty
// slice when no session has started.
func (e *Engine) CurrentSessionSnippets() []session.Note {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return []session.Note{}
	}
	notes := e.current.Snapshot()
	for i := range notes {
		if rec, ok := e.categorizations.Get(notes[i].SnippetID); ok {
			notes[i].Categorization = rec.Clone()
		}
	}
	return notes
}
