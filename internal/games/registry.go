package games

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/freud-of-the-dark/pkg/conversation"
	"github.com/jwebster45206/freud-of-the-dark/pkg/snippet"
)

// ErrNotFound is returned for unknown game ids.
var ErrNotFound = errors.New("game not found")

// Game is one player's live engine. Games live in memory only.
type Game struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Engine    *conversation.Engine
}

// Registry holds live games keyed by id. Every game shares the catalog
// but gets its own engine and cast.
type Registry struct {
	mu      sync.RWMutex
	games   map[uuid.UUID]*Game
	catalog *snippet.Catalog
	seed    uint64
	opts    []conversation.Option
	logger  *slog.Logger
}

// NewRegistry creates a registry over catalog. A non-zero seed makes each
// game's snippet selection reproducible. opts are applied to every engine.
func NewRegistry(catalog *snippet.Catalog, seed uint64, logger *slog.Logger, opts ...conversation.Option) *Registry {
	return &Registry{
		games:   make(map[uuid.UUID]*Game),
		catalog: catalog,
		seed:    seed,
		opts:    opts,
		logger:  logger,
	}
}

// Create starts a new game with the default cast.
func (r *Registry) Create() (*Game, error) {
	id := uuid.New()
	opts := []conversation.Option{
		conversation.WithLogger(r.logger.With("game_id", id.String())),
	}
	if r.seed != 0 {
		opts = append(opts, conversation.WithSeed(r.seed))
	}
	opts = append(opts, r.opts...)

	engine, err := conversation.NewDefaultEngine(r.catalog, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	g := &Game{ID: id, CreatedAt: time.Now(), Engine: engine}

	r.mu.Lock()
	r.games[id] = g
	r.mu.Unlock()

	r.logger.Info("Game created", "game_id", id)
	return g, nil
}

// Get returns a live game.
func (r *Registry) Get(id uuid.UUID) (*Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return g, nil
}

// Delete drops a game.
func (r *Registry) Delete(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.games[id]; !ok {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	delete(r.games, id)
	r.logger.Info("Game deleted", "game_id", id)
	return nil
}

// Len returns the number of live games.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}

// Catalog returns the shared snippet catalog.
func (r *Registry) Catalog() *snippet.Catalog {
	return r.catalog
}
