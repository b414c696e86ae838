package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/freud-of-the-dark/internal/events"
	"github.com/jwebster45206/freud-of-the-dark/internal/games"
	"github.com/jwebster45206/freud-of-the-dark/pkg/character"
	"github.com/jwebster45206/freud-of-the-dark/pkg/conversation"
	"github.com/jwebster45206/freud-of-the-dark/pkg/session"
	"github.com/jwebster45206/freud-of-the-dark/pkg/snippet"
	"github.com/jwebster45206/freud-of-the-dark/pkg/textfilter"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// GameResponse describes a live game.
type GameResponse struct {
	ID              uuid.UUID               `json:"id"`
	SessionID       *uuid.UUID              `json:"session_id,omitempty"`
	SessionComplete bool                    `json:"session_complete,omitempty"`
	MaxInteractions int                     `json:"max_interactions,omitempty"`
	Topics          []string                `json:"topics"`
	Characters      []*character.Character  `json:"characters"`
	Relationship    *character.Relationship `json:"relationship"`
}

// DeliverRequest asks a character to speak on a topic.
type DeliverRequest struct {
	CharacterID string `json:"character_id"`
	Topic       string `json:"topic"`
}

// SnippetView is what the player sees of a snippet. Authored categories
// and gating requirements stay on the server.
type SnippetView struct {
	ID          string `json:"id"`
	CharacterID string `json:"character_id"`
	Text        string `json:"text"`
	Topic       string `json:"topic"`
	Fallback    bool   `json:"fallback,omitempty"`
}

// DeliveryView is the player-facing form of a conversation.Delivery.
type DeliveryView struct {
	SessionID       uuid.UUID    `json:"session_id"`
	Snippet         SnippetView  `json:"snippet"`
	Note            session.Note `json:"note"`
	Remaining       int          `json:"remaining"`
	Interactions    int          `json:"interactions"`
	MaxInteractions int          `json:"max_interactions,omitempty"`
	SessionComplete bool         `json:"session_complete,omitempty"`
}

// DeliverResponse carries the delivered snippet, or NoContent when the
// topic has nothing left for that character.
type DeliverResponse struct {
	NoContent bool          `json:"no_content,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	Delivery  *DeliveryView `json:"delivery,omitempty"`
}

// CategoryRequest is the body for categorize and insight calls.
type CategoryRequest struct {
	SnippetID string `json:"snippet_id"`
	Category  string `json:"category"`
	Polarity  string `json:"polarity"`
}

type NotesResponse struct {
	SessionID *uuid.UUID     `json:"session_id,omitempty"`
	Notes     []session.Note `json:"notes"`
}

type GameHandler struct {
	registry  *games.Registry
	publisher events.Publisher // nil when events are disabled
	filter    *textfilter.Filter
	logger    *slog.Logger
}

func NewGameHandler(registry *games.Registry, publisher events.Publisher, filter *textfilter.Filter, logger *slog.Logger) *GameHandler {
	if filter == nil {
		filter = textfilter.New(textfilter.RatingR)
	}
	return &GameHandler{
		registry:  registry,
		publisher: publisher,
		filter:    filter,
		logger:    logger,
	}
}

// ServeHTTP routes game requests.
// Routes:
// POST   /v1/games                  - Create a game
// GET    /v1/games/{id}             - Read game status
// DELETE /v1/games/{id}             - Delete a game
// GET    /v1/games/{id}/topics      - List topics
// GET    /v1/games/{id}/snippets    - Available snippets (?character=&topic=)
// POST   /v1/games/{id}/deliver     - Deliver a snippet
// POST   /v1/games/{id}/categorize  - Categorize a snippet
// POST   /v1/games/{id}/insight     - Propose an insight
// GET    /v1/games/{id}/notes       - Current session notes
// GET    /v1/games/{id}/characters  - Cast and relationship state
// POST   /v1/games/{id}/session     - End the session; the next delivery starts a new one
func (h *GameHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/games"), "/")
	if path == "" {
		if r.Method != http.MethodPost {
			h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
			return
		}
		h.handleCreate(w)
		return
	}

	idStr, action, _ := strings.Cut(path, "/")
	gameID, err := uuid.Parse(idStr)
	if err != nil {
		h.logger.Warn("Invalid game ID", "id", idStr, "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid game ID format")
		return
	}

	game, err := h.registry.Get(gameID)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "Game not found")
		return
	}

	route := r.Method + " " + action
	switch route {
	case "GET ":
		h.writeJSON(w, http.StatusOK, h.gameResponse(game))
	case "DELETE ":
		if err := h.registry.Delete(gameID); err != nil {
			h.writeError(w, http.StatusNotFound, "Game not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case "GET topics":
		h.writeJSON(w, http.StatusOK, map[string][]string{"topics": game.Engine.AvailableTopics()})
	case "GET snippets":
		h.handleAvailable(w, r, game)
	case "POST deliver":
		h.handleDeliver(w, r, game)
	case "POST categorize":
		h.handleCategorize(w, r, game)
	case "POST insight":
		h.handleInsight(w, r, game)
	case "GET notes":
		h.handleNotes(w, game)
	case "GET characters":
		h.writeJSON(w, http.StatusOK, map[string]any{
			"characters":   game.Engine.Characters(),
			"relationship": game.Engine.Relationship(),
		})
	case "POST session":
		// The next delivery opens the session and announces it.
		game.Engine.StartNewSession()
		h.writeJSON(w, http.StatusOK, h.gameResponse(game))
	default:
		h.logger.Warn("Unsupported game route", "method", r.Method, "action", action)
		h.writeError(w, http.StatusNotFound, "Unsupported route")
	}
}

func (h *GameHandler) handleCreate(w http.ResponseWriter) {
	game, err := h.registry.Create()
	if err != nil {
		h.logger.Error("Failed to create game", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to create game")
		return
	}
	h.writeJSON(w, http.StatusCreated, h.gameResponse(game))
}

func (h *GameHandler) handleAvailable(w http.ResponseWriter, r *http.Request, game *games.Game) {
	characterID := r.URL.Query().Get("character")
	topic := r.URL.Query().Get("topic")
	if characterID == "" || topic == "" {
		h.writeError(w, http.StatusBadRequest, "character and topic query parameters are required")
		return
	}

	available := game.Engine.AvailableSnippets(characterID, topic)
	views := make([]SnippetView, 0, len(available))
	for _, s := range available {
		views = append(views, h.snippetView(s))
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"snippets": views})
}

func (h *GameHandler) handleDeliver(w http.ResponseWriter, r *http.Request, game *games.Game) {
	var req DeliverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if req.CharacterID == "" || req.Topic == "" {
		h.writeError(w, http.StatusBadRequest, "character_id and topic are required")
		return
	}

	d, err := game.Engine.DeliverSnippet(req.CharacterID, req.Topic)
	switch {
	case errors.Is(err, conversation.ErrUnknownCharacter):
		h.writeError(w, http.StatusBadRequest, "Unknown character: "+req.CharacterID)
		return
	case errors.Is(err, conversation.ErrSessionComplete):
		h.writeError(w, http.StatusConflict, "Session complete. Review the notes, then start a new session")
		return
	case errors.Is(err, conversation.ErrNoContentAvailable):
		h.publish(r.Context(), "snippet.exhausted", func(ctx context.Context, p events.Publisher) error {
			return p.PublishExhausted(ctx, game.ID, req.CharacterID, req.Topic)
		})
		h.writeJSON(w, http.StatusOK, DeliverResponse{NoContent: true, Reason: "No content available for this topic"})
		return
	case err != nil:
		h.logger.Error("Failed to deliver snippet", "error", err, "game_id", game.ID)
		h.writeError(w, http.StatusInternalServerError, "Failed to deliver snippet")
		return
	}

	if d.SessionStarted {
		h.publish(r.Context(), "session.started", func(ctx context.Context, p events.Publisher) error {
			return p.PublishSessionStarted(ctx, game.ID)
		})
	}
	h.publish(r.Context(), "snippet.delivered", func(ctx context.Context, p events.Publisher) error {
		return p.PublishDelivery(ctx, game.ID, d)
	})
	if d.SessionComplete {
		h.publish(r.Context(), "session.completed", func(ctx context.Context, p events.Publisher) error {
			return p.PublishSessionCompleted(ctx, game.ID, d.SessionID, d.Interactions)
		})
	}

	note := d.Note
	note.Text = h.filter.Apply(note.Text)
	h.writeJSON(w, http.StatusOK, DeliverResponse{Delivery: &DeliveryView{
		SessionID:       d.SessionID,
		Snippet:         h.snippetView(d.Snippet),
		Note:            note,
		Remaining:       d.Remaining,
		Interactions:    d.Interactions,
		MaxInteractions: game.Engine.MaxDeliveries(),
		SessionComplete: d.SessionComplete,
	}})
}

func (h *GameHandler) snippetView(s snippet.Snippet) SnippetView {
	return SnippetView{
		ID:          s.ID,
		CharacterID: s.CharacterID,
		Text:        h.filter.Apply(s.Text),
		Topic:       s.Topic,
		Fallback:    s.NoMore,
	}
}

func (h *GameHandler) decodeCategoryRequest(w http.ResponseWriter, r *http.Request) (CategoryRequest, bool) {
	var req CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return req, false
	}
	if req.SnippetID == "" || req.Category == "" {
		h.writeError(w, http.StatusBadRequest, "snippet_id and category are required")
		return req, false
	}
	return req, true
}

func (h *GameHandler) handleCategorize(w http.ResponseWriter, r *http.Request, game *games.Game) {
	req, ok := h.decodeCategoryRequest(w, r)
	if !ok {
		return
	}
	polarity, err := snippet.ParsePolarity(req.Polarity)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = game.Engine.Categorize(req.SnippetID, req.Category, polarity)
	switch {
	case errors.Is(err, conversation.ErrMissingData):
		h.writeError(w, http.StatusNotFound, "Snippet not found")
		return
	case errors.Is(err, conversation.ErrAlreadyUsed):
		h.writeError(w, http.StatusConflict, conversation.ReasonAlreadyUsed)
		return
	case err != nil:
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, _ := game.Engine.Categorization(req.SnippetID)
	h.writeJSON(w, http.StatusOK, rec)
}

func (h *GameHandler) handleInsight(w http.ResponseWriter, r *http.Request, game *games.Game) {
	req, ok := h.decodeCategoryRequest(w, r)
	if !ok {
		return
	}
	// An unparseable polarity is passed through so the engine reports
	// failures in its own order.
	polarity, perr := snippet.ParsePolarity(req.Polarity)
	if perr != nil {
		polarity = snippet.Polarity(req.Polarity)
	}

	result, err := game.Engine.ProposeInsight(req.SnippetID, req.Category, polarity)
	switch {
	case err != nil && result.Reason == conversation.ReasonSnippetNotFound:
		h.writeError(w, http.StatusNotFound, "Snippet not found")
		return
	case errors.Is(err, conversation.ErrInvalidPolarity):
		h.writeError(w, http.StatusBadRequest, conversation.ReasonInvalidPolarity+": "+req.Polarity)
		return
	}
	if err != nil {
		h.logger.Debug("Insight rejected", "game_id", game.ID, "snippet_id", req.SnippetID, "reason", result.Reason)
	}

	h.publish(r.Context(), "insight.proposed", func(ctx context.Context, p events.Publisher) error {
		return p.PublishInsight(ctx, game.ID, req.SnippetID, req.Category, result)
	})
	h.writeJSON(w, http.StatusOK, result)
}

func (h *GameHandler) handleNotes(w http.ResponseWriter, game *games.Game) {
	resp := NotesResponse{Notes: game.Engine.CurrentSessionSnippets()}
	if id, ok := game.Engine.SessionID(); ok {
		resp.SessionID = &id
	}
	for i := range resp.Notes {
		resp.Notes[i].Text = h.filter.Apply(resp.Notes[i].Text)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *GameHandler) gameResponse(game *games.Game) GameResponse {
	resp := GameResponse{
		ID:              game.ID,
		SessionComplete: game.Engine.SessionComplete(),
		MaxInteractions: game.Engine.MaxDeliveries(),
		Topics:          game.Engine.AvailableTopics(),
		Characters:      game.Engine.Characters(),
		Relationship:    game.Engine.Relationship(),
	}
	if id, ok := game.Engine.SessionID(); ok {
		resp.SessionID = &id
	}
	return resp
}

// publish sends an event when a publisher is configured. Failures are
// logged and never fail the request.
func (h *GameHandler) publish(ctx context.Context, name string, fn func(ctx context.Context, p events.Publisher) error) {
	if h.publisher == nil {
		return
	}
	if err := fn(ctx, h.publisher); err != nil {
		h.logger.Warn("Failed to publish event", "event", name, "error", err)
	}
}

func (h *GameHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

func (h *GameHandler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, ErrorResponse{Error: msg})
}
