package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/freud-of-the-dark/pkg/conversation"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeSnippetDelivered EventType = "snippet.delivered"
	EventTypeSnippetExhausted EventType = "snippet.exhausted"
	EventTypeInsightProposed  EventType = "insight.proposed"
	EventTypeTierAdvanced     EventType = "tier.advanced"
	EventTypeSessionStarted   EventType = "session.started"
	EventTypeSessionCompleted EventType = "session.completed"
)

// Event is the JSON payload published for each engine change.
type Event struct {
	Type   EventType      `json:"type"`
	GameID string         `json:"game_id"`
	Data   map[string]any `json:"data,omitempty"`
}

// Publisher is implemented by Broadcaster; handlers accept it so tests
// and Redis-less deployments can pass nil or a fake.
type Publisher interface {
	PublishDelivery(ctx context.Context, gameID uuid.UUID, d conversation.Delivery) error
	PublishExhausted(ctx context.Context, gameID uuid.UUID, characterID, topic string) error
	PublishInsight(ctx context.Context, gameID uuid.UUID, snippetID, category string, result conversation.InsightResult) error
	PublishSessionStarted(ctx context.Context, gameID uuid.UUID) error
	PublishSessionCompleted(ctx context.Context, gameID uuid.UUID, sessionID uuid.UUID, notes int) error
}

// Broadcaster publishes engine events to Redis Pub/Sub
type Broadcaster struct {
	client *redis.Client
	logger *slog.Logger
}

var _ Publisher = (*Broadcaster)(nil)

// NewBroadcaster connects to redisURL and verifies the connection.
func NewBroadcaster(ctx context.Context, redisURL string, logger *slog.Logger) (*Broadcaster, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Connected to Redis for event broadcasting", "addr", opt.Addr)
	return &Broadcaster{client: client, logger: logger}, nil
}

// Ping checks the Redis connection.
func (b *Broadcaster) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (b *Broadcaster) Close() error {
	return b.client.Close()
}

// Channel returns the pub/sub channel for a game.
func Channel(gameID uuid.UUID) string {
	return "game-events:" + gameID.String()
}

// Subscribe listens to a game's events. The caller closes the subscription.
func (b *Broadcaster) Subscribe(ctx context.Context, gameID uuid.UUID) *redis.PubSub {
	return b.client.Subscribe(ctx, Channel(gameID))
}

// PublishDelivery publishes snippet.delivered, or snippet.exhausted when
// the delivery was a fallback line.
func (b *Broadcaster) PublishDelivery(ctx context.Context, gameID uuid.UUID, d conversation.Delivery) error {
	eventType := EventTypeSnippetDelivered
	if d.Fallback() {
		eventType = EventTypeSnippetExhausted
	}
	return b.publish(ctx, gameID, Event{
		Type: eventType,
		Data: map[string]any{
			"session_id":   d.SessionID.String(),
			"snippet_id":   d.Snippet.ID,
			"character_id": d.Snippet.CharacterID,
			"topic":        d.Snippet.Topic,
			"remaining":    d.Remaining,
			"interactions": d.Interactions,
		},
	})
}

// PublishExhausted publishes snippet.exhausted for a topic with no content
// at all, not even a fallback line.
func (b *Broadcaster) PublishExhausted(ctx context.Context, gameID uuid.UUID, characterID, topic string) error {
	return b.publish(ctx, gameID, Event{
		Type: EventTypeSnippetExhausted,
		Data: map[string]any{
			"character_id": characterID,
			"topic":        topic,
			"no_content":   true,
		},
	})
}

// PublishInsight publishes insight.proposed, followed by tier.advanced when
// the insight unlocked a new tier.
func (b *Broadcaster) PublishInsight(ctx context.Context, gameID uuid.UUID, snippetID, category string, result conversation.InsightResult) error {
	err := b.publish(ctx, gameID, Event{
		Type: EventTypeInsightProposed,
		Data: map[string]any{
			"snippet_id": snippetID,
			"category":   category,
			"success":    result.Success,
			"score":      result.Score,
			"reason":     result.Reason,
		},
	})
	if err != nil || !result.TierAdvanced {
		return err
	}
	return b.publish(ctx, gameID, Event{
		Type: EventTypeTierAdvanced,
		Data: map[string]any{
			"character_id": result.CharacterID,
			"tier":         result.Tier,
		},
	})
}

// PublishSessionStarted publishes session.started.
func (b *Broadcaster) PublishSessionStarted(ctx context.Context, gameID uuid.UUID) error {
	return b.publish(ctx, gameID, Event{Type: EventTypeSessionStarted})
}

// PublishSessionCompleted publishes session.completed once a session hits
// its delivery cap.
func (b *Broadcaster) PublishSessionCompleted(ctx context.Context, gameID uuid.UUID, sessionID uuid.UUID, notes int) error {
	return b.publish(ctx, gameID, Event{
		Type: EventTypeSessionCompleted,
		Data: map[string]any{
			"session_id": sessionID.String(),
			"notes":      notes,
		},
	})
}

func (b *Broadcaster) publish(ctx context.Context, gameID uuid.UUID, event Event) error {
	event.GameID = gameID.String()
	channel := Channel(gameID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published", "channel", channel, "event_type", event.Type)
	return nil
}
