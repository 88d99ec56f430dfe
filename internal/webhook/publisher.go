package webhook

//go:generate mockgen -source=publisher.go -destination=mocks/publisher_mock.go -package=mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shenikar/pothole_tracker/internal/models"
)

const (
	webhookQueueKey = "incident_events"
)

// EventType - тип события жизненного цикла инцидента
type EventType string

const (
	EventReported      EventType = "incident.reported"
	EventCreated       EventType = "incident.created"
	EventUpdated       EventType = "incident.updated"
	EventStatusChanged EventType = "incident.status_changed"
	EventAssigned      EventType = "incident.assigned"
	EventCommented     EventType = "incident.commented"
	EventDeleted       EventType = "incident.deleted"
)

// IncidentEvent - структура для данных вебхука
type IncidentEvent struct {
	Type       EventType        `json:"type"`
	IncidentID string           `json:"incident_id"`
	ActorID    string           `json:"actor_id,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
	Incident   *models.Incident `json:"incident,omitempty"` // Состояние инцидента после изменения, для удаления - пусто
}

// WebhookPublisher - интерфейс для публикации вебхуков
type WebhookPublisher interface {
	Publish(ctx context.Context, event IncidentEvent) error
}

// RedisWebhookPublisher - реализация WebhookPublisher, использующая Redis
type RedisWebhookPublisher struct {
	redisClient *redis.Client
}

// NewRedisWebhookPublisher создает новый RedisWebhookPublisher
func NewRedisWebhookPublisher(client *redis.Client) *RedisWebhookPublisher {
	return &RedisWebhookPublisher{
		redisClient: client,
	}
}

// Publish публикует событие вебхука в очередь Redis
func (p *RedisWebhookPublisher) Publish(ctx context.Context, event IncidentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook event: %w", err)
	}

	// LPUSH + BRPOP в воркере дают очередь FIFO
	if err := p.redisClient.LPush(ctx, webhookQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish webhook event to Redis: %w", err)
	}
	return nil
}

// NopPublisher отбрасывает события, когда Redis не настроен
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, IncidentEvent) error { return nil }
