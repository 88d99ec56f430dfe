package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shenikar/pothole_tracker/internal/models"
	"github.com/shenikar/pothole_tracker/internal/service"
)

// RedisIncidentCache - read-through кэш инцидентов в Redis
type RedisIncidentCache struct {
	redisClient *redis.Client
	ttl         time.Duration
}

func NewRedisIncidentCache(redisClient *redis.Client, ttl time.Duration) service.IncidentCache {
	return &RedisIncidentCache{
		redisClient: redisClient,
		ttl:         ttl,
	}
}

func incidentCacheKey(id string) string {
	return fmt.Sprintf("incident:%s", id)
}

// GetIncidentFromCache пытается получить инцидент из Redis; промах - (nil, nil)
func (c *RedisIncidentCache) GetIncidentFromCache(ctx context.Context, id string) (*models.Incident, error) {
	val, err := c.redisClient.Get(ctx, incidentCacheKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get incident from cache: %w", err)
	}

	incident := &models.Incident{}
	if err := json.Unmarshal(val, incident); err != nil {
		return nil, fmt.Errorf("failed to unmarshal incident from cache: %w", err)
	}
	return incident, nil
}

// SetIncidentCache сохраняет инцидент в Redis
func (c *RedisIncidentCache) SetIncidentCache(ctx context.Context, incident *models.Incident) error {
	val, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("failed to marshal incident for cache: %w", err)
	}
	if err := c.redisClient.Set(ctx, incidentCacheKey(incident.ID), val, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set incident in cache: %w", err)
	}
	return nil
}

// InvalidateIncidentCache удаляет инцидент из Redis кэша
func (c *RedisIncidentCache) InvalidateIncidentCache(ctx context.Context, id string) error {
	if err := c.redisClient.Del(ctx, incidentCacheKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate incident cache: %w", err)
	}
	return nil
}

// NopIncidentCache используется, когда Redis не настроен: всегда промах
type NopIncidentCache struct{}

func (NopIncidentCache) GetIncidentFromCache(context.Context, string) (*models.Incident, error) {
	return nil, nil
}

func (NopIncidentCache) SetIncidentCache(context.Context, *models.Incident) error { return nil }

func (NopIncidentCache) InvalidateIncidentCache(context.Context, string) error { return nil }
