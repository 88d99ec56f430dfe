package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/pothole_tracker/internal/config"
	"github.com/sirupsen/logrus"
)

const (
	headerEvent     = "X-Webhook-Event"
	headerDelivery  = "X-Webhook-Delivery"
	headerSignature = "X-Webhook-Signature"
)

// WebhookWorker разбирает очередь событий инцидентов и доставляет их на WEBHOOK_URL
type WebhookWorker struct {
	redisClient *redis.Client
	logger      *logrus.Logger
	cfg         *config.Config
	httpClient  *http.Client
}

func NewWebhookWorker(redisClient *redis.Client, logger *logrus.Logger, cfg *config.Config) *WebhookWorker {
	return &WebhookWorker{
		redisClient: redisClient,
		logger:      logger,
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: cfg.WebhookTimeout},
	}
}

// Start запускает фоновую обработку очереди до отмены ctx
func (w *WebhookWorker) Start(ctx context.Context) {
	w.logger.WithField("queue", webhookQueueKey).Info("Starting webhook worker...")
	go w.run(ctx)
}

func (w *WebhookWorker) run(ctx context.Context) {
	for ctx.Err() == nil {
		// таймаут 0 - ждем события сколько угодно
		result, err := w.redisClient.BRPop(ctx, 0, webhookQueueKey).Result()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				break
			}
			w.logger.WithError(err).Error("Failed to pop incident event from Redis")
			sleep(ctx, w.cfg.WebhookTimeout)
			continue
		}

		// result = [ключ очереди, значение]
		payload := result[1]
		var event IncidentEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			w.logger.WithError(err).Error("Dropping malformed incident event")
			continue
		}
		w.processWebhookEvent(ctx, event, payload)
	}
	w.logger.Info("Stopping webhook worker.")
}

// processWebhookEvent доставляет событие, удваивая паузу между попытками.
// Все попытки одного события несут одинаковый X-Webhook-Delivery.
// Возвращает true, если получатель ответил 2xx.
func (w *WebhookWorker) processWebhookEvent(ctx context.Context, event IncidentEvent, rawPayload string) bool {
	deliveryID := uuid.NewString()
	log := w.logger.WithFields(logrus.Fields{
		"event_type":  event.Type,
		"incident_id": event.IncidentID,
		"delivery_id": deliveryID,
	})

	if w.cfg.WebhookURL == "" {
		log.Warn("Webhook URL is not configured. Skipping webhook delivery.")
		return false
	}

	attempts := max(w.cfg.WebhookMaxRetries, 1)
	delay := w.cfg.WebhookBaseDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if !sleep(ctx, delay) {
				log.Warn("Webhook delivery interrupted by shutdown")
				return false
			}
			delay *= 2
		}

		err := w.send(ctx, event.Type, deliveryID, rawPayload)
		if err == nil {
			log.WithField("attempt", attempt).Info("Webhook delivered")
			return true
		}
		var reqErr *requestError
		if errors.As(err, &reqErr) {
			log.WithError(err).Error("Cannot build webhook request")
			return false
		}
		log.WithError(err).WithField("attempt", attempt).Warnf("Webhook delivery failed, %d attempts left", attempts-attempt)
	}

	log.Errorf("Giving up on webhook after %d attempts", attempts)
	return false
}

// requestError - запрос не удалось даже собрать, повтор бессмысленен
type requestError struct{ err error }

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

// send выполняет одну попытку доставки
func (w *WebhookWorker) send(ctx context.Context, eventType EventType, deliveryID, payload string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.WebhookURL, bytes.NewBufferString(payload))
	if err != nil {
		return &requestError{err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerEvent, string(eventType))
	req.Header.Set(headerDelivery, deliveryID)
	if w.cfg.WebhookSecret != "" {
		req.Header.Set(headerSignature, generateHMACSHA256(payload, w.cfg.WebhookSecret))
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("receiver responded with status %d", resp.StatusCode)
	}
	return nil
}

// sleep ждет d или отмены контекста; false - контекст отменен
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// generateHMACSHA256 возвращает hex-подпись тела запроса
func generateHMACSHA256(data, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
