package webhook

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shenikar/pothole_tracker/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPayload = `{"type":"incident.created","incident_id":"42"}`

func newTestWorker(cfg *config.Config) *WebhookWorker {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	if cfg.WebhookTimeout == 0 {
		cfg.WebhookTimeout = time.Second
	}
	return NewWebhookWorker(nil, logger, cfg)
}

func testEvent() IncidentEvent {
	return IncidentEvent{Type: EventCreated, IncidentID: "42"}
}

func TestProcessWebhookEvent_SignsPayload(t *testing.T) {
	// Подготовка
	var (
		gotBody      string
		gotSignature string
		gotEvent     string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotSignature = r.Header.Get(headerSignature)
		gotEvent = r.Header.Get(headerEvent)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	worker := newTestWorker(&config.Config{
		WebhookURL:        srv.URL,
		WebhookSecret:     "topsecret",
		WebhookMaxRetries: 3,
	})

	// Действие
	ok := worker.processWebhookEvent(context.Background(), testEvent(), testPayload)

	// Проверки
	require.True(t, ok)
	assert.Equal(t, testPayload, gotBody)
	assert.Equal(t, string(EventCreated), gotEvent)
	assert.Equal(t, generateHMACSHA256(testPayload, "topsecret"), gotSignature)
	assert.Len(t, gotSignature, 64)
}

func TestProcessWebhookEvent_NoSignatureWithoutSecret(t *testing.T) {
	hasSignature := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasSignature = r.Header[headerSignature]
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	worker := newTestWorker(&config.Config{WebhookURL: srv.URL, WebhookMaxRetries: 1})

	assert.True(t, worker.processWebhookEvent(context.Background(), testEvent(), testPayload))
	assert.False(t, hasSignature)
}

func TestProcessWebhookEvent_RetriesUntilSuccess(t *testing.T) {
	var (
		calls      atomic.Int32
		deliveries sync.Map
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deliveries.Store(r.Header.Get(headerDelivery), true)
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	worker := newTestWorker(&config.Config{
		WebhookURL:        srv.URL,
		WebhookMaxRetries: 3,
		WebhookBaseDelay:  0,
	})

	assert.True(t, worker.processWebhookEvent(context.Background(), testEvent(), testPayload))
	assert.Equal(t, int32(3), calls.Load())

	// все попытки - одна и та же доставка
	ids := 0
	deliveries.Range(func(key, _ any) bool {
		ids++
		assert.NotEmpty(t, key)
		return true
	})
	assert.Equal(t, 1, ids)
}

func TestProcessWebhookEvent_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	worker := newTestWorker(&config.Config{
		WebhookURL:        srv.URL,
		WebhookMaxRetries: 2,
	})

	assert.False(t, worker.processWebhookEvent(context.Background(), testEvent(), testPayload))
	assert.Equal(t, int32(2), calls.Load())
}

func TestProcessWebhookEvent_NoURL(t *testing.T) {
	worker := newTestWorker(&config.Config{WebhookMaxRetries: 3})

	assert.False(t, worker.processWebhookEvent(context.Background(), testEvent(), testPayload))
}

func TestProcessWebhookEvent_CanceledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	worker := newTestWorker(&config.Config{
		WebhookURL:        srv.URL,
		WebhookMaxRetries: 5,
		WebhookBaseDelay:  time.Hour,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	assert.False(t, worker.processWebhookEvent(ctx, testEvent(), testPayload))
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestSleep(t *testing.T) {
	assert.True(t, sleep(context.Background(), 0))
	assert.True(t, sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleep(ctx, 0))
	assert.False(t, sleep(ctx, time.Hour))
}
