// Package webhook delivers signed notifications of domain events to the
// endpoints a user registered.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/logger"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/models"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body.
const SignatureHeader = "X-Webhook-Signature"

// Store is the persistence the service needs.
type Store interface {
	GetActiveWebhooksForEvent(ctx context.Context, userID int64, event string) ([]models.Webhook, error)
	CreateWebhookDelivery(ctx context.Context, d *models.WebhookDelivery) error
	UpdateWebhookDelivery(ctx context.Context, d *models.WebhookDelivery) error
}

// DefaultRetryDelays are the waits before each delivery attempt.
var DefaultRetryDelays = []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second}

// Service handles webhook notification delivery.
type Service struct {
	store       Store
	client      *http.Client
	retryDelays []time.Duration
	shutdownCh  chan struct{} // Signals pending deliveries to stop
	closeOnce   sync.Once
	wg          sync.WaitGroup
	log         *logrus.Entry
}

// New creates a new webhook service.
func New(store Store) *Service {
	return &Service{
		store:       store,
		client:      &http.Client{Timeout: 10 * time.Second},
		retryDelays: DefaultRetryDelays,
		shutdownCh:  make(chan struct{}),
		log:         logger.WithComponent("webhook"),
	}
}

// WithRetryDelays overrides the retry schedule.
func (s *Service) WithRetryDelays(delays ...time.Duration) *Service {
	s.retryDelays = delays
	return s
}

// Shutdown signals pending deliveries to stop and waits for them.
func (s *Service) Shutdown() {
	s.closeOnce.Do(func() { close(s.shutdownCh) })
	s.wg.Wait()
}

// Wait blocks until in-flight deliveries finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

// GenerateSecret creates a random HMAC secret for a webhook.
func GenerateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// SignPayload creates an HMAC-SHA256 signature for a payload.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// NotifyEvent sends event to every active webhook of userID subscribed to it.
// Delivery happens asynchronously with retries; failures are only logged.
func (s *Service) NotifyEvent(ctx context.Context, userID int64, event string, data any) {
	webhooks, err := s.store.GetActiveWebhooksForEvent(ctx, userID, event)
	if err != nil {
		s.log.WithError(err).WithField("event", event).Warn("⚠️  Failed to get webhooks for event")
		return
	}
	if len(webhooks) == 0 {
		return
	}

	payloadJSON, err := json.Marshal(models.WebhookPayload{
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		s.log.WithError(err).Warn("⚠️  Failed to marshal webhook payload")
		return
	}

	for _, wh := range webhooks {
		s.wg.Add(1)
		go func(wh models.Webhook) {
			defer s.wg.Done()
			s.deliverWithRetry(wh, event, payloadJSON)
		}(wh)
	}
}

// deliverWithRetry attempts delivery on the retry schedule, recording each
// attempt. Shutdown aborts between attempts.
func (s *Service) deliverWithRetry(wh models.Webhook, event string, payloadJSON []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	log := s.log.WithFields(logrus.Fields{"event": event, "webhook_id": wh.ID})

	delivery := &models.WebhookDelivery{
		WebhookID: wh.ID,
		Event:     event,
		Payload:   string(payloadJSON),
		Status:    models.DeliveryPending,
	}
	if err := s.store.CreateWebhookDelivery(ctx, delivery); err != nil {
		log.WithError(err).Warn("⚠️  Failed to create webhook delivery record")
		return
	}

	save := func() {
		if err := s.store.UpdateWebhookDelivery(ctx, delivery); err != nil {
			log.WithError(err).Warn("⚠️  Failed to update delivery record")
		}
	}

	for attempt, delay := range s.retryDelays {
		if delay > 0 {
			select {
			case <-s.shutdownCh:
				delivery.Status = models.DeliveryFailed
				delivery.LastError = "shutdown during delivery"
				save()
				log.Warn("⚠️  Webhook delivery aborted due to shutdown")
				return
			case <-ctx.Done():
				delivery.Status = models.DeliveryFailed
				delivery.LastError = "delivery timeout"
				save()
				log.Warn("⚠️  Webhook delivery timed out")
				return
			case <-time.After(delay):
			}
		}

		delivery.Attempts = attempt + 1
		statusCode, err := s.deliver(ctx, wh, payloadJSON)
		delivery.ResponseCode = statusCode

		if err == nil && statusCode >= 200 && statusCode < 300 {
			now := time.Now()
			delivery.Status = models.DeliverySuccess
			delivery.DeliveredAt = &now
			delivery.LastError = ""
			save()
			log.Infof("✅ Webhook delivered (attempt %d)", attempt+1)
			return
		}

		if err != nil {
			delivery.LastError = err.Error()
		} else {
			delivery.LastError = fmt.Sprintf("HTTP %d", statusCode)
		}
		save()
		log.Warnf("⚠️  Webhook delivery failed (attempt %d/%d): %s", attempt+1, len(s.retryDelays), delivery.LastError)
	}

	delivery.Status = models.DeliveryFailed
	save()
	log.Error("❌ Webhook delivery failed permanently")
}

// deliver sends a single webhook HTTP request.
func (s *Service) deliver(ctx context.Context, wh models.Webhook, payloadJSON []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.URL, bytes.NewReader(payloadJSON))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "UGCPlatform-Webhook/1.0")
	if wh.Secret != "" {
		req.Header.Set(SignatureHeader, SignPayload(payloadJSON, wh.Secret))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}
