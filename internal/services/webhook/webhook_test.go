package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/models"
)

type fakeStore struct {
	mu         sync.Mutex
	webhooks   []models.Webhook
	deliveries map[int64]models.WebhookDelivery
	nextID     int64
}

func newFakeStore(hooks ...models.Webhook) *fakeStore {
	return &fakeStore{webhooks: hooks, deliveries: map[int64]models.WebhookDelivery{}}
}

func (f *fakeStore) GetActiveWebhooksForEvent(_ context.Context, userID int64, event string) ([]models.Webhook, error) {
	var out []models.Webhook
	for _, w := range f.webhooks {
		if w.UserID != userID || !w.Active {
			continue
		}
		for _, e := range w.Events {
			if e == event {
				out = append(out, w)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) CreateWebhookDelivery(_ context.Context, d *models.WebhookDelivery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	d.ID = f.nextID
	f.deliveries[d.ID] = *d
	return nil
}

func (f *fakeStore) UpdateWebhookDelivery(_ context.Context, d *models.WebhookDelivery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliveries[d.ID] = *d
	return nil
}

func (f *fakeStore) all() []models.WebhookDelivery {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.WebhookDelivery, 0, len(f.deliveries))
	for _, d := range f.deliveries {
		out = append(out, d)
	}
	return out
}

func TestSignPayload(t *testing.T) {
	sig := SignPayload([]byte(`{"a":1}`), "secret")
	assert.Len(t, sig, 64)
	assert.Equal(t, sig, SignPayload([]byte(`{"a":1}`), "secret"))
	assert.NotEqual(t, sig, SignPayload([]byte(`{"a":1}`), "other"))
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret()
	require.NoError(t, err)
	b, err := GenerateSecret()
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestNotifyEventDeliversSignedPayload(t *testing.T) {
	var (
		gotBody []byte
		gotSig  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get(SignatureHeader)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	store := newFakeStore(models.Webhook{
		ID: 1, UserID: 7, URL: srv.URL, Secret: "s3cret", Active: true,
		Events: []string{models.EventVideoProcessed},
	})
	svc := New(store).WithRetryDelays(0)

	svc.NotifyEvent(context.Background(), 7, models.EventVideoProcessed, map[string]int64{"video_id": 3})
	svc.Wait()

	require.NotEmpty(t, gotBody)
	assert.Equal(t, SignPayload(gotBody, "s3cret"), gotSig)

	var payload struct {
		Event string           `json:"event"`
		Data  map[string]int64 `json:"data"`
	}
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.Equal(t, models.EventVideoProcessed, payload.Event)
	assert.Equal(t, int64(3), payload.Data["video_id"])

	deliveries := store.all()
	require.Len(t, deliveries, 1)
	assert.Equal(t, models.DeliverySuccess, deliveries[0].Status)
	assert.Equal(t, 1, deliveries[0].Attempts)
	assert.Equal(t, http.StatusNoContent, deliveries[0].ResponseCode)
}

func TestNotifyEventRetriesThenFails(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := newFakeStore(models.Webhook{
		ID: 1, UserID: 7, URL: srv.URL, Active: true,
		Events: []string{models.EventVideoSubmitted},
	})
	svc := New(store).WithRetryDelays(0, time.Millisecond, time.Millisecond)

	svc.NotifyEvent(context.Background(), 7, models.EventVideoSubmitted, nil)
	svc.Wait()

	assert.Equal(t, int32(3), hits.Load())
	deliveries := store.all()
	require.Len(t, deliveries, 1)
	assert.Equal(t, models.DeliveryFailed, deliveries[0].Status)
	assert.Equal(t, 3, deliveries[0].Attempts)
	assert.Equal(t, "HTTP 500", deliveries[0].LastError)
}

func TestNotifyEventSkipsOtherUsersAndEvents(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	store := newFakeStore(
		models.Webhook{ID: 1, UserID: 8, URL: srv.URL, Active: true, Events: []string{models.EventVideoProcessed}},
		models.Webhook{ID: 2, UserID: 7, URL: srv.URL, Active: true, Events: []string{models.EventAIEditCompleted}},
		models.Webhook{ID: 3, UserID: 7, URL: srv.URL, Active: false, Events: []string{models.EventVideoProcessed}},
	)
	svc := New(store).WithRetryDelays(0)

	svc.NotifyEvent(context.Background(), 7, models.EventVideoProcessed, nil)
	svc.Wait()

	assert.Zero(t, hits.Load())
	assert.Empty(t, store.all())
}

func TestShutdownAbortsPendingRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	store := newFakeStore(models.Webhook{
		ID: 1, UserID: 7, URL: srv.URL, Active: true, Events: []string{models.EventVideoProcessed},
	})
	svc := New(store).WithRetryDelays(0, time.Hour)

	svc.NotifyEvent(context.Background(), 7, models.EventVideoProcessed, nil)

	done := make(chan struct{})
	go func() {
		svc.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not interrupt the retry wait")
	}

	deliveries := store.all()
	require.Len(t, deliveries, 1)
	assert.Equal(t, models.DeliveryFailed, deliveries[0].Status)
	assert.Equal(t, "shutdown during delivery", deliveries[0].LastError)
}
