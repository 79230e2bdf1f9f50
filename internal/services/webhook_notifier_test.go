package services

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookNotifierSignsAndRetries(t *testing.T) {
	var attempts int32
	received := make(chan LedgerEvent, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if !VerifyPayload(body, "hook-secret", r.Header.Get(SignatureHeader)) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var event LedgerEvent
		if err := json.Unmarshal(body, &event); err == nil {
			received <- event
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wn := NewWebhookNotifier(srv.URL, "hook-secret")
	wn.retryDelays = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}

	err := wn.sendWithRetry(LedgerEvent{Event: EventPurchaseCompleted, UserID: "user-1", PurchaseID: 7, Credits: 500})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))

	event := <-received
	assert.Equal(t, EventPurchaseCompleted, event.Event)
	assert.Equal(t, uint(7), event.PurchaseID)
	assert.Nil(t, event.ExpiresAt)
}

func TestWebhookNotifierGivesUp(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	wn := NewWebhookNotifier(srv.URL, "")
	wn.retryDelays = []time.Duration{time.Millisecond, time.Millisecond}

	err := wn.sendWithRetry(LedgerEvent{Event: EventTrialStarted, UserID: "user-1"})
	assert.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestWebhookNotifierDisabled(t *testing.T) {
	var nilNotifier *WebhookNotifier
	nilNotifier.Notify(LedgerEvent{Event: EventTrialStarted})
	NewWebhookNotifier("", "secret").Notify(LedgerEvent{Event: EventTrialStarted})
}

func TestSignPayload(t *testing.T) {
	payload := []byte(`{"purchase_id":1}`)
	sig := SignPayload(payload, "secret")

	assert.Len(t, sig, 64)
	assert.True(t, VerifyPayload(payload, "secret", sig))
	assert.False(t, VerifyPayload(payload, "other", sig))
	assert.False(t, VerifyPayload([]byte(`{"purchase_id":2}`), "secret", sig))
	assert.False(t, VerifyPayload(payload, "secret", "zz-not-hex"))
}
