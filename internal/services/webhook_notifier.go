package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"studio-api/pkg/logging"
)

// Ledger event names
const (
	EventTrialStarted         = "subscription.trial_started"
	EventSubscriptionCanceled = "subscription.canceled"
	EventPurchaseCompleted    = "purchase.completed"
	EventPurchaseRefunded     = "purchase.refunded"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body
const SignatureHeader = "X-Studio-Signature"

// LedgerEvent is the payload posted to the backend webhook
type LedgerEvent struct {
	Event      string     `json:"event"`
	UserID     string     `json:"user_id"`
	PlanID     string     `json:"plan_id,omitempty"`
	PurchaseID uint       `json:"purchase_id,omitempty"`
	PackageID  string     `json:"package_id,omitempty"`
	Credits    int64      `json:"credits,omitempty"`
	Status     string     `json:"status,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// WebhookNotifier posts ledger events to a configured backend
type WebhookNotifier struct {
	callbackURL string
	secret      string
	httpClient  *http.Client
	retryDelays []time.Duration
}

// NewWebhookNotifier creates a new webhook notifier. An empty callbackURL
// turns Notify into a no-op.
func NewWebhookNotifier(callbackURL, secret string) *WebhookNotifier {
	return &WebhookNotifier{
		callbackURL: callbackURL,
		secret:      secret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		retryDelays: []time.Duration{1 * time.Second, 5 * time.Second, 30 * time.Second},
	}
}

// Notify sends the event in a goroutine so the caller is never blocked
func (wn *WebhookNotifier) Notify(event LedgerEvent) {
	if wn == nil || wn.callbackURL == "" {
		return
	}
	go wn.sendWithRetry(event)
}

// sendWithRetry tries once per configured delay, sleeping between attempts
func (wn *WebhookNotifier) sendWithRetry(event LedgerEvent) error {
	maxRetries := len(wn.retryDelays)

	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = wn.sendWebhook(event)
		if err == nil {
			logging.Infof("Webhook notification sent - event: %s, user_id: %s, attempt: %d",
				event.Event, event.UserID, attempt+1)
			return nil
		}

		logging.Errorf("Webhook notification failed - event: %s, user_id: %s, attempt: %d, error: %v",
			event.Event, event.UserID, attempt+1, err)

		if attempt < maxRetries-1 {
			time.Sleep(wn.retryDelays[attempt])
		}
	}

	logging.Errorf("Webhook notification failed after %d attempts - event: %s, user_id: %s",
		maxRetries, event.Event, event.UserID)
	return err
}

// sendWebhook sends a single webhook request
func (wn *WebhookNotifier) sendWebhook(event LedgerEvent) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, wn.callbackURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Studio-Webhook/1.0")
	if wn.secret != "" {
		req.Header.Set(SignatureHeader, SignPayload(jsonData, wn.secret))
	}

	resp, err := wn.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}

// SignPayload returns the hex HMAC-SHA256 of payload under secret
func SignPayload(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyPayload checks a hex signature produced by SignPayload in constant time
func VerifyPayload(payload []byte, secret, signature string) bool {
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hmac.Equal(h.Sum(nil), expected)
}
