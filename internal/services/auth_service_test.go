package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []EmailMessage
	err  error
}

func (f *fakeSender) SendEmail(_ context.Context, msg EmailMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) Sent() []EmailMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]EmailMessage(nil), f.sent...)
}

func newTestAuth(t *testing.T, cooldown time.Duration) (*AuthService, *fakeSender, *otpFixture) {
	t.Helper()
	f := newOTPFixture(t)
	sender := &fakeSender{}
	auth := NewAuthService(f.svc, sender, newTestIssuer(t, "test-secret"), AuthConfig{
		ServiceName:    "Studio",
		CodeTTL:        10 * time.Minute,
		ResendCooldown: cooldown,
	})
	auth.generate = func() (string, error) { return "482913", nil }
	return auth, sender, f
}

func TestAuthSendCodeAndVerify(t *testing.T) {
	auth, sender, _ := newTestAuth(t, 0)
	ctx := context.Background()

	sent, err := auth.SendCode(ctx, "Maker@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "maker@example.com", sent.Email)
	assert.True(t, sent.ExpiresAt.Equal(testNow.Add(10*time.Minute)))

	msgs := sender.Sent()
	require.Len(t, msgs, 1)
	assert.Equal(t, "maker@example.com", msgs[0].To)
	assert.Equal(t, "Your Studio sign-in code", msgs[0].Subject)
	assert.Contains(t, msgs[0].HTML, "482913")
	assert.Contains(t, msgs[0].Text, "482913")

	result, err := auth.Verify(ctx, "maker@example.com", "482913")
	require.NoError(t, err)
	assert.Equal(t, "maker@example.com", result.Email)
	assert.NotEmpty(t, result.Token)

	session, err := auth.Sessions().Parse(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.UserID, session.UserID)

	user, err := auth.CurrentUser(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, "maker@example.com", user.Email)

	_, err = auth.Verify(ctx, "maker@example.com", "482913")
	assert.ErrorIs(t, err, ErrOTPNotFound)
}

func TestAuthSendCodeCooldown(t *testing.T) {
	auth, sender, f := newTestAuth(t, time.Minute)
	ctx := context.Background()

	_, err := auth.SendCode(ctx, "a@example.com")
	require.NoError(t, err)

	_, err = auth.SendCode(ctx, "a@example.com")
	assert.ErrorIs(t, err, ErrResendTooSoon)
	assert.Len(t, sender.Sent(), 1)

	f.mr.FastForward(2 * time.Minute)
	_, err = auth.SendCode(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Len(t, sender.Sent(), 2)
}

func TestAuthSendCodeDeliveryFailure(t *testing.T) {
	auth, sender, f := newTestAuth(t, time.Minute)
	sender.err = errors.New("smtp down")

	_, err := auth.SendCode(context.Background(), "a@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
	assert.False(t, f.mr.Exists("otp_cooldown:a@example.com"))

	// Nothing was delivered, so an immediate retry is not throttled.
	sender.err = nil
	result, err := auth.SendCode(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", result.Email)
	assert.True(t, f.mr.Exists("otp_cooldown:a@example.com"))

	_, err = auth.SendCode(context.Background(), "a@example.com")
	assert.ErrorIs(t, err, ErrResendTooSoon)

	_, err = auth.SendCode(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAuthCurrentUserRequiresSession(t *testing.T) {
	auth, _, _ := newTestAuth(t, 0)
	_, err := auth.CurrentUser(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
