package services

import (
	"context"
	"fmt"
	"time"

	"studio-api/internal/models"
	"studio-api/pkg/logging"
)

// AuthConfig holds the passcode flow settings
type AuthConfig struct {
	ServiceName    string
	CodeTTL        time.Duration
	ResendCooldown time.Duration
}

// AuthService runs the email passcode sign-in: issue, deliver, verify, open a session.
type AuthService struct {
	otp      *OTPService
	sender   EmailSender
	sessions *SessionIssuer
	cfg      AuthConfig
	generate func() (string, error)
}

// NewAuthService wires the passcode store, email sender and session issuer
func NewAuthService(otp *OTPService, sender EmailSender, sessions *SessionIssuer, cfg AuthConfig) *AuthService {
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 10 * time.Minute
	}
	return &AuthService{
		otp:      otp,
		sender:   sender,
		sessions: sessions,
		cfg:      cfg,
		generate: GenerateCode,
	}
}

// SendCodeResult reports where and until when a code is valid
type SendCodeResult struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// VerifyResult is a successful sign-in
type VerifyResult struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SendCode generates a new passcode for email, replaces any previous one and
// emails it. Delivery errors are returned as-is and not retried.
func (a *AuthService) SendCode(ctx context.Context, email string) (*SendCodeResult, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	allowed, err := a.otp.AcquireResendSlot(ctx, email, a.cfg.ResendCooldown)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrResendTooSoon
	}

	code, err := a.generate()
	if err != nil {
		a.releaseResendSlot(ctx, email)
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}
	expiresAt := a.otp.now().Add(a.cfg.CodeTTL)

	if err := a.otp.StoreOTP(ctx, email, code, expiresAt); err != nil {
		a.releaseResendSlot(ctx, email)
		return nil, err
	}

	subject, htmlBody, textBody := verificationEmail(a.cfg.ServiceName, code, a.cfg.CodeTTL)
	if err := a.sender.SendEmail(ctx, EmailMessage{
		To:      email,
		Subject: subject,
		HTML:    htmlBody,
		Text:    textBody,
	}); err != nil {
		logging.Errorf("Failed to send code email to %s: %v", email, err)
		a.releaseResendSlot(ctx, email)
		return nil, fmt.Errorf("failed to send verification email: %w", err)
	}

	logging.Infof("Sign-in code sent - email: %s, expires_at: %s", email, expiresAt.UTC().Format(time.RFC3339))
	return &SendCodeResult{Email: email, ExpiresAt: expiresAt}, nil
}

// releaseResendSlot lets the user ask again right away when nothing was delivered
func (a *AuthService) releaseResendSlot(ctx context.Context, email string) {
	if a.cfg.ResendCooldown <= 0 {
		return
	}
	if err := a.otp.ReleaseResendSlot(ctx, email); err != nil {
		logging.Errorf("Failed to release resend cooldown for %s: %v", email, err)
	}
}

// Verify consumes the passcode and opens a session for the resolved user
func (a *AuthService) Verify(ctx context.Context, email, code string) (*VerifyResult, error) {
	user, err := a.otp.VerifyOTP(ctx, email, code)
	if err != nil {
		return nil, err
	}

	token, session, err := a.sessions.Issue(user.UserID, user.Email)
	if err != nil {
		return nil, err
	}

	logging.Infof("User signed in - user_id: %s", user.UserID)
	return &VerifyResult{
		UserID:    user.UserID,
		Email:     user.Email,
		Token:     token,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// CurrentUser loads the user behind a session
func (a *AuthService) CurrentUser(ctx context.Context, session *Session) (*models.User, error) {
	if session == nil || session.UserID == "" {
		return nil, ErrUnauthenticated
	}
	return a.otp.GetUser(ctx, session.UserID)
}

// Sessions exposes the issuer for request middleware
func (a *AuthService) Sessions() *SessionIssuer {
	return a.sessions
}
