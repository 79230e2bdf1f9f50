package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const sessionIssuer = "studio-api"

// Session is the verified caller identity attached to a request
type Session struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SessionIssuer signs and verifies HS256 session tokens
type SessionIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionIssuer requires a non-empty secret
func NewSessionIssuer(secret string, ttl time.Duration) (*SessionIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("session secret must be set")
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	return &SessionIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue signs a token for the user
func (si *SessionIssuer) Issue(userID, email string) (string, *Session, error) {
	now := si.now().UTC()
	expiresAt := now.Add(si.ttl)

	claims := sessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(si.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session: %w", err)
	}

	return token, &Session{
		UserID:    userID,
		Email:     email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Parse verifies a token and returns its session
func (si *SessionIssuer) Parse(token string) (*Session, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return si.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(si.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidSession)
	}

	return &Session{
		UserID:    claims.Subject,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
