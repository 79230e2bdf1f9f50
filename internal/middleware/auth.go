package middleware

import (
	"bytes"
	"context"
	"crypto/subtle"
	"io"
	"net/http"
	"strings"

	"studio-api/internal/response"
	"studio-api/internal/services"
	"studio-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

const (
	AdminKeyHeader = "X-Admin-Key"

	// maxCallbackBody bounds the payment callback body read for signing
	maxCallbackBody = 1 << 20
)

type sessionKey struct{}

// WithSession stores the caller's session on ctx
func WithSession(ctx context.Context, session *services.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFromContext returns the session stored by SessionAuth
func SessionFromContext(ctx context.Context) (*services.Session, bool) {
	session, ok := ctx.Value(sessionKey{}).(*services.Session)
	return session, ok && session != nil
}

// SessionAuth requires a valid bearer session token
func SessionAuth(issuer *services.SessionIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractBearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.AbortJSON(c, http.StatusUnauthorized, "Missing or malformed Authorization header")
			return
		}

		session, err := issuer.Parse(token)
		if err != nil {
			logging.Warnf("Session rejected - path: %s, error: %v", c.Request.URL.Path, err)
			response.AbortJSON(c, http.StatusUnauthorized, "Invalid or expired session")
			return
		}

		c.Request = c.Request.WithContext(WithSession(c.Request.Context(), session))
		c.Next()
	}
}

// AdminAuth requires the X-Admin-Key header to match key. An empty key
// disables every admin route.
func AdminAuth(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			response.AbortJSON(c, http.StatusForbidden, "Admin API is disabled")
			return
		}

		provided := c.GetHeader(AdminKeyHeader)
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
			logging.Warnf("Admin auth failed - path: %s, ip: %s", c.Request.URL.Path, c.ClientIP())
			response.AbortJSON(c, http.StatusUnauthorized, "Invalid admin key")
			return
		}
		c.Next()
	}
}

// SignatureAuth verifies the HMAC signature of the raw body and leaves the
// body readable for the handler.
func SignatureAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			response.AbortJSON(c, http.StatusForbidden, "Payment callbacks are disabled")
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBody))
		if err != nil {
			response.AbortJSON(c, http.StatusBadRequest, "Failed to read request body")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		signature := strings.TrimSpace(c.GetHeader(services.SignatureHeader))
		if signature == "" || !services.VerifyPayload(body, secret, signature) {
			logging.Warnf("Callback signature rejected - path: %s, ip: %s", c.Request.URL.Path, c.ClientIP())
			response.AbortJSON(c, http.StatusUnauthorized, "Invalid signature")
			return
		}
		c.Next()
	}
}

func extractBearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
