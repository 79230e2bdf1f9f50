package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"studio-api/internal/models"
	"studio-api/pkg/logging"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	otpKeyPrefix      = "otp_code:"
	cooldownKeyPrefix = "otp_cooldown:"
	codeDigits        = 6
)

// OTPService stores one passcode per email in Redis and resolves users on
// successful verification.
type OTPService struct {
	client    *redis.Client
	db        *gorm.DB
	retention time.Duration
	now       func() time.Time
}

// NewOTPService creates a passcode store. retention keeps expired codes
// around long enough for verification to report them as expired.
func NewOTPService(client *redis.Client, db *gorm.DB, retention time.Duration) *OTPService {
	return &OTPService{
		client:    client,
		db:        db,
		retention: retention,
		now:       time.Now,
	}
}

// NormalizeEmail validates an address and returns it lowercased
func NormalizeEmail(email string) (string, error) {
	parsed, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return "", fmt.Errorf("%w: email is invalid", ErrInvalidInput)
	}
	return strings.ToLower(parsed.Address), nil
}

// GenerateCode generates a 6-digit verification code
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

func otpKey(email string) string {
	return otpKeyPrefix + email
}

func cooldownKey(email string) string {
	return cooldownKeyPrefix + email
}

// StoreOTP replaces any outstanding code for email with a fresh unused one
func (s *OTPService) StoreOTP(ctx context.Context, email, code string, expiresAt time.Time) error {
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("%w: code is required", ErrInvalidInput)
	}

	now := s.now()
	ttl := expiresAt.Sub(now) + s.retention
	if ttl < time.Second {
		ttl = time.Second
	}

	key := otpKey(email)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, map[string]interface{}{
		"code":       code,
		"expires_at": expiresAt.UnixMilli(),
		"created_at": now.UnixMilli(),
		"used":       0,
	})
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store code: %w", err)
	}
	return nil
}

// consumeScript checks and claims a stored code in one step. A missing record
// is never recreated, so at most one caller can claim a given code.
var consumeScript = redis.NewScript(`
local rec = redis.call('HMGET', KEYS[1], 'code', 'expires_at', 'used')
if not rec[1] then
	return 0
end
local exp = tonumber(rec[2])
if not exp then
	redis.call('DEL', KEYS[1])
	return -1
end
if tonumber(ARGV[2]) > exp then
	redis.call('DEL', KEYS[1])
	return 1
end
if rec[3] and rec[3] ~= '0' then
	return 2
end
if rec[1] ~= ARGV[1] then
	return 3
end
redis.call('HSET', KEYS[1], 'used', '1')
return 4
`)

// releaseScript hands a claimed code back, if it still exists.
var releaseScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	redis.call('HSET', KEYS[1], 'used', '0')
end
return 0
`)

const (
	consumeMalformed = -1
	consumeNotFound  = 0
	consumeExpired   = 1
	consumeUsed      = 2
	consumeIncorrect = 3
	consumeClaimed   = 4
)

// VerifyOTP consumes the code for email and returns the matching user,
// creating one on first login. Failures leave the stored code untouched except
// for expiry, which deletes it.
func (s *OTPService) VerifyOTP(ctx context.Context, email, code string) (*models.User, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	key := otpKey(email)

	result, err := consumeScript.Run(ctx, s.client, []string{key},
		strings.TrimSpace(code), s.now().UnixMilli()).Int()
	if err != nil {
		return nil, fmt.Errorf("failed to check code: %w", err)
	}

	switch result {
	case consumeClaimed:
	case consumeNotFound:
		return nil, ErrOTPNotFound
	case consumeMalformed:
		logging.Errorf("Malformed code record for %s, deleted", email)
		return nil, ErrOTPNotFound
	case consumeExpired:
		return nil, ErrOTPExpired
	case consumeUsed:
		return nil, ErrOTPAlreadyUsed
	case consumeIncorrect:
		return nil, ErrOTPIncorrect
	default:
		return nil, fmt.Errorf("unexpected code check result %d", result)
	}

	user, err := s.findOrCreateUser(ctx, email)
	if err != nil {
		// Give the code back so the user can retry.
		if rerr := releaseScript.Run(ctx, s.client, []string{key}).Err(); rerr != nil {
			logging.Errorf("Failed to release code %s: %v", key, rerr)
		}
		return nil, err
	}

	s.delete(ctx, key)
	return user, nil
}

// AcquireResendSlot reports whether a code may be sent to email now and, if
// so, blocks further sends for cooldown. A zero cooldown always allows.
func (s *OTPService) AcquireResendSlot(ctx context.Context, email string, cooldown time.Duration) (bool, error) {
	if cooldown <= 0 {
		return true, nil
	}
	email, err := NormalizeEmail(email)
	if err != nil {
		return false, err
	}
	ok, err := s.client.SetNX(ctx, cooldownKey(email), "1", cooldown).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check resend cooldown: %w", err)
	}
	return ok, nil
}

// ReleaseResendSlot lifts the cooldown for email, for sends that never went out
func (s *OTPService) ReleaseResendSlot(ctx context.Context, email string) error {
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, cooldownKey(email)).Err(); err != nil {
		return fmt.Errorf("failed to release resend cooldown: %w", err)
	}
	return nil
}

func (s *OTPService) findOrCreateUser(ctx context.Context, email string) (*models.User, error) {
	now := s.now().UTC()
	var user models.User
	err := s.db.WithContext(ctx).
		Where(models.User{Email: email}).
		Attrs(models.User{UserID: uuid.NewString(), EmailVerifiedAt: &now}).
		FirstOrCreate(&user).Error
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return &user, nil
}

// GetUser returns a user by public id
func (s *OTPService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *OTPService) delete(ctx context.Context, key string) {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		logging.Errorf("Failed to delete code %s: %v", key, err)
	}
}
