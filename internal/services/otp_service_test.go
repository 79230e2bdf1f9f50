package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"studio-api/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type otpFixture struct {
	svc   *OTPService
	mr    *miniredis.Miniredis
	db    *gorm.DB
	clock time.Time
}

func newOTPFixture(t *testing.T) *otpFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &otpFixture{mr: mr, db: newTestDB(t), clock: testNow}
	f.svc = NewOTPService(client, f.db, time.Hour)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		assert.Regexp(t, `^[0-9]{6}$`, code)
	}
}

func TestNormalizeEmail(t *testing.T) {
	email, err := NormalizeEmail("  Jane.Doe@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "jane.doe@example.com", email)

	_, err = NormalizeEmail("not-an-email")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestVerifyOTPCreatesUser(t *testing.T) {
	f := newOTPFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.StoreOTP(ctx, "New@Example.com", "123456", testNow.Add(10*time.Minute)))
	assert.True(t, f.mr.Exists("otp_code:new@example.com"))

	user, err := f.svc.VerifyOTP(ctx, "new@example.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
	assert.NotEmpty(t, user.UserID)
	require.NotNil(t, user.EmailVerifiedAt)
	assert.WithinDuration(t, testNow, *user.EmailVerifiedAt, 0)

	assert.False(t, f.mr.Exists("otp_code:new@example.com"))

	var count int64
	require.NoError(t, f.db.Model(&models.User{}).Where("email = ?", "new@example.com").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// Signing in again resolves the same user.
	require.NoError(t, f.svc.StoreOTP(ctx, "new@example.com", "654321", testNow.Add(10*time.Minute)))
	again, err := f.svc.VerifyOTP(ctx, "new@example.com", "654321")
	require.NoError(t, err)
	assert.Equal(t, user.UserID, again.UserID)

	require.NoError(t, f.db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	fetched, err := f.svc.GetUser(ctx, user.UserID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, fetched.Email)
}

func TestStoreOTPReplacesPreviousCode(t *testing.T) {
	f := newOTPFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.StoreOTP(ctx, "a@example.com", "111111", testNow.Add(10*time.Minute)))
	require.NoError(t, f.svc.StoreOTP(ctx, "a@example.com", "222222", testNow.Add(10*time.Minute)))

	_, err := f.svc.VerifyOTP(ctx, "a@example.com", "111111")
	assert.ErrorIs(t, err, ErrOTPIncorrect)

	_, err = f.svc.VerifyOTP(ctx, "a@example.com", "222222")
	require.NoError(t, err)
}

func TestStoreOTPResetsUsedFlag(t *testing.T) {
	f := newOTPFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.StoreOTP(ctx, "a@example.com", "111111", testNow.Add(10*time.Minute)))
	f.mr.HSet("otp_code:a@example.com", "used", "1")

	_, err := f.svc.VerifyOTP(ctx, "a@example.com", "111111")
	assert.ErrorIs(t, err, ErrOTPAlreadyUsed)

	require.NoError(t, f.svc.StoreOTP(ctx, "a@example.com", "111111", testNow.Add(10*time.Minute)))
	assert.Equal(t, "0", f.mr.HGet("otp_code:a@example.com", "used"))
	_, err = f.svc.VerifyOTP(ctx, "a@example.com", "111111")
	require.NoError(t, err)
}

func TestVerifyOTPExpired(t *testing.T) {
	f := newOTPFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.StoreOTP(ctx, "late@example.com", "123456", testNow.Add(10*time.Minute)))
	f.clock = testNow.Add(11 * time.Minute)

	_, err := f.svc.VerifyOTP(ctx, "late@example.com", "123456")
	assert.ErrorIs(t, err, ErrOTPExpired)

	_, err = f.svc.VerifyOTP(ctx, "late@example.com", "123456")
	assert.ErrorIs(t, err, ErrOTPNotFound)

	var count int64
	require.NoError(t, f.db.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestVerifyOTPFailures(t *testing.T) {
	f := newOTPFixture(t)
	ctx := context.Background()

	_, err := f.svc.VerifyOTP(ctx, "nobody@example.com", "123456")
	assert.ErrorIs(t, err, ErrOTPNotFound)
	assert.EqualError(t, err, "no code found for this email")

	require.NoError(t, f.svc.StoreOTP(ctx, "a@example.com", "123456", testNow.Add(10*time.Minute)))
	_, err = f.svc.VerifyOTP(ctx, "a@example.com", "000000")
	assert.ErrorIs(t, err, ErrOTPIncorrect)

	// A wrong guess leaves the code usable.
	_, err = f.svc.VerifyOTP(ctx, "a@example.com", "123456")
	require.NoError(t, err)

	_, err = f.svc.VerifyOTP(ctx, "bad address", "123456")
	assert.ErrorIs(t, err, ErrInvalidInput)

	f.mr.HSet("otp_code:broken@example.com", "code", "123456")
	_, err = f.svc.VerifyOTP(ctx, "broken@example.com", "123456")
	assert.ErrorIs(t, err, ErrOTPNotFound)
	assert.False(t, f.mr.Exists("otp_code:broken@example.com"))
}

func TestVerifyOTPConcurrentSingleWinner(t *testing.T) {
	f := newOTPFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.StoreOTP(ctx, "race@example.com", "123456", testNow.Add(10*time.Minute)))

	const verifiers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
		errs []error
	)
	for i := 0; i < verifiers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.VerifyOTP(ctx, "race@example.com", "123456")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
				return
			}
			errs = append(errs, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	for _, err := range errs {
		assert.True(t, errors.Is(err, ErrOTPNotFound) || errors.Is(err, ErrOTPAlreadyUsed), err)
	}
	assert.False(t, f.mr.Exists("otp_code:race@example.com"))
}

func TestVerifyOTPConsumedCodeStaysGone(t *testing.T) {
	f := newOTPFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.StoreOTP(ctx, "a@example.com", "123456", testNow.Add(10*time.Minute)))

	_, err := f.svc.VerifyOTP(ctx, "a@example.com", "123456")
	require.NoError(t, err)

	// A late verifier with the right code must not resurrect the record.
	_, err = f.svc.VerifyOTP(ctx, "a@example.com", "123456")
	assert.ErrorIs(t, err, ErrOTPNotFound)
	assert.False(t, f.mr.Exists("otp_code:a@example.com"))
}

func TestVerifyOTPReleasesCodeOnUserFailure(t *testing.T) {
	f := newOTPFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.StoreOTP(ctx, "a@example.com", "123456", testNow.Add(10*time.Minute)))

	sqlDB, err := f.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = f.svc.VerifyOTP(ctx, "a@example.com", "123456")
	require.Error(t, err)
	assert.Equal(t, "0", f.mr.HGet("otp_code:a@example.com", "used"))
}

func TestStoreOTPKeyTTL(t *testing.T) {
	f := newOTPFixture(t)

	require.NoError(t, f.svc.StoreOTP(context.Background(), "a@example.com", "123456", testNow.Add(10*time.Minute)))
	assert.Equal(t, 10*time.Minute+time.Hour, f.mr.TTL("otp_code:a@example.com"))

	err := f.svc.StoreOTP(context.Background(), "a@example.com", "", testNow.Add(time.Minute))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAcquireResendSlot(t *testing.T) {
	f := newOTPFixture(t)
	ctx := context.Background()

	ok, err := f.svc.AcquireResendSlot(ctx, "a@example.com", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.AcquireResendSlot(ctx, "A@example.com", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	f.mr.FastForward(time.Minute + time.Second)
	ok, err = f.svc.AcquireResendSlot(ctx, "a@example.com", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.AcquireResendSlot(ctx, "a@example.com", 0)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, f.svc.ReleaseResendSlot(ctx, "A@Example.com"))
	assert.False(t, f.mr.Exists("otp_cooldown:a@example.com"))
	ok, err = f.svc.AcquireResendSlot(ctx, "a@example.com", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGetUserNotFound(t *testing.T) {
	f := newOTPFixture(t)
	_, err := f.svc.GetUser(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
