package services

import "errors"

// Validation
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnknownPlan  = errors.New("unknown plan")
)

// Not found
var (
	ErrPurchaseNotFound     = errors.New("purchase not found")
	ErrOTPNotFound          = errors.New("no code found for this email")
	ErrUserNotFound         = errors.New("user not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// State conflicts
var (
	ErrPurchaseCompleted     = errors.New("purchase already completed")
	ErrPurchaseNotPending    = errors.New("purchase is not pending")
	ErrPurchaseNotRefundable = errors.New("only completed purchases can be refunded")
	ErrSubscriptionActive    = errors.New("user already has an active subscription")
	ErrOTPAlreadyUsed        = errors.New("code already used")
	ErrInsufficientCredits   = errors.New("insufficient credits")
)

var (
	ErrOTPExpired       = errors.New("code expired")
	ErrOTPIncorrect     = errors.New("incorrect code")
	ErrResendTooSoon    = errors.New("please wait before requesting another code")
	ErrUnauthenticated  = errors.New("not authenticated")
	ErrInvalidSession   = errors.New("invalid session token")
	ErrEmailUnavailable = errors.New("email sender not configured")
)
