package otp

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidUserID = errors.New("user id must not be empty")
	ErrInvalidType   = errors.New("unknown otp type")

	// ErrNotFoundOrExpired means no live code exists for the (user, type)
	// pair: none was created, it expired, or it was already consumed.
	ErrNotFoundOrExpired = errors.New("otp not found or expired")

	// ErrTooManyAttempts means the attempt budget is exhausted and the code
	// is terminally dead, even if the correct code is supplied later.
	ErrTooManyAttempts = errors.New("too many verification attempts")

	// ErrCooldownActive is the sentinel matched by errors.Is for
	// CooldownError values.
	ErrCooldownActive = errors.New("otp creation cooldown active")

	// ErrUpstreamTimeout means a store or delivery call exceeded the
	// configured timeout. Retryable by the caller; the service never retries
	// internally.
	ErrUpstreamTimeout = errors.New("upstream call timed out")

	// ErrStoreUnavailable wraps store failures outside the cleanup path.
	ErrStoreUnavailable = errors.New("otp store unavailable")

	// ErrDeliveryFailed wraps delivery channel failures. The record is
	// already persisted when delivery runs, so the cooldown still applies.
	ErrDeliveryFailed = errors.New("code delivery failed")

	// ErrRecordNotFound is returned by stores when Save targets a record
	// that was never inserted. Lookups never return it; they report absence
	// as a nil record.
	ErrRecordNotFound = errors.New("otp record not found")
)

// CooldownError is returned by Create when a code was requested again too
// soon. It unwraps to ErrCooldownActive.
type CooldownError struct {
	SecondsRemaining int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("otp creation cooldown active: retry in %ds", e.SecondsRemaining)
}

func (e *CooldownError) Unwrap() error {
	return ErrCooldownActive
}
