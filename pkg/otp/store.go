package otp

import (
	"context"
	"time"
)

// Store abstracts record persistence. All lookups report not-found as a nil
// record with a nil error, never as an error.
//
// Implementations must make the create-path sequence (invalidate, cooldown
// check, insert) and the verify-path sequence (read, increment, save) safe
// against concurrent calls for the same (userID, type) pair: a database
// backend via row locks or a transaction, an in-memory backend via an
// internal lock. The Service additionally serializes in-process callers per
// key, but out-of-process concurrency is the store's responsibility.
type Store interface {
	// InvalidateLive marks every live record for (userID, typ) as used.
	InvalidateLive(ctx context.Context, userID string, typ Type) error

	// FindRecentSince returns the most recent record (used or not) created
	// at or after the cutoff, or nil.
	FindRecentSince(ctx context.Context, userID string, typ Type, since time.Time) (*Record, error)

	// Insert persists a new record.
	Insert(ctx context.Context, rec *Record) error

	// FindLive returns the most recent unused record that expires after now,
	// or nil.
	FindLive(ctx context.Context, userID string, typ Type, now time.Time) (*Record, error)

	// Save persists mutations to an existing record.
	Save(ctx context.Context, rec *Record) error

	// DeleteStale removes unused records that expired before now, plus used
	// records last updated before usedBefore. Used records survive past
	// expiry until the retention cutoff so audit trails keep their history.
	// Returns the number removed.
	DeleteStale(ctx context.Context, now, usedBefore time.Time) (int64, error)
}

// Locker is an optional Store capability providing cross-process
// serialization per (userID, type) key. When a store implements it, the
// Service runs every create and verify sequence inside WithLock, so two
// instances cannot interleave the cooldown check or the attempt increment.
// Stores that only serve a single process can omit it; the Service's own
// keyed lock covers in-process concurrency.
type Locker interface {
	WithLock(ctx context.Context, userID string, typ Type, fn func(ctx context.Context) error) error
}

// Channel delivers a raw code to its destination. Implementations must not
// retain the code beyond the call.
type Channel interface {
	SendCode(ctx context.Context, destination, code string, purpose Type) (Receipt, error)
}

// UserVerifier receives the post-verification side effect for
// TypeVerification codes: the verified flag flip on the user entity. Which
// method runs is chosen by the identifier shape (email contains "@").
type UserVerifier interface {
	SetEmailVerified(ctx context.Context, userID string) error
	SetPhoneVerified(ctx context.Context, userID string) error
}
