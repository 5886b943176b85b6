package otp

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies the purpose of a one-time code. At most one live record may
// exist per (user, type) pair.
type Type string

const (
	TypeVerification  Type = "verification"
	TypePasswordReset Type = "password_reset"
	TypeLogin         Type = "login"
)

// Valid reports whether t is one of the known code types.
func (t Type) Valid() bool {
	switch t {
	case TypeVerification, TypePasswordReset, TypeLogin:
		return true
	}
	return false
}

// Record is a single one-time code issued to a user. Records move through
// none → live → {consumed | expired | superseded}; once IsUsed is set the
// record is terminal and never flips back.
type Record struct {
	ID         uuid.UUID
	UserID     string
	Code       string
	Type       Type
	Identifier string // delivery destination: phone number or email, may be empty
	ExpiresAt  time.Time
	IsUsed     bool
	Attempts   int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Live reports whether the record is still eligible for verification.
func (r *Record) Live(now time.Time) bool {
	return !r.IsUsed && now.Before(r.ExpiresAt)
}

// CreateResult is returned to generic callers of Create. It deliberately
// excludes the raw code, which is handed only to the delivery channel.
type CreateResult struct {
	ID        uuid.UUID
	ExpiresAt time.Time
}

// Receipt reports the outcome of a delivery attempt.
type Receipt struct {
	Delivered bool
	MessageID string
}
