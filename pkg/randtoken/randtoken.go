// Package randtoken produces cryptographically strong random tokens and
// numeric one-time codes.
package randtoken

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
)

const (
	// AccessTokenSize and ResetTokenSize are the standard byte lengths for
	// session access and password-reset tokens.
	AccessTokenSize = 32
	ResetTokenSize  = 32

	// RefreshTokenSize is the standard byte length for refresh tokens.
	RefreshTokenSize = 48

	maxCodeDigits = 18 // keeps 10^digits within int64 range
)

var (
	ErrInvalidLength    = errors.New("token length must be positive")
	ErrInvalidDigits    = errors.New("code digits must be between 1 and 18")
	ErrGenerationFailed = errors.New("random generation failed")
)

// Hex returns n cryptographically random bytes, hex-encoded.
func Hex(n int) (string, error) {
	if n <= 0 {
		return "", ErrInvalidLength
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrGenerationFailed, err)
	}
	return hex.EncodeToString(b), nil
}

// AccessToken returns a 32-byte hex token for session access.
func AccessToken() (string, error) { return Hex(AccessTokenSize) }

// ResetToken returns a 32-byte hex token for password resets.
func ResetToken() (string, error) { return Hex(ResetTokenSize) }

// RefreshToken returns a 48-byte hex token.
func RefreshToken() (string, error) { return Hex(RefreshTokenSize) }

// NumericCode returns a zero-padded numeric code drawn uniformly from the
// full digits-length space. crypto/rand.Int performs rejection sampling
// internally, so there is no modulo bias for any digit count.
func NumericCode(digits int) (string, error) {
	if digits < 1 || digits > maxCodeDigits {
		return "", ErrInvalidDigits
	}

	bound := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return "", errors.Join(ErrGenerationFailed, err)
	}

	return fmt.Sprintf("%0*d", digits, n), nil
}
