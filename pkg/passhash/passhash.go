package passhash

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	// SaltSize is the random salt length in bytes.
	SaltSize = 32

	// HashSize is the derived digest length in bytes.
	HashSize = 64

	// scrypt work factor. Deliberately heavier than the scope-key derivation
	// in pkg/keyring: these digests protect long-lived credentials against
	// offline attack, not a single in-flight message. The parameters are
	// fixed because every stored record must be verifiable with the same
	// cost; changing them requires a rehash-on-login migration.
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 2
)

// Hash derives a digest of the password over a fresh random salt and encodes
// the record as <saltHex>:<hashHex>.
func Hash(password string) (string, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", errors.Join(ErrHashingFailed, err)
	}

	digest, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, HashSize)
	if err != nil {
		return "", errors.Join(ErrHashingFailed, err)
	}

	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(digest), nil
}

// Verify recomputes the digest with the record's stored salt and compares it
// to the stored hash in constant time. The runtime does not depend on where
// the first mismatching byte occurs. A wrong password returns (false, nil);
// only an unusable record or a KDF failure returns an error.
func Verify(password, record string) (bool, error) {
	salt, stored, err := decodeRecord(record)
	if err != nil {
		return false, err
	}

	digest, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, HashSize)
	if err != nil {
		return false, errors.Join(ErrHashingFailed, err)
	}

	return subtle.ConstantTimeCompare(digest, stored) == 1, nil
}

func decodeRecord(record string) (salt, hash []byte, err error) {
	parts := strings.Split(record, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, nil, ErrInvalidRecord
	}

	salt, err = hex.DecodeString(parts[0])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: salt is not valid hex", ErrInvalidRecord)
	}
	hash, err = hex.DecodeString(parts[1])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: hash is not valid hex", ErrInvalidRecord)
	}

	if len(salt) != SaltSize || len(hash) != HashSize {
		return nil, nil, fmt.Errorf("%w: unexpected field length", ErrInvalidRecord)
	}
	return salt, hash, nil
}
