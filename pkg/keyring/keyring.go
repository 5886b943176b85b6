package keyring

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"

	"golang.org/x/crypto/scrypt"
)

const (
	// MasterKeySize is the required size of the master secret in bytes.
	MasterKeySize = 32 // 256 bits

	// DerivedKeySize is the size of every scoped key produced by DeriveKey.
	DerivedKeySize = 32

	// scrypt parameters for scope-key derivation. These protect a single
	// in-flight message, not a stored credential, so they are lighter than
	// the password-hashing parameters in pkg/passhash.
	scryptN = 1 << 14
	scryptR = 8
	scryptP = 1
)

// Source supplies the master secret at process start. Implementations must
// report an absent secret as (nil, nil), not an error.
type Source interface {
	LoadMasterKey(ctx context.Context) ([]byte, error)
}

// StaticSource returns a fixed key. Intended for tests and for callers that
// resolve the secret themselves (e.g. from a secrets manager) before
// constructing the keyring.
type StaticSource []byte

func (s StaticSource) LoadMasterKey(ctx context.Context) ([]byte, error) {
	if len(s) == 0 {
		return nil, nil
	}
	key := make([]byte, len(s))
	copy(key, s)
	return key, nil
}

// Keyring owns the process-wide master secret and derives scope-bound keys
// from it on demand. The master key is immutable after construction; New is
// the one-shot initialization barrier, so a constructed Keyring is always
// safe for concurrent use without locking.
type Keyring struct {
	masterKey []byte
	ephemeral bool
	logger    *slog.Logger
}

type Option func(*Keyring)

// WithLogger sets a custom logger for the keyring.
func WithLogger(logger *slog.Logger) Option {
	return func(k *Keyring) {
		if logger != nil {
			k.logger = logger
		}
	}
}

// New loads the master key from source and returns a ready keyring. The call
// blocks until the key is materialized, so callers can never observe an
// uninitialized keyring. When the source reports no key, a random ephemeral
// key is generated and a warning is logged: encrypted data will be
// unrecoverable after restart and undecryptable by other instances.
func New(ctx context.Context, source Source, opts ...Option) (*Keyring, error) {
	k := &Keyring{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(k)
	}

	var key []byte
	if source != nil {
		loaded, err := source.LoadMasterKey(ctx)
		if err != nil {
			return nil, errors.Join(ErrSourceFailed, err)
		}
		key = loaded
	}

	switch {
	case len(key) == 0:
		generated, err := GenerateMasterKey()
		if err != nil {
			return nil, err
		}
		key = generated
		k.ephemeral = true
		k.logger.WarnContext(ctx, "no master key configured, generated ephemeral key; "+
			"encrypted data will not survive restarts or be shared across instances")
	case len(key) != MasterKeySize:
		return nil, ErrInvalidMasterKey
	}

	k.masterKey = key
	return k, nil
}

// Ephemeral reports whether the keyring runs on a generated throwaway key
// rather than a configured secret.
func (k *Keyring) Ephemeral() bool {
	return k.ephemeral
}

// DeriveKey derives a 32-byte key bound to the given scope. The scope string
// is mixed into the KDF secret before salting, so keys derived for different
// purposes are unrelated even under identical salts. The derived key is valid
// for a single operation and must not be persisted.
func (k *Keyring) DeriveKey(scope string, salt []byte) ([]byte, error) {
	if len(salt) == 0 {
		return nil, ErrInvalidSalt
	}

	secret := make([]byte, 0, len(k.masterKey)+len(scope))
	secret = append(secret, k.masterKey...)
	secret = append(secret, scope...)

	key, err := scrypt.Key(secret, salt, scryptN, scryptR, scryptP, DerivedKeySize)
	if err != nil {
		// A KDF failure is fatal for the operation; there is no weaker
		// fallback scheme.
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}
	return key, nil
}

// GenerateMasterKey creates a new random 32-byte master key.
func GenerateMasterKey() ([]byte, error) {
	key := make([]byte, MasterKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, errors.Join(ErrKeyGenerationFailed, err)
	}
	return key, nil
}
