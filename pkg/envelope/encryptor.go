package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"

	"github.com/dmitrymomot/securekit/pkg/keyring"
)

// DefaultScope is used when callers do not partition their key space.
const DefaultScope = "default"

// Encryptor performs authenticated encryption under keys derived from the
// keyring. It is stateless apart from the keyring reference and safe for
// concurrent use.
type Encryptor struct {
	keys *keyring.Keyring
}

// New creates an Encryptor backed by the given keyring.
func New(keys *keyring.Keyring) *Encryptor {
	return &Encryptor{keys: keys}
}

// Encrypt seals plaintext under a key derived for scope and returns the
// envelope. A fresh random salt and IV are generated on every call; neither
// is ever accepted from the caller, which structurally rules out IV reuse
// under a derived key. An empty scope falls back to DefaultScope.
func (e *Encryptor) Encrypt(plaintext []byte, scope string) (*Envelope, error) {
	if scope == "" {
		scope = DefaultScope
	}

	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}
	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	aead, err := e.newAEAD(scope, salt)
	if err != nil {
		return nil, err
	}

	// Seal appends the tag to the ciphertext; the wire format carries it as
	// a separate field, so split it off.
	sealed := aead.Seal(nil, iv, plaintext, nil)
	cut := len(sealed) - TagSize

	return &Envelope{
		IV:         iv,
		Salt:       salt,
		Tag:        sealed[cut:],
		Ciphertext: sealed[:cut],
	}, nil
}

// Decrypt opens an envelope using a key re-derived from the embedded salt and
// the caller's scope. A tag mismatch, whether from tampering or a wrong
// scope, fails closed with ErrAuthenticationFailed and never yields partial
// plaintext.
func (e *Encryptor) Decrypt(env *Envelope, scope string) ([]byte, error) {
	if scope == "" {
		scope = DefaultScope
	}

	aead, err := e.newAEAD(scope, env.Salt)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(env.Ciphertext)+len(env.Tag))
	sealed = append(sealed, env.Ciphertext...)
	sealed = append(sealed, env.Tag...)

	plaintext, err := aead.Open(nil, env.IV, sealed, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

// EncryptString is a convenience wrapper returning the wire form directly.
func (e *Encryptor) EncryptString(plaintext, scope string) (string, error) {
	env, err := e.Encrypt([]byte(plaintext), scope)
	if err != nil {
		return "", err
	}
	return env.String(), nil
}

// DecryptString parses the wire form and decrypts it.
func (e *Encryptor) DecryptString(encoded, scope string) (string, error) {
	env, err := Parse(encoded)
	if err != nil {
		return "", err
	}
	plaintext, err := e.Decrypt(env, scope)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func (e *Encryptor) newAEAD(scope string, salt []byte) (cipher.AEAD, error) {
	key, err := e.keys.DeriveKey(scope, salt)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, IVSize)
	if err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}
	return aead, nil
}
