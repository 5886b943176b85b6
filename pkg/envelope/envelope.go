package envelope

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// IVSize is the AES-GCM nonce size used by this package. 16 bytes rather
	// than the Go default of 12 to stay bit-exact with the existing wire
	// format of previously encrypted data.
	IVSize = 16

	// SaltSize is the KDF salt size embedded in every envelope.
	SaltSize = 32

	// TagSize is the GCM authentication tag size.
	TagSize = 16

	fieldCount = 4
)

// Envelope is the self-contained encrypted unit: everything needed to decrypt
// except the master key. The wire form is four colon-separated hex fields in
// fixed order: iv:salt:tag:ciphertext.
type Envelope struct {
	IV         []byte
	Salt       []byte
	Tag        []byte
	Ciphertext []byte
}

// String encodes the envelope into its wire form.
func (e *Envelope) String() string {
	return fmt.Sprintf("%s:%s:%s:%s",
		hex.EncodeToString(e.IV),
		hex.EncodeToString(e.Salt),
		hex.EncodeToString(e.Tag),
		hex.EncodeToString(e.Ciphertext),
	)
}

// Parse decodes the wire form back into an Envelope. Anything other than
// exactly four non-empty hex fields of the expected sizes is rejected with
// ErrMalformedEnvelope.
func Parse(s string) (*Envelope, error) {
	parts := strings.Split(s, ":")
	if len(parts) != fieldCount {
		return nil, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedEnvelope, fieldCount, len(parts))
	}

	fields := make([][]byte, fieldCount)
	for i, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("%w: empty field at position %d", ErrMalformedEnvelope, i)
		}
		decoded, err := hex.DecodeString(part)
		if err != nil {
			return nil, fmt.Errorf("%w: field %d is not valid hex", ErrMalformedEnvelope, i)
		}
		fields[i] = decoded
	}

	env := &Envelope{
		IV:         fields[0],
		Salt:       fields[1],
		Tag:        fields[2],
		Ciphertext: fields[3],
	}

	if len(env.IV) != IVSize || len(env.Salt) != SaltSize || len(env.Tag) != TagSize {
		return nil, fmt.Errorf("%w: unexpected field length", ErrMalformedEnvelope)
	}

	return env, nil
}
