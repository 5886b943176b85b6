package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Payload type discriminators. A single byte stored in front of the plaintext
// records how the original value was serialized, so decryption restores the
// value explicitly instead of sniffing the decrypted bytes.
const (
	payloadText byte = 0x01
	payloadJSON byte = 0x02
)

// EncryptValue seals an arbitrary value. Strings are stored as raw text;
// everything else is serialized to canonical JSON. The chosen serialization
// is recorded in a one-byte discriminator ahead of the plaintext.
func (e *Encryptor) EncryptValue(v any, scope string) (*Envelope, error) {
	var plaintext []byte
	switch s := v.(type) {
	case string:
		plaintext = append([]byte{payloadText}, s...)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, errors.Join(ErrEncryptionFailed, err)
		}
		plaintext = append([]byte{payloadJSON}, data...)
	}
	return e.Encrypt(plaintext, scope)
}

// DecryptValue opens an envelope produced by EncryptValue and reconstructs
// the original value into T. A text payload requires T to be string; a JSON
// payload is unmarshaled into T. The discriminator is authenticated along
// with the rest of the plaintext, but callers must not use the recovered type
// for security-sensitive branching.
func DecryptValue[T any](e *Encryptor, env *Envelope, scope string) (T, error) {
	var out T

	plaintext, err := e.Decrypt(env, scope)
	if err != nil {
		return out, err
	}
	if len(plaintext) == 0 {
		return out, fmt.Errorf("%w: missing payload discriminator", ErrInvalidPayload)
	}

	disc, raw := plaintext[0], plaintext[1:]
	switch disc {
	case payloadText:
		p, ok := any(&out).(*string)
		if !ok {
			return out, fmt.Errorf("%w: payload is text, requested %T", ErrInvalidPayload, out)
		}
		*p = string(raw)
		return out, nil
	case payloadJSON:
		if err := json.Unmarshal(raw, &out); err != nil {
			return out, errors.Join(ErrInvalidPayload, err)
		}
		return out, nil
	default:
		return out, fmt.Errorf("%w: unknown discriminator 0x%02x", ErrInvalidPayload, disc)
	}
}
