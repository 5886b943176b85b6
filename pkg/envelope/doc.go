// Package envelope provides scoped authenticated encryption over keys
// derived from a keyring.
//
// Every Encrypt call generates a fresh random 32-byte salt and 16-byte IV,
// derives a one-shot AES-256 key bound to the caller's scope string, and
// seals the plaintext with AES-GCM (128-bit tag). The result is a
// self-contained envelope whose wire form is four colon-separated hex fields
// in fixed order:
//
//	<ivHex>:<saltHex>:<tagHex>:<ciphertextHex>
//
// The format is stable and must not change: data encrypted by earlier
// deployments is decrypted by parsing exactly this shape.
//
// Scope strings (e.g. "user:42:profile") partition the key space by logical
// purpose. The scope is mixed into the KDF secret, so an envelope sealed
// under one scope fails authentication when opened under another — there is
// no way to decrypt cross-scope, even accidentally.
//
// # Usage
//
//	kr, _ := keyring.New(ctx, source)
//	enc := envelope.New(kr)
//
//	env, err := enc.Encrypt([]byte("card-on-file"), "user:42:billing")
//	wire := env.String()
//
//	parsed, err := envelope.Parse(wire)
//	plain, err := enc.Decrypt(parsed, "user:42:billing")
//
// Structured values go through EncryptValue/DecryptValue, which store a
// one-byte type discriminator alongside the plaintext instead of guessing
// the shape of decrypted bytes.
//
// # Error Handling
//
// Parse failures return ErrMalformedEnvelope; any tag mismatch (tampering,
// truncation, wrong scope) returns ErrAuthenticationFailed with no partial
// plaintext. Match with errors.Is.
package envelope
