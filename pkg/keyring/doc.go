// Package keyring owns the process-wide master secret and derives scope-bound
// key material from it for the encryption and hashing packages.
//
// The master key is loaded exactly once, inside New, from a pluggable Source.
// New blocks until the key is materialized, which makes the keyring an
// explicit initialization barrier: any component constructed with a *Keyring
// can assume the key exists and will never change. If the source reports no
// key, a random ephemeral key is generated and a warning is logged — useful
// for development, unsuitable for multi-instance or restart-persistent
// deployments.
//
// Scoped keys are derived with scrypt over masterKey||scope with a
// caller-supplied salt. Because the scope string is part of the KDF secret, a
// key derived for one purpose (say "user:42:profile") can never decrypt data
// encrypted under another, even if salts collide.
//
// # Usage
//
//	source, err := keyring.NewEnvSource()
//	if err != nil {
//	    // handle configuration error
//	}
//
//	kr, err := keyring.New(ctx, source, keyring.WithLogger(log))
//	if err != nil {
//	    // fatal: no usable master key
//	}
//
//	key, err := kr.DeriveKey("user:42:profile", salt)
//
// Derived keys are single-use: callers request one per operation and discard
// it when the operation completes.
package keyring
