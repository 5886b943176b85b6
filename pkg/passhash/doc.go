// Package passhash hashes passwords with scrypt and verifies them in
// constant time.
//
// Records are encoded as <saltHex>:<hashHex> with a 32-byte salt and 64-byte
// digest. The work factor is fixed and intentionally higher than the
// scope-key KDF in pkg/keyring, since password digests must resist offline
// attack over their whole lifetime.
//
//	record, err := passhash.Hash("correct horse battery staple")
//	ok, err := passhash.Verify(candidate, record)
//
// Verify returns (false, nil) for a wrong password; errors are reserved for
// malformed records and KDF failures.
package passhash
