// Package otp manages the full lifecycle of one-time codes: creation with a
// per-user cooldown, delivery handoff, attempt-limited verification, and
// periodic cleanup of dead records.
//
// # State machine
//
// Each (userID, type) pair holds at most one live code. A record moves
// through none → live → {consumed | expired | superseded}, and every
// terminal state is final. Create supersedes the previous live record before
// anything else, so the single-live invariant holds even when a new code is
// requested early.
//
// # Sequencing invariants
//
// Two orderings are load-bearing and must not be rearranged:
//
//   - Create invalidates the prior live record, then checks the cooldown.
//   - Verify increments and persists the attempt counter before comparing
//     the code, so a crash mid-verification still consumes the attempt.
//
// Both sequences run under a per-(userID, type) lock inside the process, and
// the Store contract requires equivalent serialization across processes.
//
// # Usage
//
//	store := otp.NewMemoryStore() // or pgstore / redisstore
//	svc := otp.NewService(store,
//	    otp.WithChannel(emailChannel),
//	    otp.WithLogger(log),
//	)
//
//	res, err := svc.Create(ctx, userID, otp.TypeLogin, "user@example.com")
//	// res carries only the record ID and expiry; the raw code went to the
//	// delivery channel.
//
//	ok, err := svc.Verify(ctx, userID, submittedCode, otp.TypeLogin)
//	switch {
//	case err != nil:
//	    // terminal: ErrNotFoundOrExpired, ErrTooManyAttempts, store errors
//	case !ok:
//	    // wrong code, attempts remaining - offer a retry
//	default:
//	    // verified; record is consumed
//	}
//
// # Observability
//
// The service emits named events (otp.created, otp.verify.success,
// otp.verify.failure, otp.cooldown.rejected, otp.attempts.exceeded) through
// its slog logger. Delivery identifiers are masked before logging and raw
// codes never reach the sink on any code path.
package otp
