package otp

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/securekit/pkg/logger"
	"github.com/dmitrymomot/securekit/pkg/randtoken"
)

// Event names emitted to the log sink. Identifiers are always masked before
// they reach these events; raw codes never appear under any of them.
const (
	EventCreated          = "otp.created"
	EventVerifySuccess    = "otp.verify.success"
	EventVerifyFailure    = "otp.verify.failure"
	EventCooldownRejected = "otp.cooldown.rejected"
	EventAttemptsExceeded = "otp.attempts.exceeded"
)

const (
	// DefaultCooldown is the minimum interval between two Create calls for
	// the same (user, type) pair.
	DefaultCooldown = 60 * time.Second

	// DefaultTTL is how long a freshly created code stays valid.
	DefaultTTL = 10 * time.Minute

	// DefaultMaxAttempts is the verification attempt budget per code.
	DefaultMaxAttempts = 5

	// DefaultCodeDigits is the length of generated numeric codes.
	DefaultCodeDigits = 6

	// DefaultUsedRetention is how long consumed records are kept before the
	// cleanup sweep removes them.
	DefaultUsedRetention = 30 * 24 * time.Hour
)

// Service orchestrates the one-time-code lifecycle: creation with cooldown
// and single-live-record enforcement, delivery handoff, attempt-limited
// verification, and periodic cleanup.
//
// Operations on the same (userID, type) pair are serialized through a keyed
// lock, so two concurrent Create calls cannot both pass the cooldown check
// and two concurrent Verify calls cannot observe the same attempt count.
type Service struct {
	store        Store
	channel      Channel
	verifier     UserVerifier
	logger       *slog.Logger
	cooldown     time.Duration
	ttl          time.Duration
	maxAttempts  int
	codeDigits   int
	retention    time.Duration
	storeTimeout time.Duration
	now          func() time.Time

	locks keyedLocks
}

type Option func(*Service)

// WithLogger sets a custom logger for lifecycle events.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithChannel sets the delivery collaborator that receives raw codes.
func WithChannel(ch Channel) Option {
	return func(s *Service) { s.channel = ch }
}

// WithUserVerifier sets the collaborator that flips verified flags after a
// successful TypeVerification check.
func WithUserVerifier(v UserVerifier) Option {
	return func(s *Service) { s.verifier = v }
}

// WithCooldown overrides the creation cooldown window.
func WithCooldown(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.cooldown = d
		}
	}
}

// WithTTL overrides the code validity window.
func WithTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithMaxAttempts overrides the verification attempt budget.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithUsedRetention overrides how long consumed records survive cleanup.
func WithUsedRetention(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithStoreTimeout bounds every store and delivery call. On expiry the
// operation fails with ErrUpstreamTimeout; retrying is the caller's policy.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// WithTimeSource replaces the clock. Intended for tests.
func WithTimeSource(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a lifecycle service over the given store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:       store,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		cooldown:    DefaultCooldown,
		ttl:         DefaultTTL,
		maxAttempts: DefaultMaxAttempts,
		codeDigits:  DefaultCodeDigits,
		retention:   DefaultUsedRetention,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create mints a new code for (userID, typ), supersedes any live predecessor,
// and hands the raw code to the delivery channel. The returned result carries
// only the record ID and expiry; generic callers never see the code itself.
//
// A request inside the cooldown window fails with a CooldownError carrying
// the seconds remaining. The prior live record is invalidated before the
// cooldown check, and both steps run under the per-key lock, matching the
// single-transaction consistency the store contract requires.
func (s *Service) Create(ctx context.Context, userID string, typ Type, identifier string) (*CreateResult, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	if !typ.Valid() {
		return nil, ErrInvalidType
	}

	var result *CreateResult
	err := s.withKey(ctx, userID, typ, func(ctx context.Context) (err error) {
		result, err = s.create(ctx, userID, typ, identifier)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) create(ctx context.Context, userID string, typ Type, identifier string) (*CreateResult, error) {
	now := s.now()

	if err := s.storeCall(ctx, func(ctx context.Context) error {
		return s.store.InvalidateLive(ctx, userID, typ)
	}); err != nil {
		return nil, err
	}

	var recent *Record
	if err := s.storeCall(ctx, func(ctx context.Context) (err error) {
		recent, err = s.store.FindRecentSince(ctx, userID, typ, now.Add(-s.cooldown))
		return err
	}); err != nil {
		return nil, err
	}
	if recent != nil {
		remaining := s.cooldown - now.Sub(recent.CreatedAt)
		seconds := int((remaining + time.Second - 1) / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		s.logger.InfoContext(ctx, "otp creation rejected by cooldown",
			logger.Event(EventCooldownRejected),
			logger.UserID(userID),
			slog.String("type", string(typ)),
			slog.Int("seconds_remaining", seconds),
		)
		return nil, &CooldownError{SecondsRemaining: seconds}
	}

	code, err := randtoken.NumericCode(s.codeDigits)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		ID:         uuid.New(),
		UserID:     userID,
		Code:       code,
		Type:       typ,
		Identifier: identifier,
		ExpiresAt:  now.Add(s.ttl),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.storeCall(ctx, func(ctx context.Context) error {
		return s.store.Insert(ctx, rec)
	}); err != nil {
		return nil, err
	}

	// The raw code crosses to the delivery collaborator exactly once and is
	// not retained past this call.
	if s.channel != nil && identifier != "" {
		receipt, err := s.deliver(ctx, identifier, code, typ)
		if err != nil {
			return nil, err
		}
		if !receipt.Delivered {
			return nil, ErrDeliveryFailed
		}
	}

	s.logger.InfoContext(ctx, "otp created",
		logger.Event(EventCreated),
		logger.UserID(userID),
		slog.String("type", string(typ)),
		slog.String("identifier", MaskIdentifier(identifier)),
		slog.Time("expires_at", rec.ExpiresAt),
	)

	return &CreateResult{ID: rec.ID, ExpiresAt: rec.ExpiresAt}, nil
}

// Verify checks a supplied code against the live record for (userID, typ).
//
// A wrong code with attempts remaining returns (false, nil) so callers can
// offer a retry; the terminal conditions (no live code, budget exhausted)
// return errors. The attempt counter is incremented and persisted before the
// code is evaluated, so a crash between increment and comparison still burns
// the attempt — audit fidelity is worth one wasted unit of budget.
func (s *Service) Verify(ctx context.Context, userID, code string, typ Type) (bool, error) {
	if userID == "" {
		return false, ErrInvalidUserID
	}
	if !typ.Valid() {
		return false, ErrInvalidType
	}

	var ok bool
	err := s.withKey(ctx, userID, typ, func(ctx context.Context) (err error) {
		ok, err = s.verify(ctx, userID, code, typ)
		return err
	})
	return ok, err
}

func (s *Service) verify(ctx context.Context, userID, code string, typ Type) (bool, error) {
	now := s.now()

	var rec *Record
	if err := s.storeCall(ctx, func(ctx context.Context) (err error) {
		rec, err = s.store.FindLive(ctx, userID, typ, now)
		return err
	}); err != nil {
		return false, err
	}
	if rec == nil {
		return false, s.classifyDead(ctx, userID, typ, now)
	}

	rec.Attempts++
	rec.UpdatedAt = now
	if err := s.storeCall(ctx, func(ctx context.Context) error {
		return s.store.Save(ctx, rec)
	}); err != nil {
		return false, err
	}

	if rec.Attempts > s.maxAttempts {
		rec.IsUsed = true
		rec.UpdatedAt = now
		if err := s.storeCall(ctx, func(ctx context.Context) error {
			return s.store.Save(ctx, rec)
		}); err != nil {
			return false, err
		}
		s.logger.WarnContext(ctx, "otp attempt budget exhausted",
			logger.Event(EventAttemptsExceeded),
			logger.UserID(userID),
			slog.String("type", string(typ)),
			slog.Int("attempts", rec.Attempts),
		)
		return false, ErrTooManyAttempts
	}

	if !codesEqual(code, rec.Code) {
		s.logger.InfoContext(ctx, "otp verification failed",
			logger.Event(EventVerifyFailure),
			logger.UserID(userID),
			slog.String("type", string(typ)),
			slog.Int("attempts", rec.Attempts),
		)
		return false, nil
	}

	rec.IsUsed = true
	rec.UpdatedAt = now
	if err := s.storeCall(ctx, func(ctx context.Context) error {
		return s.store.Save(ctx, rec)
	}); err != nil {
		return false, err
	}

	s.runSideEffects(ctx, rec)

	s.logger.InfoContext(ctx, "otp verified",
		logger.Event(EventVerifySuccess),
		logger.UserID(userID),
		slog.String("type", string(typ)),
		slog.String("identifier", MaskIdentifier(rec.Identifier)),
	)
	return true, nil
}

// classifyDead distinguishes an exhausted code from a missing or expired one
// so a caller retrying after TooManyAttempts keeps seeing TooManyAttempts
// until the record expires.
func (s *Service) classifyDead(ctx context.Context, userID string, typ Type, now time.Time) error {
	var latest *Record
	if err := s.storeCall(ctx, func(ctx context.Context) (err error) {
		latest, err = s.store.FindRecentSince(ctx, userID, typ, now.Add(-s.ttl))
		return err
	}); err != nil {
		return err
	}
	if latest != nil && latest.IsUsed && latest.Attempts > s.maxAttempts && now.Before(latest.ExpiresAt) {
		return ErrTooManyAttempts
	}
	return ErrNotFoundOrExpired
}

// runSideEffects flips the verified flag after a successful verification
// code. Failures are logged, not propagated: the code was correct and the
// record is already consumed.
func (s *Service) runSideEffects(ctx context.Context, rec *Record) {
	if rec.Type != TypeVerification || s.verifier == nil {
		return
	}

	var err error
	if strings.Contains(rec.Identifier, "@") {
		err = s.verifier.SetEmailVerified(ctx, rec.UserID)
	} else {
		err = s.verifier.SetPhoneVerified(ctx, rec.UserID)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to update verified flag",
			logger.UserID(rec.UserID),
			slog.String("identifier", MaskIdentifier(rec.Identifier)),
			logger.Error(err),
			logger.Component("otp"),
		)
	}
}

// Cleanup deletes expired unused records and consumed records past the retention
// window. Failures are logged and swallowed: this is maintenance, not a
// correctness path.
func (s *Service) Cleanup(ctx context.Context) (int64, error) {
	now := s.now()
	removed, err := s.store.DeleteStale(ctx, now, now.Add(-s.retention))
	if err != nil {
		s.logger.WarnContext(ctx, "otp cleanup failed",
			logger.Error(err),
			logger.Component("otp"),
		)
		return 0, nil
	}
	return removed, nil
}

// StartCleanup runs Cleanup on the given interval until ctx is canceled.
func (s *Service) StartCleanup(ctx context.Context, every time.Duration) {
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = s.Cleanup(ctx)
			}
		}
	}()
}

func (s *Service) deliver(ctx context.Context, destination, code string, typ Type) (Receipt, error) {
	if s.storeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.storeTimeout)
		defer cancel()
	}
	receipt, err := s.channel.SendCode(ctx, destination, code, typ)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Receipt{}, errors.Join(ErrUpstreamTimeout, err)
		}
		return Receipt{}, errors.Join(ErrDeliveryFailed, err)
	}
	return receipt, nil
}

// withKey serializes the wrapped sequence per (userID, type): first through
// the in-process keyed lock, then through the store's cross-process lock
// when the backend provides one.
func (s *Service) withKey(ctx context.Context, userID string, typ Type, fn func(context.Context) error) error {
	unlock := s.locks.lock(userID, typ)
	defer unlock()

	if l, ok := s.store.(Locker); ok {
		return l.WithLock(ctx, userID, typ, fn)
	}
	return fn(ctx)
}

// storeCall runs a store operation under the configured timeout and maps
// failures into the service error taxonomy.
func (s *Service) storeCall(ctx context.Context, fn func(context.Context) error) error {
	if s.storeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.storeTimeout)
		defer cancel()
	}
	if err := fn(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return errors.Join(ErrUpstreamTimeout, err)
		}
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// codesEqual compares two codes in constant time. Both are padded to equal
// length first so the comparison cost does not leak length information.
func codesEqual(a, b string) bool {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	pa := make([]byte, n)
	pb := make([]byte, n)
	copy(pa, a)
	copy(pb, b)

	sameLen := subtle.ConstantTimeEq(int32(len(a)), int32(len(b)))
	sameBytes := subtle.ConstantTimeCompare(pa, pb)
	return sameLen&sameBytes == 1
}

// keyedLocks serializes operations per (userID, type) key. Entries are
// refcounted and removed when the last holder releases, so the map stays
// bounded by the number of in-flight operations.
type keyedLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedLocks) lock(userID string, typ Type) (unlock func()) {
	key := userID + "\x00" + string(typ)

	k.mu.Lock()
	if k.entries == nil {
		k.entries = make(map[string]*lockEntry)
	}
	e, ok := k.entries[key]
	if !ok {
		e = &lockEntry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
