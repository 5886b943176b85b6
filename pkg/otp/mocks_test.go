package otp_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrymomot/securekit/pkg/otp"
)

// fakeClock is a controllable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// captureChannel records delivered codes; the only sanctioned way for tests
// to learn a generated code.
type captureChannel struct {
	mu         sync.Mutex
	deliveries []delivered
	failWith   error
}

type delivered struct {
	destination string
	code        string
	purpose     otp.Type
}

func (c *captureChannel) SendCode(ctx context.Context, destination, code string, purpose otp.Type) (otp.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWith != nil {
		return otp.Receipt{}, c.failWith
	}
	c.deliveries = append(c.deliveries, delivered{destination: destination, code: code, purpose: purpose})
	return otp.Receipt{Delivered: true, MessageID: "msg-1"}, nil
}

func (c *captureChannel) last() delivered {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deliveries[len(c.deliveries)-1]
}

func (c *captureChannel) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.deliveries)
}

// fakeVerifier records verified-flag flips.
type fakeVerifier struct {
	mu     sync.Mutex
	emails []string
	phones []string
	err    error
}

func (v *fakeVerifier) SetEmailVerified(ctx context.Context, userID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err != nil {
		return v.err
	}
	v.emails = append(v.emails, userID)
	return nil
}

func (v *fakeVerifier) SetPhoneVerified(ctx context.Context, userID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err != nil {
		return v.err
	}
	v.phones = append(v.phones, userID)
	return nil
}

// slowStore delays FindLive until the context expires, for timeout tests.
type slowStore struct {
	*otp.MemoryStore
	delay time.Duration
}

func (s *slowStore) FindLive(ctx context.Context, userID string, typ otp.Type, now time.Time) (*otp.Record, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.delay):
		return s.MemoryStore.FindLive(ctx, userID, typ, now)
	}
}

// failingStore returns a fixed error from every operation.
type failingStore struct {
	err error
}

func (s *failingStore) InvalidateLive(ctx context.Context, userID string, typ otp.Type) error {
	return s.err
}

func (s *failingStore) FindRecentSince(ctx context.Context, userID string, typ otp.Type, since time.Time) (*otp.Record, error) {
	return nil, s.err
}

func (s *failingStore) Insert(ctx context.Context, rec *otp.Record) error { return s.err }

func (s *failingStore) FindLive(ctx context.Context, userID string, typ otp.Type, now time.Time) (*otp.Record, error) {
	return nil, s.err
}

func (s *failingStore) Save(ctx context.Context, rec *otp.Record) error { return s.err }

func (s *failingStore) DeleteStale(ctx context.Context, now, usedBefore time.Time) (int64, error) {
	return 0, s.err
}

// lockerStore wraps the memory store with a Locker implementation that
// counts acquisitions.
type lockerStore struct {
	*otp.MemoryStore
	mu    sync.Mutex
	locks int
}

func (s *lockerStore) WithLock(ctx context.Context, userID string, typ otp.Type, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	s.locks++
	s.mu.Unlock()
	return fn(ctx)
}

var errStoreDown = errors.New("store down")
