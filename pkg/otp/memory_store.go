package otp

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store in process memory. It honors the same
// atomicity contract as persistent backends through a single internal lock,
// which is more than enough for its intended uses: tests and single-instance
// development setups.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string][]*Record // keyed by userID|type, newest last
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string][]*Record),
	}
}

func memKey(userID string, typ Type) string {
	return userID + "\x00" + string(typ)
}

func (m *MemoryStore) InvalidateLive(ctx context.Context, userID string, typ Type) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for _, rec := range m.records[memKey(userID, typ)] {
		if !rec.IsUsed {
			rec.IsUsed = true
			rec.UpdatedAt = now
		}
	}
	return nil
}

func (m *MemoryStore) FindRecentSince(ctx context.Context, userID string, typ Type, since time.Time) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	recs := m.records[memKey(userID, typ)]
	for i := len(recs) - 1; i >= 0; i-- {
		if !recs[i].CreatedAt.Before(since) {
			return copyRecord(recs[i]), nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) Insert(ctx context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memKey(rec.UserID, rec.Type)
	m.records[key] = append(m.records[key], copyRecord(rec))
	return nil
}

func (m *MemoryStore) FindLive(ctx context.Context, userID string, typ Type, now time.Time) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	recs := m.records[memKey(userID, typ)]
	for i := len(recs) - 1; i >= 0; i-- {
		if recs[i].Live(now) {
			return copyRecord(recs[i]), nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) Save(ctx context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, stored := range m.records[memKey(rec.UserID, rec.Type)] {
		if stored.ID == rec.ID {
			*stored = *rec
			return nil
		}
	}
	return ErrRecordNotFound
}

func (m *MemoryStore) DeleteStale(ctx context.Context, now, usedBefore time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for key, recs := range m.records {
		kept := recs[:0]
		for _, rec := range recs {
			stale := (!rec.IsUsed && rec.ExpiresAt.Before(now)) ||
				(rec.IsUsed && rec.UpdatedAt.Before(usedBefore))
			if stale {
				removed++
				continue
			}
			kept = append(kept, rec)
		}
		if len(kept) == 0 {
			delete(m.records, key)
		} else {
			m.records[key] = kept
		}
	}
	return removed, nil
}

// copyRecord keeps callers from mutating stored state outside Save.
func copyRecord(rec *Record) *Record {
	cp := *rec
	return &cp
}
