package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/securekit/pkg/otp"
)

const (
	recKeyPrefix  = "otp:rec:"
	idxKeyPrefix  = "otp:idx:"
	lockKeyPrefix = "otp:lock:"

	// indexDepth bounds the per-key history; older entries are only needed
	// for the cooldown check and exhaustion classification, both of which
	// look at the most recent records.
	indexDepth = 10

	lockTTL       = 10 * time.Second
	lockRetryWait = 25 * time.Millisecond
)

// Store implements otp.Store on Redis. Records live under otp:rec:{id} with
// a TTL covering expiry plus retention; a per-(userID, type) index list
// under otp:idx:* orders them newest first.
//
// The store also implements otp.Locker with a SET NX lock per (userID,
// type), so concurrent service instances serialize their create and verify
// sequences the same way the Postgres backend does with advisory locks.
type Store struct {
	client    *redis.Client
	retention time.Duration
}

type StoreOption func(*Store)

// WithRetention overrides how long consumed records stay readable. It should
// match the service's cleanup retention.
func WithRetention(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.retention = d
		}
	}
}

// New creates a store over an established client.
func New(client *redis.Client, opts ...StoreOption) *Store {
	s := &Store{
		client:    client,
		retention: 30 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// record is the stored JSON shape. Kept separate from otp.Record so the
// persisted format stays stable independent of the domain struct.
type record struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Code       string    `json:"code"`
	Type       string    `json:"type"`
	Identifier string    `json:"identifier,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
	IsUsed     bool      `json:"is_used"`
	Attempts   int       `json:"attempts"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toStored(rec *otp.Record) *record {
	return &record{
		ID:         rec.ID.String(),
		UserID:     rec.UserID,
		Code:       rec.Code,
		Type:       string(rec.Type),
		Identifier: rec.Identifier,
		ExpiresAt:  rec.ExpiresAt,
		IsUsed:     rec.IsUsed,
		Attempts:   rec.Attempts,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
}

func (r *record) toDomain() (*otp.Record, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, err
	}
	return &otp.Record{
		ID:         id,
		UserID:     r.UserID,
		Code:       r.Code,
		Type:       otp.Type(r.Type),
		Identifier: r.Identifier,
		ExpiresAt:  r.ExpiresAt,
		IsUsed:     r.IsUsed,
		Attempts:   r.Attempts,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}, nil
}

func recKey(id string) string {
	return recKeyPrefix + id
}

func idxKey(userID string, typ otp.Type) string {
	return idxKeyPrefix + userID + ":" + string(typ)
}

func (s *Store) InvalidateLive(ctx context.Context, userID string, typ otp.Type) error {
	recs, err := s.load(ctx, userID, typ)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, r := range recs {
		if r.IsUsed || r.ExpiresAt.Before(now) {
			continue
		}
		r.IsUsed = true
		r.UpdatedAt = now
		if err := s.persist(ctx, r, redis.KeepTTL); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) FindRecentSince(ctx context.Context, userID string, typ otp.Type, since time.Time) (*otp.Record, error) {
	recs, err := s.load(ctx, userID, typ)
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		if !r.CreatedAt.Before(since) {
			return r.toDomain()
		}
	}
	return nil, nil
}

func (s *Store) Insert(ctx context.Context, rec *otp.Record) error {
	stored := toStored(rec)
	ttl := time.Until(rec.ExpiresAt) + s.retention

	if err := s.persist(ctx, stored, ttl); err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	key := idxKey(rec.UserID, rec.Type)
	pipe.LPush(ctx, key, stored.ID)
	pipe.LTrim(ctx, key, 0, indexDepth-1)
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) FindLive(ctx context.Context, userID string, typ otp.Type, now time.Time) (*otp.Record, error) {
	recs, err := s.load(ctx, userID, typ)
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		if !r.IsUsed && r.ExpiresAt.After(now) {
			return r.toDomain()
		}
	}
	return nil, nil
}

func (s *Store) Save(ctx context.Context, rec *otp.Record) error {
	stored := toStored(rec)
	exists, err := s.client.Exists(ctx, recKey(stored.ID)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return otp.ErrRecordNotFound
	}
	return s.persist(ctx, stored, redis.KeepTTL)
}

// DeleteStale removes records Redis TTLs have not reclaimed yet: expired
// codes and consumed codes past retention. Index entries pointing at removed
// records are pruned lazily by load.
func (s *Store) DeleteStale(ctx context.Context, now, usedBefore time.Time) (int64, error) {
	var removed int64

	iter := s.client.Scan(ctx, 0, recKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return removed, err
		}

		var r record
		if err := json.Unmarshal(data, &r); err != nil {
			continue
		}

		stale := (!r.IsUsed && r.ExpiresAt.Before(now)) || (r.IsUsed && r.UpdatedAt.Before(usedBefore))
		if !stale {
			continue
		}
		n, err := s.client.Del(ctx, key).Result()
		if err != nil {
			return removed, err
		}
		removed += n
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}
	return removed, nil
}

// unlockScript releases the lock only if the caller still owns it.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// WithLock implements otp.Locker with a SET NX spin lock. The lock carries a
// random token so an instance can only release its own acquisition, and a
// TTL so a crashed holder cannot block the key forever.
func (s *Store) WithLock(ctx context.Context, userID string, typ otp.Type, fn func(ctx context.Context) error) error {
	key := lockKeyPrefix + userID + ":" + string(typ)
	token := uuid.New().String()

	for {
		ok, err := s.client.SetNX(ctx, key, token, lockTTL).Result()
		if err != nil {
			return err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryWait):
		}
	}
	defer func() {
		_ = unlockScript.Run(context.WithoutCancel(ctx), s.client, []string{key}, token).Err()
	}()

	return fn(ctx)
}

// load fetches all indexed records newest first, dropping index entries
// whose record key has already been reclaimed by TTL.
func (s *Store) load(ctx context.Context, userID string, typ otp.Type) ([]*record, error) {
	key := idxKey(userID, typ)
	ids, err := s.client.LRange(ctx, key, 0, indexDepth-1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	recs := make([]*record, 0, len(ids))
	for _, id := range ids {
		data, err := s.client.Get(ctx, recKey(id)).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				_ = s.client.LRem(ctx, key, 1, id).Err()
				continue
			}
			return nil, err
		}
		var r record
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, err
		}
		recs = append(recs, &r)
	}
	return recs, nil
}

func (s *Store) persist(ctx context.Context, r *record, ttl time.Duration) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, recKey(r.ID), data, ttl).Err()
}
