// Package checkin keeps short-lived QR check-in codes. Issuing a new code for an
// activity invalidates the previous one.
package checkin

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Nguyentram30/activity-portal/internal/errs"
	"github.com/gofrs/uuid/v5"
	"github.com/redis/go-redis/v9"
)

// Store binds codes to activities for a limited time.
type Store interface {
	// Put binds code to activityID for ttl and drops the activity's previous code.
	Put(ctx context.Context, activityID uuid.UUID, code string, ttl time.Duration) error
	// Lookup resolves a live code; unknown or expired codes yield errs.ErrNotFound.
	Lookup(ctx context.Context, code string) (uuid.UUID, error)
}

// redisCmds is the subset of *redis.Client the store uses.
type redisCmds interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Redis stores codes as expiring keys.
type Redis struct{ rdb redisCmds }

func NewRedis(rdb redisCmds) *Redis { return &Redis{rdb: rdb} }

func codeKey(code string) string { return "qr_code:" + code }
func activityKey(activityID uuid.UUID) string { return "qr_activity:" + activityID.String() }

func (s *Redis) Put(ctx context.Context, activityID uuid.UUID, code string, ttl time.Duration) error {
	old, err := s.rdb.GetDel(ctx, activityKey(activityID)).Result()
	switch {
	case err == nil:
		if err := s.rdb.Del(ctx, codeKey(old)).Err(); err != nil {
			return err
		}
	case !errors.Is(err, redis.Nil):
		return err
	}
	if err := s.rdb.Set(ctx, codeKey(code), activityID.String(), ttl).Err(); err != nil {
		return err
	}
	return s.rdb.Set(ctx, activityKey(activityID), code, ttl).Err()
}

func (s *Redis) Lookup(ctx context.Context, code string) (uuid.UUID, error) {
	v, err := s.rdb.Get(ctx, codeKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, errs.ErrNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.FromString(v)
}

// Memory is a single-process Store used when no Redis is configured.
type Memory struct {
	mu      sync.Mutex
	codes   map[string]entry
	current map[uuid.UUID]string
	now     func() time.Time
}

type entry struct {
	activityID uuid.UUID
	expires    time.Time
}

func NewMemory() *Memory {
	return &Memory{codes: map[string]entry{}, current: map[uuid.UUID]string{}, now: time.Now}
}

func (m *Memory) Put(_ context.Context, activityID uuid.UUID, code string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep()
	if old, ok := m.current[activityID]; ok {
		delete(m.codes, old)
	}
	m.codes[code] = entry{activityID: activityID, expires: m.now().Add(ttl)}
	m.current[activityID] = code
	return nil
}

func (m *Memory) Lookup(_ context.Context, code string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.codes[code]
	if !ok || !m.now().Before(e.expires) {
		return uuid.Nil, errs.ErrNotFound
	}
	return e.activityID, nil
}

// sweep drops expired codes. Callers hold mu.
func (m *Memory) sweep() {
	now := m.now()
	for code, e := range m.codes {
		if !now.Before(e.expires) {
			delete(m.codes, code)
			if m.current[e.activityID] == code {
				delete(m.current, e.activityID)
			}
		}
	}
}
