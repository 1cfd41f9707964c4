package checkin

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Nguyentram30/activity-portal/internal/errs"
	"github.com/gofrs/uuid/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// fakeRedis keeps string values; expiry is recorded, not simulated.
type fakeRedis struct {
	mu   sync.Mutex
	vals map[string]string
	ttl  map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{vals: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, exp time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vals[key] = value.(string)
	f.ttl[key] = exp
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vals[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) GetDel(ctx context.Context, key string) *redis.StringCmd {
	cmd := f.Get(ctx, key)
	f.mu.Lock()
	delete(f.vals, key)
	f.mu.Unlock()
	return cmd
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.vals[k]; ok {
			n++
		}
		delete(f.vals, k)
	}
	return redis.NewIntResult(n, nil)
}

func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	act := uuid.Must(uuid.NewV4())

	_, err := s.Lookup(ctx, "missing")
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, s.Put(ctx, act, "first", time.Minute))
	got, err := s.Lookup(ctx, "first")
	require.NoError(t, err)
	require.Equal(t, act, got)

	// Re-issuing replaces the old code.
	require.NoError(t, s.Put(ctx, act, "second", time.Minute))
	_, err = s.Lookup(ctx, "first")
	require.ErrorIs(t, err, errs.ErrNotFound)
	got, err = s.Lookup(ctx, "second")
	require.NoError(t, err)
	require.Equal(t, act, got)

	// Codes of other activities are untouched.
	other := uuid.Must(uuid.NewV4())
	require.NoError(t, s.Put(ctx, other, "third", time.Minute))
	got, err = s.Lookup(ctx, "second")
	require.NoError(t, err)
	require.Equal(t, act, got)
}

func TestRedisStore(t *testing.T) {
	t.Parallel()

	rdb := newFakeRedis()
	testStore(t, NewRedis(rdb))
	require.Equal(t, time.Minute, rdb.ttl["qr_code:second"])
	require.Equal(t, "second", rdb.vals["qr_activity:"+rdb.vals["qr_code:second"]])
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	testStore(t, NewMemory())
}

func TestMemoryStore_Expiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }
	act := uuid.Must(uuid.NewV4())

	require.NoError(t, m.Put(ctx, act, "code", 10*time.Minute))
	now = now.Add(10 * time.Minute)
	_, err := m.Lookup(ctx, "code")
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, m.Put(ctx, uuid.Must(uuid.NewV4()), "other", time.Minute))
	require.NotContains(t, m.codes, "code")
	require.NotContains(t, m.current, act)
}
