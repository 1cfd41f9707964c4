package limiter

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCmds is the subset of *redis.Client the limiter uses.
type redisCmds interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	PTTL(ctx context.Context, key string) *redis.DurationCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Redis keeps fail counters and blocks as expiring keys.
type Redis struct {
	rdb    redisCmds
	policy Policy
}

// NewRedis constructs a Redis-backed limiter.
func NewRedis(rdb redisCmds, p Policy) *Redis {
	return &Redis{rdb: rdb, policy: p}
}

func (l *Redis) keys(subject string, ipHash []byte) (fails, block string) {
	id := subject + ":" + hex.EncodeToString(ipHash)
	return "login_fails:" + id, "login_block:" + id
}

func (l *Redis) Allow(ctx context.Context, subject string, ipHash []byte) (bool, time.Duration, error) {
	_, block := l.keys(subject, ipHash)
	ttl, err := l.rdb.PTTL(ctx, block).Result()
	if err != nil {
		return false, 0, err
	}
	if ttl > 0 {
		return false, ttl, nil
	}
	return true, 0, nil
}

func (l *Redis) Success(ctx context.Context, subject string, ipHash []byte) error {
	fails, block := l.keys(subject, ipHash)
	return l.rdb.Del(ctx, fails, block).Err()
}

func (l *Redis) Failure(ctx context.Context, subject string, ipHash []byte) (bool, time.Duration, error) {
	fails, block := l.keys(subject, ipHash)
	n, err := l.rdb.Incr(ctx, fails).Result()
	if err != nil {
		return false, 0, err
	}
	if n == 1 {
		if err := l.rdb.Expire(ctx, fails, l.policy.Window).Err(); err != nil {
			return false, 0, err
		}
	}
	if n < int64(l.policy.MaxFails) {
		return false, 0, nil
	}
	if err := l.rdb.Set(ctx, block, "1", l.policy.BlockFor).Err(); err != nil {
		return false, 0, err
	}
	if err := l.rdb.Del(ctx, fails).Err(); err != nil {
		return false, 0, err
	}
	return true, l.policy.BlockFor, nil
}
