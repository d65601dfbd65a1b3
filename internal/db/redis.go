package db

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNoRedis = errors.New("redis is not configured")

// nonceScript stores max(candidate, last+1) and returns it.
var nonceScript = redis.NewScript(`
local last = tonumber(redis.call('GET', KEYS[1]) or '0')
local now = tonumber(ARGV[1])
if now <= last then
	now = last + 1
end
redis.call('SET', KEYS[1], now)
return now
`)

// NextNonce atomically advances the nonce kept under key.
func (s Storage) NextNonce(ctx context.Context, key string, candidate int64) (int64, error) {
	if s.rds == nil {
		return 0, ErrNoRedis
	}
	return nonceScript.Run(ctx, s.rds, []string{key}, candidate).Int64()
}

func (s Storage) SetCache(ctx context.Context, key string, value []byte, exp time.Duration) error {
	if s.rds == nil {
		return ErrNoRedis
	}
	return s.rds.Set(ctx, key, value, exp).Err()
}

// GetCache returns redis.Nil when the key is absent.
func (s Storage) GetCache(ctx context.Context, key string) ([]byte, error) {
	if s.rds == nil {
		return nil, ErrNoRedis
	}
	return s.rds.Get(ctx, key).Bytes()
}
