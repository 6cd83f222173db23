package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// allowScript increments the window counter, starting the window on first use
var allowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisLimiter shares fixed windows across server instances through Redis
type RedisLimiter struct {
	rdb    *redis.Client
	config Config
}

// NewRedisLimiter creates a limiter on an existing client
func NewRedisLimiter(rdb *redis.Client, config Config) *RedisLimiter {
	return &RedisLimiter{
		rdb:    rdb,
		config: config,
	}
}

// Allow records one request for key
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := allowScript.Run(ctx, l.rdb, []string{keyPrefix + key}, l.config.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("unexpected rate limit reply: %v", res)
	}

	return decide(l.config.Quota, int(res[0]), time.Duration(res[1])*time.Millisecond), nil
}

// Close closes the Redis client
func (l *RedisLimiter) Close() error {
	return l.rdb.Close()
}

var _ Limiter = (*RedisLimiter)(nil)
