package auth

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Fixed-window counter: first INCR in a window sets the expiry.
const loginAllowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

// LoginLimiter bounds how often a key (normally an email) may attempt to log
// in. A nil limiter means rate limiting is disabled.
type LoginLimiter interface {
	Allow(ctx context.Context, key string) bool
}

type redisLoginLimiter struct {
	client *redis.Client
	window time.Duration
	max    int
	prefix string
}

// NewRedisLoginLimiter builds a Redis-backed fixed-window limiter allowing at
// most max attempts per window. Returns nil when no client is configured.
func NewRedisLoginLimiter(client *redis.Client, window time.Duration, max int) LoginLimiter {
	if client == nil {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisLoginLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: "login:rl:",
	}
}

// Allow fails open: a Redis error never locks users out.
func (l *redisLoginLimiter) Allow(ctx context.Context, key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	if normalized == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	seconds := int(l.window.Seconds())
	count, err := l.client.Eval(ctx, loginAllowScript, []string{l.prefix + normalized}, seconds).Int()
	if err != nil {
		return true
	}
	return count <= l.max
}
