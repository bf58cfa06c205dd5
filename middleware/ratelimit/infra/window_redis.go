package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"artmarket-gateway/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

// hitScript incrementa o contador e arma o TTL só no primeiro hit da janela.
// Se a chave ficou sem TTL (ex: PERSIST manual) o TTL é rearmado.
var hitScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisWindowStore mantém a janela fixa no Redis, compartilhada entre réplicas.
// A expiração da chave faz o papel da varredura: não há janitor.
type RedisWindowStore struct {
	rdb    redis.Scripter
	prefix string
	window time.Duration
	now    func() time.Time
}

type RedisWindowOption func(*RedisWindowStore)

func WithWindowPrefix(prefix string) RedisWindowOption {
	return func(s *RedisWindowStore) { s.prefix = strings.Trim(prefix, ":") }
}

func WithRedisClock(now func() time.Time) RedisWindowOption {
	return func(s *RedisWindowStore) { s.now = now }
}

func NewRedisWindowStore(rdb redis.Scripter, window time.Duration, opts ...RedisWindowOption) (*RedisWindowStore, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if window < time.Millisecond {
		return nil, fmt.Errorf("window must be >= 1ms, got %s", window)
	}
	s := &RedisWindowStore{
		rdb:    rdb,
		prefix: "ratelimit:window",
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *RedisWindowStore) Window() time.Duration { return s.window }

func (s *RedisWindowStore) redisKey(key domain.Key) string {
	return s.prefix + ":" + string(key)
}

// Hit implementa domain.WindowStore.
func (s *RedisWindowStore) Hit(ctx context.Context, key domain.Key) (domain.Window, error) {
	res, err := hitScript.Run(ctx, s.rdb, []string{s.redisKey(key)}, s.window.Milliseconds()).Int64Slice()
	if err != nil {
		return domain.Window{}, fmt.Errorf("redis window hit %q: %w", key, err)
	}
	if len(res) != 2 {
		return domain.Window{}, fmt.Errorf("redis window hit %q: unexpected reply %v", key, res)
	}
	return domain.Window{
		Count:   int(res[0]),
		ResetAt: s.now().Add(time.Duration(res[1]) * time.Millisecond),
	}, nil
}
