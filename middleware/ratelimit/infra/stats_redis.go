package infra

import (
	"context"
	"strings"
	"time"

	"artmarket-gateway/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore grava contadores allowed/denied em hashes do Redis:
//
//	<prefix>:total                  allowed|denied             (cumulativo, sem TTL)
//	<prefix>:policy                 <policy>:allowed|denied    (cumulativo)
//	<prefix>:route                  <METHOD path>:allowed|denied
//	<prefix>:minute:<YYYYMMDDhhmm>  allowed|denied             (TTL)
//	<prefix>:key:<key>              allowed|denied             (TTL, só com trackKeys)
type RedisStatsStore struct {
	rdb redis.Cmdable

	prefix string
	// ttl vale só para as séries por minuto e por chave.
	ttl time.Duration

	bucket string // "minute" (padrão) ou "none"

	trackKeys bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.prefix = strings.Trim(prefix, ":") }
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackKeys(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackKeys = track }
}

func NewRedisStatsStore(rdb redis.Cmdable, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "ratelimit:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	outcome := "denied"
	if ev.Allowed {
		outcome = "allowed"
	}

	pipe := s.rdb.Pipeline()
	incr := func(key, field string, expire bool) {
		pipe.HIncrBy(ctx, key, field, 1)
		if expire && s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
	}

	incr(s.prefix+":total", outcome, false)
	if s.bucket == "minute" {
		incr(s.prefix+":minute:"+at.UTC().Format("200601021504"), outcome, true)
	}
	if policy := strings.TrimSpace(ev.Policy); policy != "" {
		incr(s.prefix+":policy", policy+":"+outcome, false)
	}
	if route := strings.TrimSpace(strings.TrimSpace(ev.Method) + " " + strings.TrimSpace(ev.Path)); route != "" {
		incr(s.prefix+":route", route+":"+outcome, false)
	}
	if k := strings.TrimSpace(string(ev.Key)); s.trackKeys && k != "" {
		incr(s.prefix+":key:"+k, outcome, true)
	}

	_, err := pipe.Exec(ctx)
	return err
}
