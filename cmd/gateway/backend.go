package main

import (
	"context"
	"fmt"
	"time"

	"artmarket-gateway/middleware/ratelimit"
	"artmarket-gateway/middleware/ratelimit/config"
	"artmarket-gateway/middleware/ratelimit/infra"

	"github.com/redis/go-redis/v9"
)

// openRegistry conecta no Redis quando o backend ou as estatísticas pedem
// e monta o Registry. closeFn libera a conexão.
func openRegistry(ctx context.Context, cfg config.Config) (reg *ratelimit.Registry, closeFn func(), err error) {
	closeFn = func() {}
	opts := []ratelimit.RegistryOption{ratelimit.WithLogger(logger)}

	var scripter redis.Scripter
	if cfg.Backend.Kind == config.BackendRedis || cfg.Stats.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Backend.Redis.Addr,
			Password: cfg.Backend.Redis.Password,
			DB:       cfg.Backend.Redis.DB,
		})
		closeFn = func() { _ = rdb.Close() }

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.Backend.Redis.Addr, err)
		}

		if cfg.Backend.Kind == config.BackendRedis {
			scripter = rdb
		}
		if cfg.Stats.Enabled {
			opts = append(opts, ratelimit.WithStats(infra.NewRedisStatsStore(
				rdb,
				infra.WithStatsPrefix(cfg.Stats.Prefix),
				infra.WithStatsTTL(cfg.Stats.TTL),
				infra.WithStatsBucket(cfg.Stats.Bucket),
				infra.WithStatsTrackKeys(cfg.Stats.TrackKeys),
			)))
		}
	}

	reg, err = ratelimit.NewRegistry(cfg, scripter, opts...)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return reg, closeFn, nil
}
