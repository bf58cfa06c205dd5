package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnv sobrescreve o que veio do arquivo. Valores malformados caem no
// valor atual, exceto RATE_POLICY_<NOME>, que gera erro.
//
// RATE_POLICY_LOGIN=10/15m ajusta limite e janela da política "login";
// o nome usa "_" no lugar de "-" (RATE_POLICY_PASSWORD_RESET).
func applyEnv(c *Config) error {
	c.ListenAddr = getenvDefault("LISTEN_ADDR", c.ListenAddr)
	c.UpstreamURL = getenvDefault("UPSTREAM_URL", c.UpstreamURL)
	c.KeyHeader = getenvDefault("RATE_KEY_HEADER", c.KeyHeader)
	c.UserHeader = getenvDefault("RATE_USER_HEADER", c.UserHeader)
	c.TrustUserHeader = getenvBoolDefault("RATE_TRUST_USER_HEADER", c.TrustUserHeader)
	c.TrustXFF = getenvBoolDefault("TRUST_XFF", c.TrustXFF)
	c.AddHeaders = getenvBoolDefault("ADD_RATELIMIT_HEADERS", c.AddHeaders)
	c.RetryAfter = getenvDurationDefault("RETRY_AFTER", c.RetryAfter)

	c.Backend.Kind = getenvDefault("RATE_BACKEND", c.Backend.Kind)
	c.Backend.MaxKeys = getenvIntDefault("RATE_MAX_KEYS", c.Backend.MaxKeys)
	c.Backend.SweepEvery = getenvDurationDefault("RATE_SWEEP_EVERY", c.Backend.SweepEvery)
	c.Backend.Redis.Addr = getenvDefault("RATE_REDIS_ADDR", c.Backend.Redis.Addr)
	c.Backend.Redis.Password = getenvDefault("RATE_REDIS_PASSWORD", c.Backend.Redis.Password)
	c.Backend.Redis.DB = getenvIntDefault("RATE_REDIS_DB", c.Backend.Redis.DB)
	c.Backend.Redis.Prefix = getenvDefault("RATE_REDIS_PREFIX", c.Backend.Redis.Prefix)

	c.Stats.Enabled = getenvBoolDefault("RATE_STATS_ENABLED", c.Stats.Enabled)
	c.Stats.Prefix = getenvDefault("RATE_STATS_PREFIX", c.Stats.Prefix)
	c.Stats.TTL = getenvDurationDefault("RATE_STATS_TTL", c.Stats.TTL)
	c.Stats.Bucket = getenvDefault("RATE_STATS_BUCKET", c.Stats.Bucket)
	c.Stats.TrackKeys = getenvBoolDefault("RATE_STATS_TRACK_KEYS", c.Stats.TrackKeys)

	c.Concurrency.Max = getenvIntDefault("CONCURRENCY_MAX", c.Concurrency.Max)
	c.Concurrency.Timeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", c.Concurrency.Timeout)

	for name, p := range c.Policies {
		envKey := "RATE_POLICY_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		v, ok := os.LookupEnv(envKey)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		limit, window, err := ParseRate(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envKey, err)
		}
		p.Limit, p.Window = limit, window
		c.Policies[name] = p
	}
	return nil
}

// ParseRate lê "<limite>/<janela>", ex: "5/1h", "300/1m".
func ParseRate(s string) (int, time.Duration, error) {
	limitStr, windowStr, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return 0, 0, fmt.Errorf("%w: rate %q must look like 10/15m", ErrInvalid, s)
	}
	limit, err := strconv.Atoi(strings.TrimSpace(limitStr))
	if err != nil || limit < 0 {
		return 0, 0, fmt.Errorf("%w: rate %q has a bad limit", ErrInvalid, s)
	}
	window, err := time.ParseDuration(strings.TrimSpace(windowStr))
	if err != nil || window <= 0 {
		return 0, 0, fmt.Errorf("%w: rate %q has a bad window", ErrInvalid, s)
	}
	return limit, window, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
