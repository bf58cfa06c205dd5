package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsAreValid(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Backend.Kind)
	assert.Equal(t, 100_000, cfg.Backend.MaxKeys)
	assert.Equal(t, Policy{Limit: 3, Window: time.Hour, Algorithm: AlgorithmFixedWindow, Key: KeyByIP}, cfg.Policies["password-reset"])
	assert.Equal(t, KeyByUser, cfg.Policies["upload"].Key)
	assert.Equal(t, []string{"api", "contact", "login", "password-reset", "register", "upload"}, cfg.PolicyNames())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
listen_addr: ":9090"
upstream_url: "http://marketplace:3000"
backend:
  kind: redis
  redis:
    addr: "redis:6379"
policies:
  login:
    limit: 20
    window: 30m
  newsletter:
    limit: 2
    window: 24h
routes:
  - method: POST
    path: /api/newsletter
    policy: newsletter
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, BackendRedis, cfg.Backend.Kind)
	assert.Equal(t, "redis:6379", cfg.Backend.Redis.Addr)
	assert.Equal(t, 20, cfg.Policies["login"].Limit)
	assert.Equal(t, 30*time.Minute, cfg.Policies["login"].Window)
	assert.Equal(t, 24*time.Hour, cfg.Policies["newsletter"].Window)
	assert.Contains(t, cfg.Policies, "register", "default policies are kept")
	require.Len(t, cfg.Routes, 1)
	assert.Equal(t, "newsletter", cfg.Routes[0].Policy)
}

func TestLoad_PartialPolicyKeepsDefaults(t *testing.T) {
	path := writeFile(t, `
policies:
  login:
    limit: 3
  contact:
    limit: 0
  upload:
    key: ip
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, Policy{Limit: 3, Window: 15 * time.Minute, Algorithm: AlgorithmFixedWindow, Key: KeyByIP}, cfg.Policies["login"])
	assert.Equal(t, 0, cfg.Policies["contact"].Limit, "explicit zero disables the policy")
	assert.Equal(t, time.Hour, cfg.Policies["contact"].Window)
	assert.Equal(t, Policy{Limit: 20, Window: time.Hour, Algorithm: AlgorithmFixedWindow, Key: KeyByIP}, cfg.Policies["upload"])
	assert.Equal(t, 10, Default().Policies["login"].Limit, "defaults must not be mutated")
}

func TestLoad_NewPolicyWithoutWindowIsInvalid(t *testing.T) {
	path := writeFile(t, `
policies:
  newsletter:
    limit: 2
`)

	_, err := Load(path)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestLoad_TrustUserHeader(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.False(t, cfg.TrustUserHeader, "user header is untrusted by default")

	t.Setenv("RATE_TRUST_USER_HEADER", "true")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.True(t, cfg.TrustUserHeader)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "listen_addr: \":9090\"\n")
	t.Setenv("LISTEN_ADDR", ":7070")
	t.Setenv("RATE_POLICY_PASSWORD_RESET", "1/30m")
	t.Setenv("RATE_MAX_KEYS", "500")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.ListenAddr)
	assert.Equal(t, 500, cfg.Backend.MaxKeys)
	assert.Equal(t, 1, cfg.Policies["password-reset"].Limit)
	assert.Equal(t, 30*time.Minute, cfg.Policies["password-reset"].Window)
}

func TestLoad_BadPolicyEnvIsAnError(t *testing.T) {
	t.Setenv("RATE_POLICY_LOGIN", "lots")

	_, err := Load("")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
}

func TestValidate_RedisBackendNeedsAddr(t *testing.T) {
	cfg := Default()
	cfg.Backend.Kind = BackendRedis

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "backend.redis.addr")
}

func TestValidate_RouteWithUnknownPolicy(t *testing.T) {
	cfg := Default()
	cfg.Routes = append(cfg.Routes, Route{Method: "POST", Path: "/api/reviews", Policy: "reviews"})

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrUnknownPolicy)
	require.True(t, errors.Is(err, ErrInvalid))
}

func TestValidate_TokenBucketNeedsMemoryBackend(t *testing.T) {
	cfg := Default()
	cfg.Backend.Kind = BackendRedis
	cfg.Backend.Redis.Addr = "redis:6379"
	p := cfg.Policies["upload"]
	p.Algorithm = AlgorithmTokenBucket
	cfg.Policies["upload"] = p

	require.ErrorIs(t, cfg.Validate(), ErrInvalid)
}

func TestValidate_WindowMustBePositive(t *testing.T) {
	cfg := Default()
	cfg.Policies["contact"] = Policy{Limit: 5}

	require.ErrorIs(t, cfg.Validate(), ErrInvalid)
}

func TestParseRate(t *testing.T) {
	limit, window, err := ParseRate(" 5 / 1h ")
	require.NoError(t, err)
	assert.Equal(t, 5, limit)
	assert.Equal(t, time.Hour, window)

	for _, bad := range []string{"5", "x/1h", "5/forever", "5/0s", "-1/1m"} {
		_, _, err := ParseRate(bad)
		assert.ErrorIsf(t, err, ErrInvalid, "input %q", bad)
	}
}
