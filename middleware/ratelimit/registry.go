package ratelimit

import (
	"context"
	"fmt"
	"net/http"

	"artmarket-gateway/middleware/ratelimit/application"
	"artmarket-gateway/middleware/ratelimit/config"
	"artmarket-gateway/middleware/ratelimit/domain"
	"artmarket-gateway/middleware/ratelimit/infra"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Registry monta um limiter por política nomeada e é dono dos janitors.
// Cada Registry tem seus próprios contadores: nada é global.
type Registry struct {
	cfg      config.Config
	stats    domain.StatsStore
	logger   *zap.Logger
	policies map[string]policyEntry
	janitors []func(infra.DoneContext)
}

type policyEntry struct {
	policy  config.Policy
	limiter domain.Limiter
	keyFn   KeyFunc
}

type RegistryOption func(*Registry)

func WithStats(s domain.StatsStore) RegistryOption {
	return func(r *Registry) { r.stats = s }
}

func WithLogger(l *zap.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry constrói os limiters. rdb só é usado (e exigido) com backend redis.
func NewRegistry(cfg config.Config, rdb redis.Scripter, opts ...RegistryOption) (*Registry, error) {
	r := &Registry{
		cfg:      cfg,
		logger:   zap.NewNop(),
		policies: make(map[string]policyEntry, len(cfg.Policies)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if cfg.Backend.Kind == config.BackendRedis && rdb == nil {
		return nil, fmt.Errorf("%w: redis backend without a redis client", config.ErrInvalid)
	}

	ipKey := DefaultKeyFunc(cfg.KeyHeader, cfg.TrustXFF)
	for _, name := range cfg.PolicyNames() {
		p := cfg.Policies[name]
		lim, err := r.buildLimiter(name, p, rdb)
		if err != nil {
			return nil, fmt.Errorf("policy %s: %w", name, err)
		}
		keyFn := ipKey
		if p.Key == config.KeyByUser {
			keyFn = UserKeyFunc(cfg.UserHeader, cfg.TrustUserHeader, ipKey)
		}
		r.policies[name] = policyEntry{policy: p, limiter: lim, keyFn: keyFn}
	}
	return r, nil
}

func (r *Registry) buildLimiter(name string, p config.Policy, rdb redis.Scripter) (domain.Limiter, error) {
	if p.Algorithm == config.AlgorithmTokenBucket {
		store, err := infra.NewBucketStore(p.Window, infra.WithBucketMaxKeys(r.cfg.Backend.MaxKeys))
		if err != nil {
			return nil, err
		}
		r.janitors = append(r.janitors, store.StartJanitor)
		return application.BucketLimiter{Store: store}, nil
	}

	var (
		store domain.WindowStore
		err   error
	)
	switch r.cfg.Backend.Kind {
	case config.BackendRedis:
		store, err = infra.NewRedisWindowStore(rdb, p.Window,
			infra.WithWindowPrefix(r.cfg.Backend.Redis.Prefix+":"+name))
	default:
		var mem *infra.MemoryWindowStore
		mem, err = infra.NewMemoryWindowStore(p.Window,
			infra.WithMaxKeys(r.cfg.Backend.MaxKeys),
			infra.WithSweepEvery(r.cfg.Backend.SweepEvery))
		if err == nil {
			r.janitors = append(r.janitors, mem.StartJanitor)
		}
		store = mem
	}
	if err != nil {
		return nil, err
	}
	return application.WindowLimiter{Store: store, Logger: r.logger.With(zap.String("policy", name))}, nil
}

// Start liga as varreduras periódicas dos stores em memória até ctx encerrar.
func (r *Registry) Start(ctx context.Context) {
	for _, start := range r.janitors {
		start(ctx)
	}
}

func (r *Registry) Policy(name string) (config.Policy, error) {
	e, ok := r.policies[name]
	if !ok {
		return config.Policy{}, fmt.Errorf("%w %q", config.ErrUnknownPolicy, name)
	}
	return e.policy, nil
}

// Check consulta (e consome) uma unidade da política para a chave.
func (r *Registry) Check(ctx context.Context, name string, key domain.Key) (domain.Decision, error) {
	e, ok := r.policies[name]
	if !ok {
		return domain.Decision{}, fmt.Errorf("%w %q", config.ErrUnknownPolicy, name)
	}
	return e.limiter.Check(ctx, key, e.policy.Limit), nil
}

// Middleware devolve o middleware HTTP da política `name`.
func (r *Registry) Middleware(name string) (func(http.Handler) http.Handler, error) {
	e, ok := r.policies[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", config.ErrUnknownPolicy, name)
	}
	return Middleware(Options{
		Policy:              name,
		Limiter:             e.limiter,
		Limit:               e.policy.Limit,
		Stats:               r.stats,
		KeyFn:               e.keyFn,
		RetryAfter:          r.cfg.RetryAfter,
		AddRateLimitHeaders: r.cfg.AddHeaders,
		Logger:              r.logger,
	}), nil
}

// Mount registra as rotas configuradas no router, cada uma com sua política
// (e limite de concorrência, se houver), e manda o resto direto para next.
func (r *Registry) Mount(router *mux.Router, next http.Handler) error {
	for i, rt := range r.cfg.Routes {
		h := next
		if rt.MaxInFlight > 0 {
			h = ConcurrencyMiddleware(ConcurrencyOptions{
				Name:           rt.Path,
				Max:            rt.MaxInFlight,
				AcquireTimeout: r.cfg.Concurrency.Timeout,
				Logger:         r.logger,
			})(h)
		}
		if rt.Policy != "" {
			mw, err := r.Middleware(rt.Policy)
			if err != nil {
				return fmt.Errorf("route %d (%s): %w", i, rt.Path, err)
			}
			h = mw(h)
		}

		route := router.NewRoute()
		if rt.Prefix {
			route = route.PathPrefix(rt.Path)
		} else {
			route = route.Path(rt.Path)
		}
		if rt.Method != "" {
			route = route.Methods(rt.Method)
		}
		route.Handler(h)
	}
	router.PathPrefix("/").Handler(next)
	return nil
}
