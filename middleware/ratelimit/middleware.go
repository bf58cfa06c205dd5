package ratelimit

import (
	"net/http"
	"time"

	"artmarket-gateway/middleware/ratelimit/application"
	"artmarket-gateway/middleware/ratelimit/domain"

	"go.uber.org/zap"
)

type Options struct {
	// Policy nomeia a política nos headers, logs e estatísticas.
	Policy  string
	Limiter domain.Limiter
	Limit   int

	Stats               domain.StatsStore
	KeyFn               KeyFunc
	KeyHeader           string
	TrustXForwardedFor  bool
	RejectStatus        int
	RetryAfter          time.Duration
	AddRateLimitHeaders bool
	Logger              *zap.Logger
}

// Middleware bloqueia com 429 (ou RejectStatus) quando a chave estoura o limite
// da janela, com Retry-After em segundos inteiros.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	svc := application.Service{
		Policy:     opts.Policy,
		Limiter:    opts.Limiter,
		Limit:      opts.Limit,
		RetryAfter: opts.RetryAfter,
		Stats:      opts.Stats,
		Logger:     opts.Logger,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)

			dec := svc.Decide(r.Context(), application.Request{
				Key:    domain.Key(key),
				Method: r.Method,
				Path:   r.URL.Path,
			})

			if opts.AddRateLimitHeaders && dec.Limit > 0 {
				h := w.Header()
				h.Set("X-RateLimit-Policy", opts.Policy)
				h.Set("X-RateLimit-Limit", formatInt(dec.Limit))
				h.Set("X-RateLimit-Remaining", formatInt(dec.Remaining))
				if !dec.ResetAt.IsZero() {
					h.Set("X-RateLimit-Reset", formatUnix(dec.ResetAt))
				}
			}

			if !dec.Allowed {
				w.Header().Set("Retry-After", formatSeconds(dec.RetryAfter))
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
