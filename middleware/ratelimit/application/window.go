package application

import (
	"context"
	"time"

	"artmarket-gateway/middleware/ratelimit/domain"

	"go.uber.org/zap"
)

// WindowLimiter é o contador de janela fixa por chave.
//
// Regra: o primeiro hit (ou o primeiro depois da janela vencer) abre a janela
// com count=1; os seguintes incrementam. Passa enquanto count <= limit.
// Rajadas na virada da janela podem chegar a 2x o limite nominal.
type WindowLimiter struct {
	Store  domain.WindowStore
	Logger *zap.Logger
}

// Check implementa domain.Limiter.
//
// limit <= 0 desliga a política: tudo passa e nada é contado.
// Erro no store libera a requisição (fail-open) e vai para o log.
func (l WindowLimiter) Check(ctx context.Context, key domain.Key, limit int) domain.Decision {
	if l.Store == nil || limit <= 0 {
		return domain.Decision{Allowed: true, Limit: limit}
	}

	w, err := l.Store.Hit(ctx, key)
	if err != nil {
		logger(l.Logger).Warn("rate limit store unavailable, allowing request",
			zap.String("key", string(key)), zap.Error(err))
		return domain.Decision{Allowed: true, Limit: limit, Remaining: limit}
	}

	return domain.Decision{
		Allowed:   w.Count <= limit,
		Limit:     limit,
		Remaining: max(0, limit-w.Count),
		ResetAt:   w.ResetAt,
	}
}

func logger(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// retryAfter arredonda para cima em segundos inteiros (Retry-After não aceita fração).
func retryAfter(resetAt, now time.Time) time.Duration {
	d := resetAt.Sub(now)
	if d <= 0 {
		return time.Second
	}
	return (d + time.Second - 1).Truncate(time.Second)
}
