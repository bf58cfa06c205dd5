package application

import (
	"context"
	"time"

	"artmarket-gateway/middleware/ratelimit/domain"
)

// TokenTaker é o que o BucketLimiter precisa do store (infra.BucketStore).
type TokenTaker interface {
	Take(key domain.Key, limit int) (ok bool, left int)
	Window() time.Duration
}

// BucketLimiter é a alternativa token bucket: mesma assinatura de Check,
// taxa suavizada (limit por janela), sem o pico da virada de janela.
type BucketLimiter struct {
	Store TokenTaker
	Now   func() time.Time
}

func (l BucketLimiter) Check(_ context.Context, key domain.Key, limit int) domain.Decision {
	if l.Store == nil || limit <= 0 {
		return domain.Decision{Allowed: true, Limit: limit}
	}
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}

	ok, left := l.Store.Take(key, limit)
	dec := domain.Decision{Allowed: ok, Limit: limit, Remaining: max(0, left)}
	if !ok {
		// próximo token chega em window/limit
		dec.ResetAt = now().Add(l.Store.Window() / time.Duration(limit))
	}
	return dec
}
