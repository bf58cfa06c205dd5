package application

import (
	"context"
	"time"

	"artmarket-gateway/middleware/ratelimit/domain"

	"go.uber.org/zap"
)

// Service aplica uma política nomeada (ex: "login": 10 por 15m) sobre um Limiter.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Service struct {
	Policy  string
	Limiter domain.Limiter
	Limit   int
	// RetryAfter fixo. Se 0, usa o tempo até o fim da janela.
	RetryAfter time.Duration
	Stats      domain.StatsStore
	Logger     *zap.Logger
	Now        func() time.Time
}

// Request descreve quem chamou e onde, para as estatísticas.
type Request struct {
	Key    domain.Key
	Method string
	Path   string
}

func (s Service) Decide(ctx context.Context, req Request) domain.Decision {
	if s.Limiter == nil {
		return domain.Decision{Allowed: true, Limit: s.Limit}
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	dec := s.Limiter.Check(ctx, req.Key, s.Limit)
	if !dec.Allowed {
		dec.RetryAfter = s.RetryAfter
		if dec.RetryAfter <= 0 {
			dec.RetryAfter = retryAfter(dec.ResetAt, now())
		}
		logger(s.Logger).Debug("rate limited",
			zap.String("policy", s.Policy),
			zap.String("key", string(req.Key)),
			zap.Duration("retry_after", dec.RetryAfter))
	}

	if s.Stats != nil {
		err := s.Stats.Record(ctx, domain.StatsEvent{
			Policy:  s.Policy,
			Key:     req.Key,
			Allowed: dec.Allowed,
			Method:  req.Method,
			Path:    req.Path,
			At:      now(),
		})
		if err != nil {
			logger(s.Logger).Warn("rate limit stats not recorded", zap.String("policy", s.Policy), zap.Error(err))
		}
	}
	return dec
}
