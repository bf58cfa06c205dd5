package application

import (
	"context"
	"time"

	"artmarket-gateway/middleware/ratelimit/domain"

	"go.uber.org/zap"
)

// ConcurrencyService limita operações simultâneas (ex: uploads de imagens de obras),
// sem saber nada sobre HTTP.
type ConcurrencyService struct {
	Name           string
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
	Logger         *zap.Logger
}

// Acquire tenta adquirir uma vaga.
//   - AcquireTimeout <= 0: espera até o ctx cancelar.
//   - AcquireTimeout > 0: espera no máximo AcquireTimeout.
//
// Se ok=false, nenhuma vaga foi adquirida e release é nil.
func (s ConcurrencyService) Acquire(ctx context.Context) (release func(), ok bool) {
	if s.Pool == nil {
		return func() {}, true
	}

	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	release, ok = s.Pool.Acquire(ctx)
	if !ok {
		logger(s.Logger).Debug("no concurrency slot available",
			zap.String("pool", s.Name), zap.Duration("timeout", s.AcquireTimeout))
	}
	return release, ok
}
