package infra

import (
	"fmt"
	"sync"
	"time"

	"artmarket-gateway/middleware/ratelimit/domain"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/time/rate"
)

// BucketStore é a alternativa token-bucket (x/time/rate) à janela fixa:
// taxa = limit/window, burst = limit. Não tem o pico de 2x na virada da janela.
//
// Um limiter por chave, com limpeza periódica das chaves inativas. Acima de
// maxKeys a chave usada há mais tempo sai (e volta com o bucket cheio).
type BucketStore struct {
	mu           sync.Mutex
	entries      *simplelru.LRU[domain.Key, *bucketEntry]
	window       time.Duration
	maxKeys      int
	idleTTL      time.Duration
	cleanupEvery time.Duration
	now          func() time.Time
}

type bucketEntry struct {
	lim      *rate.Limiter
	limit    int
	lastSeen time.Time
}

type BucketOption func(*BucketStore)

func WithIdleTTL(d time.Duration) BucketOption {
	return func(s *BucketStore) { s.idleTTL = d }
}

func WithBucketMaxKeys(n int) BucketOption {
	return func(s *BucketStore) { s.maxKeys = n }
}

func WithCleanupEvery(d time.Duration) BucketOption {
	return func(s *BucketStore) { s.cleanupEvery = d }
}

func WithBucketClock(now func() time.Time) BucketOption {
	return func(s *BucketStore) { s.now = now }
}

func NewBucketStore(window time.Duration, opts ...BucketOption) (*BucketStore, error) {
	if window <= 0 {
		return nil, fmt.Errorf("window must be > 0, got %s", window)
	}
	s := &BucketStore{
		window:       window,
		maxKeys:      DefaultMaxKeys,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.idleTTL < s.window {
		// um bucket ocioso só volta ao estado "cheio" depois de uma janela inteira
		s.idleTTL = s.window
	}
	if s.maxKeys <= 0 {
		s.maxKeys = DefaultMaxKeys
	}

	lru, err := simplelru.NewLRU[domain.Key, *bucketEntry](s.maxKeys, nil)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	s.entries = lru
	return s, nil
}

func (s *BucketStore) Window() time.Duration { return s.window }
func (s *BucketStore) MaxKeys() int { return s.maxKeys }
func (s *BucketStore) CleanupEvery() time.Duration { return s.cleanupEvery }

// Take consome um token de `key` e devolve se passou e quantos tokens inteiros sobraram.
func (s *BucketStore) Take(key domain.Key, limit int) (bool, int) {
	now := s.now()
	lim := s.get(key, limit, now)

	ok := lim.AllowN(now, 1)
	left := int(lim.TokensAt(now))
	if left < 0 {
		left = 0
	}
	return ok, left
}

func (s *BucketStore) get(key domain.Key, limit int, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries.Get(key); ok {
		ent.lastSeen = now
		if ent.limit != limit {
			ent.lim.SetLimitAt(now, s.rateFor(limit))
			ent.lim.SetBurstAt(now, limit)
			ent.limit = limit
		}
		return ent.lim
	}

	lim := rate.NewLimiter(s.rateFor(limit), limit)
	s.entries.Add(key, &bucketEntry{lim: lim, limit: limit, lastSeen: now})
	return lim
}

func (s *BucketStore) rateFor(limit int) rate.Limit {
	return rate.Limit(float64(limit) / s.window.Seconds())
}

func (s *BucketStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries.Len()
}

func (s *BucketStore) Cleanup() {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range s.entries.Keys() {
		if ent, ok := s.entries.Peek(k); ok && ent.lastSeen.Before(cutoff) {
			s.entries.Remove(k)
		}
	}
}

// StartJanitor inicia uma goroutine que limpa chaves inativas periodicamente.
// Pare cancelando o contexto.
func (s *BucketStore) StartJanitor(ctx DoneContext) {
	startJanitor(ctx, s.cleanupEvery, s.Cleanup)
}
