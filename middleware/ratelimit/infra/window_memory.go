package infra

import (
	"context"
	"fmt"
	"sync"
	"time"

	"artmarket-gateway/middleware/ratelimit/domain"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

const (
	DefaultMaxKeys    = 100_000
	DefaultSweepEvery = time.Minute
)

// MemoryWindowStore guarda os contadores de janela fixa em memória do processo.
//
// O mapa é limitado a maxKeys entradas: ao encher, a chave usada há mais tempo
// é descartada (e volta como "primeira requisição" se aparecer de novo).
// Reiniciar o processo zera tudo.
type MemoryWindowStore struct {
	mu         sync.Mutex
	entries    *simplelru.LRU[domain.Key, *windowEntry]
	window     time.Duration
	maxKeys    int
	sweepEvery time.Duration
	now        func() time.Time
}

type windowEntry struct {
	count   int
	resetAt time.Time
}

type MemoryWindowOption func(*MemoryWindowStore)

func WithMaxKeys(n int) MemoryWindowOption {
	return func(s *MemoryWindowStore) { s.maxKeys = n }
}

func WithSweepEvery(d time.Duration) MemoryWindowOption {
	return func(s *MemoryWindowStore) { s.sweepEvery = d }
}

// WithClock troca o relógio (testes).
func WithClock(now func() time.Time) MemoryWindowOption {
	return func(s *MemoryWindowStore) { s.now = now }
}

func NewMemoryWindowStore(window time.Duration, opts ...MemoryWindowOption) (*MemoryWindowStore, error) {
	if window <= 0 {
		return nil, fmt.Errorf("window must be > 0, got %s", window)
	}
	s := &MemoryWindowStore{
		window:     window,
		maxKeys:    DefaultMaxKeys,
		sweepEvery: DefaultSweepEvery,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxKeys <= 0 {
		s.maxKeys = DefaultMaxKeys
	}

	lru, err := simplelru.NewLRU[domain.Key, *windowEntry](s.maxKeys, nil)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	s.entries = lru
	return s, nil
}

func (s *MemoryWindowStore) Window() time.Duration { return s.window }
func (s *MemoryWindowStore) MaxKeys() int { return s.maxKeys }
func (s *MemoryWindowStore) SweepEvery() time.Duration { return s.sweepEvery }

// Hit implementa domain.WindowStore. Nunca retorna erro.
func (s *MemoryWindowStore) Hit(_ context.Context, key domain.Key) (domain.Window, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries.Get(key)
	if !ok || !now.Before(ent.resetAt) {
		ent = &windowEntry{count: 1, resetAt: now.Add(s.window)}
		s.entries.Add(key, ent)
		return domain.Window{Count: ent.count, ResetAt: ent.resetAt}, nil
	}

	ent.count++
	return domain.Window{Count: ent.count, ResetAt: ent.resetAt}, nil
}

// Len retorna o número de chaves rastreadas (inclusive vencidas ainda não varridas).
func (s *MemoryWindowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries.Len()
}

// Sweep remove as entradas cuja janela já venceu e retorna quantas saíram.
func (s *MemoryWindowStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, k := range s.entries.Keys() {
		ent, ok := s.entries.Peek(k)
		if ok && !now.Before(ent.resetAt) {
			s.entries.Remove(k)
			removed++
		}
	}
	return removed
}

// StartJanitor inicia uma goroutine que varre janelas vencidas periodicamente.
// Pare cancelando o contexto.
func (s *MemoryWindowStore) StartJanitor(ctx DoneContext) {
	startJanitor(ctx, s.sweepEvery, func() { s.Sweep() })
}
