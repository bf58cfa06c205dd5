package domain

// Camada de domínio do rate limit.
//
// Contratos e tipos sem dependência de net/http nem de backend concreto.

import (
	"context"
	"time"
)

// Key identifica o chamador: IP, id de usuário ou de sessão.
type Key string

// Window é o estado de uma chave depois de um hit na janela fixa.
type Window struct {
	Count   int
	ResetAt time.Time
}

// WindowStore aplica a regra de janela fixa de forma atômica:
//
//   - sem registro, ou janela vencida: Count=1, ResetAt=now+janela
//   - senão: Count++
//
// A duração da janela é definida na construção do store.
// Implementações: memória (processo único) ou Redis (compartilhado entre réplicas).
type WindowStore interface {
	Hit(ctx context.Context, key Key) (Window, error)
}

// Limiter decide se uma chamada de `key` cabe em `limit` por janela.
//
// Check nunca falha: erro de backend vira decisão permissiva na implementação.
type Limiter interface {
	Check(ctx context.Context, key Key, limit int) Decision
}

type Decision struct {
	Allowed bool
	Limit   int
	// Remaining nunca é negativo.
	Remaining int
	ResetAt   time.Time
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}
