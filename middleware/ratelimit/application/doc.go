// Package application contém os casos de uso (regras de aplicação) para rate limit
// e limite de concorrência.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: WindowLimiter.Check(ctx, key, limit) aplica a janela fixa e
// Service.Decide(ctx, req) aplica uma política nomeada e calcula o Retry-After.
package application
