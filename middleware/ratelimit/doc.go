// Package ratelimit fornece adapters HTTP (net/http) para rate limit e limite de
// concorrência dos endpoints públicos do marketplace (login, cadastro, reset de
// senha, contato, uploads).
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: janela fixa, token bucket, decisão por política, acquire/timeout
//   - infra: stores em memória (LRU) e Redis, semáforo, estatísticas
//   - config: YAML + variáveis de ambiente
//   - ratelimit (este pacote): middlewares HTTP, extração de chave, Registry de políticas
//
// Fluxo no gateway:
//
//  1. O Registry casa método+caminho com uma política (gorilla/mux)
//  2. Extrai a chave do cliente (IP/XFF/header ou id do usuário)
//  3. Chama a camada application para obter a decisão
//  4. Se bloqueado, responde 429 com Retry-After (rate limit) ou 503 (concorrência)
//  5. Se permitido, chama o próximo handler (ex: reverse proxy)
package ratelimit
