// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
//   - MemoryWindowStore: janela fixa em memória, com teto LRU de chaves e varredura periódica
//   - RedisWindowStore: janela fixa no Redis (script Lua INCR + PEXPIRE), para várias réplicas
//   - BucketStore: token bucket por chave usando golang.org/x/time/rate
//   - SemaphorePool: limite de concorrência com golang.org/x/sync/semaphore
//   - MemoryStatsStore / RedisStatsStore: contadores de allowed/denied
package infra
