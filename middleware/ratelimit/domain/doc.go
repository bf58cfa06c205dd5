// Package domain define contratos e tipos de domínio para rate limit e concorrência
// do marketplace (login, cadastro, reset de senha, contato, uploads).
//
// Este pacote não depende de net/http nem de implementações concretas.
package domain
