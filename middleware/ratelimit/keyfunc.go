package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

type KeyFunc func(r *http.Request) string

func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			// primeiro IP do X-Forwarded-For é o cliente original
			if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(first) != "" {
				return strings.TrimSpace(first)
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

// UserKeyFunc usa o id do usuário autenticado (header injetado pela sessão).
// O header só vale com trust=true: sem uma camada confiável na frente, o cliente
// escolhe o valor e ganharia uma janela nova a cada id inventado.
// Sem usuário (ou sem confiança), cai no fallback com prefixo "ip:".
func UserKeyFunc(userHeader string, trust bool, fallback KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		if trust && userHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(userHeader)); v != "" {
				return "user:" + v
			}
		}
		return "ip:" + fallback(r)
	}
}
