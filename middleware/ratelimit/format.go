// utilitário pequeno para os valores numéricos dos headers X-RateLimit-* e Retry-After.

package ratelimit

import (
	"strconv"
	"time"
)

func formatInt(v int) string { return strconv.Itoa(v) }

func formatUnix(t time.Time) string { return strconv.FormatInt(t.Unix(), 10) }

// formatSeconds arredonda para cima: Retry-After: 0 faria o cliente tentar de novo na hora.
func formatSeconds(d time.Duration) string {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return formatInt(secs)
}
