package ratelimit

import (
	"net/http"
	"time"
)

// Limiter decides whether the request identified by key may proceed.
type Limiter interface {
	Allow(key string) bool
}

// retryHinter is implemented by limiters that know when key regains capacity.
type retryHinter interface {
	RetryAfter(key string) time.Duration
}

// KeyFunc extracts the limiting key; ok=false exempts the request.
type KeyFunc func(r *http.Request) (key string, ok bool)

type counter interface {
	Inc()
}
