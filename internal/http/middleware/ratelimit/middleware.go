package ratelimit

import (
	"io"
	"math"
	"net/http"
	"strconv"

	"delivery-dispatch/internal/logx"
)

// Middleware rejects requests over the limit with 429.
type Middleware struct {
	logger  logx.Logger
	counter counter
	limiter Limiter
	scope   string
	key     KeyFunc
}

// New creates a Middleware. scope names the limit in logs; key defaults to ByClientIP.
func New(logger logx.Logger, c counter, limiter Limiter, scope string, key KeyFunc) *Middleware {
	if logger == nil {
		logger = logx.Nop()
	}
	if limiter == nil {
		limiter = NopLimiter{}
	}
	if key == nil {
		key = ByClientIP
	}
	return &Middleware{
		logger:  logger,
		counter: c,
		limiter: limiter,
		scope:   scope,
		key:     key,
	}
}

// Handler returns chi-style middleware.
func (m *Middleware) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := m.key(r)
			if !ok || m.limiter.Allow(key) {
				next.ServeHTTP(w, r)
				return
			}

			if m.counter != nil {
				m.counter.Inc()
			}
			m.logger.Warn("rate limit exceeded",
				logx.String("scope", m.scope),
				logx.String("key", key),
				logx.String("method", r.Method),
				logx.String("path", r.URL.Path),
			)

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(m.retryAfterSeconds(key)))
			w.WriteHeader(http.StatusTooManyRequests)
			if _, err := io.WriteString(w, `{"error":"too many requests"}`); err != nil {
				m.logger.Debug("rate limit response write failed", logx.Err(err))
			}
		})
	}
}

// retryAfterSeconds rounds the limiter's hint up to whole seconds, at least one.
func (m *Middleware) retryAfterSeconds(key string) int {
	h, ok := m.limiter.(retryHinter)
	if !ok {
		return 1
	}
	return max(1, int(math.Ceil(h.RetryAfter(key).Seconds())))
}
