package app

import (
	"go.uber.org/dig"

	"delivery-dispatch/internal/config"
	"delivery-dispatch/internal/http/middleware/ratelimit"
	"delivery-dispatch/internal/logx"
	"delivery-dispatch/internal/metrics"
)

func newRateLimiter(cfg *config.Config, clock ratelimit.Clock) ratelimit.Limiter {
	rl := cfg.RateLimit
	if !rl.Enabled {
		return ratelimit.NopLimiter{}
	}
	return ratelimit.NewTokenBucketLimiter(clock, ratelimit.Config{
		Rate:       rl.Rate,
		Burst:      rl.Burst,
		TTL:        rl.TTL,
		MaxBuckets: rl.MaxBuckets,
	})
}

func newRateLimitClock() ratelimit.Clock {
	return ratelimit.RealClock{}
}

type rateLimitIn struct {
	dig.In
	Config  *config.Config
	Logger  logx.Logger
	Metrics *metrics.Set
	Clock   ratelimit.Clock
}

type rateLimitOut struct {
	dig.Out
	IP    *ratelimit.Middleware `name:"ip_rate_limit"`
	Actor *ratelimit.Middleware `name:"actor_rate_limit"`
}

// newRateLimitMiddlewares builds two independent limiters: one per client IP
// for every route and one per courier for location reports.
func newRateLimitMiddlewares(in rateLimitIn) rateLimitOut {
	if !in.Config.RateLimit.Enabled {
		return rateLimitOut{}
	}
	counter := in.Metrics.RateLimitExceeded
	return rateLimitOut{
		IP:    ratelimit.New(in.Logger, counter, newRateLimiter(in.Config, in.Clock), "ip", ratelimit.ByClientIP),
		Actor: ratelimit.New(in.Logger, counter, newRateLimiter(in.Config, in.Clock), "actor", ratelimit.ByActor),
	}
}
