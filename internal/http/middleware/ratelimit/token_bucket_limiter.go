package ratelimit

import (
	"sync"
	"time"
)

// Config tunes TokenBucketLimiter.
type Config struct {
	Rate       float64       // tokens per second
	Burst      int           // bucket capacity
	TTL        time.Duration // idle buckets older than this are dropped; 0 keeps them
	MaxBuckets int           // 0 means unbounded
}

// TokenBucketLimiter keeps one bucket per key. A courier reporting its position
// every few seconds drains nothing; a client stuck in a retry loop does.
type TokenBucketLimiter struct {
	rate  float64
	burst float64
	ttl   time.Duration
	max   int
	clock Clock

	mu        sync.Mutex
	buckets   map[string]*bucket
	nextSweep time.Time
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// NewTokenBucketLimiter creates a limiter. A nil clock reads wall time.
func NewTokenBucketLimiter(clock Clock, cfg Config) *TokenBucketLimiter {
	if clock == nil {
		clock = RealClock{}
	}
	l := &TokenBucketLimiter{
		rate:    cfg.Rate,
		burst:   float64(cfg.Burst),
		ttl:     cfg.TTL,
		max:     max(cfg.MaxBuckets, 0),
		clock:   clock,
		buckets: make(map[string]*bucket),
	}
	if l.rate <= 0 {
		l.rate = 1
	}
	if l.burst < 1 {
		l.burst = 1
	}
	return l
}

// Allow spends one token from key's bucket.
func (l *TokenBucketLimiter) Allow(key string) bool {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweepLocked(now)
	b := l.bucketLocked(key, now)
	if b == nil || b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// RetryAfter reports how long key must wait for its next token. Unknown keys
// and keys with a token available get zero.
func (l *TokenBucketLimiter) RetryAfter(key string) time.Duration {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		return 0
	}
	l.refill(b, now)
	if b.tokens >= 1 {
		return 0
	}
	return time.Duration((1 - b.tokens) / l.rate * float64(time.Second))
}

// Len returns the number of tracked buckets.
func (l *TokenBucketLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// bucketLocked returns key's refilled bucket, creating it when there is room.
func (l *TokenBucketLimiter) bucketLocked(key string, now time.Time) *bucket {
	if b, ok := l.buckets[key]; ok {
		l.refill(b, now)
		return b
	}
	if l.max > 0 && len(l.buckets) >= l.max {
		l.forgetFullLocked(now)
		if len(l.buckets) >= l.max {
			return nil
		}
	}
	b := &bucket{tokens: l.burst, seen: now}
	l.buckets[key] = b
	return b
}

func (l *TokenBucketLimiter) refill(b *bucket, now time.Time) {
	if elapsed := now.Sub(b.seen); elapsed > 0 {
		b.tokens = min(b.tokens+elapsed.Seconds()*l.rate, l.burst)
		b.seen = now
	}
}

// forgetFullLocked drops buckets that have refilled completely; recreating one is equivalent.
func (l *TokenBucketLimiter) forgetFullLocked(now time.Time) {
	refillTime := time.Duration(l.burst / l.rate * float64(time.Second))
	for k, b := range l.buckets {
		if now.Sub(b.seen) >= refillTime {
			delete(l.buckets, k)
		}
	}
}

func (l *TokenBucketLimiter) sweepLocked(now time.Time) {
	if l.ttl <= 0 || now.Before(l.nextSweep) {
		return
	}
	l.nextSweep = now.Add(max(time.Minute, l.ttl/2))
	for k, b := range l.buckets {
		if now.Sub(b.seen) > l.ttl {
			delete(l.buckets, k)
		}
	}
}
