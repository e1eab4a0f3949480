package ratelimit

// NopLimiter admits every request; it stands in when limiting is switched off.
type NopLimiter struct{}

func (NopLimiter) Allow(string) bool { return true }
