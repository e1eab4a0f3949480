package ratelimit

import (
	"net"
	"net/http"

	"delivery-dispatch/internal/http/middleware"
)

// ByClientIP keys requests by remote address. Run after chi's RealIP.
func ByClientIP(r *http.Request) (string, bool) {
	return "ip:" + clientIP(r), true
}

// ByActor keys requests by authenticated actor. Anonymous requests are exempt.
func ByActor(r *http.Request) (string, bool) {
	a, ok := middleware.ActorFrom(r.Context())
	if !ok {
		return "", false
	}
	return "actor:" + string(a.Role) + ":" + a.ID, true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
