package middleware

import (
	"context"
	"io"
	"net/http"
	"strings"

	"delivery-dispatch/internal/domain"
)

// Actor identity headers set by the authenticating gateway.
const (
	HeaderActorRole = "X-Actor-Role"
	HeaderActorID   = "X-Actor-ID"
)

type actorKey struct{}

// Actor reads the caller identity from trusted headers into the request context.
// Requests without headers pass through anonymous; malformed identities get 401.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := strings.TrimSpace(r.Header.Get(HeaderActorRole))
		id := strings.TrimSpace(r.Header.Get(HeaderActorID))
		if role == "" && id == "" {
			next.ServeHTTP(w, r)
			return
		}

		actor := domain.Actor{Role: domain.Role(strings.ToLower(role)), ID: id}
		if !actor.Valid() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":"invalid actor identity"}`)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// WithActor stores actor in ctx.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the authenticated actor, if any.
func ActorFrom(ctx context.Context) (domain.Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(domain.Actor)
	return a, ok
}
