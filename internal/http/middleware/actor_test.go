package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"delivery-dispatch/internal/domain"
)

func TestActor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		role, id  string
		wantCode  int
		wantActor *domain.Actor
	}{
		{name: "anonymous", wantCode: http.StatusOK},
		{name: "courier", role: "courier", id: "c1", wantCode: http.StatusOK, wantActor: &domain.Actor{Role: domain.RoleCourier, ID: "c1"}},
		{name: "role is case insensitive", role: " Business ", id: "b1", wantCode: http.StatusOK, wantActor: &domain.Actor{Role: domain.RoleBusiness, ID: "b1"}},
		{name: "admin without id", role: "admin", wantCode: http.StatusOK, wantActor: &domain.Actor{Role: domain.RoleAdmin}},
		{name: "customer without id", role: "customer", wantCode: http.StatusUnauthorized},
		{name: "unknown role", role: "robot", id: "r1", wantCode: http.StatusUnauthorized},
		{name: "id without role", id: "c1", wantCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got *domain.Actor
			h := Actor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if a, ok := ActorFrom(r.Context()); ok {
					got = &a
				}
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.role != "" {
				req.Header.Set(HeaderActorRole, tt.role)
			}
			if tt.id != "" {
				req.Header.Set(HeaderActorID, tt.id)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, tt.wantCode, rec.Code)
			require.Equal(t, tt.wantActor, got)
		})
	}
}
