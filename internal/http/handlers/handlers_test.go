package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"delivery-dispatch/internal/domain"
	mw "delivery-dispatch/internal/http/middleware"
)

func TestHandlers_Ping(t *testing.T) {
	t.Parallel()

	h := New(nil)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rr := httptest.NewRecorder()

	h.Ping(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}

	if body["message"] != "pong" {
		t.Fatalf(`expected message "pong", got %q`, body["message"])
	}
}

func TestHandlers_HealthcheckAndFallbacks(t *testing.T) {
	t.Parallel()

	h := New(nil)

	rr := httptest.NewRecorder()
	h.HealthcheckHead(rr, httptest.NewRequest(http.MethodHead, "/healthcheck", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	New(nil).WithReadiness(func(context.Context) error { return nil }).
		HealthcheckHead(rr, httptest.NewRequest(http.MethodHead, "/healthcheck", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	New(nil).WithReadiness(func(context.Context) error { return errors.New("connection refused") }).
		HealthcheckHead(rr, httptest.NewRequest(http.MethodHead, "/healthcheck", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = httptest.NewRecorder()
	h.NotFound(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.JSONEq(t, `{"error":"route not found"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.MethodNotAllowed(rr, httptest.NewRequest(http.MethodDelete, "/ping", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

// do routes a single request through a chi router so URL params resolve.
func do(t *testing.T, method, pattern, target string, body string, actor *domain.Actor, h http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()

	r := chi.NewRouter()
	r.Method(method, pattern, h)

	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	if actor != nil {
		req = req.WithContext(mw.WithActor(req.Context(), *actor))
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func actorOf(role domain.Role, id string) *domain.Actor {
	return &domain.Actor{Role: role, ID: id}
}
