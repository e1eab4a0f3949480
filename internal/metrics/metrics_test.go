package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestSet_RegistersAllCollectors(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	s := NewSet()
	require.NotPanics(t, func() { s.MustRegister(reg) })

	s.Claims.WithLabelValues("won").Inc()
	s.Transitions.WithLabelValues("preparing", "ok").Inc()
	s.HubSessions.Set(3)

	require.Equal(t, float64(1), testutil.ToFloat64(s.Claims.WithLabelValues("won")))
	require.Equal(t, float64(3), testutil.ToFloat64(s.HubSessions))

	n, err := testutil.GatherAndCount(reg, "order_claims_total", "hub_sessions")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestSet_DoubleRegisterPanics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	s := NewSet()
	s.MustRegister(reg)
	require.Panics(t, func() { s.MustRegister(reg) })
}
