package csp

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegisterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterMetrics(reg))
	require.Error(t, RegisterMetrics(reg))
}

func TestMetricsCount(t *testing.T) {
	pairings := testutil.ToFloat64(pairingsTotal)
	closes := testutil.ToFloat64(closesTotal)
	rejected := testutil.ToFloat64(rejectedPushesTotal)
	defaults := testutil.ToFloat64(selectResolutions.WithLabelValues("default"))

	ch := MustChannel[int](1)
	require.NoError(t, ch.Push(context.Background(), 1))
	_, err := ch.Receive(context.Background())
	require.NoError(t, err)
	require.NoError(t, Select(context.Background(), func(ctx Context, c *Cases) error {
		c.Default(nil)
		return nil
	}))
	ch.Close()
	ch.Close()

	require.GreaterOrEqual(t, testutil.ToFloat64(pairingsTotal)-pairings, 1.0)
	require.GreaterOrEqual(t, testutil.ToFloat64(closesTotal)-closes, 1.0)
	require.GreaterOrEqual(t, testutil.ToFloat64(selectResolutions.WithLabelValues("default"))-defaults, 1.0)
	require.GreaterOrEqual(t, testutil.ToFloat64(rejectedPushesTotal), rejected)
}
