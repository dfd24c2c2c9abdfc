package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opendatacollection/rechtspraak-scraper/internal/metrics"
)

func TestThrottleFirstCallImmediate(t *testing.T) {
	t.Parallel()
	metrics.Init()

	l := New(time.Second)

	start := time.Now()
	require.NoError(t, l.Throttle(context.Background()))
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestThrottleEnforcesInterval(t *testing.T) {
	t.Parallel()
	metrics.Init()

	const interval = 100 * time.Millisecond
	l := New(interval)

	ctx := context.Background()
	require.NoError(t, l.Throttle(ctx))

	// N sequential calls must take at least (N-1) * interval in total.
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Throttle(ctx))
	}
	require.GreaterOrEqual(t, time.Since(start), 3*interval-10*time.Millisecond)
}

func TestThrottleDisabled(t *testing.T) {
	t.Parallel()
	metrics.Init()

	l := New(0)
	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Throttle(context.Background()))
	}
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestThrottleRespectsContext(t *testing.T) {
	t.Parallel()
	metrics.Init()

	l := New(time.Hour)
	ctx := context.Background()
	require.NoError(t, l.Throttle(ctx))

	canceled, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	require.Error(t, l.Throttle(canceled))
}
