package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryExhaustMinuteWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(Limits{PerMinute: 2, PerHour: 1000})

	res, err := m.Take(context.Background(), "a", now)
	require.NoError(t, err)
	require.True(t, res.Allowed)
	require.Equal(t, 1, res.MinuteRemaining)

	res, err = m.Take(context.Background(), "a", now)
	require.NoError(t, err)
	require.True(t, res.Allowed)
	require.Equal(t, 0, res.MinuteRemaining)

	res, err = m.Take(context.Background(), "a", now)
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.Equal(t, WindowMinute, res.Window)
	require.Greater(t, res.RetryAfter, time.Duration(0))
	require.Equal(t, 0, res.MinuteRemaining)

	// Another client is unaffected.
	res, err = m.Take(context.Background(), "b", now)
	require.NoError(t, err)
	require.True(t, res.Allowed)
	require.Equal(t, 1, res.MinuteRemaining)
}

func TestMemoryWindowBoundaryReset(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(Limits{PerMinute: 2, PerHour: 1000})

	for i := 0; i < 2; i++ {
		res, err := m.Take(context.Background(), "a", now)
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}
	res, err := m.Take(context.Background(), "a", now.Add(30*time.Second))
	require.NoError(t, err)
	require.False(t, res.Allowed)

	// A request arriving exactly at the boundary lands in the new window.
	res, err = m.Take(context.Background(), "a", now.Add(time.Minute))
	require.NoError(t, err)
	require.True(t, res.Allowed)
	require.Equal(t, 1, res.MinuteRemaining)
}

func TestMemoryThunderingReset(t *testing.T) {
	// Fixed windows permit a full burst right after every reset; 2x the
	// limit can pass within a short span around the boundary.
	now := time.Date(2026, 1, 1, 0, 0, 59, 0, time.UTC)
	m := NewMemory(Limits{PerMinute: 3, PerHour: 1000})

	// First window is anchored at the first observation.
	for i := 0; i < 3; i++ {
		res, err := m.Take(context.Background(), "a", now)
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}
	res, err := m.Take(context.Background(), "a", now)
	require.NoError(t, err)
	require.False(t, res.Allowed)

	after := now.Add(time.Minute)
	for i := 0; i < 3; i++ {
		res, err := m.Take(context.Background(), "a", after)
		require.NoError(t, err)
		require.True(t, res.Allowed, "request %d after reset", i)
	}
}

func TestMemoryHourWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(Limits{PerMinute: 1000, PerHour: 2})

	for i := 0; i < 2; i++ {
		res, err := m.Take(context.Background(), "a", now.Add(time.Duration(i)*2*time.Minute))
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}

	res, err := m.Take(context.Background(), "a", now.Add(10*time.Minute))
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.Equal(t, WindowHour, res.Window)
	require.Equal(t, 50*time.Minute, res.RetryAfter)

	res, err = m.Take(context.Background(), "a", now.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, res.Allowed)
	require.Equal(t, 1, res.HourRemaining)
}

func TestMemoryMinuteTakesPrecedence(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(Limits{PerMinute: 0, PerHour: 0})

	res, err := m.Take(context.Background(), "a", now)
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.Equal(t, WindowMinute, res.Window)
}

func TestMemoryZeroLimitDeniesEverything(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(Limits{PerMinute: 0, PerHour: 1000})

	for i := 0; i < 3; i++ {
		res, err := m.Take(context.Background(), "a", now.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		require.False(t, res.Allowed)
	}
}

func TestMemoryConcurrentTakesNeverLoseUpdates(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	const limit = 500
	m := NewMemory(Limits{PerMinute: limit, PerHour: limit * 10})

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < limit*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := m.Take(context.Background(), "a", now)
			if err != nil {
				return
			}
			if res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, limit, allowed)
	require.Equal(t, 1, m.Len())
}
