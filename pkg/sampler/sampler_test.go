package sampler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterval_ClampsToFloor(t *testing.T) {
	assert.Equal(t, MinInterval, Interval(1*time.Second))
	assert.Equal(t, MinInterval, Interval(MinInterval))
	assert.Equal(t, 30*time.Second, Interval(30*time.Second))
}

func TestNextDelay(t *testing.T) {
	const interval = 10 * time.Second

	tests := []struct {
		name    string
		elapsed time.Duration
		want    time.Duration
	}{
		{"fast iteration sleeps the remainder", 3 * time.Second, 7 * time.Second},
		{"exact iteration sleeps zero", 10 * time.Second, 0},
		{"overrun catches up a single step", 13 * time.Second, 7 * time.Second},
		{"overrun just under two periods", 19 * time.Second, 1 * time.Second},
		{"overrun past two periods waits a full period", 25 * time.Second, 10 * time.Second},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, nextDelay(interval, tc.elapsed))
		})
	}
}

func TestSampleOnce_RefreshesEverySlot(t *testing.T) {
	s := New("temp", 3, MinInterval, func(ctx context.Context, idx int) int64 {
		return int64(40 + idx)
	})

	s.SampleOnce(t.Context())

	assert.Equal(t, int64(40), s.Reading(0))
	assert.Equal(t, int64(41), s.Reading(1))
	assert.Equal(t, int64(42), s.Reading(2))
}

func TestSampleOnce_SentinelOverwritesPrevious(t *testing.T) {
	var fail atomic.Bool
	s := New("power", 1, MinInterval, func(ctx context.Context, idx int) int64 {
		if fail.Load() {
			return 0
		}
		return 70
	})

	s.SampleOnce(t.Context())
	require.Equal(t, int64(70), s.Reading(0))

	fail.Store(true)
	s.SampleOnce(t.Context())
	assert.Zero(t, s.Reading(0))
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())

	var calls atomic.Int64
	s := New("temp", 2, time.Hour, func(ctx context.Context, idx int) int64 {
		calls.Add(1)
		return 1
	})

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// The first iteration samples immediately, then parks on the timer.
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestDevices(t *testing.T) {
	s := New("temp", 4, MinInterval, func(context.Context, int) int64 { return 0 })
	assert.Equal(t, 4, s.Devices())
}
