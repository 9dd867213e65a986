package pacing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	p, err := New(StrategyFixed, 30*time.Millisecond, 0)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Millisecond, p.(*Fixed).Interval())

	p, err = New("", 10*time.Millisecond, 0)
	require.NoError(t, err)
	assert.IsType(t, &Fixed{}, p)

	p, err = New(StrategyJitter, 10*time.Millisecond, 20*time.Millisecond)
	require.NoError(t, err)
	assert.IsType(t, &Jitter{}, p)

	p, err = New(StrategyNone, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, None{}, p)

	_, err = New(StrategyJitter, 20*time.Millisecond, 10*time.Millisecond)
	assert.Error(t, err)

	_, err = New("typewriter", 0, 0)
	assert.ErrorContains(t, err, "unknown pacing strategy")
}

func TestFixedSpacesPauses(t *testing.T) {
	p := NewFixed(20 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for range 3 {
		require.NoError(t, p.Pause(ctx))
	}
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestFixedWaitsFullIntervalAfterIdle(t *testing.T) {
	p := NewFixed(20 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, p.Pause(ctx))
	// A settle delay between fields must not bank a free pause.
	time.Sleep(60 * time.Millisecond)

	start := time.Now()
	require.NoError(t, p.Pause(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestFixedZeroIntervalNeverWaits(t *testing.T) {
	p := NewFixed(0)
	start := time.Now()
	for range 100 {
		require.NoError(t, p.Pause(context.Background()))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestJitterStaysInRange(t *testing.T) {
	j := NewJitter(5*time.Millisecond, 9*time.Millisecond)
	for range 200 {
		d := j.next()
		assert.GreaterOrEqual(t, d, 5*time.Millisecond)
		assert.LessOrEqual(t, d, 9*time.Millisecond)
	}
}

func TestPauseHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for name, p := range map[string]Pacer{
		"fixed":  NewFixed(time.Hour),
		"jitter": NewJitter(time.Hour, 2*time.Hour),
		"none":   None{},
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, p.Pause(ctx), context.Canceled)
		})
	}
}

func TestSleep(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
	assert.NoError(t, Sleep(context.Background(), 0))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.DeadlineExceeded)
}
