// Package pacing controls the cadence of synthetic input events so typing
// looks like a person at a keyboard rather than a batch insert.
package pacing

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Strategy names accepted by New.
const (
	StrategyFixed  = "fixed"
	StrategyJitter = "jitter"
	StrategyNone   = "none"
)

// Pacer is consulted between two consecutive input events.
type Pacer interface {
	Pause(ctx context.Context) error
}

// New builds the pacer named by strategy.
// fixed uses min as the interval; jitter picks uniformly in [min, max].
func New(strategy string, min, max time.Duration) (Pacer, error) {
	switch strategy {
	case StrategyFixed, "":
		return NewFixed(min), nil
	case StrategyJitter:
		if max < min {
			return nil, fmt.Errorf("jitter max %v is below min %v", max, min)
		}
		return NewJitter(min, max), nil
	case StrategyNone:
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown pacing strategy: %s", strategy)
	}
}

// Fixed waits the same interval after every event, however long the event
// itself took.
type Fixed struct {
	interval time.Duration
}

// NewFixed returns a pacer with a constant inter-event interval.
func NewFixed(interval time.Duration) *Fixed {
	if interval < 0 {
		interval = 0
	}
	return &Fixed{interval: interval}
}

func (f *Fixed) Pause(ctx context.Context) error {
	return Sleep(ctx, f.interval)
}

// Interval returns the configured spacing.
func (f *Fixed) Interval() time.Duration { return f.interval }

// Jitter sleeps a random duration in [min, max] between events.
type Jitter struct {
	min, max time.Duration
	rng      *rand.Rand
}

func NewJitter(min, max time.Duration) *Jitter {
	return &Jitter{
		min: min,
		max: max,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (j *Jitter) next() time.Duration {
	span := j.max - j.min
	if span <= 0 {
		return j.min
	}
	return j.min + time.Duration(j.rng.Int63n(int64(span)+1))
}

func (j *Jitter) Pause(ctx context.Context) error {
	return Sleep(ctx, j.next())
}

// None never waits.
type None struct{}

func (None) Pause(ctx context.Context) error { return ctx.Err() }

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
