package jitter

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDuration_Bounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := Duration(time.Second, DefaultJitter)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, 1500*time.Millisecond)
	}
}

func TestDurationWithSeed_Deterministic(t *testing.T) {
	a := DurationWithSeed(time.Second, DefaultJitter, rand.New(rand.NewSource(42)))
	b := DurationWithSeed(time.Second, DefaultJitter, rand.New(rand.NewSource(42)))
	assert.Equal(t, a, b)
}

func TestExponentialBackoff_CappedAtMax(t *testing.T) {
	assert.Equal(t, 400*time.Millisecond, ExponentialBackoff(100*time.Millisecond, time.Second, 2, 0))
	assert.Equal(t, time.Second, ExponentialBackoff(100*time.Millisecond, time.Second, 10, 0))
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)

	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
}
