package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_PerKeyBurst(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	l := New(1, 2, WithClock(func() time.Time { return now }))

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "keys are independent")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("a"))
}

func TestLimiter_DropsIdleKeys(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	l := New(1, 1, WithIdle(time.Minute), WithClock(func() time.Time { return now }))

	l.Allow("a")
	l.Allow("b")
	assert.Equal(t, 2, l.Len())

	now = now.Add(2 * time.Minute)
	l.Allow("c")
	assert.Equal(t, 1, l.Len())
}
