package middlewares

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter(t *testing.T) {
	l := NewLimiter(2 * time.Second)
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

	assert.True(t, l.allow("a", now))
	assert.False(t, l.allow("a", now.Add(500*time.Millisecond)))
	assert.True(t, l.allow("b", now.Add(500*time.Millisecond)))
	assert.True(t, l.allow("a", now.Add(2100*time.Millisecond)))
}

func TestLimiter_SweepsIdleKeys(t *testing.T) {
	l := NewLimiter(2 * time.Second)
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

	l.allow("a", now)
	l.allow("b", now.Add(2*time.Minute))
	assert.NotContains(t, l.entries, "a")
	assert.Contains(t, l.entries, "b")
}

func TestLimiter_Allow(t *testing.T) {
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	l := NewLimiter(time.Hour)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("cart-1"))
	assert.False(t, l.Allow("cart-1"))

	now = now.Add(time.Hour + time.Second)
	assert.True(t, l.Allow("cart-1"))
}
