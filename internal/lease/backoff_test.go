package lease

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff_GrowsAndCaps(t *testing.T) {
	b := Backoff{Initial: 10 * time.Millisecond, Max: 100 * time.Millisecond, Multiplier: 2}

	assert.Equal(t, 10*time.Millisecond, b.Next(0))
	assert.Equal(t, 20*time.Millisecond, b.Next(1))
	assert.Equal(t, 40*time.Millisecond, b.Next(2))
	assert.Equal(t, 80*time.Millisecond, b.Next(3))
	assert.Equal(t, 100*time.Millisecond, b.Next(4))
	assert.Equal(t, 100*time.Millisecond, b.Next(50))
}

func TestBackoff_JitterStaysInBounds(t *testing.T) {
	b := Backoff{Initial: 100 * time.Millisecond, Max: 100 * time.Millisecond, Multiplier: 2, Jitter: 0.2}

	for i := 0; i < 100; i++ {
		d := b.Next(i)
		assert.GreaterOrEqual(t, d, 80*time.Millisecond)
		assert.LessOrEqual(t, d, 120*time.Millisecond)
	}
}

func TestLease_Expired(t *testing.T) {
	now := time.Now()
	l := &Lease{AcquiredAt: now, ExpiresAt: now.Add(time.Second)}

	assert.False(t, l.Expired(now))
	assert.True(t, l.Expired(now.Add(time.Second)))
}
