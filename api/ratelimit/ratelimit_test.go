package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// A limiter whose clock can be advanced by hand.
func testLimiter(limit int, window time.Duration) (*Limiter, *time.Time) {
	now := time.Unix(1700000000, 0)

	limiter := New(limit, window)
	limiter.now = func() time.Time {
		return now
	}

	return limiter, &now
}

func TestAllowUpToLimit(t *testing.T) {
	assert := assert.New(t)

	limiter, _ := testLimiter(5, time.Minute)

	for i := 0; i < 5; i++ {
		assert.True(limiter.Allow("1.2.3.4"))
	}

	assert.False(limiter.Allow("1.2.3.4"))
}

func TestKeysAreIndependent(t *testing.T) {
	assert := assert.New(t)

	limiter, _ := testLimiter(5, time.Minute)

	for i := 0; i < 5; i++ {
		assert.True(limiter.Allow("1.2.3.4"))
	}

	assert.False(limiter.Allow("1.2.3.4"))
	assert.True(limiter.Allow("5.6.7.8"))
}

func TestWindowSlides(t *testing.T) {
	assert := assert.New(t)

	limiter, now := testLimiter(5, time.Minute)

	// Two attempts, then three more 30 seconds later.
	assert.True(limiter.Allow("1.2.3.4"))
	assert.True(limiter.Allow("1.2.3.4"))

	*now = now.Add(30 * time.Second)

	for i := 0; i < 3; i++ {
		assert.True(limiter.Allow("1.2.3.4"))
	}

	assert.False(limiter.Allow("1.2.3.4"))

	// 31 seconds later the first two attempts have aged out, leaving room
	// for exactly two more.
	*now = now.Add(31 * time.Second)

	assert.True(limiter.Allow("1.2.3.4"))
	assert.True(limiter.Allow("1.2.3.4"))
	assert.False(limiter.Allow("1.2.3.4"))
}

func TestSizeDropsStaleKeys(t *testing.T) {
	assert := assert.New(t)

	limiter, now := testLimiter(5, time.Minute)

	limiter.Allow("1.2.3.4")
	limiter.Allow("5.6.7.8")
	assert.Equal(2, limiter.Size())

	*now = now.Add(61 * time.Second)

	limiter.Allow("5.6.7.8")
	assert.Equal(1, limiter.Size())
}
