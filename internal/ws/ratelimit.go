package ws

import (
	"sync"
	"time"
)

// tokenBucket throttles typing frames per connection. Typing is
// fire-and-forget, so frames over the limit are dropped silently rather
// than answered with an error.
type tokenBucket struct {
	mu     sync.Mutex
	tokens float64
	max    float64
	refill float64 // tokens per second
	last   time.Time
}

func newTokenBucket(max, refillPerSecond float64) *tokenBucket {
	return &tokenBucket{
		tokens: max,
		max:    max,
		refill: refillPerSecond,
		last:   time.Now(),
	}
}

func (b *tokenBucket) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens += now.Sub(b.last).Seconds() * b.refill
	if b.tokens > b.max {
		b.tokens = b.max
	}
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
