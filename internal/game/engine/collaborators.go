package engine

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Random is the randomness source borrowed by shuffling and random-discard
// effects. *rand.Rand satisfies it.
type Random interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// NewRandom returns a deterministic PCG source for the given seed.
func NewRandom(seed uint64) Random {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Clock stamps floating effects so simultaneously active shields can be
// ordered.
type Clock interface {
	Now() time.Time
}

// SystemClock reads wall-clock time.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// TickClock returns start, then start+step, start+2*step and so on. It gives
// strictly increasing timestamps for replays and tests.
type TickClock struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

// NewTickClock creates a TickClock.
func NewTickClock(start time.Time, step time.Duration) *TickClock {
	return &TickClock{next: start, step: step}
}

// Now returns the next tick.
func (c *TickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.next
	c.next = c.next.Add(c.step)
	return now
}
