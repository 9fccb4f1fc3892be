package engine

import (
	"math/rand"
	"sync"
	"time"
)

// Rand is the randomness source behind every weighted draw, probability gate
// and display shuffle. Abstracted so tests can inject a seeded or scripted
// sequence while production uses a free-running source.
type Rand interface {
	Float64() float64
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// lockedRand serializes access to a math/rand source, which is not safe for
// concurrent use on its own.
type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRand returns a seeded randomness source. The same seed reproduces the
// same draw sequence, which the tests rely on.
func NewRand(seed int64) Rand {
	return &lockedRand{rng: rand.New(rand.NewSource(seed))}
}

// NewTimeRand returns a time-seeded randomness source for production use.
func NewTimeRand() Rand {
	return NewRand(time.Now().UnixNano())
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

func (r *lockedRand) Shuffle(n int, swap func(i, j int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rng.Shuffle(n, swap)
}
