// internal/rng/rng.go
//
// Uniform random source used by board generation.
// Responsibilities:
//   - Define the Source interface the generator draws from.
//   - Provide a math/rand backed implementation, time-seeded or fixed-seed.
//
// Notes:
//   - A fixed seed reproduces the same board on every peer and in tests.
//   - Rand is not safe for concurrent use; give each generator its own.

package rng

import (
	"math/rand"
	"time"
)

// Source yields uniform integers and fair coin flips.
type Source interface {
	// Uniform returns an integer in the half-open range [lo, hi).
	Uniform(lo, hi int) int
	// Bool returns true or false with equal probability.
	Bool() bool
}

// Rand is a Source backed by math/rand.
type Rand struct {
	r *rand.Rand
}

// New returns a time-seeded Source.
func New() *Rand {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a deterministic Source for the given seed.
func NewSeeded(seed int64) *Rand {
	return &Rand{r: rand.New(rand.NewSource(seed))}
}

// Uniform returns lo when the range is empty.
func (s *Rand) Uniform(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.r.Intn(hi-lo)
}

func (s *Rand) Bool() bool { return s.r.Intn(2) == 0 }

// Int63 exposes the underlying generator for identifiers such as room codes.
func (s *Rand) Int63() int64 { return s.r.Int63() }
