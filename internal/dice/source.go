// Package dice provides the randomness abstraction used by the drop resolver.
package dice

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand"
	"sync"
)

// Source is the randomness provider for drop resolution.
type Source interface {
	// Float64 returns a uniformly distributed value in [0, 1).
	Float64() float64
}

// float53 is the number of distinct values a float64 mantissa can represent in [0, 1).
const float53 = 1 << 53

// cryptoSource implements Source using crypto/rand.
//
// Invariant: All values produced are uniformly distributed over the 2^53
// evenly spaced points in [0, 1).
type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand.
//
// Postcondition: Every value returned by Float64 is in [0, 1).
func NewCryptoSource() Source {
	return &cryptoSource{}
}

// Float64 returns a cryptographically secure value in [0, 1).
//
// Panics with "dice: crypto/rand failure: <err>" if crypto/rand fails.
func (c *cryptoSource) Float64() float64 {
	val, err := rand.Int(rand.Reader, big.NewInt(float53))
	if err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return float64(val.Int64()) / float53
}

// seededSource implements Source with a deterministic math/rand generator.
type seededSource struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// NewSeededSource returns a reproducible Source. Two sources created with the
// same seed produce the same sequence.
func NewSeededSource(seed int64) Source {
	return &seededSource{rng: mrand.New(mrand.NewSource(seed))}
}

// Float64 returns the next value of the seeded sequence in [0, 1).
func (s *seededSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// SequenceSource replays a fixed list of draws, cycling when exhausted.
// It exists for tests and for replaying recorded runs.
type SequenceSource struct {
	values []float64
	pos    int
}

// NewSequenceSource returns a SequenceSource over values.
//
// Precondition: len(values) > 0 and every value is in [0, 1).
func NewSequenceSource(values ...float64) *SequenceSource {
	if len(values) == 0 {
		panic("dice: NewSequenceSource requires at least one value")
	}
	return &SequenceSource{values: values}
}

// Float64 returns the next recorded draw.
func (s *SequenceSource) Float64() float64 {
	v := s.values[s.pos%len(s.values)]
	s.pos++
	return v
}

// Draws returns how many values have been consumed.
func (s *SequenceSource) Draws() int {
	return s.pos
}
