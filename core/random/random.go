// Package random isolates the jitter applied to simulated measurements so
// that engine behaviour can be reproduced with a seeded or fixed source.
package random

import (
	"math/rand/v2"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// Source draws bounded jitter values.
type Source interface {
	// Uniform returns a value drawn uniformly from [low, high].
	Uniform(low, high float64) float64
}

// Seeded is a Source backed by a PCG generator.
type Seeded struct {
	mu  sync.Mutex
	src rand.Source
}

// NewSeeded returns a Source seeded with seed. A zero seed uses the current
// time, which makes successive processes diverge.
func NewSeeded(seed uint64) *Seeded {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Seeded{src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
}

// Uniform implements Source.
func (s *Seeded) Uniform(low, high float64) float64 {
	if high <= low {
		return low
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := distuv.Uniform{Min: low, Max: high, Src: s.src}
	return d.Rand()
}

// Fixed always returns the same offset, clamped into the requested range.
// Fixed(0) is the deterministic zero source used by tests.
type Fixed float64

// Uniform implements Source.
func (f Fixed) Uniform(low, high float64) float64 {
	return clamp(float64(f), low, high)
}

// Sequence replays a fixed list of values in order, wrapping around when
// exhausted. Each value is clamped into the requested range.
type Sequence struct {
	mu     sync.Mutex
	values []float64
	next   int
}

// NewSequence returns a Sequence over values. An empty sequence behaves like
// Fixed(0).
func NewSequence(values ...float64) *Sequence {
	return &Sequence{values: append([]float64(nil), values...)}
}

// Uniform implements Source.
func (s *Sequence) Uniform(low, high float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return clamp(0, low, high)
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return clamp(v, low, high)
}

// Draws returns how many values have been consumed.
func (s *Sequence) Draws() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

func clamp(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
