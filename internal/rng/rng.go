// Package rng provides the single pseudo-random stream shared by review
// generation, rating and voting. The stream is always passed explicitly;
// nothing in this module seeds or reads process-global random state.
package rng

import (
	"fmt"
	"math/rand/v2"
)

// #region stream

// Stream is the draw surface consumed by scoring, selection and voting.
type Stream interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
	// Uniform returns a value in [lo, hi).
	Uniform(lo, hi float64) float64
	// IntN returns a value in [0, n).
	IntN(n int) int
}

// #endregion stream

// #region source

// seedMix derives the second PCG word from the user seed.
const seedMix = 0x9e3779b97f4a7c15

// Source is a seeded PCG stream that counts its underlying 64-bit draws.
type Source struct {
	pcg  *rand.PCG
	src  *countingSource
	rand *rand.Rand
	seed int64
}

type countingSource struct {
	pcg   *rand.PCG
	draws uint64
}

func (c *countingSource) Uint64() uint64 {
	c.draws++
	return c.pcg.Uint64()
}

// New returns a stream seeded from a single integer seed.
func New(seed int64) *Source {
	pcg := rand.NewPCG(uint64(seed), uint64(seed)^seedMix)
	cs := &countingSource{pcg: pcg}
	return &Source{pcg: pcg, src: cs, rand: rand.New(cs), seed: seed}
}

// Seed returns the seed the stream was created with.
func (s *Source) Seed() int64 { return s.seed }

// Float64 returns a value in [0, 1).
func (s *Source) Float64() float64 { return s.rand.Float64() }

// Uniform returns lo + (hi-lo)*u for u in [0, 1).
func (s *Source) Uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*s.rand.Float64()
}

// IntN returns a value in [0, n). It panics if n <= 0.
func (s *Source) IntN(n int) int { return s.rand.IntN(n) }

// Draws reports how many 64-bit values have been consumed so far.
func (s *Source) Draws() uint64 { return s.src.draws }

// #endregion source

// #region sample

// Sample returns k distinct indices from [0, n) using a partial Fisher-Yates
// shuffle. The result is in draw order. It panics if k < 0 or k > n.
func Sample(st Stream, n, k int) []int {
	if k < 0 || k > n {
		panic(fmt.Sprintf("rng: Sample k=%d out of range for n=%d", k, n))
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + st.IntN(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}

// #endregion sample

// #region state

// State is a restorable snapshot of a Source.
type State struct {
	PCG   []byte `json:"pcg"`
	Draws uint64 `json:"draws"`
}

// State captures the generator position so a fixture can be replayed later.
func (s *Source) State() (State, error) {
	b, err := s.pcg.MarshalBinary()
	if err != nil {
		return State{}, fmt.Errorf("marshal pcg: %w", err)
	}
	return State{PCG: b, Draws: s.src.draws}, nil
}

// Restore rewinds the generator to a previously captured State.
func (s *Source) Restore(st State) error {
	if err := s.pcg.UnmarshalBinary(st.PCG); err != nil {
		return fmt.Errorf("unmarshal pcg: %w", err)
	}
	s.src.draws = st.Draws
	return nil
}

// #endregion state
