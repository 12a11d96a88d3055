package rng

import "fmt"

// Fixed replays a scripted list of unit draws. It is used by tests that need
// to force a particular branch; it panics when the script runs out so a
// miscounted draw sequence fails loudly.
type Fixed struct {
	values []float64
	pos    int
}

// NewFixed returns a stream that yields values in order. Each value must be
// in [0, 1).
func NewFixed(values ...float64) *Fixed {
	return &Fixed{values: values}
}

func (f *Fixed) next() float64 {
	if f.pos >= len(f.values) {
		panic(fmt.Sprintf("rng: fixed stream exhausted after %d draws", f.pos))
	}
	v := f.values[f.pos]
	f.pos++
	return v
}

// Float64 returns the next scripted value.
func (f *Fixed) Float64() float64 { return f.next() }

// Uniform maps the next scripted value onto [lo, hi).
func (f *Fixed) Uniform(lo, hi float64) float64 { return lo + (hi-lo)*f.next() }

// IntN maps the next scripted value onto [0, n).
func (f *Fixed) IntN(n int) int { return int(f.next() * float64(n)) }

// Used reports how many scripted values have been consumed.
func (f *Fixed) Used() int { return f.pos }

// Remaining reports how many scripted values are left.
func (f *Fixed) Remaining() int { return len(f.values) - f.pos }
