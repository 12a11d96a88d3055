package rng

import (
	"slices"
	"testing"
)

func TestSource_SameSeedSameStream(t *testing.T) {
	a, b := New(7), New(7)
	for i := 0; i < 100; i++ {
		if x, y := a.Float64(), b.Float64(); x != y {
			t.Fatalf("draw %d: %v != %v", i, x, y)
		}
	}
	if a.Draws() != 100 || b.Draws() != 100 {
		t.Errorf("draws = %d, %d; want 100", a.Draws(), b.Draws())
	}
}

func TestSource_DifferentSeedsDiffer(t *testing.T) {
	a, b := New(1), New(2)
	same := 0
	for i := 0; i < 20; i++ {
		if a.Float64() == b.Float64() {
			same++
		}
	}
	if same == 20 {
		t.Fatal("different seeds produced identical streams")
	}
}

func TestSource_UniformBounds(t *testing.T) {
	s := New(3)
	for i := 0; i < 1000; i++ {
		v := s.Uniform(-1, 1)
		if v < -1 || v >= 1 {
			t.Fatalf("Uniform(-1,1) = %v", v)
		}
		n := s.IntN(5)
		if n < 0 || n >= 5 {
			t.Fatalf("IntN(5) = %d", n)
		}
	}
}

func TestSource_StateRestore(t *testing.T) {
	s := New(11)
	for i := 0; i < 37; i++ {
		s.Float64()
	}
	st, err := s.State()
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	want := []float64{s.Float64(), s.Float64(), s.Float64()}

	r := New(99)
	if err := r.Restore(st); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if r.Draws() != st.Draws {
		t.Errorf("draws after restore = %d, want %d", r.Draws(), st.Draws)
	}
	got := []float64{r.Float64(), r.Float64(), r.Float64()}
	if !slices.Equal(got, want) {
		t.Errorf("restored stream = %v, want %v", got, want)
	}
}

func TestSource_RestoreRejectsGarbage(t *testing.T) {
	if err := New(1).Restore(State{PCG: []byte("nope")}); err == nil {
		t.Fatal("expected error for malformed state")
	}
}

func TestSample_Distinct(t *testing.T) {
	s := New(5)
	for trial := 0; trial < 50; trial++ {
		idx := Sample(s, 10, 4)
		if len(idx) != 4 {
			t.Fatalf("len = %d", len(idx))
		}
		seen := map[int]bool{}
		for _, i := range idx {
			if i < 0 || i >= 10 || seen[i] {
				t.Fatalf("bad sample %v", idx)
			}
			seen[i] = true
		}
	}
}

func TestSample_ScriptedDraws(t *testing.T) {
	// 0.5*4 = 2 swaps 0<->2; 0*3 = 0 keeps 1 in place.
	f := NewFixed(0.5, 0)
	got := Sample(f, 4, 2)
	if !slices.Equal(got, []int{2, 1}) {
		t.Errorf("Sample = %v, want [2 1]", got)
	}
	if f.Remaining() != 0 {
		t.Errorf("expected script fully consumed, %d left", f.Remaining())
	}
}

func TestSample_PanicsOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	Sample(New(1), 2, 3)
}

func TestFixed_ExhaustedPanics(t *testing.T) {
	f := NewFixed(0.25)
	if got := f.Uniform(0, 4); got != 1 {
		t.Errorf("Uniform = %v, want 1", got)
	}
	if f.Used() != 1 {
		t.Errorf("Used = %d", f.Used())
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on exhausted script")
		}
	}()
	f.Float64()
}
