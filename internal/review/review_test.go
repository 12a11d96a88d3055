package review

import (
	"errors"
	"math"
	"testing"

	"github.com/jamumford/Online-Product-Reviews/internal/rng"
)

const eps = 1e-9

func approx(a, b float64) bool { return math.Abs(a-b) < eps }

// scored returns a review with quality and rating already fixed.
func scored(id int, q float64, rating int) *Review {
	r := New(id, 0.5, 0.5, true, 0.5)
	r.Quality.Set(q)
	r.Rating = rating
	return r
}

func TestQuality_Validated(t *testing.T) {
	r := New(0, 0.6, 0.8, true, 0.5)
	if err := r.ComputeQuality(0.2); err != nil {
		t.Fatalf("ComputeQuality: %v", err)
	}
	// CQ1 = 0.7, CQ2 = (0.5 + 0.8)/2 = 0.65
	q, ok := r.Quality.Value()
	if !ok || !approx(q, 0.35) {
		t.Fatalf("expected Q=0.35, got %v (ok=%v)", q, ok)
	}
}

func TestQuality_UnvalidatedPaysDoublePenalty(t *testing.T) {
	r := New(1, 0.4, 0.6, false, 0)
	if err := r.ComputeQuality(0.2); err != nil {
		t.Fatalf("ComputeQuality: %v", err)
	}
	// CQ1 = 0.5, CQ2 = (0 + 0.6)/2 = 0.3
	if q, _ := r.Quality.Value(); !approx(q, -0.2) {
		t.Fatalf("expected Q=-0.2, got %v", q)
	}
}

func TestQuality_BoundViolationIsInvariantError(t *testing.T) {
	r := New(7, 0, 0, false, 0)
	err := r.ComputeQuality(1.0) // CQ2 = -0.5, Q = -1.5
	if err == nil {
		t.Fatal("expected invariant error for |Q| > 1")
	}
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected ErrInvariant, got %v", err)
	}
	var ie *InvariantError
	if !errors.As(err, &ie) || ie.Check != "quality-bound" || ie.ReviewID != 7 {
		t.Fatalf("unexpected invariant error: %#v", ie)
	}
	if r.Quality.Valid() {
		t.Fatal("quality must stay uncomputed after a violation")
	}
}

func TestInvariantError_UnwrapsCause(t *testing.T) {
	cause := errors.New("specific check")
	err := error(&InvariantError{Check: "c", ReviewID: 3, Cause: cause})
	if !errors.Is(err, ErrInvariant) || !errors.Is(err, cause) {
		t.Fatalf("expected both ErrInvariant and the cause, got %v", err)
	}
	if plain := error(&InvariantError{Check: "c"}); errors.Is(plain, cause) {
		t.Fatal("error without a cause matched it")
	}
}

func TestQuality_BoundedOverInputGrid(t *testing.T) {
	steps := []float64{0, 0.25, 0.5, 0.75, 1}
	for _, d := range []float64{0, 0.2, 0.5} {
		for _, it := range steps {
			for _, fu := range steps {
				for _, ap := range steps {
					for _, validated := range []bool{true, false} {
						r := New(0, it, fu, validated, ap)
						if err := r.ComputeQuality(d); err != nil {
							t.Fatalf("D=%v it=%v fu=%v ap=%v validated=%v: %v", d, it, fu, ap, validated, err)
						}
					}
				}
			}
		}
	}
}

func TestRating_FollowsDraw(t *testing.T) {
	tests := []struct {
		name        string
		draw        float64
		groundTruth int
		want        int
	}{
		// Q = 0.35 so the threshold is 0.675; Uniform(-1,1) = 2*draw - 1.
		{"agrees below threshold", 0.8, 1, 1},
		{"disagrees above threshold", 0.9, 1, -1},
		{"negative ground truth agrees", 0.1, -1, -1},
		{"negative ground truth disagrees", 0.99, -1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(0, 0.6, 0.8, true, 0.5)
			if err := r.ComputeQuality(0.2); err != nil {
				t.Fatalf("ComputeQuality: %v", err)
			}
			st := rng.NewFixed(tt.draw)
			if err := r.ComputeRating(st, tt.groundTruth); err != nil {
				t.Fatalf("ComputeRating: %v", err)
			}
			if r.Rating != tt.want {
				t.Errorf("rating = %d, want %d", r.Rating, tt.want)
			}
			if st.Used() != 1 {
				t.Errorf("expected exactly one draw, got %d", st.Used())
			}
		})
	}
}

func TestRating_RequiresQuality(t *testing.T) {
	r := New(0, 0.5, 0.5, true, 0.5)
	err := r.ComputeRating(rng.NewFixed(0.5), 1)
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected invariant error, got %v", err)
	}
	if r.Rating != 0 {
		t.Fatalf("rating must stay unset, got %d", r.Rating)
	}
}

func TestRating_RejectsBadGroundTruth(t *testing.T) {
	r := scored(0, 0.1, 0)
	if err := r.ComputeRating(rng.NewFixed(0.5), 0); err == nil {
		t.Fatal("expected error for ground truth 0")
	}
}

func TestVoteBalance(t *testing.T) {
	a := scored(0, 0.1, 1)
	a.VotesPositive, a.VotesNegative, a.VotesNet = 3, 1, 2
	b := scored(1, 0.1, 1)
	b.VotesPositive, b.VotesNet = 1, 1

	if got := a.VoteBalanceAgainst([]*Review{a, b}); !approx(got, 2.0/6.0) {
		t.Errorf("rho(a) = %v, want 1/3", got)
	}
	if got := b.VoteBalanceAgainst([]*Review{a, b}); !approx(got, 1.0/6.0) {
		t.Errorf("rho(b) = %v, want 1/6", got)
	}
	if got := a.VoteBalanceAgainst(nil); got != 0 {
		t.Errorf("empty peer set: rho = %v, want 0", got)
	}

	c := scored(2, 0.1, 1)
	c.VotesNegative, c.VotesNet = 2, -2
	if got := c.VoteBalanceAgainst([]*Review{c}); got != 0 {
		t.Errorf("zero positive maximum: rho = %v, want 0", got)
	}
}

func TestSupportBalance_SoleMemberIsZero(t *testing.T) {
	r := scored(0, 0.35, 1)
	zeta, err := r.SupportBalanceAgainst([]*Review{r})
	if err != nil {
		t.Fatalf("SupportBalanceAgainst: %v", err)
	}
	if zeta != 0 {
		t.Fatalf("expected zeta=0 for a sole member, got %v", zeta)
	}
}

func TestSupportBalance_AgreeingAndDissentingPeers(t *testing.T) {
	self := scored(0, 0.35, 1)
	ally := scored(1, 0.5, 1)
	rival := scored(2, 0.2, -1)
	sample := []*Review{self, ally, rival}

	zeta, err := self.SupportBalanceAgainst(sample)
	if err != nil {
		t.Fatalf("SupportBalanceAgainst: %v", err)
	}
	// (1*(0.5+0)/2 + -1*(0.2+0)/2) / 2 = 0.075
	if !approx(zeta, 0.075) {
		t.Fatalf("zeta = %v, want 0.075", zeta)
	}

	// Flipping the subject's rating flips the sign.
	zetaRival, err := rival.SupportBalanceAgainst(sample)
	if err != nil {
		t.Fatalf("SupportBalanceAgainst: %v", err)
	}
	// -1 * (1*(0.35)/2 + 1*(0.5)/2) / 2 = -0.2125
	if !approx(zetaRival, -0.2125) {
		t.Fatalf("zeta(rival) = %v, want -0.2125", zetaRival)
	}
}

func TestSupportBalance_PeerVoteBalanceIsTransient(t *testing.T) {
	self := scored(0, 0.2, 1)
	peer := scored(1, 0.4, 1)
	peer.VotesPositive, peer.VotesNet = 2, 2
	sample := []*Review{self, peer}

	zeta, err := self.SupportBalanceAgainst(sample)
	if err != nil {
		t.Fatalf("SupportBalanceAgainst: %v", err)
	}
	// peer rho = 2/4 = 0.5; zeta = 1 * (0.4 + 0.5)/2 = 0.45
	if !approx(zeta, 0.45) {
		t.Fatalf("zeta = %v, want 0.45", zeta)
	}
	if peer.VoteBalance.Valid() {
		t.Fatal("support balance must not store the peer's vote balance")
	}
}

func TestSupportBalance_UnscoredPeer(t *testing.T) {
	self := scored(0, 0.2, 1)
	peer := New(1, 0.5, 0.5, true, 0.5)
	peer.Rating = 1
	_, err := self.SupportBalanceAgainst([]*Review{self, peer})
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected invariant error, got %v", err)
	}
}

func TestRescore_SingleReview(t *testing.T) {
	r := scored(0, 0.35, 1)
	if err := r.Rescore([]*Review{r}); err != nil {
		t.Fatalf("Rescore: %v", err)
	}
	checks := []struct {
		name string
		s    Score
		want float64
	}{
		{"zeta", r.SupportBalance, 0},
		{"rho", r.VoteBalance, 0},
		{"G", r.InteractionForce, 0},
		{"Pi", r.Fitness, 0.175},
	}
	for _, c := range checks {
		v, ok := c.s.Value()
		if !ok || !approx(v, c.want) {
			t.Errorf("%s = %v (ok=%v), want %v", c.name, v, ok, c.want)
		}
	}
}

func TestFitness_RequiresForce(t *testing.T) {
	r := scored(0, 0.35, 1)
	if err := r.ComputeFitness(); !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected invariant error, got %v", err)
	}
	if err := r.ComputeInteractionForce(); !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected invariant error, got %v", err)
	}
}

func TestVotes_IdentityHolds(t *testing.T) {
	r := scored(0, 0.1, 1)
	for i := 0; i < 3; i++ {
		if err := r.AddPositive(); err != nil {
			t.Fatalf("AddPositive: %v", err)
		}
	}
	if err := r.AddNegative(); err != nil {
		t.Fatalf("AddNegative: %v", err)
	}
	if r.VotesPositive != 3 || r.VotesNegative != 1 || r.VotesNet != 2 {
		t.Fatalf("unexpected counters pos=%d neg=%d net=%d", r.VotesPositive, r.VotesNegative, r.VotesNet)
	}

	r.VotesNet = 5
	if err := r.CheckVotes(); !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected vote identity violation, got %v", err)
	}
}

func TestScore_ZeroValueIsUncomputed(t *testing.T) {
	var s Score
	if s.Valid() || s.Ptr() != nil || s.String() != "uncomputed" {
		t.Fatalf("zero Score should be uncomputed: %+v", s)
	}
	s.Set(0)
	if v, ok := s.Value(); !ok || v != 0 {
		t.Fatalf("Set(0) should be a computed zero, got %v ok=%v", v, ok)
	}
}

func TestSnapshot_CopiesScores(t *testing.T) {
	r := scored(3, 0.35, -1)
	snap := r.Snapshot()
	if snap.ID != 3 || snap.Rating != -1 || snap.Quality == nil || *snap.Quality != 0.35 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.Fitness != nil {
		t.Fatal("uncomputed fitness should be nil in the snapshot")
	}
}
