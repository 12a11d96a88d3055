// Package audit sweeps a whole review population for violations of the
// scoring model's invariants.
package audit

import (
	"fmt"
	"math"

	"github.com/jamumford/Online-Product-Reviews/internal/review"
)

// #region harness
// Harness runs population checks with a fixed configuration.
type Harness struct {
	config Config
}

// NewHarness creates an audit harness.
func NewHarness(config Config) *Harness {
	return &Harness{config: config}
}

type rule struct {
	name string
	ok   func(i int, s review.Snapshot) bool
}

// Run checks every review in creation order.
func (h *Harness) Run(reviews []review.Snapshot) Result {
	checks := []rule{
		{"vote_identity", func(_ int, s review.Snapshot) bool {
			return s.VotesNet == s.VotesPositive-s.VotesNegative && s.VotesPositive >= 0 && s.VotesNegative >= 0
		}},
		{"quality_bound", func(_ int, s review.Snapshot) bool {
			return s.Quality != nil && math.Abs(*s.Quality) <= h.config.QualityBound
		}},
		{"rating_domain", func(_ int, s review.Snapshot) bool {
			gt := h.config.GroundTruth
			return s.Rating == gt || s.Rating == -gt
		}},
		{"creation_order", func(i int, s review.Snapshot) bool {
			return i == 0 || s.ID > reviews[i-1].ID
		}},
		{"scores_finite", func(_ int, s review.Snapshot) bool {
			for _, v := range []*float64{s.Quality, s.SupportBalance, s.VoteBalance, s.InteractionForce, s.Fitness} {
				if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
					return false
				}
			}
			return true
		}},
	}
	if h.config.FitnessBound > 0 {
		checks = append(checks, rule{"fitness_bound", func(_ int, s review.Snapshot) bool {
			return s.Fitness == nil || math.Abs(*s.Fitness) <= h.config.FitnessBound
		}})
	}

	passed := true
	var failReasons []string
	out := make([]Check, 0, len(checks))
	for _, c := range checks {
		res := Check{Name: c.name, FirstID: -1}
		for i, s := range reviews {
			if c.ok(i, s) {
				continue
			}
			if res.Violations == 0 {
				res.FirstID = s.ID
			}
			res.Violations++
		}
		res.Pass = res.Violations == 0
		if !res.Pass {
			passed = false
			failReasons = append(failReasons, fmt.Sprintf("%s: %d reviews, first %d", c.name, res.Violations, res.FirstID))
		}
		out = append(out, res)
	}

	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("audit failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("audit failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return Result{
		Passed: passed,
		Checks: out,
		Reason: reason,
	}
}

// #endregion harness

// #region err
// Err converts a failed result into an invariant error for the first
// failing check. It returns nil for a passing result.
func (r Result) Err() error {
	if r.Passed {
		return nil
	}
	for _, c := range r.Checks {
		if !c.Pass {
			return &review.InvariantError{Check: c.Name, ReviewID: c.FirstID, Detail: r.Reason}
		}
	}
	return &review.InvariantError{Check: "audit", ReviewID: -1, Detail: r.Reason}
}

// #endregion err
