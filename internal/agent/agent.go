// Package agent implements the reader who casts helpfulness votes on a
// sampled set of reviews. Agents hold no state between ticks.
package agent

import (
	"math"

	"github.com/jamumford/Online-Product-Reviews/internal/policy"
	"github.com/jamumford/Online-Product-Reviews/internal/review"
	"github.com/jamumford/Online-Product-Reviews/internal/rng"
)

// #region types

// Tally counts the votes cast in one exploitation event.
type Tally struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
}

// Agent is a homogeneous reader. Kind is informational.
type Agent struct {
	kind string
}

// New returns the standard agent.
func New() *Agent { return &Agent{kind: "standard"} }

// Kind names the agent type.
func (a *Agent) Kind() string { return a.kind }

// #endregion types

// #region vote

// Vote draws once per review, in sample order. A review with positive fitness
// earns a helpful vote with probability Pi when the feedback policy allows
// positive votes; a review with non-positive fitness earns an unhelpful vote
// with probability |Pi| when negative votes are allowed. The draw happens
// regardless of policy so the stream advances identically under every policy.
func (a *Agent) Vote(st rng.Stream, sample []*review.Review, feedback policy.Feedback) (Tally, error) {
	var t Tally
	for _, r := range sample {
		pi, ok := r.Fitness.Value()
		if !ok {
			return t, &review.InvariantError{Check: "vote-needs-fitness", ReviewID: r.ID, Detail: "fitness not computed"}
		}
		u := st.Float64()
		switch {
		case pi > 0:
			if u <= pi && feedback.AllowsPositive() {
				if err := r.AddPositive(); err != nil {
					return t, err
				}
				t.Positive++
			}
		default:
			if u <= math.Abs(pi) && feedback.AllowsNegative() {
				if err := r.AddNegative(); err != nil {
					return t, err
				}
				t.Negative++
			}
		}
		if err := r.CheckVotes(); err != nil {
			return t, err
		}
	}
	return t, nil
}

// #endregion vote
