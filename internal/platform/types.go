package platform

import (
	"github.com/jamumford/Online-Product-Reviews/internal/agent"
	"github.com/jamumford/Online-Product-Reviews/internal/policy"
	"github.com/jamumford/Online-Product-Reviews/internal/review"
	"github.com/jamumford/Online-Product-Reviews/internal/rng"
)

// #region voter

// Voter casts helpfulness votes on a scored sample. *agent.Agent implements it.
type Voter interface {
	Vote(st rng.Stream, sample []*review.Review, feedback policy.Feedback) (agent.Tally, error)
}

// #endregion voter

// #region event

// Event names what happened on a tick after the sample was scored.
type Event string

const (
	EventMutation     Event = "mutation"
	EventExploitation Event = "exploitation"
)

// #endregion event

// #region aggregates

// Aggregates are the sample-level metrics of the most recent sample.
// Fitness is the mean of Pi x rating.
type Aggregates struct {
	Quality    float64 `json:"quality"`
	Fitness    float64 `json:"fitness"`
	Rating     float64 `json:"rating"`
	SampleSize int     `json:"sample_size"`
}

// #endregion aggregates

// #region step-result

// StepResult describes one tick.
type StepResult struct {
	Tick       int              `json:"tick"`
	Event      Event            `json:"event"`
	SampleIDs  []int            `json:"sample_ids"`
	Aggregates Aggregates       `json:"aggregates"`
	Population int              `json:"population"`
	NewReview  *review.Snapshot `json:"new_review,omitempty"` // mutation only
	Tally      agent.Tally      `json:"tally"`                // exploitation only
}

// #endregion step-result
