// Package platform owns the growing review population. Each tick it selects
// a sample under the configured selection policy, rescores the sample,
// aggregates sample metrics, and then either authors a new review (mutation)
// or lets an agent vote on the sample (exploitation).
package platform

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/jamumford/Online-Product-Reviews/internal/policy"
	"github.com/jamumford/Online-Product-Reviews/internal/review"
	"github.com/jamumford/Online-Product-Reviews/internal/rng"
)

// ErrEmptySample is wrapped by the invariant error returned when a sample is
// required but history is empty.
var ErrEmptySample = errors.New("empty sample")

// #region platform

// Platform is a review site under one fixed set of policies.
type Platform struct {
	cfg    Config
	stream rng.Stream

	// history is append-only and always in creation order.
	history []*review.Review
	// ranked is the persistent ranking used when cfg.PersistentOrder is set.
	ranked []*review.Review

	nextID int
	tick   int

	agg    Aggregates
	hasAgg bool
}

// New validates cfg and returns an empty platform. A nil stream is replaced
// by a fresh rng.Source seeded from cfg.Seed.
func New(cfg Config, st rng.Stream) (*Platform, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if st == nil {
		st = rng.New(cfg.Seed)
	}
	return &Platform{cfg: cfg, stream: st}, nil
}

// Config returns the construction configuration.
func (p *Platform) Config() Config { return p.cfg }

// Tick returns the number of completed steps.
func (p *Platform) Tick() int { return p.tick }

// Population returns the number of reviews ever created.
func (p *Platform) Population() int { return len(p.history) }

// Aggregates returns the metrics of the most recent sample. ok is false
// until the first sample has been scored.
func (p *Platform) Aggregates() (agg Aggregates, ok bool) { return p.agg, p.hasAgg }

// History returns snapshots of every review in creation order.
func (p *Platform) History() []review.Snapshot {
	out := make([]review.Snapshot, len(p.history))
	for i, r := range p.history {
		out[i] = r.Snapshot()
	}
	return out
}

// #endregion platform

// #region generate

// GenerateReview authors, scores and stores a new review. Draw order is
// author position, interaction time, feature use, then the rating draw.
func (p *Platform) GenerateReview() (*review.Review, error) {
	author := p.stream.Uniform(0, 1)
	var interact float64
	var validated bool
	switch p.cfg.Validation {
	case policy.ValidatedOnly:
		validated = true
		interact = (p.stream.Uniform(p.cfg.InviteThreshold, 1) + author) / 2
	case policy.NoValidation:
		interact = (p.stream.Uniform(0, 1) + author) / 2
		// Without validation no author history is exposed.
		author = 0
	default:
		return nil, &ConfigError{Field: "validation", Value: p.cfg.Validation.String(), Rule: "policy"}
	}
	feature := math.Max(p.stream.Uniform(0, 1), author)

	r := review.New(p.nextID, interact, feature, validated, author)
	if err := r.ComputeQuality(p.cfg.DeceptionRisk); err != nil {
		return nil, fmt.Errorf("generate review %d: %w", r.ID, err)
	}
	if err := r.ComputeRating(p.stream, p.cfg.GroundTruth); err != nil {
		return nil, fmt.Errorf("generate review %d: %w", r.ID, err)
	}

	p.nextID++
	p.history = append(p.history, r)
	if p.cfg.PersistentOrder {
		p.ranked = append(p.ranked, r)
	}
	return r, nil
}

// #endregion generate

// #region select

// SelectSample picks at most SampleSize reviews under the selection policy.
// Most-helpful and best-quality sample from a descending, stable ranking;
// random draws without replacement; most-recent takes the newest reviews in
// creation order.
func (p *Platform) SelectSample() []*review.Review {
	n, m := len(p.history), p.cfg.SampleSize
	sel := p.cfg.Selection

	base := p.history
	if sel.Ranked() {
		base = p.rank()
	}
	if n <= m {
		return slices.Clone(base)
	}

	switch sel {
	case policy.Random:
		idx := rng.Sample(p.stream, n, m)
		out := make([]*review.Review, len(idx))
		for i, j := range idx {
			out[i] = p.history[j]
		}
		return out
	case policy.MostHelpful, policy.BestQuality:
		return slices.Clone(base[:m])
	case policy.MostRecent:
		return slices.Clone(p.history[n-m:])
	}
	return nil
}

// rank orders reviews by the ranking key, descending and stable. The
// default is a fresh view over creation order; with PersistentOrder the
// previous ranking is re-sorted in place.
func (p *Platform) rank() []*review.Review {
	var view []*review.Review
	if p.cfg.PersistentOrder {
		view = p.ranked
	} else {
		view = slices.Clone(p.history)
	}
	key := rankKey(p.cfg.Selection)
	slices.SortStableFunc(view, func(a, b *review.Review) int {
		return cmp.Compare(key(b), key(a))
	})
	return view
}

func rankKey(sel policy.Selection) func(*review.Review) float64 {
	if sel == policy.MostHelpful {
		return func(r *review.Review) float64 { return float64(r.VotesPositive) }
	}
	return func(r *review.Review) float64 {
		q, _ := r.Quality.Value()
		return q
	}
}

// #endregion select

// #region score

// SelectAndScore selects a sample, rescores every member against the whole
// sample and records the sample aggregates.
func (p *Platform) SelectAndScore() ([]*review.Review, error) {
	sample := p.SelectSample()
	if len(sample) == 0 {
		return nil, &review.InvariantError{
			Check:    "non-empty-sample",
			ReviewID: -1,
			Detail:   fmt.Sprintf("sample is empty (history %d)", len(p.history)),
			Cause:    ErrEmptySample,
		}
	}

	gt := p.cfg.GroundTruth
	var sumQ, sumF, sumR float64
	for _, r := range sample {
		if r.Rating != gt && r.Rating != -gt {
			return nil, &review.InvariantError{
				Check:    "rating-domain",
				ReviewID: r.ID,
				Detail:   fmt.Sprintf("rating %d not in {%d, %d}", r.Rating, gt, -gt),
			}
		}
		if err := r.Rescore(sample); err != nil {
			return nil, err
		}
		q, _ := r.Quality.Value()
		pi, _ := r.Fitness.Value()
		sumQ += q
		sumF += pi * float64(r.Rating)
		sumR += float64(r.Rating)
	}

	n := float64(len(sample))
	p.agg = Aggregates{
		Quality:    sumQ / n,
		Fitness:    sumF / n,
		Rating:     sumR / n,
		SampleSize: len(sample),
	}
	p.hasAgg = true
	return sample, nil
}

// #endregion score

// #region step

// Step runs one tick: select and score, then a mutation draw decides between
// authoring a new review and letting v vote on the sample.
func (p *Platform) Step(v Voter) (StepResult, error) {
	sample, err := p.SelectAndScore()
	if err != nil {
		return StepResult{}, fmt.Errorf("tick %d: %w", p.tick, err)
	}

	res := StepResult{Tick: p.tick, SampleIDs: make([]int, len(sample))}
	for i, r := range sample {
		res.SampleIDs[i] = r.ID
	}

	if p.stream.Float64() <= p.cfg.MutationRate {
		r, err := p.GenerateReview()
		if err != nil {
			return StepResult{}, fmt.Errorf("tick %d: %w", p.tick, err)
		}
		snap := r.Snapshot()
		res.Event = EventMutation
		res.NewReview = &snap
	} else {
		tally, err := v.Vote(p.stream, sample, p.cfg.Feedback)
		if err != nil {
			return StepResult{}, fmt.Errorf("tick %d: vote: %w", p.tick, err)
		}
		res.Event = EventExploitation
		res.Tally = tally
	}

	p.tick++
	res.Aggregates = p.agg
	res.Population = len(p.history)
	return res, nil
}

// #endregion step
