// Package review implements the position-to-know argument and its scoring
// model: intrinsic quality from the critical questions, a quality-biased
// rating, and the social scores (support balance, vote balance, interaction
// force, fitness) recomputed against each sample the review appears in.
package review

import (
	"math"

	"github.com/jamumford/Online-Product-Reviews/internal/rng"
)

// #region constructor

// New builds an unscored review. Vote counters start at zero.
func New(id int, interactionTime, featureUse float64, validated bool, authorPosition float64) *Review {
	return &Review{
		ID:              id,
		InteractionTime: interactionTime,
		FeatureUse:      featureUse,
		Validated:       validated,
		AuthorPosition:  authorPosition,
	}
}

// #endregion constructor

// #region quality

// CQ1 answers "is the author in a position to know": the mean of the two
// usage-depth signals.
func (r *Review) CQ1() float64 {
	return (r.InteractionTime + r.FeatureUse) / 2
}

// CQ2 answers "is the author a reliable source". Unvalidated reviews pay the
// deception penalty twice.
func (r *Review) CQ2(deceptionRisk float64) float64 {
	v := 0.0
	if r.Validated {
		v = 1
	}
	return (r.AuthorPosition + (1 - deceptionRisk*(2-v))) / 2
}

// ComputeQuality sets Q = CQ1 + CQ2 - 1. A magnitude above 1 is a defect in
// the inputs and is returned as an InvariantError.
func (r *Review) ComputeQuality(deceptionRisk float64) error {
	q := r.CQ1() + r.CQ2(deceptionRisk) - 1
	if math.Abs(q) > 1 || math.IsNaN(q) {
		return invariant("quality-bound", r.ID, "|Q| = %.6f exceeds 1", math.Abs(q))
	}
	r.Quality.Set(q)
	return nil
}

// #endregion quality

// #region rating

// ComputeRating draws u ~ U(-1, 1) and agrees with the ground truth when
// u <= (1+Q)/2. Quality must already be computed.
func (r *Review) ComputeRating(st rng.Stream, groundTruth int) error {
	if groundTruth != 1 && groundTruth != -1 {
		return invariant("ground-truth", r.ID, "ground truth %d not in {-1, 1}", groundTruth)
	}
	q, ok := r.Quality.Value()
	if !ok {
		return invariant("rating-needs-quality", r.ID, "quality not computed")
	}
	if st.Uniform(-1, 1) <= (1+q)/2 {
		r.Rating = groundTruth
	} else {
		r.Rating = -groundTruth
	}
	return nil
}

// #endregion rating

// #region vote-balance

// VoteBalanceAgainst normalizes the review's net helpfulness by the largest
// doubled positive-vote count among peers. It returns 0 for an empty peer set
// or when no peer has a positive vote.
func (r *Review) VoteBalanceAgainst(peers []*Review) float64 {
	maxVotes := 0
	for _, p := range peers {
		if v := p.VotesPositive + p.VotesPositive; v > maxVotes {
			maxVotes = v
		}
	}
	if maxVotes == 0 {
		return 0
	}
	return float64(r.VotesNet) / float64(maxVotes)
}

// ComputeVoteBalance stores VoteBalanceAgainst(peers).
func (r *Review) ComputeVoteBalance(peers []*Review) float64 {
	rho := r.VoteBalanceAgainst(peers)
	r.VoteBalance.Set(rho)
	return rho
}

// #endregion vote-balance

// #region support-balance

// SupportBalanceAgainst computes zeta from the other members of sample. Peers
// sharing this review's rating reinforce it, dissenting peers weaken it, each
// weighted by the peer's quality and its vote balance against the whole
// sample. The peer vote balance is computed locally and not stored.
func (r *Review) SupportBalanceAgainst(sample []*Review) (float64, error) {
	peers := withoutSelf(sample, r)
	if len(peers) == 0 {
		return 0, nil
	}
	var sum float64
	for _, p := range peers {
		q, ok := p.Quality.Value()
		if !ok {
			return 0, invariant("support-needs-quality", p.ID, "peer quality not computed")
		}
		sum += float64(p.Rating) * (q + p.VoteBalanceAgainst(sample)) / 2
	}
	return float64(r.Rating) * sum / float64(len(peers)), nil
}

// ComputeSupportBalance stores SupportBalanceAgainst(sample).
func (r *Review) ComputeSupportBalance(sample []*Review) (float64, error) {
	zeta, err := r.SupportBalanceAgainst(sample)
	if err != nil {
		return 0, err
	}
	r.SupportBalance.Set(zeta)
	return zeta, nil
}

func withoutSelf(sample []*Review, self *Review) []*Review {
	peers := make([]*Review, 0, len(sample))
	removed := false
	for _, p := range sample {
		if p == self && !removed {
			removed = true
			continue
		}
		peers = append(peers, p)
	}
	return peers
}

// #endregion support-balance

// #region fitness

// ComputeInteractionForce sets G = (zeta + rho) / 2.
func (r *Review) ComputeInteractionForce() error {
	zeta, okZ := r.SupportBalance.Value()
	rho, okR := r.VoteBalance.Value()
	if !okZ || !okR {
		return invariant("force-needs-balances", r.ID, "support or vote balance not computed")
	}
	r.InteractionForce.Set((zeta + rho) / 2)
	return nil
}

// ComputeFitness sets Pi = (G + Q) / 2.
func (r *Review) ComputeFitness() error {
	g, okG := r.InteractionForce.Value()
	q, okQ := r.Quality.Value()
	if !okG || !okQ {
		return invariant("fitness-needs-force", r.ID, "interaction force or quality not computed")
	}
	r.Fitness.Set((g + q) / 2)
	return nil
}

// Rescore recomputes zeta, rho, G and Pi against sample, in that order.
func (r *Review) Rescore(sample []*Review) error {
	if _, err := r.ComputeSupportBalance(sample); err != nil {
		return err
	}
	r.ComputeVoteBalance(sample)
	if err := r.ComputeInteractionForce(); err != nil {
		return err
	}
	return r.ComputeFitness()
}

// #endregion fitness

// #region votes

// AddPositive records one helpful vote.
func (r *Review) AddPositive() error {
	r.VotesPositive++
	r.VotesNet++
	return r.CheckVotes()
}

// AddNegative records one unhelpful vote.
func (r *Review) AddNegative() error {
	r.VotesNegative++
	r.VotesNet--
	return r.CheckVotes()
}

// CheckVotes verifies votes_net == votes_positive - votes_negative.
func (r *Review) CheckVotes() error {
	if r.VotesNet != r.VotesPositive-r.VotesNegative || r.VotesPositive < 0 || r.VotesNegative < 0 {
		return invariant("vote-identity", r.ID, "net=%d pos=%d neg=%d", r.VotesNet, r.VotesPositive, r.VotesNegative)
	}
	return nil
}

// #endregion votes

// #region snapshot

// Snapshot copies the review into a plain serializable value.
func (r *Review) Snapshot() Snapshot {
	return Snapshot{
		ID:               r.ID,
		InteractionTime:  r.InteractionTime,
		FeatureUse:       r.FeatureUse,
		Validated:        r.Validated,
		AuthorPosition:   r.AuthorPosition,
		VotesPositive:    r.VotesPositive,
		VotesNegative:    r.VotesNegative,
		VotesNet:         r.VotesNet,
		Quality:          r.Quality.Ptr(),
		Rating:           r.Rating,
		SupportBalance:   r.SupportBalance.Ptr(),
		VoteBalance:      r.VoteBalance.Ptr(),
		InteractionForce: r.InteractionForce.Ptr(),
		Fitness:          r.Fitness.Ptr(),
	}
}

// #endregion snapshot
