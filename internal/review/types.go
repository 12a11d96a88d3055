package review

import (
	"errors"
	"fmt"
)

// #region score

// Score is a derived value that may not have been computed yet. The zero
// value is "uncomputed" and is distinguishable from every numeric score.
type Score struct {
	value float64
	valid bool
}

// Set records a computed value.
func (s *Score) Set(v float64) { s.value, s.valid = v, true }

// Value returns the score and whether it has been computed.
func (s Score) Value() (float64, bool) { return s.value, s.valid }

// Valid reports whether the score has been computed.
func (s Score) Valid() bool { return s.valid }

// Ptr returns nil for an uncomputed score, for serialization.
func (s Score) Ptr() *float64 {
	if !s.valid {
		return nil
	}
	v := s.value
	return &v
}

func (s Score) String() string {
	if !s.valid {
		return "uncomputed"
	}
	return fmt.Sprintf("%.6f", s.value)
}

// #endregion score

// #region review

// Review is a position-to-know argument: a synthetic product review whose
// credibility stems from the author's claimed experience with the product.
type Review struct {
	ID int

	// CQ1 inputs, both in [0, 1].
	InteractionTime float64
	FeatureUse      float64

	// CQ2 inputs. AuthorPosition is 0 when the review was not validated.
	Validated      bool
	AuthorPosition float64

	VotesPositive int
	VotesNegative int
	VotesNet      int

	// Quality is fixed at creation; Rating is +groundTruth or -groundTruth
	// once computed and 0 before.
	Quality Score
	Rating  int

	// Recomputed every time the review is part of a sample.
	SupportBalance   Score // zeta
	VoteBalance      Score // rho
	InteractionForce Score // G
	Fitness          Score // Pi
}

// Snapshot is a plain copy of a Review used for persistence and inspection.
type Snapshot struct {
	ID               int      `json:"id"`
	InteractionTime  float64  `json:"interaction_time"`
	FeatureUse       float64  `json:"feature_use"`
	Validated        bool     `json:"validated"`
	AuthorPosition   float64  `json:"author_position"`
	VotesPositive    int      `json:"votes_positive"`
	VotesNegative    int      `json:"votes_negative"`
	VotesNet         int      `json:"votes_net"`
	Quality          *float64 `json:"quality,omitempty"`
	Rating           int      `json:"rating"`
	SupportBalance   *float64 `json:"support_balance,omitempty"`
	VoteBalance      *float64 `json:"vote_balance,omitempty"`
	InteractionForce *float64 `json:"interaction_force,omitempty"`
	Fitness          *float64 `json:"fitness,omitempty"`
}

// #endregion review

// #region errors

// ErrInvariant marks defect-class failures: a numeric invariant of the model
// was violated. Callers must abort the run rather than continue.
var ErrInvariant = errors.New("invariant violated")

// InvariantError describes which invariant failed and on which review.
// ReviewID is -1 when the failure is not tied to a single review.
type InvariantError struct {
	Check    string
	ReviewID int
	Detail   string
	Cause    error // optional sentinel for the specific check
}

func (e *InvariantError) Error() string {
	if e.ReviewID < 0 {
		return fmt.Sprintf("invariant %s: %s", e.Check, e.Detail)
	}
	return fmt.Sprintf("invariant %s on review %d: %s", e.Check, e.ReviewID, e.Detail)
}

func (e *InvariantError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrInvariant, e.Cause}
	}
	return []error{ErrInvariant}
}

func invariant(check string, id int, format string, args ...any) error {
	return &InvariantError{Check: check, ReviewID: id, Detail: fmt.Sprintf(format, args...)}
}

// #endregion errors
