package audit

// #region audit-config
// Config holds the bounds the population sweep checks against.
type Config struct {
	GroundTruth  int     // ratings must be +GroundTruth or -GroundTruth
	QualityBound float64 // reject if any |Q| exceeds this
	FitnessBound float64 // reject if any |Pi| exceeds this; 0 disables
}

// DefaultConfig returns the bounds of the scoring model for ground truth gt.
// Fitness is left unchecked because vote balances are not clamped.
func DefaultConfig(gt int) Config {
	return Config{
		GroundTruth:  gt,
		QualityBound: 1.0,
	}
}

// #endregion audit-config

// #region check
// Check captures a single population check.
type Check struct {
	Name       string `json:"name"`
	Violations int    `json:"violations"`
	FirstID    int    `json:"first_id"` // -1 when nothing failed
	Pass       bool   `json:"pass"`
}

// #endregion check

// #region result
// Result is the output of one audit.
type Result struct {
	Passed bool    `json:"passed"`
	Checks []Check `json:"checks"`
	Reason string  `json:"reason"`
}

// #endregion result
