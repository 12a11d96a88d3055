package store

import (
	"time"

	"github.com/jamumford/Online-Product-Reviews/internal/platform"
	"github.com/jamumford/Online-Product-Reviews/internal/rng"
)

// #region run-status
// Run statuses stored in runs.status.
const (
	StatusCompleted = "completed"
	StatusAborted   = "aborted"
)

// #endregion run-status

// #region run-record
// RunRecord is one row of the runs table.
type RunRecord struct {
	RunID       string
	Label       string
	Experiment  string
	Config      platform.Config
	Ticks       int
	Status      string // "completed" | "aborted"
	Error       string
	Population  int
	RNG         rng.State
	StartedAt   time.Time
	Duration    time.Duration
	SummaryJSON string
}

// #endregion run-record
