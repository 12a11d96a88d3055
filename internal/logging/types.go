package logging

import "time"

// #region run-event
// Run lifecycle events written to run_log.
const (
	EventStarted   = "started"
	EventAudit     = "audit"
	EventCompleted = "completed"
	EventAborted   = "aborted"
	EventReplayed  = "replayed"
)

// RunEvent is a single row in the run_log table.
type RunEvent struct {
	RunID      string
	Label      string
	Event      string // see the Event* constants
	Tick       int
	DetailJSON string
	Reason     string
	CreatedAt  time.Time
}

// #endregion run-event
