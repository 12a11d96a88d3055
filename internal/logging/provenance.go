package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region log-run-event
// LogRunEvent writes a lifecycle entry to the run_log table.
func LogRunEvent(db *sql.DB, entry RunEvent) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO run_log (run_id, label, event, tick, detail_json, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		nullIfEmpty(entry.Label),
		entry.Event,
		entry.Tick,
		nullIfEmpty(entry.DetailJSON),
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log run event: %w", err)
	}
	return nil
}

// #endregion log-run-event

// #region run-events
// RunEvents returns the lifecycle entries of one run, oldest first.
func RunEvents(db *sql.DB, runID string) ([]RunEvent, error) {
	rows, err := db.Query(
		`SELECT run_id, label, event, tick, detail_json, reason, created_at
		 FROM run_log WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run events: %w", err)
	}
	defer rows.Close()

	var out []RunEvent
	for rows.Next() {
		var (
			e                     RunEvent
			label, detail, reason sql.NullString
			createdAt             string
		)
		if err := rows.Scan(&e.RunID, &label, &e.Event, &e.Tick, &detail, &reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scan run event: %w", err)
		}
		e.Label, e.DetailJSON, e.Reason = label.String, detail.String, reason.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion run-events

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
