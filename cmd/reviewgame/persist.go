package main

import (
	"encoding/json"
	"fmt"

	"github.com/jamumford/Online-Product-Reviews/internal/experiment"
	"github.com/jamumford/Online-Product-Reviews/internal/logging"
	"github.com/jamumford/Online-Product-Reviews/internal/store"
)

// #region persist

// persist saves a finished or aborted series and its lifecycle events.
// runErr is the error the run ended with, if any.
func persist(st *store.Store, expName string, s *experiment.Series, runErr error) error {
	summary, err := json.Marshal(experiment.Summarize(s))
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	rec := store.RunRecord{
		RunID:       s.RunID,
		Label:       s.Label,
		Experiment:  expName,
		Config:      s.Config,
		Ticks:       s.Ticks,
		Status:      store.StatusCompleted,
		Population:  len(s.Reviews),
		RNG:         s.RNG,
		StartedAt:   s.StartedAt,
		Duration:    s.Duration,
		SummaryJSON: string(summary),
	}
	switch {
	case runErr != nil:
		rec.Status = store.StatusAborted
		rec.Error = runErr.Error()
	case !s.Complete():
		rec.Status = store.StatusAborted
		rec.Error = "run stopped before its horizon"
	}
	if err := st.SaveRun(rec, s.Records, s.Reviews); err != nil {
		return fmt.Errorf("save run %s: %w", s.RunID, err)
	}

	cfgJSON, err := json.Marshal(s.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	events := []logging.RunEvent{{
		RunID:      s.RunID,
		Label:      s.Label,
		Event:      logging.EventStarted,
		DetailJSON: string(cfgJSON),
		CreatedAt:  s.StartedAt,
	}}
	if s.Audit != nil {
		auditJSON, err := json.Marshal(s.Audit)
		if err != nil {
			return fmt.Errorf("marshal audit: %w", err)
		}
		events = append(events, logging.RunEvent{
			RunID:      s.RunID,
			Label:      s.Label,
			Event:      logging.EventAudit,
			Tick:       len(s.Records),
			DetailJSON: string(auditJSON),
			Reason:     s.Audit.Reason,
			CreatedAt:  s.StartedAt.Add(s.Duration),
		})
	}
	end := logging.RunEvent{
		RunID:      s.RunID,
		Label:      s.Label,
		Event:      logging.EventCompleted,
		Tick:       len(s.Records),
		DetailJSON: string(summary),
		CreatedAt:  s.StartedAt.Add(s.Duration),
	}
	if rec.Status == store.StatusAborted {
		end.Event = logging.EventAborted
		end.Reason = rec.Error
	}
	events = append(events, end)

	for _, ev := range events {
		if err := logging.LogRunEvent(st.DB(), ev); err != nil {
			return fmt.Errorf("log %s event: %w", ev.Event, err)
		}
	}
	return nil
}

// #endregion persist
