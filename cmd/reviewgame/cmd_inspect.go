package main

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamumford/Online-Product-Reviews/internal/experiment"
	"github.com/jamumford/Online-Product-Reviews/internal/logging"
	"github.com/jamumford/Online-Product-Reviews/internal/review"
	"github.com/jamumford/Online-Product-Reviews/internal/store"
)

// #region inspect-cmd

type inspectFlags struct {
	last    int
	top     int
	jsonOut bool
}

func newInspectCmd(a *app) *cobra.Command {
	f := &inspectFlags{}
	cmd := &cobra.Command{
		Use:   "inspect [run-id]",
		Short: "List stored runs or show one run in detail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			if len(args) == 1 {
				return runDetailMode(cmd.OutOrStdout(), st, args[0], f)
			}
			return runListMode(cmd.OutOrStdout(), cmd.ErrOrStderr(), st, f)
		},
	}
	cmd.Flags().IntVar(&f.last, "last", 20, "show N most recent runs")
	cmd.Flags().IntVar(&f.top, "top", 10, "reviews shown in detail mode, by fitness")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "output as JSON instead of table")
	return cmd
}

// #endregion inspect-cmd

// #region list-mode

type listRow struct {
	RunID      string             `json:"run_id"`
	Label      string             `json:"label"`
	Experiment string             `json:"experiment,omitempty"`
	Status     string             `json:"status"`
	Ticks      int                `json:"ticks"`
	Population int                `json:"population"`
	StartedAt  string             `json:"started_at"`
	Summary    experiment.Summary `json:"summary"`
}

func toListRow(rec store.RunRecord) listRow {
	row := listRow{
		RunID:      rec.RunID,
		Label:      rec.Label,
		Experiment: rec.Experiment,
		Status:     rec.Status,
		Ticks:      rec.Ticks,
		Population: rec.Population,
		StartedAt:  rec.StartedAt.Format(time.RFC3339),
	}
	if rec.SummaryJSON != "" {
		_ = json.Unmarshal([]byte(rec.SummaryJSON), &row.Summary)
	}
	return row
}

func runListMode(w, errw io.Writer, st *store.Store, f *inspectFlags) error {
	runs, err := st.ListRuns(f.last)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(errw, "no runs found")
		return nil
	}

	rows := make([]listRow, len(runs))
	for i, rec := range runs {
		rows[i] = toListRow(rec)
	}
	if f.jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	fmt.Fprintf(w, "%-10s| %-16s| %-10s| %-7s| %-11s| %-10s| %-10s| %s\n",
		"Run", "Label", "Status", "Ticks", "Population", "Quality", "Fitness", "Started")
	fmt.Fprintf(w, "%-10s+%-17s+%-11s+%-8s+%-12s+%-11s+%-11s+%s\n",
		"----------", "-----------------", "-----------", "--------", "------------", "-----------", "-----------", "--------------------")
	for _, r := range rows {
		fmt.Fprintf(w, "%-10s| %-16s| %-10s| %-7d| %-11d| %-10.4f| %-10.4f| %s\n",
			shortID(r.RunID), r.Label, r.Status, r.Ticks, r.Population,
			r.Summary.MeanQuality, r.Summary.MeanFitness, r.StartedAt)
	}
	fmt.Fprintf(w, "\n%d runs\n", len(rows))
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailView struct {
	listRow
	Error    string             `json:"error,omitempty"`
	Duration string             `json:"duration"`
	Config   any                `json:"config"`
	Events   []logging.RunEvent `json:"events"`
	Top      []review.Snapshot  `json:"top_reviews"`
}

func runDetailMode(w io.Writer, st *store.Store, runID string, f *inspectFlags) error {
	rec, err := st.GetRun(runID)
	if err != nil {
		return err
	}
	events, err := logging.RunEvents(st.DB(), runID)
	if err != nil {
		return err
	}
	reviews, err := st.Reviews(runID)
	if err != nil {
		return err
	}

	view := detailView{
		listRow:  toListRow(rec),
		Error:    rec.Error,
		Duration: rec.Duration.String(),
		Config:   rec.Config,
		Events:   events,
		Top:      topByFitness(reviews, f.top),
	}
	if f.jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	cfg := rec.Config
	fmt.Fprintf(w, "Run:         %s\n", rec.RunID)
	fmt.Fprintf(w, "Label:       %s\n", rec.Label)
	if rec.Experiment != "" {
		fmt.Fprintf(w, "Experiment:  %s\n", rec.Experiment)
	}
	fmt.Fprintf(w, "Status:      %s\n", rec.Status)
	if rec.Error != "" {
		fmt.Fprintf(w, "Error:       %s\n", rec.Error)
	}
	fmt.Fprintf(w, "Started:     %s (%s)\n", view.StartedAt, view.Duration)
	fmt.Fprintf(w, "Policies:    selection=%s feedback=%s validation=%s\n", cfg.Selection, cfg.Feedback, cfg.Validation)
	fmt.Fprintf(w, "Parameters:  M=%d mu=%g D=%g T=%g gt=%d seed=%d\n",
		cfg.SampleSize, cfg.MutationRate, cfg.DeceptionRisk, cfg.InviteThreshold, cfg.GroundTruth, cfg.Seed)
	fmt.Fprintln(w)
	printSummary(w, view.Summary)

	if len(events) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Events:")
		for _, ev := range events {
			line := fmt.Sprintf("  %-10s tick=%-7d %s", ev.Event, ev.Tick, ev.CreatedAt.Format(time.RFC3339))
			if ev.Reason != "" {
				line += "  " + ev.Reason
			}
			fmt.Fprintln(w, line)
		}
	}

	if len(view.Top) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%-6s| %-9s| %-8s| %-7s| %-9s| %s\n", "ID", "Quality", "Rating", "Votes", "Fitness", "Validated")
		fmt.Fprintf(w, "%-6s+%-10s+%-9s+%-8s+%-10s+%s\n", "------", "----------", "---------", "--------", "----------", "----------")
		for _, r := range view.Top {
			fmt.Fprintf(w, "%-6d| %-9s| %-8d| %-7s| %-9s| %t\n",
				r.ID, fmtOpt(r.Quality), r.Rating, fmt.Sprintf("%d/%d", r.VotesPositive, r.VotesNegative), fmtOpt(r.Fitness), r.Validated)
		}
	}
	return nil
}

// topByFitness returns the n fittest reviews; unscored reviews sort last.
func topByFitness(reviews []review.Snapshot, n int) []review.Snapshot {
	sorted := slices.Clone(reviews)
	slices.SortStableFunc(sorted, func(a, b review.Snapshot) int {
		return cmp.Compare(fitnessKey(b), fitnessKey(a))
	})
	return sorted[:max(0, min(n, len(sorted)))]
}

func fitnessKey(r review.Snapshot) float64 {
	if r.Fitness == nil {
		return -1e308
	}
	return *r.Fitness
}

func fmtOpt(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *v)
}

// #endregion detail-mode
