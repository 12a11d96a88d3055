package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamumford/Online-Product-Reviews/internal/experiment"
	"github.com/jamumford/Online-Product-Reviews/internal/logging"
	"github.com/jamumford/Online-Product-Reviews/internal/rng"
	"github.com/jamumford/Online-Product-Reviews/internal/store"
)

// errDiverged is returned after the comparison table has been printed.
var errDiverged = errors.New("replay diverged")

// #region replay-cmd

type replayFlags struct {
	show int
}

func newReplayCmd(a *app) *cobra.Command {
	f := &replayFlags{}
	cmd := &cobra.Command{
		Use:   "replay <run-id>",
		Short: "Re-run a stored run and compare it tick by tick",
		Long: `Replay re-executes a stored run with its stored configuration and seed,
then compares every tick and the final generator state. It exits
non-zero when anything diverges.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, a, f, args[0])
		},
	}
	cmd.Flags().IntVar(&f.show, "show", 20, "divergent ticks to print")
	return cmd
}

func runReplay(cmd *cobra.Command, a *app, f *replayFlags, runID string) error {
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.GetRun(runID)
	if err != nil {
		return err
	}
	want, err := st.TickSeries(runID)
	if err != nil {
		return err
	}
	if rec.Status != store.StatusCompleted {
		a.log.Warn("replaying a run that did not complete", "run_id", runID, "status", rec.Status)
	}

	spec := experiment.RunSpec{RunID: rec.RunID, Label: rec.Label, Ticks: rec.Ticks, Config: rec.Config}
	got, runErr := experiment.Run(cmd.Context(), spec, experiment.Options{Logger: a.log, Observer: a.recorder})
	if got == nil {
		return runErr
	}

	divs := experiment.Compare(want, got.Records)
	rngMatch := sameState(rec.RNG, got.RNG)
	diverged := printComparison(cmd.OutOrStdout(), want, divs, rngMatch, f.show)

	detail, _ := json.Marshal(map[string]any{
		"ticks":       len(want),
		"divergences": len(divs),
		"rng_match":   rngMatch,
	})
	ev := logging.RunEvent{
		RunID:      rec.RunID,
		Label:      rec.Label,
		Event:      logging.EventReplayed,
		Tick:       len(got.Records),
		DetailJSON: string(detail),
		CreatedAt:  time.Now().UTC(),
	}
	if diverged {
		ev.Reason = "diverged"
		if len(divs) > 0 {
			ev.Reason = divs[0].String()
		}
	}
	if err := logging.LogRunEvent(st.DB(), ev); err != nil {
		return fmt.Errorf("log replay: %w", err)
	}

	if runErr != nil && rec.Status == store.StatusCompleted {
		return runErr
	}
	if diverged {
		return errDiverged
	}
	return a.flushMetrics()
}

// sameState compares generator positions. Runs stored without a state
// only compare draw counts.
func sameState(want, got rng.State) bool {
	if want.Draws != got.Draws {
		return false
	}
	return len(want.PCG) == 0 || bytes.Equal(want.PCG, got.PCG)
}

// #endregion replay-cmd

// #region comparison

// printComparison outputs a divergence table and reports whether the
// replay diverged.
func printComparison(w io.Writer, want []experiment.TickRecord, divs []experiment.Divergence, rngMatch bool, show int) bool {
	total := len(want)
	diverge := len(divs)

	if diverge > 0 {
		fmt.Fprintf(w, "%-8s| %-15s| %-22s| %s\n", "Tick", "Field", "Stored", "Replayed")
		fmt.Fprintf(w, "%-8s+%-16s+%-23s+%s\n", "--------", "----------------", "-----------------------", "-----------")
		for i, d := range divs {
			if i == show {
				fmt.Fprintf(w, "... %d more\n", diverge-show)
				break
			}
			fmt.Fprintf(w, "%-8d| %-15s| %-22s| %s\n", d.Tick, d.Field, d.Want, d.Got)
		}
		fmt.Fprintln(w)
	}

	rngLabel := "match"
	if !rngMatch {
		rngLabel = "DIVERGE"
	}
	fmt.Fprintf(w, "RNG state: %s\n", rngLabel)
	fmt.Fprintf(w, "Summary: %d total, %d match, %d diverge\n", total, total-min(diverge, total), diverge)
	return diverge > 0 || !rngMatch
}

// #endregion comparison
