package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamumford/Online-Product-Reviews/internal/experiment"
	"github.com/jamumford/Online-Product-Reviews/internal/store"
)

// #region export-cmd

type exportFlags struct {
	out    string
	metric string
}

func newExportCmd(a *app) *cobra.Command {
	f := &exportFlags{}
	cmd := &cobra.Command{
		Use:   "export <run-id>...",
		Short: "Export stored tick series as CSV",
		Long: `Export writes the tick series of one or more stored runs. Without
--metric the output is one row per run and tick. With --metric the output
is a wide table with one column per run, which requires every run to
have the same length.`,
		Example: `  reviewgame export 3f2a... --out run.csv
  reviewgame export 3f2a... 9b1c... --metric Fitness`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			series, err := loadSeries(st, args)
			if err != nil {
				return err
			}
			write := func(w io.Writer) error { return experiment.WriteCSV(w, series...) }
			if f.metric != "" {
				m, err := parseMetric(f.metric)
				if err != nil {
					return err
				}
				write = func(w io.Writer) error { return experiment.WriteMetricTable(w, m, series...) }
			}
			if f.out == "" {
				return write(cmd.OutOrStdout())
			}
			return writeFile(f.out, write)
		},
	}
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&f.metric, "metric", "", "wide table of one metric: Quality, Fitness, Rating")
	return cmd
}

// loadSeries rebuilds series from the store in argument order.
func loadSeries(st *store.Store, runIDs []string) ([]*experiment.Series, error) {
	out := make([]*experiment.Series, 0, len(runIDs))
	for _, id := range runIDs {
		rec, err := st.GetRun(id)
		if err != nil {
			return nil, err
		}
		ticks, err := st.TickSeries(id)
		if err != nil {
			return nil, err
		}
		out = append(out, &experiment.Series{
			RunID:     rec.RunID,
			Label:     rec.Label,
			Config:    rec.Config,
			Ticks:     rec.Ticks,
			StartedAt: rec.StartedAt,
			Duration:  rec.Duration,
			Records:   ticks,
			RNG:       rec.RNG,
		})
	}
	return out, nil
}

func parseMetric(s string) (experiment.Metric, error) {
	for _, m := range experiment.Metrics() {
		if strings.EqualFold(string(m), s) {
			return m, nil
		}
	}
	names := make([]string, 0, 3)
	for _, m := range experiment.Metrics() {
		names = append(names, string(m))
	}
	return "", fmt.Errorf("unknown metric %q (valid: %s)", s, strings.Join(names, ", "))
}

// #endregion export-cmd
