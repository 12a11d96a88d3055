package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jamumford/Online-Product-Reviews/internal/experiment"
)

// #region sweep-cmd

type sweepFlags struct {
	experimentFlags
	variable string
	values   []string
	parallel int
	csvDir   string
	seeds    string
	noStore  bool
}

func newSweepCmd(a *app) *cobra.Command {
	f := &sweepFlags{}
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one platform per value of a policy variable",
		Long: `Sweep varies one of selection, feedback, validation or sample-size
across runs that share every other parameter and the seed. The sweep can
come from the experiment file or from --variable and --values; without
--values every value of the variable is run. With --seeds the sweep is
repeated once per seed and the tables hold each run's final values.`,
		Example: `  reviewgame sweep --variable selection --ticks 10000 --csv-dir out/
  reviewgame sweep --variable sample-size --values 2,5,10 --feedback both
  reviewgame sweep --variable selection --seeds 1-49 --csv-dir out/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSweep(cmd, a, f)
		},
	}
	f.register(cmd)
	fs := cmd.Flags()
	fs.StringVar(&f.variable, "variable", "", "variable to sweep: selection, feedback, validation, sample-size")
	fs.StringSliceVar(&f.values, "values", nil, "comma-separated values (default: every value of the variable)")
	fs.IntVar(&f.parallel, "parallel", 0, "concurrent runs (default from config)")
	fs.StringVar(&f.csvDir, "csv-dir", "", "write one metric table per metric into this directory")
	fs.StringVar(&f.seeds, "seeds", "", "repeat the sweep for each seed, e.g. 1-49, and tabulate final values")
	fs.BoolVar(&f.noStore, "no-store", false, "do not persist the runs")
	return cmd
}

func runSweep(cmd *cobra.Command, a *app, f *sweepFlags) error {
	exp, err := f.resolve(cmd, a)
	if err != nil {
		return err
	}
	if f.variable != "" {
		v := experiment.Variable(f.variable)
		values := f.values
		if len(values) == 0 {
			values = experiment.DefaultValues(v)
		}
		exp.Sweep = &experiment.SweepSpec{Variable: v, Values: values}
	}
	if exp.Sweep == nil {
		return errors.New("nothing to sweep: pass --variable or an experiment with a sweep block")
	}
	if err := exp.Validate(); err != nil {
		return err
	}

	parallel := a.cfg.Runner.Parallel
	if f.parallel > 0 {
		parallel = f.parallel
	}
	opts := experiment.Options{
		Logger:   a.log,
		Observer: a.recorder,
		Parallel: parallel,
	}
	if f.seeds != "" {
		return runReplicate(cmd, a, f, exp, opts)
	}
	series, runErr := experiment.Sweep(cmd.Context(), exp, opts)

	if err := a.persistAll(exp.Name, series, runErr, f.noStore); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}

	if f.csvDir != "" {
		if err := writeTables(f.csvDir, exp, series); err != nil {
			return err
		}
	}
	printSweepTable(cmd.OutOrStdout(), series)
	return a.flushMetrics()
}

// runReplicate repeats the sweep once per seed and writes final-value
// tables instead of per-tick ones.
func runReplicate(cmd *cobra.Command, a *app, f *sweepFlags, exp experiment.Experiment, opts experiment.Options) error {
	seeds, err := experiment.ParseSeeds(f.seeds)
	if err != nil {
		return err
	}
	rep, runErr := experiment.Replicate(cmd.Context(), exp, seeds, opts)
	if rep == nil {
		return runErr
	}
	if err := a.persistAll(exp.Name, rep.All(), runErr, f.noStore); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}

	if f.csvDir != "" {
		if err := os.MkdirAll(f.csvDir, 0o755); err != nil {
			return fmt.Errorf("create csv dir: %w", err)
		}
		for _, m := range experiment.Metrics() {
			path := filepath.Join(f.csvDir, experiment.BoxTableName(exp.Sweep.Variable, exp.Platform.Validation.String(), m))
			if err := writeFile(path, func(w io.Writer) error {
				return experiment.WriteFinalTable(w, m, rep)
			}); err != nil {
				return err
			}
		}
	}
	printReplicationTable(cmd.OutOrStdout(), rep)
	return a.flushMetrics()
}

// persistAll stores every started series. Series that did not complete are
// recorded as aborted with runErr.
func (a *app) persistAll(expName string, series []*experiment.Series, runErr error, skip bool) error {
	if skip {
		return nil
	}
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	for _, s := range series {
		if s == nil {
			continue
		}
		var sErr error
		if !s.Complete() {
			sErr = runErr
		}
		if err := persist(st, expName, s, sErr); err != nil {
			return err
		}
	}
	return nil
}

// writeTables writes one wide table per metric, named after the swept
// variable and the validation policy of the base configuration.
func writeTables(dir string, exp experiment.Experiment, series []*experiment.Series) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create csv dir: %w", err)
	}
	for _, m := range experiment.Metrics() {
		name := experiment.TableName(exp.Sweep.Variable, exp.Platform.Validation.String(), m)
		path := filepath.Join(dir, name)
		if err := writeFile(path, func(w io.Writer) error {
			return experiment.WriteMetricTable(w, m, series...)
		}); err != nil {
			return err
		}
	}
	return nil
}

// #endregion sweep-cmd

// #region sweep-output

func printSweepTable(w io.Writer, series []*experiment.Series) {
	fmt.Fprintf(w, "%-16s| %-8s| %-11s| %-10s| %-10s| %-10s| %s\n",
		"Label", "Run", "Population", "Quality", "Fitness", "Rating", "Votes +/-")
	fmt.Fprintf(w, "%-16s+%-9s+%-12s+%-11s+%-11s+%-11s+%s\n",
		"----------------", "---------", "------------", "-----------", "-----------", "-----------", "----------")
	for _, s := range series {
		sum := experiment.Summarize(s)
		fmt.Fprintf(w, "%-16s| %-8s| %-11d| %-10.4f| %-10.4f| %-10.4f| %d/%d\n",
			sum.Label, shortID(sum.RunID), sum.Population, sum.MeanQuality, sum.MeanFitness, sum.MeanRating,
			sum.VotesPositive, sum.VotesNegative)
	}
	fmt.Fprintf(w, "\n%d runs\n", len(series))
}

// printReplicationTable reports, per label, the mean final quality and
// fitness across seeds.
func printReplicationTable(w io.Writer, rep *experiment.Replication) {
	fmt.Fprintf(w, "%-16s| %-6s| %-14s| %s\n", "Label", "Seeds", "Final quality", "Final fitness")
	fmt.Fprintf(w, "%-16s+%-7s+%-15s+%s\n", "----------------", "-------", "---------------", "--------------")
	for j, label := range rep.Labels {
		var q, fit float64
		n := 0
		for i := range rep.Seeds {
			s := rep.Series[i][j]
			if s == nil || len(s.Records) == 0 {
				continue
			}
			last := s.Records[len(s.Records)-1]
			q += last.Quality
			fit += last.Fitness
			n++
		}
		if n > 0 {
			q /= float64(n)
			fit /= float64(n)
		}
		fmt.Fprintf(w, "%-16s| %-6d| %-14.4f| %.4f\n", label, n, q, fit)
	}
	fmt.Fprintf(w, "\n%d runs over %d seeds\n", len(rep.All()), len(rep.Seeds))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion sweep-output
