package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamumford/Online-Product-Reviews/internal/experiment"
)

// #region run-cmd

type runFlags struct {
	experimentFlags
	csv     string
	noStore bool
}

func newRunCmd(a *app) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single platform for a fixed number of ticks",
		Long: `Run one platform from an experiment file or from the reference
parameters, store the tick series and final population, and print a
summary. Flags override the experiment file.`,
		Example: `  reviewgame run --ticks 5000 --selection most-helpful
  reviewgame run -e experiments/reference.yaml --seed 7 --csv out.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSingle(cmd, a, f)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&f.csv, "csv", "", "write the tick series as CSV to this file")
	cmd.Flags().BoolVar(&f.noStore, "no-store", false, "do not persist the run")
	return cmd
}

func runSingle(cmd *cobra.Command, a *app, f *runFlags) error {
	exp, err := f.resolve(cmd, a)
	if err != nil {
		return err
	}
	if exp.Sweep != nil {
		return errors.New("experiment defines a sweep; use the sweep command")
	}
	if err := exp.Validate(); err != nil {
		return err
	}
	specs, err := exp.RunSpecs()
	if err != nil {
		return err
	}

	if f.file == "" && !cmd.Flags().Changed("name") {
		// ad-hoc runs are labelled by their selection policy
		specs[0].Label = ""
	}

	opts := experiment.Options{
		Logger:     a.log,
		Observer:   a.recorder,
		AuditEvery: exp.AuditEvery,
	}
	series, runErr := experiment.Run(cmd.Context(), specs[0], opts)
	if series == nil {
		return runErr
	}

	if !f.noStore {
		st, err := a.openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		if err := persist(st, exp.Name, series, runErr); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}

	if f.csv != "" {
		if err := writeFile(f.csv, func(w io.Writer) error { return experiment.WriteCSV(w, series) }); err != nil {
			return err
		}
	}
	printSummary(cmd.OutOrStdout(), experiment.Summarize(series))
	return a.flushMetrics()
}

// #endregion run-cmd

// #region output

func printSummary(w io.Writer, s experiment.Summary) {
	fmt.Fprintf(w, "Run:        %s\n", s.RunID)
	fmt.Fprintf(w, "Label:      %s\n", s.Label)
	fmt.Fprintf(w, "Ticks:      %d\n", s.Ticks)
	fmt.Fprintf(w, "Population: %d\n", s.Population)
	fmt.Fprintf(w, "Events:     %d mutations, %d exploitations\n", s.Mutations, s.Exploitations)
	fmt.Fprintf(w, "Votes:      +%d / -%d\n", s.VotesPositive, s.VotesNegative)
	fmt.Fprintf(w, "Final:      quality=%.4f fitness=%.4f rating=%.4f\n", s.FinalQuality, s.FinalFitness, s.FinalRating)
	fmt.Fprintf(w, "Mean:       quality=%.4f fitness=%.4f rating=%.4f\n", s.MeanQuality, s.MeanFitness, s.MeanRating)
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// #endregion output
