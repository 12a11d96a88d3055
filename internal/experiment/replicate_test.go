package experiment

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jamumford/Online-Product-Reviews/internal/platform"
)

// #region replicate-tests
func replicationExperiment() Experiment {
	exp := Default()
	exp.Name = "select-box"
	exp.Ticks = 60
	exp.AuditEvery = 0
	exp.Sweep = &SweepSpec{Variable: VarSelection, Values: []string{"random", "best-quality"}}
	return exp
}

func TestReplicate_OneRunPerSeedAndValue(t *testing.T) {
	seeds := []int64{1, 2, 3}
	obs := newCountingObserver()
	rep, err := Replicate(context.Background(), replicationExperiment(), seeds, Options{Parallel: 3, Observer: obs})
	if err != nil {
		t.Fatalf("Replicate: %v", err)
	}
	if diff := cmp.Diff([]string{"random", "best-quality"}, rep.Labels); diff != "" {
		t.Errorf("labels (-want +got):\n%s", diff)
	}
	if rep.Variable != VarSelection || len(rep.Series) != len(seeds) {
		t.Fatalf("unexpected shape: variable=%s rows=%d", rep.Variable, len(rep.Series))
	}
	for i, row := range rep.Series {
		if len(row) != 2 {
			t.Fatalf("seed %d: %d runs, want 2", seeds[i], len(row))
		}
		for j, s := range row {
			if s.Config.Seed != seeds[i] || s.Label != rep.Labels[j] || !s.Complete() {
				t.Errorf("series[%d][%d]: seed=%d label=%s complete=%v", i, j, s.Config.Seed, s.Label, s.Complete())
			}
		}
	}
	if got := len(rep.All()); got != 6 {
		t.Errorf("All() = %d series, want 6", got)
	}
	if obs.runs["random"] != 3 || obs.runs["best-quality"] != 3 {
		t.Errorf("observed runs %v", obs.runs)
	}
}

func TestReplicate_SeedRowMatchesSingleRun(t *testing.T) {
	exp := replicationExperiment()
	rep, err := Replicate(context.Background(), exp, []int64{7}, Options{})
	if err != nil {
		t.Fatalf("Replicate: %v", err)
	}

	specs, _ := exp.RunSpecs()
	spec := specs[1]
	spec.Config.Seed = 7
	single, err := Run(context.Background(), spec, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if d := Compare(single.Records, rep.Series[0][1].Records); len(d) != 0 {
		t.Fatalf("replicated run diverged from a plain run: %v", d[0])
	}
}

func TestReplicate_NoSeeds(t *testing.T) {
	if _, err := Replicate(context.Background(), replicationExperiment(), nil, Options{}); err == nil {
		t.Fatal("expected error for empty seed list")
	}
}

func TestReplicate_InvalidSweepValue(t *testing.T) {
	exp := replicationExperiment()
	exp.Platform.MutationRate = -1
	if _, err := Replicate(context.Background(), exp, []int64{1, 2}, Options{}); !errors.Is(err, platform.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestReplicate_CancelledKeepsShape(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := Replicate(ctx, replicationExperiment(), []int64{1, 2}, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if rep == nil || len(rep.Series) != 2 || len(rep.Series[0]) != 2 {
		t.Fatalf("expected a 2x2 replication, got %+v", rep)
	}
	if n := len(rep.All()); n != 0 {
		t.Errorf("no run should have started, got %d", n)
	}
}

// #endregion replicate-tests

// #region final-table-tests
func TestWriteFinalTable_CellsAreLastRecords(t *testing.T) {
	seeds := []int64{4, 5}
	rep, err := Replicate(context.Background(), replicationExperiment(), seeds, Options{Parallel: 2})
	if err != nil {
		t.Fatalf("Replicate: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteFinalTable(&buf, MetricFitness, rep); err != nil {
		t.Fatalf("WriteFinalTable: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 1+len(seeds) {
		t.Fatalf("rows = %d, want header + %d seeds", len(rows), len(seeds))
	}
	if diff := cmp.Diff([]string{"Seed", "random", "best-quality"}, rows[0]); diff != "" {
		t.Errorf("header (-want +got):\n%s", diff)
	}
	for i, seed := range seeds {
		row := rows[i+1]
		if row[0] != strconv.FormatInt(seed, 10) {
			t.Errorf("row %d seed = %s", i, row[0])
		}
		for j := range rep.Labels {
			recs := rep.Series[i][j].Records
			if want := ftoa(recs[len(recs)-1].Fitness); row[j+1] != want {
				t.Errorf("seed %d %s = %s, want %s", seed, rep.Labels[j], row[j+1], want)
			}
		}
	}
}

func TestWriteFinalTable_MissingRun(t *testing.T) {
	rep := &Replication{Seeds: []int64{1}, Labels: []string{"random"}, Series: [][]*Series{{nil}}}
	if err := WriteFinalTable(&bytes.Buffer{}, MetricQuality, rep); err == nil {
		t.Fatal("expected error for a run that never started")
	}
}

func TestBoxTableName(t *testing.T) {
	got := BoxTableName(VarSelection, "validated-only", MetricQuality)
	if got != "box_plot_selection_validated-only_Quality_DF.csv" {
		t.Errorf("BoxTableName = %q", got)
	}
}

// #endregion final-table-tests

// #region seeds-tests
func TestParseSeeds(t *testing.T) {
	cases := []struct {
		in   string
		want []int64
	}{
		{"1-5", []int64{1, 2, 3, 4, 5}},
		{"1, 3,10-12", []int64{1, 3, 10, 11, 12}},
		{"7", []int64{7}},
		{"-3", []int64{-3}},
	}
	for _, tc := range cases {
		got, err := ParseSeeds(tc.in)
		if err != nil {
			t.Errorf("ParseSeeds(%q): %v", tc.in, err)
			continue
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("ParseSeeds(%q) (-want +got):\n%s", tc.in, diff)
		}
	}
	if got, _ := ParseSeeds("1-49"); len(got) != 49 || got[48] != 49 {
		t.Errorf("1-49 gave %d seeds", len(got))
	}

	for _, bad := range []string{"", "a", "5-1", "1-3,2", "1-x"} {
		if _, err := ParseSeeds(bad); err == nil {
			t.Errorf("ParseSeeds(%q): expected error", bad)
		}
	}
}

// #endregion seeds-tests
