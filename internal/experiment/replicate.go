package experiment

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jamumford/Online-Product-Reviews/internal/logging"
)

// #region replicate

// Replication is a sweep repeated once per seed. Series[i][j] is the run of
// value Labels[j] under seed Seeds[i]; it is nil when the run never started.
type Replication struct {
	Variable Variable
	Seeds    []int64
	Labels   []string
	Series   [][]*Series
}

// Replicate runs every value of the experiment's sweep once per seed. All
// runs share one bounded worker pool. On error the replication still holds
// every series that was started.
func Replicate(ctx context.Context, exp Experiment, seeds []int64, opts Options) (*Replication, error) {
	if len(seeds) == 0 {
		return nil, fmt.Errorf("replicate %s: no seeds", exp.Name)
	}
	base, err := exp.RunSpecs()
	if err != nil {
		return nil, err
	}
	if opts.AuditEvery == 0 {
		opts.AuditEvery = exp.AuditEvery
	}

	rep := &Replication{Seeds: seeds, Labels: make([]string, len(base))}
	if exp.Sweep != nil {
		rep.Variable = exp.Sweep.Variable
	}
	for j, spec := range base {
		rep.Labels[j] = spec.Label
	}

	specs := make([]RunSpec, 0, len(seeds)*len(base))
	for _, seed := range seeds {
		for _, spec := range base {
			spec.Config.Seed = seed
			specs = append(specs, spec)
		}
	}
	logging.OrDiscard(opts.Logger).Info("replication started",
		"experiment", exp.Name, "seeds", len(seeds), "runs", len(specs), "parallel", opts.Parallel)

	flat, runErr := RunAll(ctx, specs, opts)
	rep.Series = make([][]*Series, len(seeds))
	for i := range seeds {
		rep.Series[i] = flat[i*len(base) : (i+1)*len(base)]
	}
	return rep, runErr
}

// All returns every started series, seed-major.
func (r *Replication) All() []*Series {
	var out []*Series
	for _, row := range r.Series {
		for _, s := range row {
			if s != nil {
				out = append(out, s)
			}
		}
	}
	return out
}

// #endregion replicate

// #region seeds

// ParseSeeds reads a seed list such as "1-49" or "1,3,10-12". Ranges are
// inclusive; duplicates are rejected.
func ParseSeeds(s string) ([]int64, error) {
	var out []int64
	seen := map[int64]bool{}
	add := func(v int64) error {
		if seen[v] {
			return fmt.Errorf("seeds %q: %d listed twice", s, v)
		}
		seen[v] = true
		out = append(out, v)
		return nil
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		if !isRange || lo == "" {
			// a lone value, possibly negative
			v, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("seeds %q: %w", s, err)
			}
			if err := add(v); err != nil {
				return nil, err
			}
			continue
		}
		from, err := strconv.ParseInt(strings.TrimSpace(lo), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("seeds %q: %w", s, err)
		}
		to, err := strconv.ParseInt(strings.TrimSpace(hi), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("seeds %q: %w", s, err)
		}
		if to < from {
			return nil, fmt.Errorf("seeds %q: range %d-%d is descending", s, from, to)
		}
		for v := from; v <= to; v++ {
			if err := add(v); err != nil {
				return nil, err
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("seeds %q: empty", s)
	}
	return out, nil
}

// #endregion seeds

// #region final-table

// WriteFinalTable writes the last-tick value of metric for every run in
// wide format: one row per seed, one column per label.
func WriteFinalTable(w io.Writer, metric Metric, rep *Replication) error {
	header := append([]string{"Seed"}, rep.Labels...)
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, seed := range rep.Seeds {
		row := make([]string, 0, len(header))
		row = append(row, strconv.FormatInt(seed, 10))
		for j, label := range rep.Labels {
			s := rep.Series[i][j]
			if s == nil || len(s.Records) == 0 {
				return fmt.Errorf("final table %s: seed %d %s has no ticks", metric, seed, label)
			}
			v, err := metric.of(s.Records[len(s.Records)-1])
			if err != nil {
				return err
			}
			row = append(row, ftoa(v))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// BoxTableName is the file name of a final-value table, in the layout
// box_plot_<variable>_<validation>_<metric>_DF.csv.
func BoxTableName(variable Variable, validation string, metric Metric) string {
	return fmt.Sprintf("box_plot_%s_%s_%s_DF.csv", variable, validation, metric)
}

// #endregion final-table
