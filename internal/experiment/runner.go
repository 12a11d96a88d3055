package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jamumford/Online-Product-Reviews/internal/agent"
	"github.com/jamumford/Online-Product-Reviews/internal/audit"
	"github.com/jamumford/Online-Product-Reviews/internal/logging"
	"github.com/jamumford/Online-Product-Reviews/internal/platform"
	"github.com/jamumford/Online-Product-Reviews/internal/review"
	"github.com/jamumford/Online-Product-Reviews/internal/rng"
)

// #region types

// Observer receives every step and the end of every run. The metrics
// recorder implements it.
type Observer interface {
	ObserveStep(label string, res platform.StepResult)
	ObserveRun(label string, d time.Duration)
}

// Options control how runs execute. The zero value runs sequentially
// without audits, observers or logging.
type Options struct {
	Logger     *slog.Logger
	Observer   Observer
	AuditEvery int // audit the population every N ticks; 0 audits only at the end
	Parallel   int // concurrent runs in a sweep; values below 1 mean 1
}

// TickRecord is the driver's view of one tick.
type TickRecord struct {
	Tick          int            `json:"tick"`
	Population    int            `json:"population"`
	Event         platform.Event `json:"event"`
	SampleSize    int            `json:"sample_size"`
	Quality       float64        `json:"quality"`
	Fitness       float64        `json:"fitness"`
	Rating        float64        `json:"rating"`
	VotesPositive int            `json:"votes_positive"`
	VotesNegative int            `json:"votes_negative"`
}

// Series is the full trajectory of one run.
type Series struct {
	RunID     string            `json:"run_id"`
	Label     string            `json:"label"`
	Config    platform.Config   `json:"config"`
	Ticks     int               `json:"ticks"`
	StartedAt time.Time         `json:"started_at"`
	Duration  time.Duration     `json:"duration"`
	Records   []TickRecord      `json:"records"`
	Reviews   []review.Snapshot `json:"reviews"`
	Audit     *audit.Result     `json:"audit,omitempty"`

	// RNG is the generator position after the last tick.
	RNG rng.State `json:"rng"`
}

// #endregion types

// #region run

// Run executes one run: a platform seeded from spec.Config.Seed, one initial
// review, then spec.Ticks steps. On error the partial series is returned
// alongside it so callers can record how far the run got.
func Run(ctx context.Context, spec RunSpec, opts Options) (*Series, error) {
	log := logging.OrDiscard(opts.Logger)
	if spec.RunID == "" {
		spec.RunID = uuid.NewString()
	}
	if spec.Label == "" {
		spec.Label = spec.Config.Selection.String()
	}
	log = log.With("run_id", spec.RunID, "label", spec.Label)
	if spec.Ticks < 0 {
		return nil, fmt.Errorf("run %s: ticks must be non-negative, got %d", spec.Label, spec.Ticks)
	}

	src := rng.New(spec.Config.Seed)
	p, err := platform.New(spec.Config, src)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", spec.Label, err)
	}

	start := time.Now()
	series := &Series{
		RunID:     spec.RunID,
		Label:     spec.Label,
		Config:    spec.Config,
		Ticks:     spec.Ticks,
		StartedAt: start.UTC(),
		Records:   make([]TickRecord, 0, spec.Ticks),
	}
	finish := func() {
		series.Duration = time.Since(start)
		series.Reviews = p.History()
		if st, err := src.State(); err == nil {
			series.RNG = st
		}
	}

	if _, err := p.GenerateReview(); err != nil {
		finish()
		return series, fmt.Errorf("run %s: initial review: %w", spec.Label, err)
	}

	harness := audit.NewHarness(audit.DefaultConfig(spec.Config.GroundTruth))
	voter := agent.New()
	log.Debug("run started", "ticks", spec.Ticks, "seed", src.Seed(), "agent", voter.Kind())

	for i := 0; i < spec.Ticks; i++ {
		if err := ctx.Err(); err != nil {
			finish()
			return series, fmt.Errorf("run %s: cancelled at tick %d: %w", spec.Label, i, err)
		}
		res, err := p.Step(voter)
		if err != nil {
			finish()
			return series, fmt.Errorf("run %s: %w", spec.Label, err)
		}
		series.Records = append(series.Records, recordOf(res))
		if opts.Observer != nil {
			opts.Observer.ObserveStep(spec.Label, res)
		}
		log.Log(ctx, logging.LevelTrace, "tick",
			"tick", res.Tick, "event", res.Event, "population", res.Population,
			"quality", res.Aggregates.Quality, "fitness", res.Aggregates.Fitness)

		if opts.AuditEvery > 0 && (i+1)%opts.AuditEvery == 0 && i+1 < spec.Ticks {
			result := harness.Run(p.History())
			log.Debug("audit", "tick", i+1, "passed", result.Passed)
			if err := result.Err(); err != nil {
				finish()
				series.Audit = &result
				return series, fmt.Errorf("run %s: audit at tick %d: %w", spec.Label, i+1, err)
			}
		}
	}

	finish()
	result := harness.Run(series.Reviews)
	series.Audit = &result
	if err := result.Err(); err != nil {
		return series, fmt.Errorf("run %s: final audit: %w", spec.Label, err)
	}
	if opts.Observer != nil {
		opts.Observer.ObserveRun(spec.Label, series.Duration)
	}
	log.Info("run complete", "population", p.Population(), "duration", series.Duration.Round(time.Millisecond))
	return series, nil
}

// Complete reports whether the run reached its horizon and passed its
// final audit.
func (s *Series) Complete() bool {
	return len(s.Records) == s.Ticks && s.Audit != nil && s.Audit.Passed
}

func recordOf(res platform.StepResult) TickRecord {
	return TickRecord{
		Tick:          res.Tick,
		Population:    res.Population,
		Event:         res.Event,
		SampleSize:    res.Aggregates.SampleSize,
		Quality:       res.Aggregates.Quality,
		Fitness:       res.Aggregates.Fitness,
		Rating:        res.Aggregates.Rating,
		VotesPositive: res.Tally.Positive,
		VotesNegative: res.Tally.Negative,
	}
}

// #endregion run

// #region sweep

// RunAll executes specs and returns their series in spec order. With
// opts.Parallel > 1 runs execute concurrently; the first failure cancels
// the runs that have not finished. On error the slice still holds every
// series that was started, complete or not, and nil for runs that never
// started.
func RunAll(ctx context.Context, specs []RunSpec, opts Options) ([]*Series, error) {
	results := make([]*Series, len(specs))
	limit := opts.Parallel
	if limit < 1 {
		limit = 1
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, spec := range specs {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			s, err := Run(gCtx, spec, opts)
			results[i] = s
			return err
		})
	}
	return results, g.Wait()
}

// Sweep runs every value of the experiment's sweep from the same seed.
// An experiment without a sweep block runs once.
func Sweep(ctx context.Context, exp Experiment, opts Options) ([]*Series, error) {
	specs, err := exp.RunSpecs()
	if err != nil {
		return nil, err
	}
	if opts.AuditEvery == 0 {
		opts.AuditEvery = exp.AuditEvery
	}
	logging.OrDiscard(opts.Logger).Info("sweep started", "experiment", exp.Name, "runs", len(specs), "parallel", opts.Parallel)
	return RunAll(ctx, specs, opts)
}

// #endregion sweep
