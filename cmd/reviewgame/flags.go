package main

import (
	"github.com/spf13/cobra"

	"github.com/jamumford/Online-Product-Reviews/internal/experiment"
	"github.com/jamumford/Online-Product-Reviews/internal/platform"
	"github.com/jamumford/Online-Product-Reviews/internal/policy"
)

// #region platform-flags

// experimentFlags select an experiment file and override its fields.
type experimentFlags struct {
	file       string
	name       string
	ticks      int
	auditEvery int

	seed            int64
	selection       string
	feedback        string
	validation      string
	sampleSize      int
	mutationRate    float64
	deceptionRisk   float64
	inviteThreshold float64
	groundTruth     int
	persistentOrder bool
}

func (f *experimentFlags) register(cmd *cobra.Command) {
	def := platform.DefaultConfig()
	fs := cmd.Flags()
	fs.StringVarP(&f.file, "experiment", "e", "", "experiment YAML file")
	fs.StringVar(&f.name, "name", "", "experiment name stored with the run")
	fs.IntVar(&f.ticks, "ticks", 10000, "number of ticks per run")
	fs.IntVar(&f.auditEvery, "audit-every", 0, "audit the population every N ticks (0 = end only)")

	fs.Int64Var(&f.seed, "seed", def.Seed, "random seed")
	fs.StringVar(&f.selection, "selection", def.Selection.String(), "selection policy: random, most-helpful, most-recent, best-quality")
	fs.StringVar(&f.feedback, "feedback", def.Feedback.String(), "feedback policy: none, positive-only, both")
	fs.StringVar(&f.validation, "validation", def.Validation.String(), "validation policy: validated-only, none")
	fs.IntVar(&f.sampleSize, "sample-size", def.SampleSize, "reviews shown per tick")
	fs.Float64Var(&f.mutationRate, "mutation-rate", def.MutationRate, "probability a tick authors a new review")
	fs.Float64Var(&f.deceptionRisk, "deception-risk", def.DeceptionRisk, "quality penalty for unvalidated reviews")
	fs.Float64Var(&f.inviteThreshold, "invite-threshold", def.InviteThreshold, "minimum interaction time for validated reviews")
	fs.IntVar(&f.groundTruth, "ground-truth", def.GroundTruth, "true product rating, 1 or -1")
	fs.BoolVar(&f.persistentOrder, "persistent-order", false, "keep ranked order between ticks")
}

// resolve loads the experiment file, or the default experiment, and
// applies every flag the user set explicitly.
func (f *experimentFlags) resolve(cmd *cobra.Command, a *app) (experiment.Experiment, error) {
	exp := experiment.Default()
	exp.AuditEvery = a.cfg.Runner.AuditEvery
	if f.file != "" {
		loaded, err := experiment.Load(f.file)
		if err != nil {
			return experiment.Experiment{}, err
		}
		exp = loaded
	}

	fs := cmd.Flags()
	cfg := &exp.Platform
	if fs.Changed("name") {
		exp.Name = f.name
	}
	if fs.Changed("ticks") {
		exp.Ticks = f.ticks
	}
	if fs.Changed("audit-every") {
		exp.AuditEvery = f.auditEvery
	}
	if fs.Changed("seed") {
		cfg.Seed = f.seed
	}
	if fs.Changed("selection") {
		s, err := policy.ParseSelection(f.selection)
		if err != nil {
			return experiment.Experiment{}, err
		}
		cfg.Selection = s
	}
	if fs.Changed("feedback") {
		fb, err := policy.ParseFeedback(f.feedback)
		if err != nil {
			return experiment.Experiment{}, err
		}
		cfg.Feedback = fb
	}
	if fs.Changed("validation") {
		v, err := policy.ParseValidation(f.validation)
		if err != nil {
			return experiment.Experiment{}, err
		}
		cfg.Validation = v
	}
	if fs.Changed("sample-size") {
		cfg.SampleSize = f.sampleSize
	}
	if fs.Changed("mutation-rate") {
		cfg.MutationRate = f.mutationRate
	}
	if fs.Changed("deception-risk") {
		cfg.DeceptionRisk = f.deceptionRisk
	}
	if fs.Changed("invite-threshold") {
		cfg.InviteThreshold = f.inviteThreshold
	}
	if fs.Changed("ground-truth") {
		cfg.GroundTruth = f.groundTruth
	}
	if fs.Changed("persistent-order") {
		cfg.PersistentOrder = f.persistentOrder
	}
	return exp, nil
}

// #endregion platform-flags
