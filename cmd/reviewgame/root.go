package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jamumford/Online-Product-Reviews/internal/config"
	"github.com/jamumford/Online-Product-Reviews/internal/logging"
	"github.com/jamumford/Online-Product-Reviews/internal/metrics"
	"github.com/jamumford/Online-Product-Reviews/internal/store"
)

var version = "dev"

// #region app

// app carries the state every subcommand shares once the persistent
// flags have been applied.
type app struct {
	configPath string
	dbPath     string
	logLevel   string
	logFormat  string
	metricsOut string

	cfg      *config.AppConfig
	log      *slog.Logger
	registry *prometheus.Registry
	recorder *metrics.Recorder
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "reviewgame",
		Short: "Evolutionary game for the emergence of online product reviews",
		Long: `reviewgame simulates a review platform where reviews compete for
helpfulness votes. Runs are deterministic for a given seed and are stored
in SQLite so they can be inspected, exported, and replayed.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default ~/.reviewgame/config.yaml)")
	pf.StringVar(&a.dbPath, "db", "", "path to the run store")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: error, warn, info, debug, trace")
	pf.StringVar(&a.logFormat, "log-format", "", "log format: text or json")
	pf.StringVar(&a.metricsOut, "metrics-out", "", "write Prometheus text metrics to this file")

	root.AddCommand(
		newRunCmd(a),
		newSweepCmd(a),
		newReplayCmd(a),
		newInspectCmd(a),
		newExportCmd(a),
	)
	return root
}

// setup loads the config file, lets changed flags win over it, and builds
// the logger and metrics registry.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Store.Path = a.dbPath
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = a.logFormat
	}
	if flags.Changed("metrics-out") {
		cfg.Metrics.Output = a.metricsOut
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.log = logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
	a.registry = prometheus.NewRegistry()
	a.recorder = metrics.NewRecorder(a.registry)
	return nil
}

// #endregion app

// #region helpers

func (a *app) openStore() (*store.Store, error) {
	st, err := store.NewStore(a.cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", a.cfg.Store.Path, err)
	}
	return st, nil
}

// flushMetrics writes the registry to the configured metrics file.
func (a *app) flushMetrics() error {
	if a.cfg.Metrics.Output == "" {
		return nil
	}
	f, err := os.Create(a.cfg.Metrics.Output)
	if err != nil {
		return fmt.Errorf("create metrics file: %w", err)
	}
	defer f.Close()
	if err := metrics.WriteText(f, a.registry); err != nil {
		return err
	}
	a.log.Debug("metrics written", "path", a.cfg.Metrics.Output)
	return nil
}

// #endregion helpers
