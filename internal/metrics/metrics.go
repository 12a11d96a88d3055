// Package metrics exposes per-run Prometheus instruments for the review
// game and renders them in the text exposition format for offline runs.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"

	"github.com/jamumford/Online-Product-Reviews/internal/platform"
)

const metricsNamespace = "reviewgame"

// #region recorder

// Recorder holds the instruments for one registry. Every vector is labelled
// by run label, so a sweep reports one series per policy value.
//
// All operations are safe for concurrent use.
type Recorder struct {
	// TicksTotal counts ticks by label and event (mutation, exploitation).
	TicksTotal *prometheus.CounterVec

	// VotesTotal counts helpfulness votes by label and kind (positive, negative).
	VotesTotal *prometheus.CounterVec

	Population    *prometheus.GaugeVec
	SampleQuality *prometheus.GaugeVec
	SampleFitness *prometheus.GaugeVec
	SampleRating  *prometheus.GaugeVec

	// RunDurationSeconds measures wall time per completed run.
	RunDurationSeconds *prometheus.HistogramVec
}

// NewRecorder creates the instruments and registers them with reg.
// It panics on duplicate registration, as promauto does.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	gauge := func(name, help string) *prometheus.GaugeVec {
		return factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      name,
			Help:      help,
		}, []string{"label"})
	}
	return &Recorder{
		TicksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ticks_total",
			Help:      "Ticks stepped by run label and event",
		}, []string{"label", "event"}),
		VotesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "votes_total",
			Help:      "Helpfulness votes cast by run label and kind",
		}, []string{"label", "kind"}),
		Population:    gauge("population", "Reviews created so far"),
		SampleQuality: gauge("sample_quality", "Mean quality of the latest sample"),
		SampleFitness: gauge("sample_fitness", "Mean fitness times rating of the latest sample"),
		SampleRating:  gauge("sample_rating", "Mean rating of the latest sample"),
		RunDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of completed runs in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"label"}),
	}
}

// ObserveStep records one tick.
func (r *Recorder) ObserveStep(label string, res platform.StepResult) {
	r.TicksTotal.WithLabelValues(label, string(res.Event)).Inc()
	if res.Tally.Positive > 0 {
		r.VotesTotal.WithLabelValues(label, "positive").Add(float64(res.Tally.Positive))
	}
	if res.Tally.Negative > 0 {
		r.VotesTotal.WithLabelValues(label, "negative").Add(float64(res.Tally.Negative))
	}
	r.Population.WithLabelValues(label).Set(float64(res.Population))
	r.SampleQuality.WithLabelValues(label).Set(res.Aggregates.Quality)
	r.SampleFitness.WithLabelValues(label).Set(res.Aggregates.Fitness)
	r.SampleRating.WithLabelValues(label).Set(res.Aggregates.Rating)
}

// ObserveRun records the duration of a completed run.
func (r *Recorder) ObserveRun(label string, d time.Duration) {
	r.RunDurationSeconds.WithLabelValues(label).Observe(d.Seconds())
}

// #endregion recorder

// #region text

// WriteText gathers g and writes every family in the Prometheus text format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// #endregion text
