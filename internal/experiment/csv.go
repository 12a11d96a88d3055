package experiment

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// #region metric

// Metric selects one sample aggregate for a wide table.
type Metric string

const (
	MetricQuality Metric = "Quality"
	MetricFitness Metric = "Fitness"
	MetricRating  Metric = "Rating"
)

// Metrics lists every metric in report order.
func Metrics() []Metric { return []Metric{MetricQuality, MetricFitness, MetricRating} }

func (m Metric) of(r TickRecord) (float64, error) {
	switch m {
	case MetricQuality:
		return r.Quality, nil
	case MetricFitness:
		return r.Fitness, nil
	case MetricRating:
		return r.Rating, nil
	}
	return 0, fmt.Errorf("unknown metric %q", string(m))
}

// #endregion metric

// #region csv

var longHeader = []string{
	"run_id", "label", "tick", "population", "event", "sample_size",
	"quality", "fitness", "rating", "votes_positive", "votes_negative",
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// WriteCSV writes every tick of every series in long format, one row per
// run and tick.
func WriteCSV(w io.Writer, series ...*Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(longHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, s := range series {
		for _, r := range s.Records {
			row := []string{
				s.RunID, s.Label,
				strconv.Itoa(r.Tick), strconv.Itoa(r.Population), string(r.Event), strconv.Itoa(r.SampleSize),
				ftoa(r.Quality), ftoa(r.Fitness), ftoa(r.Rating),
				strconv.Itoa(r.VotesPositive), strconv.Itoa(r.VotesNegative),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMetricTable writes one metric in wide format: a "No. Reviews" column
// taken from the last series, then one column per series label. All series
// must have the same number of ticks.
func WriteMetricTable(w io.Writer, metric Metric, series ...*Series) error {
	if len(series) == 0 {
		return fmt.Errorf("metric table %s: no series", metric)
	}
	rows := len(series[0].Records)
	header := []string{"No. Reviews"}
	for _, s := range series {
		if len(s.Records) != rows {
			return fmt.Errorf("metric table %s: series %s has %d ticks, want %d", metric, s.Label, len(s.Records), rows)
		}
		header = append(header, s.Label)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	pop := series[len(series)-1]
	for i := 0; i < rows; i++ {
		row := make([]string, 0, len(header))
		row = append(row, strconv.Itoa(pop.Records[i].Population))
		for _, s := range series {
			v, err := metric.of(s.Records[i])
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

// TableName is the file name of a wide metric table for a sweep, in the
// layout line_plot_<variable>_<validation>_<metric>_DF.csv.
func TableName(variable Variable, validation string, metric Metric) string {
	return fmt.Sprintf("line_plot_%s_%s_%s_DF.csv", variable, validation, metric)
}

// #endregion csv
