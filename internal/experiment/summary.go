package experiment

import (
	"fmt"

	"github.com/jamumford/Online-Product-Reviews/internal/platform"
)

// #region summary

// Summary aggregates a series into the figures a report needs.
type Summary struct {
	RunID         string  `json:"run_id"`
	Label         string  `json:"label"`
	Ticks         int     `json:"ticks"`
	Population    int     `json:"population"`
	Mutations     int     `json:"mutations"`
	Exploitations int     `json:"exploitations"`
	VotesPositive int     `json:"votes_positive"`
	VotesNegative int     `json:"votes_negative"`
	FinalQuality  float64 `json:"final_quality"`
	FinalFitness  float64 `json:"final_fitness"`
	FinalRating   float64 `json:"final_rating"`
	MeanQuality   float64 `json:"mean_quality"`
	MeanFitness   float64 `json:"mean_fitness"`
	MeanRating    float64 `json:"mean_rating"`
}

// Summarize folds the tick records of s.
func Summarize(s *Series) Summary {
	sum := Summary{RunID: s.RunID, Label: s.Label, Ticks: len(s.Records)}
	if len(s.Records) == 0 {
		sum.Population = len(s.Reviews)
		return sum
	}
	for _, r := range s.Records {
		switch r.Event {
		case platform.EventMutation:
			sum.Mutations++
		case platform.EventExploitation:
			sum.Exploitations++
		}
		sum.VotesPositive += r.VotesPositive
		sum.VotesNegative += r.VotesNegative
		sum.MeanQuality += r.Quality
		sum.MeanFitness += r.Fitness
		sum.MeanRating += r.Rating
	}
	n := float64(len(s.Records))
	sum.MeanQuality /= n
	sum.MeanFitness /= n
	sum.MeanRating /= n

	last := s.Records[len(s.Records)-1]
	sum.Population = last.Population
	sum.FinalQuality = last.Quality
	sum.FinalFitness = last.Fitness
	sum.FinalRating = last.Rating
	return sum
}

// #endregion summary

// #region compare

// Divergence is the first field on a tick where two series disagree.
type Divergence struct {
	Tick  int    `json:"tick"`
	Field string `json:"field"`
	Want  string `json:"want"`
	Got   string `json:"got"`
}

func (d Divergence) String() string {
	return fmt.Sprintf("tick %d: %s want %s got %s", d.Tick, d.Field, d.Want, d.Got)
}

// Compare reports, per tick, the first differing field between want and
// got. Runs are deterministic, so values compare exactly.
func Compare(want, got []TickRecord) []Divergence {
	var out []Divergence
	n := min(len(want), len(got))
	for i := 0; i < n; i++ {
		w, g := want[i], got[i]
		fields := []struct {
			name string
			w, g any
		}{
			{"tick", w.Tick, g.Tick},
			{"population", w.Population, g.Population},
			{"event", w.Event, g.Event},
			{"sample_size", w.SampleSize, g.SampleSize},
			{"quality", w.Quality, g.Quality},
			{"fitness", w.Fitness, g.Fitness},
			{"rating", w.Rating, g.Rating},
			{"votes_positive", w.VotesPositive, g.VotesPositive},
			{"votes_negative", w.VotesNegative, g.VotesNegative},
		}
		for _, f := range fields {
			if f.w != f.g {
				out = append(out, Divergence{Tick: w.Tick, Field: f.name, Want: fmt.Sprint(f.w), Got: fmt.Sprint(f.g)})
				break
			}
		}
	}
	if len(want) != len(got) {
		out = append(out, Divergence{Tick: n, Field: "length", Want: fmt.Sprint(len(want)), Got: fmt.Sprint(len(got))})
	}
	return out
}

// #endregion compare
