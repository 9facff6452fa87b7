package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"evoforge/internal/model"
)

// Summary condenses a run's best-by-generation series.
type Summary struct {
	Generations int     `json:"generations"`
	InitialBest float64 `json:"initial_best"`
	FinalBest   float64 `json:"final_best"`
	BestOverall float64 `json:"best_overall"`
	BestMean    float64 `json:"best_mean"`
	BestStdDev  float64 `json:"best_stddev"`
	Improvement float64 `json:"improvement"`
}

// BestSeries extracts the best fitness of every generation.
func BestSeries(history []model.GenerationRecord) []float64 {
	out := make([]float64, len(history))
	for i, g := range history {
		out[i] = g.BestFitness
	}
	return out
}

// Summarize reports the best-fitness trajectory. Improvement is positive when
// the run moved toward its objective, whichever direction that is.
func Summarize(history []model.GenerationRecord, minimize bool) Summary {
	if len(history) == 0 {
		return Summary{}
	}
	series := BestSeries(history)
	s := Summary{
		Generations: len(history),
		InitialBest: series[0],
		FinalBest:   series[len(series)-1],
	}
	if minimize {
		s.BestOverall = floats.Min(series)
		s.Improvement = s.InitialBest - s.FinalBest
	} else {
		s.BestOverall = floats.Max(series)
		s.Improvement = s.FinalBest - s.InitialBest
	}
	if len(series) == 1 {
		s.BestMean = series[0]
		return s
	}
	s.BestMean, s.BestStdDev = stat.MeanStdDev(series, nil)
	if math.IsNaN(s.BestStdDev) {
		s.BestStdDev = 0
	}
	return s
}
