package evo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats is the running state of one evolution. Per-generation counters reset
// at the start of every generation; totals only grow.
type Stats struct {
	Generation       int     `json:"generation"`
	MaxGenerations   int     `json:"max_generations"`
	BestFitness      float64 `json:"best_fitness"`
	ElapsedSeconds   float64 `json:"elapsed_seconds"`
	Mutations        int     `json:"mutations"`
	Crossovers       int     `json:"crossovers"`
	TotalMutations   int     `json:"total_mutations"`
	TotalCrossovers  int     `json:"total_crossovers"`
	TotalEvaluations int     `json:"total_evaluations"`
}

func (s Stats) String() string {
	if s.MaxGenerations == 0 {
		return fmt.Sprintf("[%d] (%.3fs) F: %.3f C: %d M: %d",
			s.Generation, s.ElapsedSeconds, s.BestFitness, s.Crossovers, s.Mutations)
	}
	return fmt.Sprintf("[%d/%d] (%.3fs) F: %.3f C: %d M: %d",
		s.Generation, s.MaxGenerations, s.ElapsedSeconds, s.BestFitness, s.Crossovers, s.Mutations)
}

func (s *Stats) beginGeneration() {
	s.Mutations = 0
	s.Crossovers = 0
}

func (s *Stats) endGeneration(best float64, elapsedSeconds float64) {
	s.Generation++
	s.BestFitness = best
	s.TotalMutations += s.Mutations
	s.TotalCrossovers += s.Crossovers
	s.ElapsedSeconds = elapsedSeconds
}

// GenerationSummary describes the fitness distribution of one population.
type GenerationSummary struct {
	Generation     int     `json:"generation"`
	BestFitness    float64 `json:"best_fitness"`
	WorstFitness   float64 `json:"worst_fitness"`
	MeanFitness    float64 `json:"mean_fitness"`
	StdDevFitness  float64 `json:"stddev_fitness"`
	Mutations      int     `json:"mutations"`
	Crossovers     int     `json:"crossovers"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// Summarize computes the distribution of a ranked population. Best and worst
// follow the ranking, so they respect the optimization direction.
func Summarize[G any](generation int, ranked []Individual[G]) GenerationSummary {
	summary := GenerationSummary{Generation: generation}
	if len(ranked) == 0 {
		return summary
	}
	values := Fitnesses(ranked)
	summary.BestFitness = values[0]
	summary.WorstFitness = values[len(values)-1]
	if floats.HasNaN(values) {
		summary.MeanFitness = math.NaN()
		summary.StdDevFitness = math.NaN()
		return summary
	}
	if len(values) == 1 {
		summary.MeanFitness = values[0]
		return summary
	}
	summary.MeanFitness, summary.StdDevFitness = stat.MeanStdDev(values, nil)
	return summary
}

// Fitnesses extracts the fitness vector in population order.
func Fitnesses[G any](population []Individual[G]) []float64 {
	out := make([]float64, len(population))
	for i := range population {
		out[i] = population[i].Fitness
	}
	return out
}
