package evo

import (
	"math"
	"slices"
)

// Better reports whether fitness a strictly beats b in the configured direction.
// NaN never beats anything.
func Better(a, b float64, minimize bool) bool {
	if math.IsNaN(a) {
		return false
	}
	if math.IsNaN(b) {
		return true
	}
	if minimize {
		return a < b
	}
	return a > b
}

// BetterOrEqual is the adjacency predicate a sorted population satisfies.
func BetterOrEqual(a, b float64, minimize bool) bool {
	return !Better(b, a, minimize)
}

// Reached reports whether fitness meets target in the configured direction.
func Reached(fitness, target float64, minimize bool) bool {
	if minimize {
		return fitness <= target
	}
	return fitness >= target
}

// SortPopulation orders individuals best-first. Equal fitness keeps input order.
func SortPopulation[G any](population []Individual[G], minimize bool) {
	slices.SortStableFunc(population, func(a, b Individual[G]) int {
		switch {
		case Better(a.Fitness, b.Fitness, minimize):
			return -1
		case Better(b.Fitness, a.Fitness, minimize):
			return 1
		default:
			return 0
		}
	})
}

// TransformedFitness is the selection weight of a fitness value: the raw value
// when maximizing, its reciprocal when minimizing. A raw zero under minimize is
// the best possible score and maps to +Inf.
func TransformedFitness(fitness float64, minimize bool) float64 {
	if !minimize {
		return fitness
	}
	if fitness == 0 {
		return math.Inf(1)
	}
	return 1 / fitness
}

// SelectionWeights returns the transformed fitness of every ranked individual
// and their sum.
func SelectionWeights[G any](population []Individual[G], minimize bool) ([]float64, float64) {
	weights := make([]float64, len(population))
	total := 0.0
	for i := range population {
		weights[i] = TransformedFitness(population[i].Fitness, minimize)
		total += weights[i]
	}
	return weights, total
}
